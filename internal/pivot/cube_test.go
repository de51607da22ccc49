package pivot

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amtRows() []Row {
	return []Row{
		{"cohort": "A", "region": "east", "amt": 10},
		{"cohort": "A", "region": "west", "amt": 5},
		{"cohort": "B", "region": "east", "amt": 7},
	}
}

func TestBuildFlatSum(t *testing.T) {
	res, err := Build(&Request{
		Spec: Spec{
			RowFields: []string{"cohort"},
			Values:    []ValueSpec{{Col: "amt", Agg: AggSum}},
		},
		Rows: amtRows(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"cohort", "amt (sum)"}, res.Columns)
	assert.Equal(t, []map[string]any{
		{"cohort": "A", "amt (sum)": 15.0},
		{"cohort": "B", "amt (sum)": 7.0},
	}, res.Data)
	assert.Equal(t, map[string]float64{"amt (sum)": 22.0}, res.GrandTotals)
}

func TestBuildCrossTab(t *testing.T) {
	res, err := Build(&Request{
		Spec: Spec{
			RowFields: []string{"cohort"},
			ColFields: []string{"region"},
			Values:    []ValueSpec{{Col: "amt", Agg: AggSum}},
		},
		Rows: amtRows(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"cohort", "east • amt (sum)", "west • amt (sum)"}, res.Columns)
	require.Len(t, res.Data, 2)
	assert.Equal(t, map[string]any{
		"cohort":           "A",
		"east • amt (sum)": 10.0,
		"west • amt (sum)": 5.0,
	}, res.Data[0])
	// The table is dense: B never saw a west row, the cell is still present.
	assert.Equal(t, map[string]any{
		"cohort":           "B",
		"east • amt (sum)": 7.0,
		"west • amt (sum)": nil,
	}, res.Data[1])
}

func TestBuildWithFilter(t *testing.T) {
	res, err := Build(&Request{
		Spec: Spec{
			RowFields: []string{"cohort"},
			Values:    []ValueSpec{{Col: "amt", Agg: AggSum}},
			Filters:   []Rule{{Column: "region", Operator: OpEquals, Value: "east"}},
		},
		Rows: amtRows(),
	})
	require.NoError(t, err)

	assert.Equal(t, []map[string]any{
		{"cohort": "A", "amt (sum)": 10.0},
		{"cohort": "B", "amt (sum)": 7.0},
	}, res.Data)
}

func TestBuildAvgOfNoNumbersIsNull(t *testing.T) {
	res, err := Build(&Request{
		Spec: Spec{
			RowFields: []string{"cohort"},
			Values:    []ValueSpec{{Col: "amt", Agg: AggAvg}},
		},
		Rows: []Row{
			{"cohort": "A", "amt": "n/a"},
			{"cohort": "B", "amt": 4},
		},
	})
	require.NoError(t, err)

	// Average of zero numeric contributions is undefined, not 0.
	assert.Equal(t, map[string]any{"cohort": "A", "amt (avg)": nil}, res.Data[0])
	assert.Equal(t, map[string]any{"cohort": "B", "amt (avg)": 4.0}, res.Data[1])
}

func TestBuildCountDistinct(t *testing.T) {
	rows := []Row{
		{"g": "one", "v": "x"},
		{"g": "one", "v": "x"},
		{"g": "one", "v": "y"},
		{"g": "one", "v": nil},
		{"g": "one", "v": ""},
	}
	res, err := Build(&Request{
		Spec: Spec{
			RowFields: []string{"g"},
			Values:    []ValueSpec{{Col: "v", Agg: AggCountDistinct}},
		},
		Rows: rows,
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, res.Data[0]["v (count_distinct)"])
}

func TestBuildCountCountsRowsNotValues(t *testing.T) {
	rows := []Row{
		{"g": "one", "v": nil},
		{"g": "one", "v": "x"},
		{"g": "one", "v": 3},
	}
	res, err := Build(&Request{
		Spec: Spec{
			RowFields: []string{"g"},
			Values:    []ValueSpec{{Col: "v", Agg: AggCount}},
		},
		Rows: rows,
	})
	require.NoError(t, err)
	assert.Equal(t, 3.0, res.Data[0]["v (count)"])
}

func TestBuildMinMaxSkipNonNumeric(t *testing.T) {
	rows := []Row{
		{"g": "one", "v": 3},
		{"g": "one", "v": "oops"},
		{"g": "one", "v": 9},
		{"g": "two", "v": "never numeric"},
	}
	res, err := Build(&Request{
		Spec: Spec{
			RowFields: []string{"g"},
			Values: []ValueSpec{
				{Col: "v", Agg: AggMin},
				{Col: "v", Agg: AggMax},
			},
		},
		Rows: rows,
	})
	require.NoError(t, err)
	assert.Equal(t, 3.0, res.Data[0]["v (min)"])
	assert.Equal(t, 9.0, res.Data[0]["v (max)"])
	assert.Nil(t, res.Data[1]["v (min)"])
	assert.Nil(t, res.Data[1]["v (max)"])
}

func TestBuildSameColumnTwoAggs(t *testing.T) {
	res, err := Build(&Request{
		Spec: Spec{
			RowFields: []string{"cohort"},
			Values: []ValueSpec{
				{Col: "amt", Agg: AggSum},
				{Col: "amt", Agg: AggAvg},
			},
		},
		Rows: amtRows(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"cohort", "amt (sum)", "amt (avg)"}, res.Columns)
	assert.Equal(t, 15.0, res.Data[0]["amt (sum)"])
	assert.Equal(t, 7.5, res.Data[0]["amt (avg)"])
}

func TestBuildMissingColumnDegrades(t *testing.T) {
	res, err := Build(&Request{
		Spec: Spec{
			RowFields: []string{"cohort", "ghost"},
			Values: []ValueSpec{
				{Col: "amt", Agg: AggSum},
				{Col: "missing", Agg: AggSum},
				{Col: "missing", Agg: AggAvg},
			},
		},
		Rows: amtRows(),
	})
	require.NoError(t, err)

	// Missing row field coerces to nil; missing value columns never receive
	// numeric contributions and finalize per their empty-input rule.
	assert.Equal(t, nil, res.Data[0]["ghost"])
	assert.Equal(t, 0.0, res.Data[0]["missing (sum)"])
	assert.Nil(t, res.Data[0]["missing (avg)"])
}

func TestBuildEmptyRows(t *testing.T) {
	res, err := Build(&Request{
		Spec: Spec{
			RowFields: []string{"cohort"},
			Values:    []ValueSpec{{Col: "amt", Agg: AggSum}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"cohort", "amt (sum)"}, res.Columns)
	assert.Empty(t, res.Data)
	assert.Equal(t, map[string]float64{"amt (sum)": 0}, res.GrandTotals)
}

func TestBuildRejectsMalformedSpec(t *testing.T) {
	_, err := Build(&Request{
		Spec: Spec{
			Values:  []ValueSpec{{Col: "amt", Agg: AggSum}},
			Filters: []Rule{{Column: "amt", Operator: OpBetween, Value: []any{1}}},
		},
		Rows: amtRows(),
	})
	require.ErrorIs(t, err, ErrMalformedRule)

	_, err = Build(&Request{
		Spec: Spec{Values: []ValueSpec{{Col: "amt", Agg: AggFunc("median")}}},
		Rows: amtRows(),
	})
	require.ErrorIs(t, err, ErrMalformedRule)
}

func TestBuildDeterministic(t *testing.T) {
	req := &Request{
		Spec: Spec{
			RowFields: []string{"cohort"},
			ColFields: []string{"region"},
			Values: []ValueSpec{
				{Col: "amt", Agg: AggSum},
				{Col: "amt", Agg: AggAvg},
			},
		},
		Rows: amtRows(),
	}
	first, err := Build(req)
	require.NoError(t, err)
	a, err := json.Marshal(first)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		next, err := Build(req)
		require.NoError(t, err)
		b, err := json.Marshal(next)
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))
	}
}

func TestFilterNeverGrowsOutput(t *testing.T) {
	spec := Spec{
		RowFields: []string{"cohort"},
		Values:    []ValueSpec{{Col: "amt", Agg: AggSum}},
	}
	base, err := Build(&Request{Spec: spec, Rows: amtRows()})
	require.NoError(t, err)

	rules := []Rule{
		{Column: "region", Operator: OpEquals, Value: "east"},
		{Column: "region", Operator: OpContains, Value: "e"},
		{Column: "amt", Operator: OpBetween, Value: []any{0, 100}},
		{Column: "amt", Operator: OpIn, Value: []any{5, 7}},
	}
	for _, rule := range rules {
		filtered := spec
		filtered.Filters = []Rule{rule}
		res, err := Build(&Request{Spec: filtered, Rows: amtRows()})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(res.Data), len(base.Data), "rule %v", rule)
	}
}

func TestSumGrandTotalConsistency(t *testing.T) {
	filter := Rule{Column: "region", Operator: OpEquals, Value: "east"}
	res, err := Build(&Request{
		Spec: Spec{
			RowFields: []string{"cohort"},
			Values:    []ValueSpec{{Col: "amt", Agg: AggSum}},
			Filters:   []Rule{filter},
		},
		Rows: amtRows(),
	})
	require.NoError(t, err)

	var cellSum float64
	for _, row := range res.Data {
		cellSum += row["amt (sum)"].(float64)
	}
	assert.Equal(t, cellSum, res.GrandTotals["amt (sum)"])

	var rawSum float64
	for _, row := range amtRows() {
		if filter.Matches(row) {
			rawSum += Coerce(row["amt"]).(float64)
		}
	}
	assert.Equal(t, rawSum, res.GrandTotals["amt (sum)"])
}

func TestCountInvariant(t *testing.T) {
	res, err := Build(&Request{
		Spec: Spec{
			RowFields: []string{"cohort"},
			ColFields: []string{"region"},
			Values:    []ValueSpec{{Col: "amt", Agg: AggCount}},
		},
		Rows: amtRows(),
	})
	require.NoError(t, err)

	var total float64
	for _, row := range res.Data {
		for col, v := range row {
			if col == "cohort" {
				continue
			}
			if n, ok := v.(float64); ok {
				total += n
			}
		}
	}
	assert.Equal(t, float64(len(amtRows())), total)
}

func TestDisplayKey(t *testing.T) {
	assert.Equal(t, "All", DisplayKey(""))
	assert.Equal(t, "east", DisplayKey("east"))
	assert.Equal(t, "east / 2021", DisplayKey("east"+KeySeparator+"2021"))
}

func TestBuildDateGrouping(t *testing.T) {
	hour := 0
	d := func(day int) Row {
		hour++ // distinct times of day must still land in one day bucket
		return Row{"when": time.Date(2021, 7, day, hour, 30, 0, 0, time.UTC), "amt": 1}
	}
	res, err := Build(&Request{
		Spec: Spec{
			RowFields: []string{"when"},
			Values:    []ValueSpec{{Col: "amt", Agg: AggCount}},
		},
		Rows: []Row{d(25), d(25), d(26)},
	})
	require.NoError(t, err)
	require.Len(t, res.Data, 2)
	assert.Equal(t, "2021-07-25", res.Data[0]["when"])
	assert.Equal(t, 2.0, res.Data[0]["amt (count)"])
}
