package pivot

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Remote computes a pivot over a dataset it already holds; only the spec
// crosses the boundary. The columnar engine implements it in process, a web
// client would implement it over HTTP. The contract is that for the same
// underlying data it returns exactly what Build would: same columns, same
// ordering, same numeric semantics.
type Remote interface {
	Pivot(ctx context.Context, spec Spec) (*Result, error)
}

// Executor routes a request to the local cube builder or the remote engine.
// Local execution is synchronous; remote execution is superseded by any
// newer Execute call on the same Executor, so a slow result for an outdated
// spec is discarded instead of overwriting a fresh one.
type Executor struct {
	remote       Remote
	localMaxRows int
	gen          atomic.Uint64
}

// NewExecutor builds a router. Requests carrying at most localMaxRows
// materialized rows run locally; larger or row-less requests go to remote.
// localMaxRows <= 0 means any materialized rows run locally.
func NewExecutor(remote Remote, localMaxRows int) *Executor {
	return &Executor{remote: remote, localMaxRows: localMaxRows}
}

// Execute runs one request. Stale remote results return ErrStale, remote
// failures return an error wrapping ErrRemote; neither path falls back to
// the other, so a result never silently reflects partial data.
func (e *Executor) Execute(ctx context.Context, req *Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	gen := e.gen.Add(1)

	if e.useLocal(req) {
		return Build(req)
	}

	res, err := e.remote.Pivot(ctx, req.Spec)
	if e.gen.Load() != gen {
		return nil, ErrStale
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	return res, nil
}

func (e *Executor) useLocal(req *Request) bool {
	if e.remote == nil {
		return true
	}
	if req.Rows == nil {
		return false
	}
	return e.localMaxRows <= 0 || len(req.Rows) <= e.localMaxRows
}
