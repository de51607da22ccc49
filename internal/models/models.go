package models

import "backend/internal/pivot"

// SessionCreateRequest registers a dataset: its column order plus the
// materialized rows. CSV parsing happens upstream; the API receives rows.
type SessionCreateRequest struct {
	Columns []string    `json:"columns"`
	Rows    []pivot.Row `json:"rows"`
}

// SessionResponse describes a registered dataset.
type SessionResponse struct {
	SessionID string   `json:"session_id"`
	NumRows   int      `json:"num_rows"`
	Columns   []string `json:"columns"`
	Columnar  bool     `json:"columnar"`
}

// ErrorResponse is the API error envelope.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
