// Package sink accumulates extracted records into durable tabular output.
// Appends flush incrementally so a crash after N jobs still leaves N rows
// on disk.
package sink

import (
	"errors"

	"handshake-scraper/internal/domain"
)

// ErrNoRecords is returned by Finalize when nothing was ever appended;
// callers report it as a warning, not a failure.
var ErrNoRecords = errors.New("no records were appended")

type Sink interface {
	Append(rec domain.JobRecord) error
	Finalize() error
}
