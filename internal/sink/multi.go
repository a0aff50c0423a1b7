package sink

import (
	"errors"

	"handshake-scraper/internal/domain"
)

// Multi fans records out to several sinks. Append fails on the first
// failing sink; Finalize runs every sink and reports ErrNoRecords only
// when no sink had anything real to complain about.
type Multi struct {
	sinks []Sink
}

func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Append(rec domain.JobRecord) error {
	for _, s := range m.sinks {
		if err := s.Append(rec); err != nil {
			return err
		}
	}
	return nil
}

func (m *Multi) Finalize() error {
	var empty bool
	var firstErr error
	for _, s := range m.sinks {
		err := s.Finalize()
		switch {
		case err == nil:
		case errors.Is(err, ErrNoRecords):
			empty = true
		case firstErr == nil:
			firstErr = err
		}
	}
	if firstErr != nil {
		return firstErr
	}
	if empty {
		return ErrNoRecords
	}
	return nil
}
