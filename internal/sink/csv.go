package sink

import (
	"encoding/csv"
	"fmt"
	"os"

	"handshake-scraper/internal/domain"
	"handshake-scraper/internal/locator"
)

// CSV writes one row per record in the fixed column order, flushing after
// every append. File creation is deferred until the first record so a
// zero-result run leaves no empty artifact behind. The file is truncated,
// not appended, each run.
type CSV struct {
	path string
	f    *os.File
	w    *csv.Writer
	rows int
}

func NewCSV(path string) *CSV {
	return &CSV{path: path}
}

func (c *CSV) Append(rec domain.JobRecord) error {
	if c.f == nil {
		f, err := os.Create(c.path)
		if err != nil {
			return fmt.Errorf("create %s: %w", c.path, err)
		}
		c.f = f
		c.w = csv.NewWriter(f)
		if err := c.w.Write(locator.Columns()); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	row := make([]string, 0, len(locator.Columns()))
	for _, col := range locator.Columns() {
		if col == locator.FieldJobLink {
			row = append(row, rec.Link)
			continue
		}
		row = append(row, rec.Get(col))
	}
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	c.rows++
	return nil
}

func (c *CSV) Finalize() error {
	if c.f == nil {
		return ErrNoRecords
	}
	c.w.Flush()
	flushErr := c.w.Error()
	closeErr := c.f.Close()
	c.f = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

func (c *CSV) Rows() int { return c.rows }

func (c *CSV) Path() string { return c.path }
