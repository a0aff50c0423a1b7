// Package extract turns one job detail page into a JobRecord. A bad page
// never fails the run: unresolvable locators leave blank fields and a
// warning, and the record ships anyway.
package extract

import (
	"context"
	"errors"
	"strings"

	"handshake-scraper/internal/browser"
	"handshake-scraper/internal/domain"
	"handshake-scraper/internal/events"
	"handshake-scraper/internal/locator"
)

// Page is the slice of the browser capability extraction needs.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, sel string) error
	Text(ctx context.Context, ref locator.Ref) (string, error)
	Attribute(ctx context.Context, ref locator.Ref, name string) (string, error)
	Click(ctx context.Context, ref locator.Ref) error
}

type Extractor struct {
	page   Page
	table  locator.Table
	events *events.Emitter
}

func New(page Page, table locator.Table, em *events.Emitter) *Extractor {
	return &Extractor{page: page, table: table, events: em}
}

// Extract visits the job page and applies every locator independently; a
// miss on one field never short-circuits the rest. The returned record
// always carries the input URL as Job.Link. Only cancellation and a lost
// browser session return an error; anything page-shaped is absorbed into
// blank fields.
func (e *Extractor) Extract(ctx context.Context, link domain.JobLink) (domain.JobRecord, error) {
	rec := domain.NewJobRecord(link.URL)

	if err := e.page.Navigate(ctx, link.URL); err != nil {
		if ctx.Err() != nil {
			return rec, ctx.Err()
		}
		if errors.Is(err, browser.ErrSessionLost) {
			return rec, err
		}
		e.events.Warnf("job page failed to load: %s: %v", link.URL, err)
		e.markAllAbsent(rec)
		return rec, nil
	}
	if err := e.page.WaitVisible(ctx, e.table.ReadySelector); err != nil {
		e.events.Warnf("main content not detected quickly on %s", link.URL)
	}

	for _, fl := range e.table.Fields {
		if fl.Expand != nil {
			// best-effort: collapsed sections hide the real text
			_ = e.page.Click(ctx, *fl.Expand)
		}

		var value string
		var err error
		switch fl.Strategy {
		case locator.StrategyAttribute:
			value, err = e.page.Attribute(ctx, fl.Ref, fl.Attr)
		default:
			value, err = e.page.Text(ctx, fl.Ref)
		}
		if err != nil {
			if errors.Is(err, browser.ErrSessionLost) {
				return rec, err
			}
			value = ""
		}
		value = strings.TrimSpace(value)

		rec.Set(fl.Field, value)
		if value != "" {
			e.events.Dataf(fl.Field, value)
		} else if fl.Required {
			e.events.Warnf("missing required field %s on %s", fl.Field, link.URL)
		}
	}
	e.events.Dataf(locator.FieldJobLink, link.URL)

	return rec, nil
}

// markAllAbsent records a blank for every configured field so the output
// row has a stable shape even when the page never loaded.
func (e *Extractor) markAllAbsent(rec domain.JobRecord) {
	for _, fl := range e.table.Fields {
		rec.Set(fl.Field, "")
		if fl.Required {
			e.events.Warnf("missing required field %s on %s", fl.Field, rec.Link)
		}
	}
}
