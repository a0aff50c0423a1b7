// Package crawl drives the search-result traversal: one page at a time,
// one job at a time, in document order, against the single exclusive
// browser context.
package crawl

import (
	"context"
	"errors"
	"strings"
	"time"

	"handshake-scraper/internal/browser"
	"handshake-scraper/internal/domain"
	"handshake-scraper/internal/events"
	"handshake-scraper/internal/locator"
)

type State int

const (
	StateStart State = iota
	StateLoadingPage
	StateExtractingJobs
	StateAdvancing
	StateStopped
)

type StopReason string

const (
	ReasonEndOfResults StopReason = "end-of-results"
	ReasonMaxPages     StopReason = "max-pages-reached"
	ReasonCancelled    StopReason = "cancelled"
	ReasonFatal        StopReason = "fatal-error"
)

// Graceful reports whether the run still produced its accumulated output.
func (r StopReason) Graceful() bool { return r != ReasonFatal }

// Summary is the run aggregate: monotonically growing counters plus the
// reason the state machine stopped.
type Summary struct {
	RunID        string
	PagesVisited int
	JobsVisited  int
	JobsFailed   int
	Records      int
	Reason       StopReason
}

// Browser is the slice of the session the controller navigates with.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, sel string) error
	HTML(ctx context.Context) (string, error)
}

type Extractor interface {
	Extract(ctx context.Context, link domain.JobLink) (domain.JobRecord, error)
}

// Throttle injects the gentleness delay before every navigation.
type Throttle interface {
	Duration() time.Duration
	Wait(ctx context.Context, d time.Duration) error
}

// Appender receives each fully-built record; building is never
// interleaved with appending, so a cancelled run holds only whole rows.
type Appender interface {
	Append(rec domain.JobRecord) error
}

type Controller struct {
	target    Target
	maxPages  int // 0 = unbounded
	table     locator.Table
	browser   Browser
	extractor Extractor
	throttle  Throttle
	sink      Appender
	events    *events.Emitter
}

func New(target Target, maxPages int, table locator.Table, b Browser, ex Extractor, th Throttle, sink Appender, em *events.Emitter) *Controller {
	return &Controller{
		target:    target,
		maxPages:  maxPages,
		table:     table,
		browser:   b,
		extractor: ex,
		throttle:  th,
		sink:      sink,
		events:    em,
	}
}

// Run walks pages in strictly increasing order from the target's start
// page until a stop condition holds. Job-level failures never stop the
// loop; only a sink write error or a lost browser session is fatal.
// Cancellation is checked between jobs and between pages, never
// mid-record.
func (c *Controller) Run(ctx context.Context, runID string) (*Summary, error) {
	sum := &Summary{RunID: runID}
	state := StateStart
	pageNum := c.target.StartPage()
	var links []domain.JobLink

	for state != StateStopped {
		switch state {
		case StateStart:
			state = StateLoadingPage

		case StateLoadingPage:
			if ctx.Err() != nil {
				sum.Reason = ReasonCancelled
				state = StateStopped
				continue
			}
			if err := c.pause(ctx, "before page load"); err != nil {
				sum.Reason = ReasonCancelled
				state = StateStopped
				continue
			}

			pageURL := c.target.PageURL(pageNum)
			c.events.Emit(events.TypePage, "%d -> %s", pageNum, pageURL)

			if err := c.browser.Navigate(ctx, pageURL); err != nil {
				if ctx.Err() != nil {
					sum.Reason = ReasonCancelled
					state = StateStopped
					continue
				}
				if errors.Is(err, browser.ErrSessionLost) {
					sum.Reason = ReasonFatal
					return sum, err
				}
				// transient page failure: treat as empty, stop gracefully
				c.events.Warnf("search page %d failed to load: %v", pageNum, err)
				sum.Reason = ReasonEndOfResults
				state = StateStopped
				continue
			}
			sum.PagesVisited++

			if err := c.browser.WaitVisible(ctx, c.table.ReadySelector); err != nil {
				c.events.Warnf("main content not detected quickly on page %d", pageNum)
			}

			html, err := c.browser.HTML(ctx)
			if err != nil {
				if errors.Is(err, browser.ErrSessionLost) {
					sum.Reason = ReasonFatal
					return sum, err
				}
				c.events.Warnf("could not read page %d: %v", pageNum, err)
				sum.Reason = ReasonEndOfResults
				state = StateStopped
				continue
			}
			if c.table.ErrorBannerText != "" && strings.Contains(html, c.table.ErrorBannerText) {
				c.events.Warnf("error banner on page %d, treating as end of results", pageNum)
				sum.Reason = ReasonEndOfResults
				state = StateStopped
				continue
			}

			links, err = discoverLinks(html, pageURL, c.table.JobLinkSelector, pageNum)
			if err != nil {
				c.events.Warnf("could not parse page %d: %v", pageNum, err)
				sum.Reason = ReasonEndOfResults
				state = StateStopped
				continue
			}
			if len(links) == 0 {
				c.events.Emit(events.TypePage, "no job links on page %d, stopping", pageNum)
				sum.Reason = ReasonEndOfResults
				state = StateStopped
				continue
			}
			c.events.Emit(events.TypePage, "page %d: %d job links", pageNum, len(links))
			state = StateExtractingJobs

		case StateExtractingJobs:
			stopped := false
			for i, link := range links {
				if ctx.Err() != nil {
					sum.Reason = ReasonCancelled
					stopped = true
					break
				}
				if err := c.pause(ctx, "before job load"); err != nil {
					sum.Reason = ReasonCancelled
					stopped = true
					break
				}

				c.events.Emit(events.TypeJob, "%d/%d %s", i+1, len(links), link.URL)
				rec, err := c.extractor.Extract(ctx, link)
				if err != nil {
					// Extract only surfaces cancellation or a dead browser
					if errors.Is(err, browser.ErrSessionLost) {
						sum.Reason = ReasonFatal
						return sum, err
					}
					sum.Reason = ReasonCancelled
					stopped = true
					break
				}
				sum.JobsVisited++
				if rec.Empty() {
					sum.JobsFailed++
				}
				if err := c.sink.Append(rec); err != nil {
					sum.Reason = ReasonFatal
					return sum, err
				}
				sum.Records++
			}
			if stopped {
				state = StateStopped
				continue
			}
			state = StateAdvancing

		case StateAdvancing:
			if c.maxPages > 0 && sum.PagesVisited >= c.maxPages {
				sum.Reason = ReasonMaxPages
				state = StateStopped
				continue
			}
			pageNum++
			state = StateLoadingPage
		}
	}

	return sum, nil
}

func (c *Controller) pause(ctx context.Context, reason string) error {
	d := c.throttle.Duration()
	if d > 0 {
		c.events.Emit(events.TypeSleep, "%.2fs (%s)", d.Seconds(), reason)
	}
	return c.throttle.Wait(ctx, d)
}
