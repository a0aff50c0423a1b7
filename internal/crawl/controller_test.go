package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handshake-scraper/internal/browser"
	"handshake-scraper/internal/domain"
	"handshake-scraper/internal/events"
	"handshake-scraper/internal/locator"
)

// fakeBrowser serves canned HTML keyed by page number.
type fakeBrowser struct {
	pages  map[int]string // page number -> html
	navErr map[int]error
}

func pageOf(rawURL string) int {
	u, _ := url.Parse(rawURL)
	var n int
	fmt.Sscanf(u.Query().Get("page"), "%d", &n)
	return n
}

func (f *fakeBrowser) Navigate(ctx context.Context, u string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := f.navErr[pageOf(u)]; ok {
		return err
	}
	return nil
}
func (f *fakeBrowser) WaitVisible(ctx context.Context, sel string) error { return nil }
func (f *fakeBrowser) HTML(ctx context.Context) (string, error)         { return "", nil }

// htmlFor lets Navigate remember which page to serve from HTML.
type statefulBrowser struct {
	fakeBrowser
	current int
}

func (s *statefulBrowser) Navigate(ctx context.Context, u string) error {
	if err := s.fakeBrowser.Navigate(ctx, u); err != nil {
		return err
	}
	s.current = pageOf(u)
	return nil
}

func (s *statefulBrowser) HTML(ctx context.Context) (string, error) {
	return s.pages[s.current], nil
}

type fakeExtractor struct {
	visited   []string
	failAfter int // return failErr once this many jobs succeeded
	failErr   error
}

func (f *fakeExtractor) Extract(ctx context.Context, link domain.JobLink) (domain.JobRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.NewJobRecord(link.URL), err
	}
	if f.failErr != nil && len(f.visited) >= f.failAfter {
		return domain.NewJobRecord(link.URL), f.failErr
	}
	f.visited = append(f.visited, link.URL)
	rec := domain.NewJobRecord(link.URL)
	rec.Set(locator.FieldJobTitle, "Intern")
	return rec, nil
}

type noThrottle struct{}

func (noThrottle) Duration() time.Duration                         { return 0 }
func (noThrottle) Wait(ctx context.Context, d time.Duration) error { return ctx.Err() }

type memSink struct {
	rows   []domain.JobRecord
	appErr error
}

func (m *memSink) Append(rec domain.JobRecord) error {
	if m.appErr != nil {
		return m.appErr
	}
	m.rows = append(m.rows, rec)
	return nil
}

func searchPage(ids ...int) string {
	h := `<main id="skip-to-content">`
	for _, id := range ids {
		h += fmt.Sprintf(`<a href="/job-search/%d">Job %d</a>`, id, id)
	}
	return h + `</main>`
}

func table() locator.Table {
	t := locator.Default()
	return t
}

func mustTarget(t *testing.T) Target {
	t.Helper()
	target, err := ParseTarget("https://app.example.com/postings?page=1")
	require.NoError(t, err)
	return target
}

func newController(t *testing.T, b Browser, maxPages int, sink Appender) (*Controller, *fakeExtractor) {
	t.Helper()
	ex := &fakeExtractor{}
	em := events.NewEmitter(events.NewHub(), "test")
	return New(mustTarget(t), maxPages, table(), b, ex, noThrottle{}, sink, em), ex
}

func TestRunEndOfResults(t *testing.T) {
	// scenario A: page 1 has 3 jobs, page 2 is empty, no page limit
	b := &statefulBrowser{fakeBrowser: fakeBrowser{pages: map[int]string{
		1: searchPage(1, 2, 3),
		2: searchPage(),
	}}}
	sink := &memSink{}
	ctrl, ex := newController(t, b, 0, sink)

	sum, err := ctrl.Run(context.Background(), "run-a")
	require.NoError(t, err)
	assert.Equal(t, ReasonEndOfResults, sum.Reason)
	assert.True(t, sum.Reason.Graceful())
	assert.Equal(t, 2, sum.PagesVisited)
	assert.Equal(t, 3, sum.JobsVisited)
	assert.Equal(t, 3, sum.Records)
	assert.Len(t, sink.rows, 3)
	assert.Equal(t, "https://app.example.com/job-search/1", sink.rows[0].Link)
	assert.Len(t, ex.visited, 3)
}

func TestRunMaxPagesReached(t *testing.T) {
	// scenario B: max-pages=1, page 1 has 5 jobs; page 2 would too
	b := &statefulBrowser{fakeBrowser: fakeBrowser{pages: map[int]string{
		1: searchPage(1, 2, 3, 4, 5),
		2: searchPage(6, 7),
	}}}
	sink := &memSink{}
	ctrl, _ := newController(t, b, 1, sink)

	sum, err := ctrl.Run(context.Background(), "run-b")
	require.NoError(t, err)
	assert.Equal(t, ReasonMaxPages, sum.Reason)
	assert.Equal(t, 1, sum.PagesVisited)
	assert.Len(t, sink.rows, 5)
}

func TestRunNoResultsOnFirstPage(t *testing.T) {
	// scenario D: zero links on page 1
	b := &statefulBrowser{fakeBrowser: fakeBrowser{pages: map[int]string{1: searchPage()}}}
	sink := &memSink{}
	ctrl, _ := newController(t, b, 0, sink)

	sum, err := ctrl.Run(context.Background(), "run-d")
	require.NoError(t, err)
	assert.Equal(t, ReasonEndOfResults, sum.Reason)
	assert.Empty(t, sink.rows)
	assert.Equal(t, 0, sum.Records)
}

func TestRunTerminatesWhenPagesGoEmpty(t *testing.T) {
	pages := map[int]string{}
	for i := 1; i <= 4; i++ {
		pages[i] = searchPage(i)
	}
	// every page after 4 yields zero links
	for i := 5; i <= 100; i++ {
		pages[i] = searchPage()
	}
	b := &statefulBrowser{fakeBrowser: fakeBrowser{pages: pages}}
	sink := &memSink{}
	ctrl, _ := newController(t, b, 0, sink)

	sum, err := ctrl.Run(context.Background(), "run-k")
	require.NoError(t, err)
	assert.Equal(t, ReasonEndOfResults, sum.Reason)
	assert.Equal(t, 5, sum.PagesVisited)
	assert.Len(t, sink.rows, 4)
}

func TestRunPageLoadFailureStopsGracefully(t *testing.T) {
	b := &statefulBrowser{fakeBrowser: fakeBrowser{
		pages:  map[int]string{1: searchPage(1, 2)},
		navErr: map[int]error{2: errors.New("net::ERR_CONNECTION_RESET")},
	}}
	sink := &memSink{}
	ctrl, _ := newController(t, b, 0, sink)

	sum, err := ctrl.Run(context.Background(), "run-fail")
	require.NoError(t, err)
	assert.Equal(t, ReasonEndOfResults, sum.Reason)
	assert.Len(t, sink.rows, 2, "page 1 records survive the page 2 failure")
}

func TestRunErrorBannerTreatedAsEmpty(t *testing.T) {
	b := &statefulBrowser{fakeBrowser: fakeBrowser{pages: map[int]string{
		1: searchPage(1),
		2: `<main id="skip-to-content">Something went wrong. Please try again.</main>`,
	}}}
	sink := &memSink{}
	ctrl, _ := newController(t, b, 0, sink)

	sum, err := ctrl.Run(context.Background(), "run-banner")
	require.NoError(t, err)
	assert.Equal(t, ReasonEndOfResults, sum.Reason)
	assert.Len(t, sink.rows, 1)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &statefulBrowser{fakeBrowser: fakeBrowser{pages: map[int]string{1: searchPage(1)}}}
	sink := &memSink{}
	ctrl, _ := newController(t, b, 0, sink)

	sum, err := ctrl.Run(ctx, "run-c")
	require.NoError(t, err)
	assert.Equal(t, ReasonCancelled, sum.Reason)
	assert.True(t, sum.Reason.Graceful())
	assert.Empty(t, sink.rows)
}

func TestRunBrowserLossOnNavigationIsFatal(t *testing.T) {
	// page 1 scrapes fine, then Chrome dies before page 2
	b := &statefulBrowser{fakeBrowser: fakeBrowser{
		pages:  map[int]string{1: searchPage(1, 2)},
		navErr: map[int]error{2: fmt.Errorf("page load: %w", browser.ErrSessionLost)},
	}}
	sink := &memSink{}
	ctrl, _ := newController(t, b, 0, sink)

	sum, err := ctrl.Run(context.Background(), "run-lost")
	require.ErrorIs(t, err, browser.ErrSessionLost)
	assert.Equal(t, ReasonFatal, sum.Reason)
	assert.False(t, sum.Reason.Graceful())
	assert.Len(t, sink.rows, 2, "rows scraped before the loss survive")
}

func TestRunBrowserLossDuringExtractionIsFatal(t *testing.T) {
	b := &statefulBrowser{fakeBrowser: fakeBrowser{pages: map[int]string{1: searchPage(1, 2, 3)}}}
	sink := &memSink{}
	ctrl, ex := newController(t, b, 0, sink)
	ex.failAfter = 1
	ex.failErr = fmt.Errorf("read title: %w", browser.ErrSessionLost)

	sum, err := ctrl.Run(context.Background(), "run-lost-job")
	require.ErrorIs(t, err, browser.ErrSessionLost)
	assert.Equal(t, ReasonFatal, sum.Reason)
	assert.Len(t, sink.rows, 1, "no blank rows are appended after the loss")
}

func TestRunSinkFailureIsFatal(t *testing.T) {
	b := &statefulBrowser{fakeBrowser: fakeBrowser{pages: map[int]string{1: searchPage(1)}}}
	sink := &memSink{appErr: errors.New("disk full")}
	ctrl, _ := newController(t, b, 0, sink)

	sum, err := ctrl.Run(context.Background(), "run-s")
	require.Error(t, err)
	assert.Equal(t, ReasonFatal, sum.Reason)
	assert.False(t, sum.Reason.Graceful())
}
