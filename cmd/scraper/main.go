// Command scraper crawls a paginated Handshake job search and writes the
// extracted postings to a CSV file (and optionally a SQLite database).
//
// Usage:
//
//	scraper -url "https://app.joinhandshake.com/stu/postings?page=1" [-pages N] [-gentleness 0..100]
//
// The search URL must already encode the starting page number. The first
// run opens a visible browser window for the operator to complete SSO;
// the profile directory keeps the session for later runs.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"handshake-scraper/internal/browser"
	"handshake-scraper/internal/config"
	"handshake-scraper/internal/crawl"
	"handshake-scraper/internal/events"
	"handshake-scraper/internal/extract"
	"handshake-scraper/internal/locator"
	"handshake-scraper/internal/sink"
	"handshake-scraper/internal/store"
	"handshake-scraper/internal/throttle"
)

const (
	exitOK      = 0
	exitFatal   = 1
	exitConfig  = 2
	exitSession = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	// a missing .env is normal
	_ = godotenv.Load()

	var cfg config.Config
	flag.StringVar(&cfg.SearchURL, "url", "", "search URL including the starting page number (required)")
	flag.IntVar(&cfg.MaxPages, "pages", 0, "max pages to scrape; 0 = unbounded")
	flag.IntVar(&cfg.Gentleness, "gentleness", config.DefaultGentleness, "0..100 slowness knob; 0 = no delay, 100 ≈ 10s average between loads")
	flag.StringVar(&cfg.OutputPath, "out", config.DefaultOutput, "CSV output path, overwritten each run")
	flag.StringVar(&cfg.DBPath, "db", "", "optional sqlite path; stores de-duplicated jobs alongside the CSV")
	flag.StringVar(&cfg.ProfileDir, "profile", "", "browser profile directory (default: ~/.handshake_chrome_profile)")
	flag.StringVar(&cfg.LocatorsPath, "locators", "", "optional YAML locator-table override")
	flag.StringVar(&cfg.LogPath, "log", "", "optional log file (rotated)")
	flag.Parse()

	cfg.FromEnv()

	logger := newLogger(cfg.LogPath)

	cfg, v := config.NormalizeAndValidate(cfg)
	for _, w := range v.Warnings {
		logger.Printf("[WARN] %s", w)
	}
	if !v.OK() {
		for _, e := range v.Errors {
			logger.Printf("[ERROR] %s", e)
		}
		return exitConfig
	}

	target, err := crawl.ParseTarget(cfg.SearchURL)
	if err != nil {
		logger.Printf("[ERROR] %v", err)
		return exitConfig
	}

	table := locator.Default()
	if cfg.LocatorsPath != "" {
		table, err = locator.Load(cfg.LocatorsPath)
		if err != nil {
			logger.Printf("[ERROR] %v", err)
			return exitConfig
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	hub := events.NewHub()
	em := events.NewEmitter(hub, runID)
	ch := hub.Subscribe()

	em.Emit(events.TypeConfig, "run %s", runID)
	em.Emit(events.TypeConfig, "search_url: %s", cfg.SearchURL)
	em.Emit(events.TypeConfig, "pages: %d (0 means unbounded)", cfg.MaxPages)
	em.Emit(events.TypeConfig, "gentleness: %d", cfg.Gentleness)
	em.Emit(events.TypeConfig, "output: %s", cfg.OutputAbs())

	var g errgroup.Group
	g.Go(func() error {
		events.Print(ch, logger)
		return nil
	})

	var code int
	g.Go(func() error {
		defer hub.Close()
		code = scrape(ctx, cfg, target, table, em, runID)
		return nil
	})
	_ = g.Wait()
	return code
}

// scrape owns the browser session from acquire to release; every exit
// path below runs the deferred Close.
func scrape(ctx context.Context, cfg config.Config, target crawl.Target, table locator.Table, em *events.Emitter, runID string) int {
	sess, err := browser.Open(ctx, browser.Options{ProfileDir: cfg.ProfileDir})
	if err != nil {
		if errors.Is(err, browser.ErrSessionInUse) {
			em.Emit(events.TypeError, "another scraper is using this profile: %v", err)
			return exitSession
		}
		em.Emit(events.TypeError, "browser start failed: %v", err)
		return exitFatal
	}
	defer func() {
		if err := sess.Close(); err != nil {
			em.Warnf("browser close: %v", err)
		}
	}()

	pol := throttle.New(cfg.Gentleness)
	if d := pol.Duration(); d > 0 {
		em.Emit(events.TypeSleep, "%.2fs (before SSO check)", d.Seconds())
		if err := pol.Wait(ctx, d); err != nil {
			return exitOK
		}
	}
	if err := sess.EnsureLoggedIn(ctx, target.PageURL(target.StartPage()), table.ReadySelector, em); err != nil {
		if ctx.Err() != nil {
			em.Warnf("cancelled during login")
			return exitOK
		}
		em.Emit(events.TypeError, "could not open search page: %v", err)
		return exitFatal
	}

	out := sink.NewCSV(cfg.OutputPath)
	sinks := []sink.Sink{out}
	if cfg.DBPath != "" {
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			em.Emit(events.TypeError, "open db: %v", err)
			return exitFatal
		}
		sinks = append(sinks, db)
	}
	dest := sink.NewMulti(sinks...)

	ctrl := crawl.New(target, cfg.MaxPages, table, sess, extract.New(sess, table, em), pol, dest, em)
	sum, runErr := ctrl.Run(ctx, runID)

	finErr := dest.Finalize()
	switch {
	case errors.Is(finErr, sink.ErrNoRecords):
		em.Warnf("no rows scraped; output not written")
	case finErr != nil:
		em.Emit(events.TypeError, "finalize output: %v", finErr)
		return exitFatal
	default:
		em.Emit(events.TypeDone, "wrote %d rows to %s", out.Rows(), cfg.OutputAbs())
	}

	em.Emit(events.TypeDone, "pages=%d jobs=%d failed=%d records=%d reason=%s",
		sum.PagesVisited, sum.JobsVisited, sum.JobsFailed, sum.Records, sum.Reason)

	if runErr != nil || !sum.Reason.Graceful() {
		em.Emit(events.TypeError, "run failed: %v", runErr)
		return exitFatal
	}
	return exitOK
}

// newLogger writes tagged lines to stderr, teeing into a rotated file
// when one is configured.
func newLogger(logPath string) *log.Logger {
	var w io.Writer = os.Stderr
	if logPath != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     14, // days
		})
	}
	return log.New(w, "", log.LstdFlags)
}
