// Package browser owns the one live Chrome context the crawl runs in. The
// profile directory persists cookies and local storage across runs, so a
// human completes SSO once and later runs reuse the session.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/gofrs/flock"

	"handshake-scraper/internal/events"
	"handshake-scraper/internal/locator"
)

// ErrSessionInUse means another live process holds the profile directory.
var ErrSessionInUse = errors.New("browser profile is locked by another process")

// ErrSessionLost means Chrome or its devtools connection died under us.
// Unlike a missed element or a slow page this cannot heal, so callers
// treat it as fatal.
var ErrSessionLost = errors.New("browser session lost")

// lostHints match the cdp-level failures a dead browser produces. Element
// timeouts and navigation errors from a live browser never carry these.
var lostHints = []string{
	"connection closed",
	"use of closed network connection",
	"websocket: close",
	"target closed",
	"session closed",
	"browser has been closed",
}

// sessionErr tags err with ErrSessionLost when it looks like the browser
// itself is gone. Cancellation and timeouts pass through untouched.
func sessionErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	msg := err.Error()
	for _, h := range lostHints {
		if strings.Contains(msg, h) {
			return fmt.Errorf("%w: %v", ErrSessionLost, err)
		}
	}
	return err
}

const lockFileName = "scraper.lock"

type Options struct {
	ProfileDir   string        // defaults to ~/.handshake_chrome_profile
	NavTimeout   time.Duration // page load wait
	ReadyTimeout time.Duration // readiness-selector wait
	FieldTimeout time.Duration // per-field element wait
	HostRPS      float64       // request floor, per host
	HostBurst    int
}

func (o *Options) fillDefaults() error {
	if o.ProfileDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		o.ProfileDir = filepath.Join(home, ".handshake_chrome_profile")
	}
	if o.NavTimeout <= 0 {
		o.NavTimeout = 60 * time.Second
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = 20 * time.Second
	}
	if o.FieldTimeout <= 0 {
		o.FieldTimeout = 3 * time.Second
	}
	if o.HostRPS <= 0 {
		o.HostRPS = 1
	}
	if o.HostBurst <= 0 {
		o.HostBurst = 2
	}
	return nil
}

// Session is the exclusive handle on the browser profile for the life of
// the process. Acquired once, released on every exit path.
type Session struct {
	opts     Options
	lock     *flock.Flock
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	hosts    *hostLimiter

	closeOnce sync.Once
	closeErr  error
}

// Open locks the profile directory, launches Chrome against it and opens
// the single page the whole crawl navigates in. The window is headful on
// purpose: first runs need a human to finish SSO.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if err := opts.fillDefaults(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.ProfileDir, 0o755); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	lock := flock.New(filepath.Join(opts.ProfileDir, lockFileName))
	held, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock profile dir: %w", err)
	}
	if !held {
		return nil, fmt.Errorf("%s: %w", opts.ProfileDir, ErrSessionInUse)
	}

	l := launcher.New().
		UserDataDir(opts.ProfileDir).
		Headless(false).
		Set("window-size", "1400,1000").
		Set("lang", "fr-FR,fr;q=0.9,en;q=0.8")

	u, err := l.Launch()
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	// the browser outlives ctx on purpose: Close must still work after a
	// cancelled run; every operation takes its own ctx via page.Context
	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		_ = lock.Unlock()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		l.Cleanup()
		_ = lock.Unlock()
		return nil, fmt.Errorf("open page: %w", err)
	}

	return &Session{
		opts:     opts,
		lock:     lock,
		launcher: l,
		browser:  b,
		page:     page,
		hosts:    newHostLimiter(opts),
	}, nil
}

// Close releases the browser and the profile lock. Idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.browser != nil {
			s.closeErr = s.browser.Close()
		}
		if s.launcher != nil {
			s.launcher.Cleanup()
		}
		if s.lock != nil {
			if err := s.lock.Unlock(); err != nil && s.closeErr == nil {
				s.closeErr = err
			}
		}
	})
	return s.closeErr
}

// Navigate drives the single tab to url and waits for the load event.
// The per-host floor limiter gates every call.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.hosts.WaitURL(ctx, url); err != nil {
		return err
	}
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, sessionErr(err))
	}
	if err := p.Timeout(s.opts.NavTimeout).WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, sessionErr(err))
	}
	return nil
}

// WaitVisible waits until the CSS selector resolves or the readiness
// timeout elapses.
func (s *Session) WaitVisible(ctx context.Context, sel string) error {
	_, err := s.page.Context(ctx).Timeout(s.opts.ReadyTimeout).Element(sel)
	return sessionErr(err)
}

func (s *Session) element(ctx context.Context, ref locator.Ref) (*rod.Element, error) {
	p := s.page.Context(ctx).Timeout(s.opts.FieldTimeout)
	if ref.By == locator.ByXPath {
		el, err := p.ElementX(ref.Query)
		return el, sessionErr(err)
	}
	el, err := p.Element(ref.Query)
	return el, sessionErr(err)
}

// Text reads the trimmed text content of the first element the ref finds.
func (s *Session) Text(ctx context.Context, ref locator.Ref) (string, error) {
	el, err := s.element(ctx, ref)
	if err != nil {
		return "", err
	}
	v, err := el.Text()
	return v, sessionErr(err)
}

// Attribute reads a named attribute; a missing attribute is an empty
// string, not an error.
func (s *Session) Attribute(ctx context.Context, ref locator.Ref, name string) (string, error) {
	el, err := s.element(ctx, ref)
	if err != nil {
		return "", err
	}
	v, err := el.Attribute(name)
	if err != nil {
		return "", sessionErr(err)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

// Click clicks the first element the ref finds.
func (s *Session) Click(ctx context.Context, ref locator.Ref) error {
	el, err := s.element(ctx, ref)
	if err != nil {
		return err
	}
	return sessionErr(el.Click(proto.InputMouseButtonLeft, 1))
}

// HTML returns the current rendered document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	h, err := s.page.Context(ctx).HTML()
	return h, sessionErr(err)
}

// EnsureLoggedIn opens url and blocks until readySel renders. If it does
// not show up within the readiness timeout the operator is asked to
// complete SSO in the visible window; the session does not verify login
// itself, it only waits for the page to become navigable.
func (s *Session) EnsureLoggedIn(ctx context.Context, url, readySel string, em *events.Emitter) error {
	if err := s.Navigate(ctx, url); err != nil {
		return err
	}
	err := s.WaitVisible(ctx, readySel)
	if err == nil {
		em.Emit(events.TypeSSO, "already logged in")
		return nil
	}
	if errors.Is(err, ErrSessionLost) {
		return err
	}

	em.Emit(events.TypeSSO, "please log in via the browser window")
	err = pollUntil(ctx, time.Second, func() error {
		_, err := s.page.Context(ctx).Timeout(5 * time.Second).Element(readySel)
		return sessionErr(err)
	})
	if err != nil {
		return err
	}
	em.Emit(events.TypeSSO, "login detected, continuing")
	return nil
}

// pollUntil reruns check until it succeeds, sleeping between attempts so
// a fast-failing check cannot busy-spin. A lost session aborts the wait.
func pollUntil(ctx context.Context, every time.Duration, check func() error) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		err := check()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrSessionLost) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
