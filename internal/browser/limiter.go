package browser

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// unknownHost buckets unparseable URLs so they still pay the floor.
const unknownHost = "_"

// hostLimiter enforces the request floor from Options per hostname. The
// gentleness throttle layers on top of it; even gentleness 0 pays this
// floor before every navigation.
type hostLimiter struct {
	mu   sync.Mutex
	m    map[string]*rate.Limiter
	opts Options
}

func newHostLimiter(opts Options) *hostLimiter {
	return &hostLimiter{
		m:    make(map[string]*rate.Limiter),
		opts: opts,
	}
}

// hostKey folds case and the default ports so app.example.com:443 and
// APP.example.com share one budget.
func hostKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return unknownHost
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimSuffix(host, ":443")
	host = strings.TrimSuffix(host, ":80")
	return host
}

func (hl *hostLimiter) limiterFor(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	if lim, ok := hl.m[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(hl.opts.HostRPS), hl.opts.HostBurst)
	hl.m[host] = lim
	return lim
}

func (hl *hostLimiter) WaitURL(ctx context.Context, raw string) error {
	return hl.limiterFor(hostKey(raw)).Wait(ctx)
}
