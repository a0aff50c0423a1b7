package crawl

import (
	"fmt"
	"net/url"
	"strconv"
)

// Target is the immutable search URL with its page-number slot. Pages are
// addressed by substituting integers >= 1 into the `page` query parameter.
type Target struct {
	u     url.URL
	start int
}

// ParseTarget validates the search URL. The URL must already encode the
// starting page number; a missing page marker is a configuration error,
// rejected before any browser work.
func ParseTarget(raw string) (Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("invalid search URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Target{}, fmt.Errorf("search URL must be http(s), got %q", raw)
	}
	if u.Host == "" {
		return Target{}, fmt.Errorf("search URL has no host: %q", raw)
	}
	pv := u.Query().Get("page")
	if pv == "" {
		return Target{}, fmt.Errorf("search URL is missing the page parameter: %q", raw)
	}
	start, err := strconv.Atoi(pv)
	if err != nil || start < 1 {
		return Target{}, fmt.Errorf("page parameter must be an integer >= 1, got %q", pv)
	}
	return Target{u: *u, start: start}, nil
}

func (t Target) StartPage() int { return t.start }

// PageURL substitutes n into the page slot, leaving everything else as
// the operator supplied it.
func (t Target) PageURL(n int) string {
	u := t.u
	q := u.Query()
	q.Set("page", strconv.Itoa(n))
	u.RawQuery = q.Encode()
	return u.String()
}

func (t Target) Origin() string {
	return t.u.Scheme + "://" + t.u.Host
}
