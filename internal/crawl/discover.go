package crawl

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"handshake-scraper/internal/domain"
)

// discoverLinks enumerates job anchors in a rendered search page,
// preserving document order. Listings shift between pages, so the same
// job can reappear; de-duplication is the sink's concern, not ours.
func discoverLinks(html, pageURL, selector string, pageNum int) ([]domain.JobLink, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	var links []domain.JobLink
	doc.Find(selector).Each(func(i int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		abs := canonicalizeJobURL(base, href)
		if abs == "" {
			return
		}
		links = append(links, domain.JobLink{
			URL:   abs,
			Page:  pageNum,
			Index: len(links),
		})
	})
	return links, nil
}

// canonicalizeJobURL resolves href against the page it came from and
// strips query and fragment; tracking params change between renders and
// would make the same posting look like two URLs.
func canonicalizeJobURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(u)
	abs.Scheme = strings.ToLower(abs.Scheme)
	abs.Host = strings.ToLower(abs.Host)
	abs.RawQuery = ""
	abs.Fragment = ""
	return abs.String()
}
