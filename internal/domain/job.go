package domain

// JobLink is one job posting discovered on a search-result page.
type JobLink struct {
	URL   string // absolute, canonicalized
	Page  int    // search page the link was found on
	Index int    // document order within that page
}

// JobRecord maps logical field names to extracted values. Link is always
// set (it is the input URL, not scraped); every other field may be blank
// when its locator failed. A sparse record is still a valid output row.
type JobRecord struct {
	Link   string
	Fields map[string]string
}

func NewJobRecord(link string) JobRecord {
	return JobRecord{Link: link, Fields: make(map[string]string)}
}

func (r JobRecord) Set(field, value string) {
	r.Fields[field] = value
}

func (r JobRecord) Get(field string) string {
	return r.Fields[field]
}

// Empty reports whether extraction produced nothing beyond the link.
func (r JobRecord) Empty() bool {
	for _, v := range r.Fields {
		if v != "" {
			return false
		}
	}
	return true
}
