package locator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Logical field names. These double as the output column headers.
const (
	FieldCompanyName      = "Company.Name"
	FieldCompanySector    = "Company.Sector"
	FieldCompanyHeadcount = "Company.Headcount"
	FieldJobTitle         = "Job.Title"
	FieldJobPostedAt      = "Job.PostedAt"
	FieldJobDuration      = "Job.Duration"
	FieldJobStart         = "Job.Start"
	FieldJobLocation      = "Job.Location"
	FieldJobDescription   = "Job.Description"
	FieldJobLink          = "Job.Link"
)

// Columns returns the fixed output column order.
func Columns() []string {
	return []string{
		FieldCompanyName,
		FieldCompanySector,
		FieldCompanyHeadcount,
		FieldJobTitle,
		FieldJobPostedAt,
		FieldJobDuration,
		FieldJobStart,
		FieldJobLocation,
		FieldJobDescription,
		FieldJobLink,
	}
}

type Strategy string

const (
	StrategyText      Strategy = "text"
	StrategyAttribute Strategy = "attribute"
)

const (
	ByCSS   = "css"
	ByXPath = "xpath"
)

// Ref describes how to find one element in a rendered page.
type Ref struct {
	By    string `yaml:"by"` // css | xpath
	Query string `yaml:"query"`
}

func CSS(q string) Ref   { return Ref{By: ByCSS, Query: q} }
func XPath(q string) Ref { return Ref{By: ByXPath, Query: q} }

// FieldLocator is one extraction rule: where the field lives and how to
// read it. Expand, when set, names a button clicked (best-effort) before
// the read; collapsed descriptions need it.
type FieldLocator struct {
	Field    string   `yaml:"field"`
	Ref      Ref      `yaml:"ref"`
	Strategy Strategy `yaml:"strategy"`
	Attr     string   `yaml:"attr,omitempty"`
	Required bool     `yaml:"required,omitempty"`
	Expand   *Ref     `yaml:"expand,omitempty"`
}

// Table is the full locator configuration: per-field rules plus the
// page-level selectors the crawl needs. Loaded once, never mutated.
type Table struct {
	Fields []FieldLocator `yaml:"fields"`

	// JobLinkSelector enumerates job anchors on a search-result page.
	JobLinkSelector string `yaml:"job_link_selector"`
	// ReadySelector marks a page as rendered and navigable.
	ReadySelector string `yaml:"ready_selector"`
	// ErrorBannerText, when present in the page, means the search page
	// failed server-side and should be treated as empty.
	ErrorBannerText string `yaml:"error_banner_text"`
}

// Default returns the built-in Handshake locator table. Job.Link has no
// rule here because it is the input URL, not an extracted field.
// Job.Start shares Job.Duration's element: the site renders both in one
// date-range string and the core stores it raw.
func Default() Table {
	durationRef := XPath("/html[1]/body[1]/div[1]/main[1]/div[1]/div[2]/div[2]/div[1]/div[1]/div[1]/div[4]/div[4]/div[1]/div[2]")
	return Table{
		JobLinkSelector: `main#skip-to-content a[href^="/job-search/"]:not([href*="#"])`,
		ReadySelector:   "main#skip-to-content",
		ErrorBannerText: "Something went wrong. Please try again.",
		Fields: []FieldLocator{
			{
				Field:    FieldCompanyName,
				Ref:      XPath("/html[1]/body[1]/div[1]/main[1]/div[1]/div[2]/div[2]/div[1]/div[1]/div[1]/div[1]/div[1]/div[1]/a[1]/div[1]"),
				Strategy: StrategyText,
				Required: true,
			},
			{
				Field:    FieldCompanySector,
				Ref:      XPath("/html[1]/body[1]/div[1]/main[1]/div[1]/div[2]/div[2]/div[1]/div[1]/div[1]/div[1]/div[1]/div[1]/a[2]/div[1]"),
				Strategy: StrategyText,
			},
			{
				Field:    FieldCompanyHeadcount,
				Ref:      XPath("/html[1]/body[1]/div[1]/main[1]/div[1]/div[2]/div[2]/div[1]/div[1]/div[1]/div[*]/div[3]/span[1]"),
				Strategy: StrategyText,
			},
			{
				Field:    FieldJobTitle,
				Ref:      XPath("/html[1]/body[1]/div[1]/main[1]/div[1]/div[2]/div[2]/div[1]/div[1]/div[1]/div[1]/a[1]/h1[1]"),
				Strategy: StrategyText,
				Required: true,
			},
			{
				Field:    FieldJobPostedAt,
				Ref:      XPath("/html[1]/body[1]/div[1]/main[1]/div[1]/div[2]/div[2]/div[1]/div[1]/div[1]/div[1]/div[2]"),
				Strategy: StrategyText,
			},
			{
				Field:    FieldJobDuration,
				Ref:      durationRef,
				Strategy: StrategyText,
			},
			{
				Field:    FieldJobStart,
				Ref:      durationRef,
				Strategy: StrategyText,
			},
			{
				Field:    FieldJobLocation,
				Ref:      XPath("/html[1]/body[1]/div[1]/main[1]/div[1]/div[2]/div[2]/div[1]/div[1]/div[1]/div[4]/div[3]/div[1]/div[1]"),
				Strategy: StrategyText,
			},
			{
				Field:    FieldJobDescription,
				Ref:      XPath("/html[1]/body[1]/div[1]/main[1]/div[1]/div[2]/div[2]/div[1]/div[1]/div[1]/div[5]/div[1]/div[1]/div[1]"),
				Strategy: StrategyText,
				Expand:   &Ref{By: ByXPath, Query: "//button[contains(., 'More') or contains(., 'Voir plus')]"},
			},
		},
	}
}

// Load reads a locator table from a YAML file, for when the site markup
// drifts and the built-in table goes stale.
func Load(path string) (Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read locators: %w", err)
	}
	var t Table
	if err := yaml.Unmarshal(b, &t); err != nil {
		return Table{}, fmt.Errorf("parse locators: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

func (t Table) Validate() error {
	if t.JobLinkSelector == "" {
		return fmt.Errorf("job_link_selector is required")
	}
	if t.ReadySelector == "" {
		return fmt.Errorf("ready_selector is required")
	}
	if len(t.Fields) == 0 {
		return fmt.Errorf("at least one field locator is required")
	}
	for _, f := range t.Fields {
		if f.Field == "" {
			return fmt.Errorf("field locator with empty field name")
		}
		if f.Field == FieldJobLink {
			return fmt.Errorf("%s is not extracted; it is the input URL", FieldJobLink)
		}
		if f.Ref.Query == "" {
			return fmt.Errorf("%s: empty locator query", f.Field)
		}
		if f.Ref.By != ByCSS && f.Ref.By != ByXPath {
			return fmt.Errorf("%s: unknown locator kind %q", f.Field, f.Ref.By)
		}
		switch f.Strategy {
		case StrategyText:
		case StrategyAttribute:
			if f.Attr == "" {
				return fmt.Errorf("%s: attribute strategy needs attr", f.Field)
			}
		default:
			return fmt.Errorf("%s: unknown strategy %q", f.Field, f.Strategy)
		}
	}
	return nil
}
