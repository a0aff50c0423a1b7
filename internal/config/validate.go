package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string
	Warnings []string
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate trims the config and collects every problem at
// once, so the operator fixes one invocation instead of replaying errors.
// URL shape (including the page marker) is enforced by crawl.ParseTarget;
// both run before the browser launches.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	out.SearchURL = strings.TrimSpace(out.SearchURL)
	out.OutputPath = strings.TrimSpace(out.OutputPath)

	if out.SearchURL == "" {
		res.addErr("search URL is required (-url)")
	}
	if out.Gentleness < 0 || out.Gentleness > 100 {
		res.addErr("gentleness must be in [0,100], got %d", out.Gentleness)
	} else if out.Gentleness == 0 {
		res.addWarn("gentleness 0 disables throttling; only the per-host rate floor applies")
	}
	if out.MaxPages < 0 {
		res.addErr("max pages must be >= 0 (0 means unbounded), got %d", out.MaxPages)
	}
	if out.OutputPath == "" {
		out.OutputPath = DefaultOutput
	}
	if out.DBPath != "" && out.DBPath == out.OutputPath {
		res.addErr("db path and output path must differ")
	}

	return out, res
}
