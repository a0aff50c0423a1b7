package crawl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTargetRejectsMissingPageMarker(t *testing.T) {
	_, err := ParseTarget("https://app.example.com/stu/postings?query=go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page")
}

func TestParseTargetRejectsBadPageValues(t *testing.T) {
	for _, raw := range []string{
		"https://app.example.com/postings?page=zero",
		"https://app.example.com/postings?page=0",
		"https://app.example.com/postings?page=-2",
		"://bad",
		"ftp://app.example.com/postings?page=1",
	} {
		_, err := ParseTarget(raw)
		assert.Error(t, err, raw)
	}
}

func TestPageURLSubstitution(t *testing.T) {
	target, err := ParseTarget("https://app.example.com/postings?query=go&page=1&per_page=25")
	require.NoError(t, err)
	assert.Equal(t, 1, target.StartPage())

	seen := map[string]bool{}
	for _, n := range []int{1, 2, 3} {
		u := target.PageURL(n)
		assert.False(t, seen[u], "page URLs must be distinct")
		seen[u] = true
		assert.Contains(t, u, "query=go", "other params survive substitution")
		assert.Contains(t, u, "per_page=25")
	}

	// URLs differ only in the page component
	a := strings.Replace(target.PageURL(2), "page=2", "page=3", 1)
	assert.Equal(t, target.PageURL(3), a)
}

func TestTargetStartsWhereTheURLSays(t *testing.T) {
	target, err := ParseTarget("https://app.example.com/postings?page=7")
	require.NoError(t, err)
	assert.Equal(t, 7, target.StartPage())
	assert.Contains(t, target.PageURL(7), "page=7")
}

func TestOrigin(t *testing.T) {
	target, err := ParseTarget("https://App.Example.com/postings?page=1")
	require.NoError(t, err)
	assert.Equal(t, "https://App.Example.com", target.Origin())
}
