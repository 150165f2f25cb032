// Package phishing implements the typosquat heuristic that compares
// the page a fill is requested on against a secret's registered
// domain.
//
// This is a warning heuristic, not a security boundary: it must never
// be the sole gate on releasing a secret to a page. The unlock and
// session checks in pkg/vault remain in front of every fill.
package phishing

import (
	"fmt"
	"net/url"
	"strings"
)

// WarningInvalidURL is reported when either URL cannot be parsed.
const WarningInvalidURL = "Invalid URL"

// typosquatDistance is the maximum edit distance still treated as a
// likely typosquat rather than a plainly different domain.
const typosquatDistance = 2

// MatchResult is the outcome of a domain comparison. IsMatch is true
// only for exact hostname equality; Warning is empty in that case.
type MatchResult struct {
	IsMatch bool
	Warning string
}

// Match compares the hostnames of pageURL and storedURL.
//
//   - Either URL malformed: no match, Warning "Invalid URL".
//   - Hostnames equal (case-insensitive): match, no warning.
//   - Edit distance in (0, 2]: no match, phishing-suspected warning
//     naming both hostnames.
//   - Anything else: no match, plain mismatch warning.
func Match(pageURL, storedURL string) MatchResult {
	pageHost, ok := hostname(pageURL)
	if !ok {
		return MatchResult{Warning: WarningInvalidURL}
	}
	storedHost, ok := hostname(storedURL)
	if !ok {
		return MatchResult{Warning: WarningInvalidURL}
	}

	if pageHost == storedHost {
		return MatchResult{IsMatch: true}
	}

	if d := levenshtein(pageHost, storedHost); d <= typosquatDistance {
		return MatchResult{
			Warning: fmt.Sprintf("Possible phishing: %q closely resembles %q", pageHost, storedHost),
		}
	}
	return MatchResult{
		Warning: fmt.Sprintf("Domain mismatch: %q does not match the saved site %q", pageHost, storedHost),
	}
}

// hostname extracts the lowercase hostname from an absolute URL.
func hostname(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	return strings.ToLower(u.Hostname()), true
}

// levenshtein computes the classic dynamic-programming edit distance
// between two strings, using two rolling rows.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
