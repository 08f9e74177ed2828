// Package pattern holds the text-matching primitives shared by both query
// compilers, so that like and regex behave identically on every backend.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/text/cases"
)

const (
	regexExpiration = 30 * time.Minute
	regexCleanup    = time.Hour
)

// Rule conditions are compiled on every tag/categorize call and, on the
// SQLite backend, once per row by the regexp function.
var regexCache = cache.New(regexExpiration, regexCleanup)

// Compile returns the compiled form of expr, reusing earlier compilations.
// Patterns use RE2 syntax and match unanchored.
func Compile(expr string) (*regexp.Regexp, error) {
	if cached, found := regexCache.Get(expr); found {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", expr, err)
	}
	regexCache.SetDefault(expr, re)
	return re, nil
}

// MatchString reports whether text contains a match of expr.
func MatchString(expr, text string) (bool, error) {
	re, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return re.MatchString(text), nil
}

var folder = cases.Fold()

// Fold returns s case-folded for caseless comparison.
func Fold(s string) string {
	return folder.String(s)
}

// Contains reports whether needle occurs in haystack, ignoring case.
func Contains(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}
