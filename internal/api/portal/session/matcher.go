package session

import "strings"

type ruleKind int

const (
	ruleExact ruleKind = iota
	rulePrefix
	ruleExtension
)

// Rule represents a single path exclusion predicate
type Rule struct {
	kind     ruleKind
	patterns []string
}

// Exact creates a rule matching exactly the given path
func Exact(path string) Rule {
	return Rule{kind: ruleExact, patterns: []string{path}}
}

// Prefix creates a rule matching the given path and everything below it ('/report' matches '/report' and
// '/report/abc' but not '/reports')
func Prefix(path string) Rule {
	return Rule{kind: rulePrefix, patterns: []string{strings.TrimSuffix(path, "/")}}
}

// Extension creates a rule matching every path ending with one of the given extensions (including the dot)
func Extension(extensions ...string) Rule {
	return Rule{kind: ruleExtension, patterns: extensions}
}

// Matches reports whether the rule matches the given request path
func (rule Rule) Matches(path string) bool {
	for _, pattern := range rule.patterns {
		switch rule.kind {
		case ruleExact:
			if path == pattern {
				return true
			}
		case rulePrefix:
			if path == pattern || strings.HasPrefix(path, pattern+"/") {
				return true
			}
		case ruleExtension:
			if strings.HasSuffix(path, pattern) {
				return true
			}
		}
	}
	return false
}

// Matcher represents a set of exclusion rules.
// The order of the rules does not matter.
type Matcher []Rule

// DefaultExclusions contains the paths that bypass the session guard: static & image assets, the favicon, the public
// report pages including the issue submission endpoint and all authentication pages & APIs
var DefaultExclusions = Matcher{
	Prefix("/_next/static"),
	Prefix("/_next/image"),
	Exact("/favicon.ico"),
	Prefix("/report"),
	Exact("/api/report-issue"),
	Prefix("/auth"),
	Prefix("/api/auth"),
	Extension(".svg", ".png", ".jpg", ".jpeg", ".gif", ".webp"),
}

// Excluded reports whether any rule matches the given request path
func (matcher Matcher) Excluded(path string) bool {
	for _, rule := range matcher {
		if rule.Matches(path) {
			return true
		}
	}
	return false
}
