package waf

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/url"
	"regexp"
)

var (
	// ErrSuspiciousPayload is returned for any pattern match.
	ErrSuspiciousPayload = errors.New("suspicious payload")
	// ErrMalformedPayload is returned by ScanJSON for undecodable input.
	ErrMalformedPayload = errors.New("malformed payload")
)

// DefaultMaxDepth bounds recursion into nested payloads.
const DefaultMaxDepth = 32

var defaultPatterns = []*regexp.Regexp{
	// script and HTML injection
	regexp.MustCompile(`(?i)<\s*/?\s*(script|iframe|object|embed|svg|img|body|style|link|meta)\b`),
	regexp.MustCompile(`(?i)\b(javascript|vbscript)\s*:`),
	regexp.MustCompile(`(?i)\bon[a-z]+\s*=\s*["'a-z]`),
	regexp.MustCompile(`(?i)data\s*:\s*text/html`),

	// path traversal
	regexp.MustCompile(`\.\.[/\\]`),
	regexp.MustCompile(`(?i)%2e%2e(%2f|%5c|/|\\)`),
	regexp.MustCompile(`(?i)/etc/(passwd|shadow)|\\windows\\system32`),

	// SQL keywords
	regexp.MustCompile(`(?i)\bunion\s+(all\s+)?select\b`),
	regexp.MustCompile(`(?i)\bselect\s+(\*|\w+(\s*,\s*\w+)*)\s+from\s+\w+`),
	regexp.MustCompile(`(?i)\binsert\s+into\b`),
	regexp.MustCompile(`(?i)\bdelete\s+from\b`),
	regexp.MustCompile(`(?i)\b(drop|truncate|alter)\s+(table|database|schema)\b`),
	regexp.MustCompile(`(?i)\bupdate\s+\w+\s+set\b`),
	regexp.MustCompile(`(?i)'\s*(or|and)\s+'?\d+'?\s*=\s*'?\d+`),
	regexp.MustCompile(`(?i)'\s*or\s+'[^']*'\s*=\s*'`),
	regexp.MustCompile(`(?i)\b(sleep|benchmark|pg_sleep)\s*\(`),
	regexp.MustCompile(`;\s*--|/\*.*\*/`),
}

// Scanner matches string leaves against a fixed pattern set.
type Scanner struct {
	patterns []*regexp.Regexp
	maxDepth int
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithPatterns appends extra patterns to the default set.
func WithPatterns(patterns ...*regexp.Regexp) Option {
	return func(s *Scanner) {
		s.patterns = append(s.patterns, patterns...)
	}
}

// WithMaxDepth overrides DefaultMaxDepth. Payloads nested deeper are rejected.
func WithMaxDepth(depth int) Option {
	return func(s *Scanner) {
		if depth > 0 {
			s.maxDepth = depth
		}
	}
}

// New returns a Scanner with the default patterns.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		patterns: append([]*regexp.Regexp(nil), defaultPatterns...),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan walks v, which is typically the result of decoding JSON into an any.
// Supported shapes are map[string]any, []any, map[string]string, []string,
// url.Values and string; other scalars are ignored.
func (s *Scanner) Scan(v any) error {
	return s.walk(v, 0)
}

// ScanJSON decodes body and scans it. An empty body is accepted.
func (s *Scanner) ScanJSON(body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return ErrMalformedPayload
	}
	return s.Scan(v)
}

// ScanValues scans query or form values.
func (s *Scanner) ScanValues(values url.Values) error {
	return s.Scan(values)
}

// Match reports whether a single string trips any pattern.
func (s *Scanner) Match(value string) bool {
	for _, p := range s.patterns {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}

func (s *Scanner) walk(v any, depth int) error {
	if depth > s.maxDepth {
		return ErrSuspiciousPayload
	}

	switch t := v.(type) {
	case string:
		if s.Match(t) {
			return ErrSuspiciousPayload
		}
	case map[string]any:
		for _, item := range t {
			if err := s.walk(item, depth+1); err != nil {
				return err
			}
		}
	case []any:
		for _, item := range t {
			if err := s.walk(item, depth+1); err != nil {
				return err
			}
		}
	case map[string]string:
		for _, item := range t {
			if s.Match(item) {
				return ErrSuspiciousPayload
			}
		}
	case url.Values:
		for _, items := range t {
			if err := s.walk(items, depth+1); err != nil {
				return err
			}
		}
	case []string:
		for _, item := range t {
			if s.Match(item) {
				return ErrSuspiciousPayload
			}
		}
	}
	return nil
}
