package gateway

import (
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// FilteredMarker replaces every redacted value in a scrubbed transcript. The
// substitution happens in place, so surrounding framing stays parseable.
const FilteredMarker = "[FILTERED]"

// Scrubber redacts sensitive values from captured request/response
// transcripts before they are logged or stored. Adapters seed it with their
// credentials at construction and feed it card numbers and verification
// values as calls observe them. Safe for concurrent use.
type Scrubber struct {
	mu       sync.RWMutex
	seen     map[string]struct{}
	pairs    []string
	replacer *strings.Replacer
}

// NewScrubber builds a scrubber for the given secrets (card numbers, CVVs,
// API keys, passwords). Each secret is matched literally and in its
// URL-encoded and JSON-escaped forms, so values embedded in encoded payloads
// are still caught. Empty secrets are ignored.
func NewScrubber(secrets ...string) *Scrubber {
	s := &Scrubber{seen: make(map[string]struct{})}
	s.Add(secrets...)
	return s
}

// Add registers further secrets to redact.
func (s *Scrubber) Add(secrets ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := false
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		// JSON-escaped first: it is never shorter than the literal, and
		// strings.Replacer prefers earlier pairs on equal-position matches.
		for _, form := range []string{jsonEscaped(secret), url.QueryEscape(secret), secret} {
			if form == FilteredMarker {
				continue
			}
			if _, ok := s.seen[form]; ok {
				continue
			}
			s.seen[form] = struct{}{}
			s.pairs = append(s.pairs, form, FilteredMarker)
			added = true
		}
	}
	if added || s.replacer == nil {
		s.replacer = strings.NewReplacer(s.pairs...)
	}
}

// Scrub returns the transcript with every occurrence of the registered
// secrets replaced by FilteredMarker.
func (s *Scrubber) Scrub(transcript string) string {
	if s == nil {
		return transcript
	}
	s.mu.RLock()
	r := s.replacer
	s.mu.RUnlock()
	if r == nil {
		return transcript
	}
	return r.Replace(transcript)
}

// jsonEscaped returns the JSON string encoding of v without the surrounding
// quotes, matching how v appears inside a JSON-escaped payload.
func jsonEscaped(v string) string {
	q := strconv.Quote(v)
	return q[1 : len(q)-1]
}
