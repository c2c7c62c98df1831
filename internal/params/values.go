package params

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Entry is one key/value pair of a query string.
type Entry struct {
	Key   string
	Value string
}

// Values is an ordered multimap of decoded query parameters. Key lookup
// ignores case; iteration follows insertion order.
type Values struct {
	entries []Entry
}

// ParseQuery decodes a raw query string ("a=1&b=2") keeping the order in
// which parameters appear. A leading "?" is ignored.
func ParseQuery(raw string) (Values, error) {
	var v Values
	raw = strings.TrimPrefix(raw, "?")
	for raw != "" {
		var part string
		part, raw, _ = strings.Cut(raw, "&")
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			return Values{}, fmt.Errorf("decode key %q: %w", key, err)
		}
		val, err := url.QueryUnescape(value)
		if err != nil {
			return Values{}, fmt.Errorf("decode value for %q: %w", k, err)
		}
		v.Add(k, val)
	}
	return v, nil
}

// MustParseQuery is ParseQuery for literals in tests and examples.
func MustParseQuery(raw string) Values {
	v, err := ParseQuery(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// FromURLValues converts net/url values. Keys are visited in sorted order
// so the result is deterministic; values keep their per-key order.
func FromURLValues(in url.Values) Values {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var v Values
	for _, k := range keys {
		for _, val := range in[k] {
			v.Add(k, val)
		}
	}
	return v
}

// FromMap builds Values from a single-valued map, sorted by key.
func FromMap(in map[string]string) Values {
	uv := make(url.Values, len(in))
	for k, val := range in {
		uv.Set(k, val)
	}
	return FromURLValues(uv)
}

// Add appends a pair. Keys are trimmed; empty keys are ignored.
func (v *Values) Add(key, value string) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	v.entries = append(v.entries, Entry{Key: key, Value: value})
}

// Get returns the first value stored under key, ignoring case.
func (v Values) Get(key string) (string, bool) {
	for _, e := range v.entries {
		if strings.EqualFold(e.Key, key) {
			return e.Value, true
		}
	}
	return "", false
}

// All returns every value stored under key, ignoring case.
func (v Values) All(key string) []string {
	var out []string
	for _, e := range v.entries {
		if strings.EqualFold(e.Key, key) {
			out = append(out, e.Value)
		}
	}
	return out
}

// Entries returns the pairs in insertion order.
func (v Values) Entries() []Entry {
	return v.entries
}

// Len returns the number of pairs.
func (v Values) Len() int { return len(v.entries) }

// Encode renders the pairs back into a query string in insertion order.
func (v Values) Encode() string {
	var b strings.Builder
	for i, e := range v.entries {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(e.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(e.Value))
	}
	return b.String()
}
