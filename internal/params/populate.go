package params

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/populate/internal/descriptor"
	"github.com/roach88/populate/internal/memberpath"
)

// levelWildcardRe matches a depth-limited wildcard such as "2*".
var levelWildcardRe = regexp.MustCompile(`^\d+\*$`)

// oneLevel is what a bare "*" populate value expands to: the root's fields
// plus its direct relations.
const oneLevel = "1" + memberpath.Wildcard

func joinKey(path, suffix string) string {
	if path == "" {
		return suffix
	}
	return path + memberpath.Separator + suffix
}

// relationKey is the populate key selecting name (relative to path) and its
// direct fields. A trailing "*" in name is not doubled.
func relationKey(path, name string) string {
	name = strings.TrimSuffix(name, memberpath.Wildcard)
	return joinKey(path, name) + memberpath.Wildcard
}

// populateKeys converts one populate or fields parameter into populate keys.
func populateKeys(tok Token, value string) []string {
	parts := distinct(splitList(value))

	switch tok.Kind {
	case KindFields:
		for _, p := range parts {
			if p == memberpath.Wildcard {
				// fields=* means no restriction.
				return nil
			}
		}
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			out = append(out, joinKey(tok.Path, p))
		}
		return out

	case KindPopulate:
		if tok.Trailer == TrailerFields {
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if p != memberpath.Wildcard {
					out = append(out, joinKey(tok.Path, p))
				}
			}
			return out
		}

		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if k, ok := populateValueKey(tok, p); ok {
				out = append(out, k)
			}
		}
		return out
	}
	return nil
}

func populateValueKey(tok Token, value string) (string, bool) {
	if b, err := strconv.ParseBool(value); err == nil {
		if !b || tok.Path == "" {
			return "", false
		}
		return tok.Path + memberpath.Wildcard, true
	}

	switch {
	case value == descriptor.KeyAll:
		return descriptor.KeyAll, true
	case value == memberpath.Wildcard:
		if tok.Path == "" || tok.Trailer == TrailerPopulate {
			return joinKey(tok.Path, oneLevel), true
		}
		return tok.Path + memberpath.Wildcard, true
	case levelWildcardRe.MatchString(value):
		return joinKey(tok.Path, value), true
	}
	return relationKey(tok.Path, value), true
}

func distinct(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		k := memberpath.Fold(s)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}
