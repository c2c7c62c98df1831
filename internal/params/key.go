package params

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/populate/internal/descriptor"
	"github.com/roach88/populate/internal/memberpath"
)

// Kind classifies a raw parameter key.
type Kind int

const (
	KindUnknown Kind = iota
	KindFilter
	KindSort
	KindPopulate
	KindFields
	KindSearch
	KindPagination
)

func (k Kind) String() string {
	switch k {
	case KindFilter:
		return "filter"
	case KindSort:
		return "sort"
	case KindPopulate:
		return "populate"
	case KindFields:
		return "fields"
	case KindSearch:
		return "search"
	case KindPagination:
		return "pagination"
	}
	return "unknown"
}

// Trailer says what follows the path inside a populate key.
type Trailer int

const (
	// TrailerNone: populate[<path>]=<value>.
	TrailerNone Trailer = iota
	// TrailerPopulate: populate[<path>][populate][<n>]=<value>, value names the nested relation.
	TrailerPopulate
	// TrailerFields: populate[<path>][fields][<n>]=<name>, value is a field selection.
	TrailerFields
)

// Token is the parsed form of one parameter key.
type Token struct {
	Kind Kind
	Key  string

	// Path is the dotted field path with every recognised bracket token removed.
	Path string

	// Operator is set for filter keys that carry a [$op] group. Compact filter
	// keys (filter[path]=op:value) leave HasOperator false.
	Operator    descriptor.CompareOperator
	HasOperator bool

	Logical      descriptor.LogicalOperator
	HasLogical   bool
	LogicalIndex int

	// Index is the order index of sort[n], fields[n], populate[...][n] and
	// filter[...][$in][n]; -1 when absent.
	Index int

	// Trailer and Attr qualify populate and search/pagination keys.
	Trailer Trailer
	Attr    string
}

var (
	bracketKeyRe = regexp.MustCompile(`^([A-Za-z]+)((?:\[[^\[\]]*\])*)$`)
	bracketRe    = regexp.MustCompile(`\[([^\[\]]*)\]`)
	digitsRe     = regexp.MustCompile(`^\d+$`)
)

// splitKey separates "name[a][b]" into "name" and ["a", "b"].
func splitKey(key string) (string, []string, bool) {
	m := bracketKeyRe.FindStringSubmatch(strings.TrimSpace(key))
	if m == nil {
		return "", nil, false
	}
	var groups []string
	for _, g := range bracketRe.FindAllStringSubmatch(m[2], -1) {
		groups = append(groups, strings.TrimSpace(g[1]))
	}
	return strings.ToLower(m[1]), groups, true
}

func isIndex(s string) bool { return digitsRe.MatchString(s) }

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

// ParseKey classifies a raw key and extracts its tokens. The second result is
// false for keys that are not understood or that are ambiguous, such as a
// filter key naming two compare operators.
func ParseKey(key string) (Token, bool) {
	name, groups, ok := splitKey(key)
	if !ok {
		return Token{}, false
	}

	tok := Token{Key: key, Index: -1, LogicalIndex: -1}
	switch name {
	case "filter":
		tok.Kind = KindFilter
		return parseFilterKey(tok, groups)
	case "sort":
		tok.Kind = KindSort
		return parseSortKey(tok, groups)
	case "populate":
		tok.Kind = KindPopulate
		return parsePopulateKey(tok, groups)
	case "fields":
		tok.Kind = KindFields
		return parseFieldsKey(tok, groups)
	case "search":
		tok.Kind = KindSearch
		return parseAttrKey(tok, groups)
	case "pagination":
		tok.Kind = KindPagination
		return parseAttrKey(tok, groups)
	}
	return Token{}, false
}

func parseFilterKey(tok Token, groups []string) (Token, bool) {
	if len(groups) == 0 {
		return Token{}, false
	}

	var (
		path      []string
		operators int
		logicals  int
		prev      string
	)
	for _, g := range groups {
		switch {
		case g == "":
			return Token{}, false
		case strings.HasPrefix(g, "$"):
			if lo, ok := descriptor.ParseLogical(g); ok && lo != descriptor.None {
				logicals++
				tok.Logical, tok.HasLogical = lo, true
				prev = "logical"
				continue
			}
			op, ok := descriptor.LookupOperator(g)
			if !ok {
				// An unknown $token counts as an operator the caller could not
				// have meant as a path.
				return Token{}, false
			}
			operators++
			tok.Operator, tok.HasOperator = op, true
			prev = "operator"
		case isIndex(g):
			switch {
			case prev == "logical" && tok.LogicalIndex < 0:
				tok.LogicalIndex = atoi(g)
			case prev == "operator" && tok.Operator.Group() == descriptor.GroupIn && tok.Index < 0:
				tok.Index = atoi(g)
			default:
				return Token{}, false
			}
			prev = "index"
		default:
			if prev == "operator" {
				// Nothing but an $in index may follow the operator.
				return Token{}, false
			}
			path = append(path, g)
			prev = "path"
		}
	}

	if operators > 1 || logicals > 1 || len(path) == 0 {
		return Token{}, false
	}
	if tok.Index >= 0 && !tok.HasOperator {
		return Token{}, false
	}
	tok.Path = memberpath.New(strings.Join(path, memberpath.Separator)).Value()
	if tok.Path == "" {
		return Token{}, false
	}
	return tok, true
}

func parseSortKey(tok Token, groups []string) (Token, bool) {
	switch {
	case len(groups) == 0:
		return tok, true
	case len(groups) == 1 && isIndex(groups[0]):
		tok.Index = atoi(groups[0])
		return tok, true
	}
	return Token{}, false
}

func parseFieldsKey(tok Token, groups []string) (Token, bool) {
	switch len(groups) {
	case 0:
		return tok, true
	case 1:
		if isIndex(groups[0]) {
			tok.Index = atoi(groups[0])
		} else {
			tok.Path = memberpath.New(groups[0]).Value()
		}
		return tok, true
	case 2:
		if isIndex(groups[0]) || !isIndex(groups[1]) {
			return Token{}, false
		}
		tok.Path = memberpath.New(groups[0]).Value()
		tok.Index = atoi(groups[1])
		return tok, true
	}
	return Token{}, false
}

// parsePopulateKey walks populate[<a>][populate][<b>]...[populate|fields][<n>].
func parsePopulateKey(tok Token, groups []string) (Token, bool) {
	var path []string
	i := 0
	if len(groups) > 0 {
		switch {
		case isIndex(groups[0]):
			tok.Index = atoi(groups[0])
			i = 1
		case groups[0] != "" && !isKeyword(groups[0]):
			path = append(path, groups[0])
			i = 1
		}
	}

	for i < len(groups) {
		g := strings.ToLower(groups[i])
		rest := groups[i+1:]
		switch g {
		case "populate":
			if len(rest) > 0 && !isIndex(rest[0]) && rest[0] != "" && !isKeyword(rest[0]) {
				path = append(path, rest[0])
				i += 2
				continue
			}
			if len(rest) > 1 || (len(rest) == 1 && !isIndex(rest[0])) {
				return Token{}, false
			}
			tok.Trailer = TrailerPopulate
		case "fields":
			if len(rest) > 1 || (len(rest) == 1 && !isIndex(rest[0])) {
				return Token{}, false
			}
			tok.Trailer = TrailerFields
		default:
			return Token{}, false
		}
		if len(rest) == 1 {
			tok.Index = atoi(rest[0])
		}
		break
	}

	tok.Path = memberpath.New(strings.Join(path, memberpath.Separator)).Value()
	return tok, true
}

func isKeyword(g string) bool {
	g = strings.ToLower(g)
	return g == "populate" || g == "fields"
}

// parseAttrKey handles search[...] and pagination[...] keys.
func parseAttrKey(tok Token, groups []string) (Token, bool) {
	switch len(groups) {
	case 0:
		return tok, true
	case 1:
		tok.Attr = strings.ToLower(groups[0])
		return tok, tok.Attr != ""
	case 2:
		if !isIndex(groups[1]) {
			return Token{}, false
		}
		tok.Attr = strings.ToLower(groups[0])
		tok.Index = atoi(groups[1])
		return tok, tok.Attr != ""
	}
	return Token{}, false
}
