package params

import (
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/populate/internal/descriptor"
)

type sortKey struct {
	tok   Token
	value string
}

// bindSorts orders sort[n] entries by n, then appends the comma form
// (sort=a:desc,b) in encounter order.
func (b *Binder) bindSorts(keys []sortKey) []descriptor.SortDescriptor {
	indexed := make([]sortKey, 0, len(keys))
	var plain []sortKey
	for _, k := range keys {
		if k.tok.Index >= 0 {
			indexed = append(indexed, k)
		} else {
			plain = append(plain, k)
		}
	}
	sort.SliceStable(indexed, func(i, j int) bool { return indexed[i].tok.Index < indexed[j].tok.Index })

	var out []descriptor.SortDescriptor
	for _, k := range indexed {
		if s, ok := parseSort(k.value); ok {
			out = append(out, s)
		} else {
			b.drop(k.tok.Key, "malformed sort "+strconv.Quote(k.value))
		}
	}
	for _, k := range plain {
		for _, part := range splitList(k.value) {
			if s, ok := parseSort(part); ok {
				out = append(out, s)
			} else {
				b.drop(k.tok.Key, "malformed sort "+strconv.Quote(part))
			}
		}
	}
	return out
}

// parseSort reads "path", "path:asc", "path:desc" or "path desc".
func parseSort(value string) (descriptor.SortDescriptor, bool) {
	value = strings.TrimSpace(value)
	sep := ":"
	if !strings.Contains(value, sep) {
		sep = " "
	}
	var parts []string
	for _, p := range strings.Split(value, sep) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	switch len(parts) {
	case 1:
		return descriptor.SortDescriptor{Path: parts[0], Direction: descriptor.Asc}, true
	case 2:
		dir, ok := descriptor.ParseDirection(parts[1])
		if !ok {
			return descriptor.SortDescriptor{}, false
		}
		return descriptor.SortDescriptor{Path: parts[0], Direction: dir}, true
	}
	return descriptor.SortDescriptor{}, false
}

type searchKey struct {
	tok   Token
	value string
}

func (b *Binder) bindSearch(keys []searchKey) *descriptor.SearchDescriptor {
	var (
		search descriptor.SearchDescriptor
		found  bool
	)
	indexed := make([]searchKey, 0, len(keys))
	for _, k := range keys {
		switch k.tok.Attr {
		case "", "keyword":
			if kw := strings.TrimSpace(k.value); kw != "" && search.Keyword == "" {
				search.Keyword = kw
				found = true
			}
		case "fields":
			if k.tok.Index >= 0 {
				indexed = append(indexed, k)
				continue
			}
			search.Fields = append(search.Fields, splitList(k.value)...)
			found = true
		default:
			b.drop(k.tok.Key, "unknown search attribute")
		}
	}

	sort.SliceStable(indexed, func(i, j int) bool { return indexed[i].tok.Index < indexed[j].tok.Index })
	for _, k := range indexed {
		search.Fields = append(search.Fields, splitList(k.value)...)
		found = true
	}

	if !found {
		return nil
	}
	search.Fields = distinct(search.Fields)
	if len(search.Fields) == 0 {
		search.Fields = nil
	}
	return &search
}

func (b *Binder) bindPaging(paging *descriptor.PagingDescriptor, tok Token, value string) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		b.drop(tok.Key, "pagination value must be a positive integer")
		return
	}
	switch tok.Attr {
	case "page", "current":
		paging.Page = n
	case "pagesize", "size", "limit":
		paging.PageSize = n
	default:
		b.drop(tok.Key, "unknown pagination attribute")
	}
}
