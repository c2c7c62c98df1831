// Package params turns a flat query-string multimap into typed descriptors.
//
// It has two halves. The key parser (ParseKey) classifies one raw key such as
// "filter[orders][total][$gte]" into a Token: the field path, the compare
// operator, the logical group and any order index. The binder (Bind) walks a
// whole Values multimap, reassembles indexed $in/$notIn fragments, expands
// populate and fields selectors, and produces a descriptor.QueryContext.
//
// Grammar accepted for each parameter family:
//
//	filter[<path>][$<op>]=<value>
//	filter[<path>][$or][<n>][$<op>]=<value>
//	filter[$or][<n>][<path>][$<op>]=<value>
//	filter[<path>][$in][<n>]=<value>        repeated per element
//	filter[<path>]=[$not:]$<op>:<value>      compact form ($eq $sw $gt $gte $lt $lte $in $ilike $btw $null),
//	                                         the $ is optional
//	sort[<n>]=<path>[:asc|desc]
//	sort=<path>[:asc|desc],...
//	populate=<path>|*|#|<N>*
//	populate[<path>][populate][<nested>]=true|*|<N>*|<name>
//	fields=<name>, fields[<n>]=<name>, fields[<path>]=<name>
//	populate[<path>][fields][<n>]=<name>
//	search=<kw>, search[keyword]=<kw>, search[fields][<n>]=<path>
//	pagination[page]=<n>, pagination[pageSize]=<n>
//
// A key that does not parse is ignored. Nothing in this package returns an
// error for bad user input; a malformed parameter simply yields no descriptor.
package params
