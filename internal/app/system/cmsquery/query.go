// Package cmsquery implements the query-string language spoken between the
// storefront and the content API: filters, field selection, pagination,
// sort, and publication status.
//
//	filters[slug][$eq]=ha-long
//	filters[category][slug][$eq]=mien-bac
//	filters[$or][0][title][$containsi]=sapa&filters[$or][1][destination][$containsi]=sapa
//	fields[0]=slug&fields[1]=title
//	pagination[page]=2&pagination[pageSize]=12
//	sort[0]=order:asc
//	status=draft
//
// The client side builds a Query and calls Encode; the server side calls
// Parse and translates the result to Mongo with a Schema.
package cmsquery

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Pagination limits.
const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// Op is a filter operator.
type Op string

// Supported operators.
const (
	OpEq        Op = "$eq"
	OpNe        Op = "$ne"
	OpIn        Op = "$in"
	OpContains  Op = "$contains"
	OpContainsi Op = "$containsi"
	OpGt        Op = "$gt"
	OpGte       Op = "$gte"
	OpLt        Op = "$lt"
	OpLte       Op = "$lte"
	OpNull      Op = "$null"
	OpNotNull   Op = "$notNull"
)

func (o Op) valid() bool {
	switch o {
	case OpEq, OpNe, OpIn, OpContains, OpContainsi, OpGt, OpGte, OpLt, OpLte, OpNull, OpNotNull:
		return true
	}
	return false
}

// Condition is one field predicate. Field is a dotted path in API (JSON)
// naming, e.g. "category.slug".
type Condition struct {
	Field  string
	Op     Op
	Values []string
}

// Eq is shorthand for an equality condition.
func Eq(field, value string) Condition {
	return Condition{Field: field, Op: OpEq, Values: []string{value}}
}

// ContainsFold is shorthand for a case-insensitive substring condition.
func ContainsFold(field, value string) Condition {
	return Condition{Field: field, Op: OpContainsi, Values: []string{value}}
}

// SortField orders results by one field.
type SortField struct {
	Field string
	Desc  bool
}

// Query is a parsed or to-be-encoded content API query.
// Filters are ANDed; each Or group matches when all of its conditions do,
// and the query matches when any group does.
type Query struct {
	Filters  []Condition
	Or       [][]Condition
	Fields   []string
	Page     int
	PageSize int
	Sort     []SortField
	Draft    bool
}

// Where appends AND conditions and returns q for chaining.
func (q Query) Where(c ...Condition) Query {
	q.Filters = append(append([]Condition(nil), q.Filters...), c...)
	return q
}

// AnyOf appends one OR alternative per condition.
func (q Query) AnyOf(c ...Condition) Query {
	or := append([][]Condition(nil), q.Or...)
	for _, cond := range c {
		or = append(or, []Condition{cond})
	}
	q.Or = or
	return q
}

// Select restricts the returned fields.
func (q Query) Select(fields ...string) Query {
	q.Fields = append([]string(nil), fields...)
	return q
}

// Paginate sets page and page size.
func (q Query) Paginate(page, pageSize int) Query {
	q.Page, q.PageSize = page, pageSize
	return q
}

// SortBy appends a sort field. A "-" prefix means descending.
func (q Query) SortBy(fields ...string) Query {
	s := append([]SortField(nil), q.Sort...)
	for _, f := range fields {
		if strings.HasPrefix(f, "-") {
			s = append(s, SortField{Field: f[1:], Desc: true})
			continue
		}
		s = append(s, SortField{Field: f})
	}
	q.Sort = s
	return q
}

// Encode renders q as URL query values.
func (q Query) Encode() url.Values {
	v := url.Values{}
	for _, c := range q.Filters {
		encodeCondition(v, "filters", c)
	}
	for i, group := range q.Or {
		prefix := fmt.Sprintf("filters[$or][%d]", i)
		for _, c := range group {
			encodeCondition(v, prefix, c)
		}
	}
	for i, f := range q.Fields {
		v.Set(fmt.Sprintf("fields[%d]", i), f)
	}
	if q.Page > 0 {
		v.Set("pagination[page]", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("pagination[pageSize]", strconv.Itoa(q.PageSize))
	}
	for i, s := range q.Sort {
		dir := "asc"
		if s.Desc {
			dir = "desc"
		}
		v.Set(fmt.Sprintf("sort[%d]", i), s.Field+":"+dir)
	}
	if q.Draft {
		v.Set("status", "draft")
	}
	return v
}

func encodeCondition(v url.Values, prefix string, c Condition) {
	key := prefix
	for _, part := range strings.Split(c.Field, ".") {
		key += "[" + part + "]"
	}
	key += "[" + string(c.Op) + "]"
	switch c.Op {
	case OpIn:
		for i, val := range c.Values {
			v.Set(fmt.Sprintf("%s[%d]", key, i), val)
		}
	case OpNull, OpNotNull:
		v.Set(key, "true")
	default:
		if len(c.Values) > 0 {
			v.Set(key, c.Values[0])
		}
	}
}

// ParseError reports a malformed query parameter.
type ParseError struct {
	Param  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid query parameter %q: %s", e.Param, e.Reason)
}

// Parse reads a Query from URL values. Page defaults to 1 and page size to
// DefaultPageSize; page sizes above MaxPageSize are clamped.
func Parse(values url.Values) (Query, error) {
	q := Query{Page: 1, PageSize: DefaultPageSize}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	type pending struct {
		cond  Condition
		group int // -1 for AND
	}
	conds := map[string]*pending{}
	var order []string
	orGroups := map[int]bool{}

	for _, key := range keys {
		vals := values[key]
		switch {
		case strings.HasPrefix(key, "filters["):
			parts, ok := brackets(key, "filters")
			if !ok || len(parts) < 2 {
				return Query{}, &ParseError{Param: key, Reason: "malformed filter"}
			}
			group := -1
			if parts[0] == "$or" {
				if len(parts) < 4 {
					return Query{}, &ParseError{Param: key, Reason: "malformed $or filter"}
				}
				n, err := strconv.Atoi(parts[1])
				if err != nil || n < 0 {
					return Query{}, &ParseError{Param: key, Reason: "bad $or index"}
				}
				group = n
				orGroups[n] = true
				parts = parts[2:]
			}
			opAt := -1
			for i, p := range parts {
				if strings.HasPrefix(p, "$") {
					opAt = i
					break
				}
			}
			if opAt < 1 {
				return Query{}, &ParseError{Param: key, Reason: "missing operator"}
			}
			op := Op(parts[opAt])
			if !op.valid() {
				return Query{}, &ParseError{Param: key, Reason: "unknown operator " + string(op)}
			}
			field := strings.Join(parts[:opAt], ".")
			id := fmt.Sprintf("%d|%s|%s", group, field, op)
			p, seen := conds[id]
			if !seen {
				p = &pending{cond: Condition{Field: field, Op: op}, group: group}
				conds[id] = p
				order = append(order, id)
			}
			p.cond.Values = append(p.cond.Values, vals...)

		case key == "fields" || strings.HasPrefix(key, "fields["):
			for _, val := range vals {
				for _, f := range strings.Split(val, ",") {
					if f = strings.TrimSpace(f); f != "" {
						q.Fields = append(q.Fields, f)
					}
				}
			}

		case key == "pagination[page]":
			n, err := strconv.Atoi(vals[0])
			if err != nil || n < 1 {
				return Query{}, &ParseError{Param: key, Reason: "must be a positive integer"}
			}
			q.Page = n

		case key == "pagination[pageSize]":
			n, err := strconv.Atoi(vals[0])
			if err != nil || n < 1 {
				return Query{}, &ParseError{Param: key, Reason: "must be a positive integer"}
			}
			q.PageSize = min(n, MaxPageSize)

		case key == "sort" || strings.HasPrefix(key, "sort["):
			for _, val := range vals {
				for _, s := range strings.Split(val, ",") {
					sf, err := parseSort(strings.TrimSpace(s))
					if err != nil {
						return Query{}, &ParseError{Param: key, Reason: err.Error()}
					}
					q.Sort = append(q.Sort, sf)
				}
			}

		case key == "status":
			switch vals[0] {
			case "", "published":
			case "draft":
				q.Draft = true
			default:
				return Query{}, &ParseError{Param: key, Reason: "must be draft or published"}
			}
		}
	}

	groupIdx := make([]int, 0, len(orGroups))
	for g := range orGroups {
		groupIdx = append(groupIdx, g)
	}
	sort.Ints(groupIdx)
	slot := map[int]int{}
	for i, g := range groupIdx {
		slot[g] = i
	}
	if len(groupIdx) > 0 {
		q.Or = make([][]Condition, len(groupIdx))
	}
	for _, id := range order {
		p := conds[id]
		if p.group < 0 {
			q.Filters = append(q.Filters, p.cond)
			continue
		}
		i := slot[p.group]
		q.Or[i] = append(q.Or[i], p.cond)
	}
	return q, nil
}

// brackets splits "prefix[a][b][c]" into [a b c].
func brackets(key, prefix string) ([]string, bool) {
	rest := strings.TrimPrefix(key, prefix)
	var parts []string
	for rest != "" {
		if rest[0] != '[' {
			return nil, false
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, false
		}
		parts = append(parts, rest[1:end])
		rest = rest[end+1:]
	}
	return parts, true
}

func parseSort(s string) (SortField, error) {
	field, dir, _ := strings.Cut(s, ":")
	if field == "" {
		return SortField{}, fmt.Errorf("empty sort field")
	}
	switch strings.ToLower(dir) {
	case "", "asc":
		return SortField{Field: field}, nil
	case "desc":
		return SortField{Field: field, Desc: true}, nil
	}
	return SortField{}, fmt.Errorf("sort direction must be asc or desc")
}
