package cmsquery

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Kind is the stored type of a queryable field.
type Kind int

// Field kinds.
const (
	String Kind = iota
	Number
	Bool
	Time
)

// Field maps an API field to its stored form.
type Field struct {
	BSON string
	Kind Kind
}

// Schema whitelists the API fields of one resource.
type Schema map[string]Field

// UnknownFieldError is returned for fields outside the schema.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Field)
}

func (s Schema) lookup(name string) (Field, error) {
	f, ok := s[name]
	if !ok {
		return Field{}, &UnknownFieldError{Field: name}
	}
	return f, nil
}

// Filter translates q's conditions into a Mongo filter.
func (s Schema) Filter(q Query) (bson.M, error) {
	var and []bson.M
	for _, c := range q.Filters {
		m, err := s.condition(c)
		if err != nil {
			return nil, err
		}
		and = append(and, m)
	}
	if len(q.Or) > 0 {
		var or []bson.M
		for _, group := range q.Or {
			var groupAnd []bson.M
			for _, c := range group {
				m, err := s.condition(c)
				if err != nil {
					return nil, err
				}
				groupAnd = append(groupAnd, m)
			}
			switch len(groupAnd) {
			case 0:
			case 1:
				or = append(or, groupAnd[0])
			default:
				or = append(or, bson.M{"$and": groupAnd})
			}
		}
		if len(or) > 0 {
			and = append(and, bson.M{"$or": or})
		}
	}
	switch len(and) {
	case 0:
		return bson.M{}, nil
	case 1:
		return and[0], nil
	}
	return bson.M{"$and": and}, nil
}

func (s Schema) condition(c Condition) (bson.M, error) {
	f, err := s.lookup(c.Field)
	if err != nil {
		return nil, err
	}
	first := ""
	if len(c.Values) > 0 {
		first = c.Values[0]
	}
	switch c.Op {
	case OpNull:
		if truthy(first) {
			return bson.M{f.BSON: nil}, nil
		}
		return bson.M{f.BSON: bson.M{"$ne": nil}}, nil
	case OpNotNull:
		if truthy(first) {
			return bson.M{f.BSON: bson.M{"$ne": nil}}, nil
		}
		return bson.M{f.BSON: nil}, nil
	case OpContains, OpContainsi:
		if f.Kind != String {
			return nil, fmt.Errorf("operator %s needs a text field, %q is not", c.Op, c.Field)
		}
		re := bson.M{"$regex": regexp.QuoteMeta(first)}
		if c.Op == OpContainsi {
			re["$options"] = "i"
		}
		return bson.M{f.BSON: re}, nil
	case OpIn:
		vals := make([]any, 0, len(c.Values))
		for _, raw := range c.Values {
			v, err := convert(f.Kind, raw)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", c.Field, err)
			}
			vals = append(vals, v)
		}
		return bson.M{f.BSON: bson.M{"$in": vals}}, nil
	}
	v, err := convert(f.Kind, first)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", c.Field, err)
	}
	return bson.M{f.BSON: bson.M{string(c.Op): v}}, nil
}

// Projection returns the Mongo projection for q.Fields, or nil for all
// fields. The identity fields are always included.
func (s Schema) Projection(q Query, always ...string) (bson.M, error) {
	if len(q.Fields) == 0 {
		return nil, nil
	}
	p := bson.M{}
	for _, name := range q.Fields {
		f, err := s.lookup(name)
		if err != nil {
			return nil, err
		}
		p[f.BSON] = 1
	}
	for _, b := range always {
		p[b] = 1
	}
	return p, nil
}

// SortDoc returns the Mongo sort document for q, falling back to def.
func (s Schema) SortDoc(q Query, def bson.D) (bson.D, error) {
	if len(q.Sort) == 0 {
		return def, nil
	}
	d := make(bson.D, 0, len(q.Sort)+1)
	for _, sf := range q.Sort {
		f, err := s.lookup(sf.Field)
		if err != nil {
			return nil, err
		}
		dir := 1
		if sf.Desc {
			dir = -1
		}
		d = append(d, bson.E{Key: f.BSON, Value: dir})
	}
	// stable paging
	d = append(d, bson.E{Key: "_id", Value: 1})
	return d, nil
}

func truthy(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

func convert(k Kind, raw string) (any, error) {
	switch k {
	case Number:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", raw)
		}
		return n, nil
	case Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", raw)
		}
		return b, nil
	case Time:
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%q is not an RFC 3339 time", raw)
		}
		return t, nil
	}
	return raw, nil
}
