// Package filter selects queued packages with --where clauses.
package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/vburojevic/adjust/internal/domain"
)

// WhereClause represents a parsed --where condition
type WhereClause struct {
	Field    string
	Operator string
	Value    string
	regex    *regexp.Regexp // Compiled regex for ~ and !~ operators
}

// ParseWhereClause parses a where clause like "kind=event" or "param.event_token~^ab"
// Supported operators: =, !=, ~, !~, >=, <=, ^, $
func ParseWhereClause(clause string) (*WhereClause, error) {
	// Try operators in order of length (longest first to avoid partial matches)
	operators := []string{"!~", ">=", "<=", "!=", "~", "=", "^", "$"}

	for _, op := range operators {
		idx := strings.Index(clause, op)
		if idx > 0 {
			field := strings.TrimSpace(clause[:idx])
			value := strings.TrimSpace(clause[idx+len(op):])

			if field == "" || value == "" {
				return nil, fmt.Errorf("invalid where clause: %s", clause)
			}

			wc := &WhereClause{
				Field:    field,
				Operator: op,
				Value:    value,
			}

			switch op {
			case "~", "!~":
				re, err := regexp.Compile(value)
				if err != nil {
					return nil, fmt.Errorf("invalid regex in where clause '%s': %w", clause, err)
				}
				wc.regex = re
			case ">=", "<=":
				if _, err := strconv.ParseInt(value, 10, 64); err != nil {
					return nil, fmt.Errorf("where clause '%s' compares numbers only", clause)
				}
			}

			return wc, nil
		}
	}

	return nil, fmt.Errorf("no valid operator found in where clause: %s (use =, !=, ~, !~, >=, <=, ^, $)", clause)
}

// Match checks if a package matches this where clause
func (wc *WhereClause) Match(pkg *domain.ActivityPackage) bool {
	fieldValue := wc.getFieldValue(pkg)

	switch wc.Operator {
	case "=":
		return fieldValue == wc.Value
	case "!=":
		return fieldValue != wc.Value
	case "~":
		return wc.regex.MatchString(fieldValue)
	case "!~":
		return !wc.regex.MatchString(fieldValue)
	case "^":
		return strings.HasPrefix(fieldValue, wc.Value)
	case "$":
		return strings.HasSuffix(fieldValue, wc.Value)
	case ">=":
		return wc.compareNumber(fieldValue, true)
	case "<=":
		return wc.compareNumber(fieldValue, false)
	}

	return false
}

// getFieldValue extracts the field value from a package. param.<name> reads
// a request parameter.
func (wc *WhereClause) getFieldValue(pkg *domain.ActivityPackage) string {
	field := strings.ToLower(wc.Field)
	if name, ok := strings.CutPrefix(field, "param."); ok {
		return pkg.Parameters[name]
	}

	switch field {
	case "kind":
		return string(pkg.Kind)
	case "path":
		return pkg.Path
	case "id":
		return pkg.ID
	case "suffix":
		return pkg.Suffix
	case "created_at":
		return strconv.FormatInt(pkg.CreatedAt, 10)
	case "event_token":
		return pkg.EventToken()
	default:
		return ""
	}
}

// compareNumber handles >= and <= on integer fields such as created_at or
// param.session_count. Non-numeric values never match.
func (wc *WhereClause) compareNumber(fieldValue string, greaterOrEqual bool) bool {
	have, err := strconv.ParseInt(fieldValue, 10, 64)
	if err != nil {
		return false
	}
	want, _ := strconv.ParseInt(wc.Value, 10, 64)

	if greaterOrEqual {
		return have >= want
	}
	return have <= want
}

// WhereFilter is a filter that applies multiple where clauses (AND logic)
type WhereFilter struct {
	clauses []*WhereClause
}

// NewWhereFilter creates a filter from multiple where clause strings.
// No clauses yields a nil filter, which matches everything.
func NewWhereFilter(whereClauses []string) (*WhereFilter, error) {
	if len(whereClauses) == 0 {
		return nil, nil
	}

	filter := &WhereFilter{}
	for _, clause := range whereClauses {
		wc, err := ParseWhereClause(clause)
		if err != nil {
			return nil, err
		}
		filter.clauses = append(filter.clauses, wc)
	}

	return filter, nil
}

// Match returns true if the package matches ALL where clauses (AND logic)
func (f *WhereFilter) Match(pkg *domain.ActivityPackage) bool {
	if f == nil {
		return true
	}
	for _, clause := range f.clauses {
		if !clause.Match(pkg) {
			return false
		}
	}
	return true
}

// Apply keeps the matching packages, preserving queue order.
func (f *WhereFilter) Apply(pkgs []*domain.ActivityPackage) []*domain.ActivityPackage {
	if f == nil {
		return pkgs
	}
	return lo.Filter(pkgs, func(p *domain.ActivityPackage, _ int) bool {
		return f.Match(p)
	})
}
