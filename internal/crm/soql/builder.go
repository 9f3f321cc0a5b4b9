// Package soql composes read queries in the CRM's SQL-like query dialect.
package soql

import (
	"fmt"
	"strings"
)

// Builder accumulates the clauses of a single SELECT statement
type Builder struct {
	fields  []string
	object  string
	where   []string
	orderBy string
	limit   int
}

// Select starts a query with the given fields. Dotted paths such as
// "Order__r.OrderNumber" traverse one relationship hop.
func Select(fields ...string) *Builder {
	return &Builder{fields: append([]string(nil), fields...)}
}

// Fields appends more fields, typically relationship paths.
func (b *Builder) Fields(fields ...string) *Builder {
	b.fields = append(b.fields, fields...)
	return b
}

// From sets the record collection being queried
func (b *Builder) From(object string) *Builder {
	b.object = object
	return b
}

// Where adds a condition. Multiple conditions are joined with AND. The
// caller is responsible for escaping literals embedded in cond; use Eq or
// Quote for string values.
func (b *Builder) Where(cond string) *Builder {
	if strings.TrimSpace(cond) != "" {
		b.where = append(b.where, cond)
	}
	return b
}

// OrderBy sets the ORDER BY expression, e.g. "CreatedDate DESC".
func (b *Builder) OrderBy(expr string) *Builder {
	b.orderBy = expr
	return b
}

// Limit caps the number of returned records. Zero means no limit.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// Build validates the query and returns it with whitespace collapsed.
func (b *Builder) Build() (string, error) {
	if len(b.fields) == 0 {
		return "", fmt.Errorf("soql: no fields selected")
	}
	if b.object == "" {
		return "", fmt.Errorf("soql: no object in FROM clause")
	}
	if b.limit < 0 {
		return "", fmt.Errorf("soql: negative limit %d", b.limit)
	}
	return b.String(), nil
}

// String renders the query. Runs of whitespace are collapsed to single
// spaces, which the query endpoint requires.
func (b *Builder) String() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(b.fields, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.object)
	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.where, " AND "))
	}
	if b.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(b.orderBy)
	}
	if b.limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", b.limit)
	}
	return Collapse(sb.String())
}

// Collapse replaces every run of whitespace with a single space.
func Collapse(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

// Quote renders a string literal with backslashes and single quotes escaped.
func Quote(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// Eq renders field = 'value' with the value escaped.
func Eq(field, value string) string {
	return field + " = " + Quote(value)
}

// In renders field IN ('a', 'b', ...) with every value escaped.
func In(field string, values ...string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = Quote(v)
	}
	return field + " IN (" + strings.Join(quoted, ", ") + ")"
}
