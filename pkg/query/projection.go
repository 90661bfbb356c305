// Package query builds parameterized SELECT statements over a projection of
// table columns onto the field names the domain packages filter and sort by.
package query

import "strings"

// ProjectionMap maps domain field names onto the columns of one table.
// Projection order is the SELECT column order, so scan functions must read
// columns in the order they were projected.
type ProjectionMap struct {
	table   string
	alias   string
	fields  map[string]string
	columns []string
}

// NewProjectionMap starts a projection over schema.table using alias to
// qualify every column.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		table:  schema + "." + table,
		alias:  alias,
		fields: make(map[string]string),
	}
}

// Project selects column and exposes it under field.
func (p *ProjectionMap) Project(column, field string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.fields[field] = qualified
	p.fields[column] = qualified
	p.columns = append(p.columns, qualified)
	return p
}

// Alias returns the alias qualifying the projected columns.
func (p *ProjectionMap) Alias() string {
	return p.alias
}

// From returns the table reference for a FROM clause.
func (p *ProjectionMap) From() string {
	return p.table + " " + p.alias
}

// Lookup resolves a field or raw column name to its qualified column.
// Matching ignores case so query-string sort keys such as "formula" and
// "predicted_bandgap" resolve alongside field names.
func (p *ProjectionMap) Lookup(name string) (string, bool) {
	if col, ok := p.fields[name]; ok {
		return col, true
	}
	for key, col := range p.fields {
		if strings.EqualFold(key, name) {
			return col, true
		}
	}
	return "", false
}

// Column resolves name like Lookup and returns name itself when unmapped.
func (p *ProjectionMap) Column(name string) string {
	if col, ok := p.Lookup(name); ok {
		return col
	}
	return name
}

// Columns returns the projected columns as a SELECT list.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.columns, ", ")
}
