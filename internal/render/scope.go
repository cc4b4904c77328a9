// Package render implements the SQL renderer (C6): it composes the CTEs
// C5 emitted for every pattern in a LogicalPlan into one final SQL
// statement, compiling WHERE/RETURN/WITH/UNWIND expressions into SQL with
// every column reference resolved through C5's column-metadata contract —
// never by reassembling a column name from a Cypher alias and property
// string (spec §4.6, §9).
package render

import (
	"fmt"
	"strings"

	"github.com/clickgraph/clickgraph/internal/cgerrors"
	"github.com/clickgraph/clickgraph/internal/cte"
)

// scope tracks every CTE emitted so far in dependency order (for the final
// WITH list) and which of them currently resolve a Cypher alias. A WITH
// clause narrows "visible" to only its own projected output (spec §4.6.5:
// "subsequent clauses resolve through a fresh metadata layer") while still
// keeping every earlier CTE in "all" so the final statement can still
// reference them by name in FROM/JOIN.
type scope struct {
	all     []*cte.CteResult
	visible []*cte.CteResult
}

func newScope() *scope {
	return &scope{}
}

func (s *scope) addCTEs(results []*cte.CteResult) {
	s.all = append(s.all, results...)
	s.visible = append(s.visible, results...)
}

// narrowTo replaces the visible set with exactly one CTE (used after a
// WITH clause re-projects into a single nested CTE).
func (s *scope) narrowTo(result *cte.CteResult) {
	s.all = append(s.all, result)
	s.visible = []*cte.CteResult{result}
}

// resolve finds the qualified column (cteName.column) for a (alias,
// property) pair across every currently visible CTE.
func (s *scope) resolve(alias, property string) (string, bool) {
	for _, c := range s.visible {
		if col, ok := c.Resolve(alias, property); ok {
			return c.Name + "." + col, true
		}
	}
	return "", false
}

// allProperties returns every (property, qualified column) pair currently
// resolvable for alias, across every visible CTE, deduped by property name
// and excluding the reserved "__id" key — used to expand a bare
// node/relationship RETURN item into its full set of user properties
// (spec §4.9's extended Node/Relationship wire form) without the caller
// needing to know any property name up front.
func (s *scope) allProperties(alias string) []cte.ColumnMetadata {
	seen := map[string]bool{}
	var out []cte.ColumnMetadata
	for _, c := range s.visible {
		for _, col := range c.Columns {
			if col.CypherAlias != alias || strings.HasPrefix(col.Property, "__") {
				continue
			}
			if seen[col.Property] {
				continue
			}
			seen[col.Property] = true
			out = append(out, cte.ColumnMetadata{CypherAlias: alias, Property: col.Property, Column: c.Name + "." + col.Column})
		}
	}
	return out
}

func (s *scope) resolveUnqualified(alias, property string) (cteName, column string, ok bool) {
	for _, c := range s.visible {
		if col, ok := c.Resolve(alias, property); ok {
			return c.Name, col, true
		}
	}
	return "", "", false
}

// fromClause composes a single FROM source out of every currently visible
// CTE. Two visible CTEs that share a resolvable (alias, id) pair (the same
// pattern variable bound by two different comma-separated patterns in one
// MATCH) are inner-joined on that shared identifier; otherwise they are
// combined with a CROSS JOIN, leaving the WHERE compiler to apply whatever
// predicate actually correlates them.
func (s *scope) fromClause() (string, error) {
	if len(s.visible) == 0 {
		return "", cgerrors.New(cgerrors.Internal, "render: no row source in scope")
	}
	clause := s.visible[0].Name
	for _, c := range s.visible[1:] {
		if onCol, otherCol, ok := sharedColumn(s.visible[0], c); ok {
			clause += fmt.Sprintf(" JOIN %s ON %s.%s = %s.%s", c.Name, s.visible[0].Name, onCol, c.Name, otherCol)
		} else {
			clause += fmt.Sprintf(" CROSS JOIN %s", c.Name)
		}
	}
	return clause, nil
}

func sharedColumn(a, b *cte.CteResult) (aCol, bCol string, ok bool) {
	for _, ca := range a.Columns {
		for _, cb := range b.Columns {
			if ca.CypherAlias == cb.CypherAlias && ca.Property == cb.Property {
				return ca.Column, cb.Column, true
			}
		}
	}
	return "", "", false
}

// emitWithList renders every CTE collected so far as the text following
// "WITH" (or "WITH RECURSIVE" if any of them is a recursive variable-length
// path CTE), in the order they were added — C5 only ever appends a new
// CTE after every CTE it depends on, so insertion order is already
// dependency order.
func emitWithList(ctes []*cte.CteResult) (string, error) {
	if len(ctes) == 0 {
		return "", cgerrors.New(cgerrors.Internal, "render: no CTEs to emit")
	}
	recursive := false
	parts := make([]string, len(ctes))
	for i, c := range ctes {
		if c.Recursive {
			recursive = true
		}
		parts[i] = fmt.Sprintf("%s AS (%s)", c.Name, c.SQL)
	}
	prefix := "WITH "
	if recursive {
		prefix = "WITH RECURSIVE "
	}
	return prefix + strings.Join(parts, ", "), nil
}
