// Package planner implements the logical planner (C3): it walks the
// untyped Cypher AST, resolves labels for anonymous patterns, substitutes
// parameters, and builds a clause-chained logical plan whose operators
// thread named variable bindings from one clause to the next. For every
// MATCH it attaches a PatternSchemaContext computed against the catalog —
// the single site below which no further global schema lookup may occur
// (spec §3, §4.3): everything below this package receives either a
// *catalog.GraphSchema or a *PatternSchemaContext, never the catalog
// itself.
package planner

import (
	"github.com/clickgraph/clickgraph/internal/catalog"
	"github.com/clickgraph/clickgraph/internal/cypher"
)

// NodeAccessStrategy classifies how a single pattern endpoint is read:
// from its own backing table, or embedded in an adjacent edge table's
// denormalized columns. This is computed per pattern (not per schema, in
// contrast to catalog.EdgeAccessStrategy, which is intrinsic to the edge
// definition) because the same node label can be read either way depending
// on which edge connects to it in a given MATCH.
type NodeAccessStrategy int

const (
	OwnTable NodeAccessStrategy = iota
	EmbeddedInEdge
)

func (s NodeAccessStrategy) String() string {
	if s == EmbeddedInEdge {
		return "EmbeddedInEdge"
	}
	return "OwnTable"
}

// JoinStrategy is the closed sum type C4 classifies every relationship
// into (spec §4.4's truth table). The set is closed deliberately: a new
// variant must force re-examination of every switch over this type rather
// than silently falling through a default arm (spec §9).
type JoinStrategy int

const (
	StrategyUnresolved JoinStrategy = iota
	Traditional
	SingleTableScan
	FkEdge
	MixedAccess
	EdgeToEdge
	Coupled
)

func (s JoinStrategy) String() string {
	switch s {
	case Traditional:
		return "Traditional"
	case SingleTableScan:
		return "SingleTableScan"
	case FkEdge:
		return "FkEdge"
	case MixedAccess:
		return "MixedAccess"
	case EdgeToEdge:
		return "EdgeToEdge"
	case Coupled:
		return "Coupled"
	default:
		return "Unresolved"
	}
}

// PatternNodeRef is a resolved pattern node: its Cypher variable, resolved
// label, and the catalog definition backing it.
type PatternNodeRef struct {
	Variable string
	Label    string
	Def      *catalog.NodeDefinition
	// Access is filled in by the analyzer (C4), not the planner.
	Access NodeAccessStrategy
	Props  *cypher.MapLiteral
}

// PatternRelRef is a resolved pattern relationship: its Cypher variable,
// resolved type(s) (more than one when heterogeneous/polymorphic), and the
// catalog definition(s) backing it — one per type when types differ in
// backing table.
type PatternRelRef struct {
	Variable  string
	Types     []string
	Defs      []*catalog.EdgeDefinition
	Direction cypher.Direction
	VarLength cypher.VarLength
	Props     *cypher.MapLiteral

	// FromIdx/ToIdx index into the owning PatternSchemaContext.Nodes slice.
	FromIdx, ToIdx int

	// Strategy is filled in by the analyzer (C4).
	Strategy JoinStrategy
}

// PatternSchemaContext is the per-pattern snapshot spec §3 describes: every
// endpoint's resolved definition and (once C4 runs) NodeAccessStrategy, the
// edge's resolved definition(s) and EdgeAccessStrategy, alias names, and
// the final JoinStrategy. Created once per MATCH pattern by the planner and
// threaded by value/pointer through C4, C5, C6 — never recomputed from the
// catalog below this point.
type PatternSchemaContext struct {
	PathVar string
	Mode    cypher.PathMode
	Nodes   []*PatternNodeRef
	Rels    []*PatternRelRef
}

// Clause is implemented by every resolved logical-plan operator.
type Clause interface{ planClauseNode() }

// MatchOp is a resolved MATCH/OPTIONAL MATCH: one PatternSchemaContext per
// comma-separated pattern, plus an optional inline WHERE (already
// parameter-substituted by the time it reaches this operator).
type MatchOp struct {
	Optional bool
	Patterns []*PatternSchemaContext
	Where    cypher.Expr
}

func (*MatchOp) planClauseNode() {}

// UnwindOp mirrors cypher.UnwindClause once its expression has had
// parameters substituted.
type UnwindOp struct {
	Expr cypher.Expr
	As   string
}

func (*UnwindOp) planClauseNode() {}

// WithOp mirrors cypher.WithClause; Bindings lists the variable names this
// clause exposes to subsequent clauses (its projection aliases, or the
// carried-through variable name when no alias was given).
type WithOp struct {
	Distinct bool
	Items    []*cypher.ProjectionItem
	OrderBy  []*cypher.OrderItem
	Skip     cypher.Expr
	Limit    cypher.Expr
	Where    cypher.Expr
	Bindings []string
}

func (*WithOp) planClauseNode() {}

// CallOp mirrors cypher.CallClause after argument parameter substitution.
type CallOp struct {
	Procedure string
	Args      []cypher.Expr
	Yield     []string
}

func (*CallOp) planClauseNode() {}

// ReturnOp is the terminal projection, annotated with which items are
// aggregate expressions (spec §4.3: "marks aggregates, DISTINCT, and
// ordering").
type ReturnOp struct {
	Distinct  bool
	Items     []*cypher.ProjectionItem
	Aggregate []bool // parallel to Items
	OrderBy   []*cypher.OrderItem
	Skip      cypher.Expr
	Limit     cypher.Expr
}

// Part is one linear chain of Clauses terminated by a Return.
type Part struct {
	Clauses []Clause
	Return  *ReturnOp
}

// LogicalPlan is the root of a planned query: one or more Parts combined
// by UNION/UNION ALL, plus the resolved schema the plan was built against.
type LogicalPlan struct {
	Schema   *catalog.GraphSchema
	Parts    []*Part
	UnionAll []bool
}
