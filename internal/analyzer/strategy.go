// Package analyzer implements the pattern/schema analyzer (C4): given a
// PatternSchemaContext built by the planner, it classifies every
// relationship's JoinStrategy from its edge access strategy and its
// endpoints' node access strategies, following spec §4.4's truth table.
// Classification never re-consults the catalog directly — every input it
// needs (NodeDefinition, EdgeDefinition, EdgeAccessStrategy) already hangs
// off the PatternSchemaContext the planner produced (spec §9's "no
// global-catalog access in C5/C6", extended here since C4 sits between
// C3 and C5).
package analyzer

import (
	"github.com/clickgraph/clickgraph/internal/catalog"
	"github.com/clickgraph/clickgraph/internal/cgerrors"
	"github.com/clickgraph/clickgraph/internal/planner"
)

// ClassifyPattern fills in NodeAccessStrategy and JoinStrategy for every
// node and relationship in ctx. It is exhaustive over
// catalog.EdgeAccessStrategy (spec §9: "an exhaustive sum type ... is
// preferred to interface-based dispatch") — every edge strategy has an
// explicit case, and anything outside the closed set is an Internal error
// rather than a silently wrong default.
func ClassifyPattern(ctx *planner.PatternSchemaContext) error {
	for _, rel := range ctx.Rels {
		if err := classifyRel(rel, ctx.Nodes); err != nil {
			return err
		}
	}
	promoteEdgeToEdgeChains(ctx)
	return nil
}

func classifyRel(rel *planner.PatternRelRef, nodes []*planner.PatternNodeRef) error {
	if len(rel.Defs) == 0 {
		return cgerrors.New(cgerrors.Internal, "analyzer: relationship has no resolved edge definition")
	}
	// Within a single pattern edge, heterogeneous types may back different
	// tables (spec §4.5 "heterogeneous polymorphic paths"), but the
	// single-hop JoinStrategy classification operates on the representative
	// (first) definition; C5 handles the union/normalization across the
	// full Defs list when they disagree.
	def := rel.Defs[0]
	from := nodes[rel.FromIdx]
	to := nodes[rel.ToIdx]

	switch def.Strategy {
	case catalog.StandardEdge:
		from.Access = planner.OwnTable
		to.Access = planner.OwnTable
		rel.Strategy = planner.Traditional
		return nil

	case catalog.DenormalizedEdge:
		embedsFrom := def.EmbedsFrom()
		embedsTo := def.EmbedsTo()
		switch {
		case embedsFrom && embedsTo:
			from.Access = planner.EmbeddedInEdge
			to.Access = planner.EmbeddedInEdge
			rel.Strategy = planner.SingleTableScan
		case embedsFrom || embedsTo:
			if embedsFrom {
				from.Access = planner.EmbeddedInEdge
				to.Access = planner.OwnTable
			} else {
				from.Access = planner.OwnTable
				to.Access = planner.EmbeddedInEdge
			}
			rel.Strategy = planner.MixedAccess
		default:
			// classifyStrategies in catalog only assigns DenormalizedEdge
			// when at least one endpoint is embedded; this branch cannot be
			// reached from a schema loaded through LoadYAML, but is handled
			// explicitly rather than silently falling through.
			return cgerrors.Newf(cgerrors.UnsupportedFeature,
				"denormalized edge %q declares neither from_node_properties nor to_node_properties", def.Type)
		}
		return nil

	case catalog.FkEdgeStrategy:
		from.Access = planner.OwnTable
		to.Access = planner.OwnTable
		rel.Strategy = planner.FkEdge
		return nil

	case catalog.CoupledEdge:
		// Coupled edges share a backing table with a neighboring edge at a
		// shared node; both endpoints are read straight off that shared row
		// (spec §4.5 "unify the aliases of the two edges").
		from.Access = planner.EmbeddedInEdge
		to.Access = planner.EmbeddedInEdge
		rel.Strategy = planner.Coupled
		return nil

	default:
		return cgerrors.Newf(cgerrors.Internal, "analyzer: unrecognized edge access strategy %v", def.Strategy)
	}
}

// promoteEdgeToEdgeChains detects a run of two consecutive relationships
// whose three touched nodes are all EmbeddedInEdge (spec §4.4's "embedded →
// embedded → embedded" row) and reclassifies both as EdgeToEdge, since a
// SingleTableScan/MixedAccess read of each edge individually would
// otherwise double-read the shared middle node's columns from two
// different single-table scans instead of chaining them on the coupling
// column (spec §4.5's EdgeToEdge emitter).
func promoteEdgeToEdgeChains(ctx *planner.PatternSchemaContext) {
	for i := 0; i+1 < len(ctx.Rels); i++ {
		a, b := ctx.Rels[i], ctx.Rels[i+1]
		if a.ToIdx != b.FromIdx {
			continue
		}
		left := ctx.Nodes[a.FromIdx]
		mid := ctx.Nodes[a.ToIdx]
		right := ctx.Nodes[b.ToIdx]
		if left.Access == planner.EmbeddedInEdge && mid.Access == planner.EmbeddedInEdge && right.Access == planner.EmbeddedInEdge &&
			a.Strategy != planner.Coupled && b.Strategy != planner.Coupled {
			a.Strategy = planner.EdgeToEdge
			b.Strategy = planner.EdgeToEdge
		}
	}
}
