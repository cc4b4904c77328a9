package bolt

import (
	"fmt"
	"time"

	"github.com/clickgraph/clickgraph/internal/bolt/packstream"
	"github.com/clickgraph/clickgraph/internal/cgerrors"
	"github.com/clickgraph/clickgraph/internal/render"
	"github.com/google/uuid"
)

// entityNamespace seeds the deterministic elementId UUIDs: spec §4.9 requires
// "Node and edge structures use the 5.x extended form (elementId + legacy
// id)", and elementId must stay stable for the same entity across repeated
// queries, so it is derived (uuid.NewSHA1, a version-5-style UUID) from the
// entity's own label and legacy id rather than drawn at random per row.
var entityNamespace = uuid.MustParse("2c9af013-6f0a-4f7e-9c9b-4f2f6b6b8e21")

func elementID(label string, legacyID int64) string {
	return uuid.NewSHA1(entityNamespace, []byte(fmt.Sprintf("%s:%d", label, legacyID))).String()
}

// encodeRow converts one backend result row's driver-native values into the
// PackStream-encodable subset encode.go's Encoder.WriteValue accepts. When
// p.entityFields is nil (a procedure call or a RUN with no backend attached)
// the row already matches the Bolt field list column-for-column, so each
// value is passed through encodeValue directly, matching this package's
// original scalar-only behavior. Otherwise every output column must be
// regrouped per field: a FieldNode/FieldRelationship collapses several raw
// backend columns into one PackStream Node/Relationship structure, keyed off
// the CTE column metadata C6 attached to the field (IDColumn/PropColumns and,
// for relationships, StartIDColumn/EndIDColumn).
func encodeRow(p *pendingResult, row []any) ([]any, error) {
	if p.entityFields == nil {
		out := make([]any, len(row))
		for i, v := range row {
			out[i] = encodeValue(v)
		}
		return out, nil
	}
	out := make([]any, len(p.entityFields))
	for i, f := range p.entityFields {
		switch f.Kind {
		case render.FieldNode:
			v, err := buildNodeStruct(f, p.colIndex, row)
			if err != nil {
				return nil, err
			}
			out[i] = v
		case render.FieldRelationship:
			v, err := buildRelationshipStruct(f, p.colIndex, row)
			if err != nil {
				return nil, err
			}
			out[i] = v
		default:
			idx, ok := p.colIndex[f.Column]
			if !ok {
				return nil, cgerrors.Newf(cgerrors.Internal, "bolt: output column %q not found in backend result", f.Column)
			}
			out[i] = encodeValue(row[idx])
		}
	}
	return out, nil
}

// buildNodeStruct packs one row's node columns into a Bolt 5.x Node
// structure: legacy id, labels, properties, elementId — in that field
// order, matching the driver's expected Node struct shape.
func buildNodeStruct(f render.Field, colIndex map[string]int, row []any) (*packstream.Structure, error) {
	legacyID, err := lookupID(colIndex, row, f.IDColumn)
	if err != nil {
		return nil, err
	}
	props := propertyMap(f.PropColumns, colIndex, row)
	var labels []any
	if f.Label != "" {
		labels = []any{f.Label}
	} else {
		labels = []any{}
	}
	return &packstream.Structure{
		Tag:    tagNode,
		Fields: []any{legacyID, labels, props, elementID(f.Label, legacyID)},
	}, nil
}

// buildRelationshipStruct packs one row's relationship columns into a Bolt
// 5.x Relationship structure: legacy id, start node id, end node id, type,
// properties, elementId, start node elementId, end node elementId.
func buildRelationshipStruct(f render.Field, colIndex map[string]int, row []any) (*packstream.Structure, error) {
	legacyID, err := lookupID(colIndex, row, f.IDColumn)
	if err != nil {
		return nil, err
	}
	startID, err := lookupID(colIndex, row, f.StartIDColumn)
	if err != nil {
		return nil, err
	}
	endID, err := lookupID(colIndex, row, f.EndIDColumn)
	if err != nil {
		return nil, err
	}
	props := propertyMap(f.PropColumns, colIndex, row)
	return &packstream.Structure{
		Tag: tagRelationship,
		Fields: []any{
			legacyID, startID, endID, f.Label, props,
			elementID(f.Label, legacyID),
			elementID(f.StartLabel, startID),
			elementID(f.EndLabel, endID),
		},
	}, nil
}

func propertyMap(propCols map[string]string, colIndex map[string]int, row []any) map[string]any {
	props := make(map[string]any, len(propCols))
	for name, col := range propCols {
		if idx, ok := colIndex[col]; ok {
			props[name] = encodeValue(row[idx])
		}
	}
	return props
}

func lookupID(colIndex map[string]int, row []any, col string) (int64, error) {
	idx, ok := colIndex[col]
	if !ok {
		return 0, cgerrors.Newf(cgerrors.Internal, "bolt: id column %q not found in backend result", col)
	}
	return toNodeID(row[idx])
}

func toNodeID(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case uint8, uint16, uint32:
		return toInt64(x), nil
	case uint64:
		return int64(x), nil
	case int:
		return int64(x), nil
	default:
		return 0, cgerrors.Newf(cgerrors.Internal, "bolt: id column held non-integer value %v (%T)", v, v)
	}
}

func encodeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case []byte:
		return string(x)
	case uint8, uint16, uint32:
		return toInt64(x)
	case uint64:
		return int64(x)
	default:
		return v
	}
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	default:
		return 0
	}
}
