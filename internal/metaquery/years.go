package metaquery

import (
	"fmt"
	"strings"

	"github.com/whx4/wxc/internal/dateutil"
)

// NormalizeShape maps loose storage-shape tokens onto the closed enum.
// Unrecognized tokens fall back to ShapeRows, matching the expansion
// fallback below.
func NormalizeShape(shape string) StorageShape {
	switch StorageShape(strings.ToLower(strings.TrimSpace(shape))) {
	case ShapeSingle:
		return ShapeSingle
	case ShapeSerialized:
		return ShapeSerialized
	default:
		return ShapeRows
	}
}

// FromYearsWindow builds a spec matching a year window against the three
// storage encodings of a years field:
//
//	single     → one Range clause over min..max with numeric cast
//	rows       → one In clause listing every year in the window
//	serialized → one Regex clause matching i:YYYY; or :"YYYY"; tokens
//
// Unrecognized shapes behave like rows. An empty window yields an empty
// spec.
func FromYearsWindow(key string, shape StorageShape, win dateutil.Window) Spec {
	if key == "" || win.Empty() {
		return Spec{Relation: RelationAnd}
	}

	switch NormalizeShape(string(shape)) {
	case ShapeSingle:
		return Spec{
			Relation: RelationAnd,
			Clauses: []Clause{Range{
				Key:  key,
				Min:  win.Min,
				Max:  win.Max,
				Cast: string(CastNumeric),
			}},
		}
	case ShapeSerialized:
		return Spec{
			Relation: RelationAnd,
			Clauses: []Clause{Regex{
				Key:     key,
				Pattern: serializedYearsPattern(win.Years),
			}},
		}
	default: // rows
		values := make([]any, len(win.Years))
		for i, y := range win.Years {
			values[i] = y
		}
		return Spec{
			Relation: RelationAnd,
			// No cast: rows of numeric strings compare fine as strings for
			// an exact IN match.
			Clauses: []Clause{In{Key: key, Values: values}},
		}
	}
}

// serializedYearsPattern matches any year token inside a serialized
// collection blob. Covers integer elements (i:YYYY;) and exact string
// elements (s:<len>:"YYYY"; via the stable :"YYYY"; tail).
func serializedYearsPattern(years []int) string {
	alts := make([]string, len(years))
	for i, y := range years {
		alts[i] = fmt.Sprintf("%d", y)
	}
	joined := strings.Join(alts, "|")
	return `(:"(` + joined + `)";|i:(` + joined + `);)`
}
