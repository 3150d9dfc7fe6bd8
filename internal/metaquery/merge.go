package metaquery

// MergeSpecs flattens multiple specs into one under a single root relation
// (default AND).
//
// Child spec relations are NOT preserved: every clause lands directly under
// the root. Callers needing an OR sub-group alongside AND clauses must
// pre-build it as a single clause (e.g. ContainsSerialized or Raw) before
// merging. This flattening is a documented contract, not a defect.
func MergeSpecs(specs []Spec, relation Relation) Spec {
	if relation != RelationOr {
		relation = RelationAnd
	}

	merged := Spec{Relation: relation}
	for _, spec := range specs {
		merged.Clauses = append(merged.Clauses, spec.Clauses...)
	}
	return merged
}
