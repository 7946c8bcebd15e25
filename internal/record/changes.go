package record

import "reflect"

// Changes is the diff between a record's original and modified field
// maps (spec §3, RecordChanges).
type Changes struct {
	Added          map[string]any
	ModifiedFields map[string]any
	Removed        []string
	HasChanges     bool
}

// CalculateChanges computes the diff on demand. It is pure with
// respect to the record: calling it repeatedly without intervening
// mutation yields identical results (spec §4.2).
func (r *StatefulRecord) CalculateChanges() Changes {
	added := make(map[string]any)
	modifiedFields := make(map[string]any)
	var removed []string

	for f, mv := range r.modified {
		ov, ok := r.original[f]
		if !ok {
			added[f] = mv
			continue
		}
		if !deepEqual(ov, mv) {
			modifiedFields[f] = mv
		}
	}
	for f := range r.original {
		if _, ok := r.modified[f]; !ok {
			removed = append(removed, f)
		}
	}

	return Changes{
		Added:          added,
		ModifiedFields: modifiedFields,
		Removed:        removed,
		HasChanges:     len(added) > 0 || len(modifiedFields) > 0 || len(removed) > 0,
	}
}

func deepEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
