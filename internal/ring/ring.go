// Package ring defines the pipeline's ten ordered phases and the
// rules for which of them apply to a given operation.
package ring

import "ringstore.io/platform/internal/operation"

// Ring is one of the ten numbered phases a pipeline invocation passes
// through, in strictly increasing numeric order.
type Ring int

const (
	DataPrep     Ring = 0
	Validate     Ring = 1
	Security     Ring = 2
	Business     Ring = 3
	Enrich       Ring = 4
	Database     Ring = 5
	PostDatabase Ring = 6
	Audit        Ring = 7
	Integration  Ring = 8
	Notification Ring = 9
)

// All is every ring in ascending order.
var All = []Ring{DataPrep, Validate, Security, Business, Enrich, Database, PostDatabase, Audit, Integration, Notification}

// Sync is the rings that run on the caller's scheduling context,
// rings 0 through 6 inclusive.
var Sync = []Ring{DataPrep, Validate, Security, Business, Enrich, Database, PostDatabase}

// Async is the rings dispatched to a detached executor, never
// propagating errors to the caller.
var Async = []Ring{Audit, Integration, Notification}

func (r Ring) String() string {
	switch r {
	case DataPrep:
		return "DataPrep"
	case Validate:
		return "Validate"
	case Security:
		return "Security"
	case Business:
		return "Business"
	case Enrich:
		return "Enrich"
	case Database:
		return "Database"
	case PostDatabase:
		return "PostDatabase"
	case Audit:
		return "Audit"
	case Integration:
		return "Integration"
	case Notification:
		return "Notification"
	default:
		return "Unknown"
	}
}

// IsSync reports whether r runs in the synchronous phase (0-6).
func (r Ring) IsSync() bool { return r <= PostDatabase }

// IsAsync reports whether r runs in the detached phase (7-9).
func (r Ring) IsAsync() bool { return r >= Audit }

// StopsOnError reports whether a non-empty error set accumulated in
// ring r aborts the invocation before the next ring runs. Per spec
// §4.3 step 2c, this is true for every ring strictly below Database(5);
// Database and PostDatabase have their own fail/best-effort handling
// and are not governed by this check.
func (r Ring) StopsOnError() bool { return r < Database }

// RelevantRings returns the ordered set of rings applicable to op, per
// spec §4.3 step 1. For Select, Business(3) and PostDatabase(6) are
// excluded unless an observer in those rings explicitly declares
// applicability to Select — that declaration is evaluated by the
// pipeline engine at observer-selection time, not here; this function
// returns the baseline set before any such override.
func RelevantRings(op operation.Operation) []Ring {
	if op != operation.Select {
		return All
	}
	relevant := make([]Ring, 0, len(All)-2)
	for _, r := range All {
		if r == Business || r == PostDatabase {
			continue
		}
		relevant = append(relevant, r)
	}
	return relevant
}
