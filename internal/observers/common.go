package observers

import "ringstore.io/platform/internal/record"

// securityCheck builds a record.SecurityCheck verdict, carrying reason
// only when the check failed.
func securityCheck(passed bool, reason string) record.SecurityCheck {
	if passed {
		return record.SecurityCheck{Passed: true}
	}
	return record.SecurityCheck{Passed: false, Reason: reason}
}
