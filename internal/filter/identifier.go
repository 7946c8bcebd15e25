package filter

import "regexp"

// identifierPattern is the strict character class every table and
// column identifier must satisfy before being emitted into SQL (spec
// §3, Filter AST invariants).
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// quoteIdentifier double-quotes a validated identifier. Callers must
// check validIdentifier first; this never escapes content since the
// pattern already excludes quote characters.
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}
