// Package identity resolves the calling principal's access identity
// set, the token vector QueryAccessControl (ring 2) conjoins against a
// row's access_read/access_edit/access_full columns (spec §4.4).
package identity

import "context"

// Provider yields the current principal's identity set. Implementations
// never issue or refresh credentials — verification only (spec §9
// Non-goals: "auth token issuance/verification beyond the narrow
// IdentityProvider contract").
type Provider interface {
	Identities(ctx context.Context) ([]string, error)
}

// StaticProvider returns a fixed identity set. Used in tests and by
// callers that resolve identity upstream of the pipeline by some other
// means.
type StaticProvider struct {
	Set []string
}

// NewStatic returns a Provider fixed to set.
func NewStatic(set []string) StaticProvider {
	return StaticProvider{Set: set}
}

func (p StaticProvider) Identities(ctx context.Context) ([]string, error) {
	return p.Set, nil
}

// UserToken formats the identity token for a user id, e.g. "user:42".
func UserToken(userID string) string { return "user:" + userID }

// RoleToken formats the identity token for a role name, e.g. "role:admin".
func RoleToken(role string) string { return "role:" + role }
