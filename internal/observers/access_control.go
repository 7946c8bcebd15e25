package observers

import (
	"context"

	"ringstore.io/platform/internal/filter"
	"ringstore.io/platform/internal/observer"
	"ringstore.io/platform/internal/operation"
	pkgerrors "ringstore.io/platform/internal/pkg/errors"
	"ringstore.io/platform/internal/ring"
)

// AccessFilterNote is the audit note QueryAccessControl stashes in the
// context Bag so later rings (and the audit observer) can see what
// identity set gated a Select.
type AccessFilterNote struct {
	IdentitySet []string
}

// QueryAccessControl runs in ring 2 on Select. It derives the caller's
// identity token set and conjoins a predicate requiring the row's
// access_read/access_edit/access_full arrays to overlap it, via the
// Filter Compiler's $any operator (spec §4.4).
type QueryAccessControl struct {
	observer.Base
}

// NewQueryAccessControl builds the ring 2 ACL-injection observer.
func NewQueryAccessControl() QueryAccessControl {
	return QueryAccessControl{Base: observer.Base{
		ObserverName: "QueryAccessControl",
		ObserverRing: ring.Security,
		Operations:   []operation.Operation{operation.Select},
	}}
}

func (o QueryAccessControl) Run(ctx context.Context, oc *observer.Context) error {
	if oc.Filter == nil {
		return pkgerrors.System(pkgerrors.CodeRingOutOfOrder, "QueryAccessControl requires a Filter on Select")
	}
	identitySet, err := oc.Identity.Identities(ctx)
	if err != nil {
		return pkgerrors.Security(pkgerrors.CodeAccessDenied, "could not resolve caller identity")
	}

	in := make([]any, len(identitySet))
	for i, id := range identitySet {
		in[i] = id
	}

	aclGroup := filter.LogicalGroup{
		Kind: filter.GroupOr,
		Children: []filter.Node{
			filter.FieldCond{Column: "access_read", Op: filter.OpAny, Operand: in},
			filter.FieldCond{Column: "access_edit", Op: filter.OpAny, Operand: in},
			filter.FieldCond{Column: "access_full", Op: filter.OpAny, Operand: in},
		},
	}

	if oc.Filter.Where == nil {
		oc.Filter.Where = aclGroup
	} else {
		oc.Filter.Where = filter.LogicalGroup{Kind: filter.GroupAnd, Children: []filter.Node{oc.Filter.Where, aclGroup}}
	}

	observer.Put(oc.Bag, AccessFilterNote{IdentitySet: identitySet})
	return nil
}
