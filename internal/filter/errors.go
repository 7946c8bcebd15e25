package filter

import pkgerrors "ringstore.io/platform/internal/pkg/errors"

const (
	CodeInvalidTable        = pkgerrors.CodeInvalidTable
	CodeInvalidColumn       = pkgerrors.CodeInvalidColumn
	CodeUnsupportedOperator = pkgerrors.CodeUnsupportedOperator
	CodeInvalidOperatorData = pkgerrors.CodeInvalidOperatorData
	CodeInvalidLimit        = pkgerrors.CodeInvalidLimit
	CodeInvalidOffset       = pkgerrors.CodeInvalidOffset
	CodeInvalidOrderColumn  = pkgerrors.CodeInvalidOrderColumn
	CodeInvalidOrderDir     = pkgerrors.CodeInvalidOrderDir
	CodeRegexFlagsRejected  = pkgerrors.CodeRegexFlagsRejected
)

func newFilterError(code, message string) error {
	return pkgerrors.Filter(code, message)
}
