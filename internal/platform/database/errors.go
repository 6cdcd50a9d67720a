package database

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"kycgate/pkg/platform/sentinel"
)

// Postgres SQLSTATE codes the stores translate.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	checkViolation      = "23514"
)

// TranslateError maps Postgres constraint failures onto sentinel errors. Other errors
// are returned unchanged.
func TranslateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case uniqueViolation:
		return fmt.Errorf("%w: %s", sentinel.ErrConflict, pqErr.Constraint)
	case foreignKeyViolation:
		return fmt.Errorf("%w: %s", sentinel.ErrNotFound, pqErr.Constraint)
	case checkViolation:
		return fmt.Errorf("%w: %s", sentinel.ErrInvalidState, pqErr.Constraint)
	default:
		return err
	}
}
