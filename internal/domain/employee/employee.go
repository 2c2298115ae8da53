package employee

import (
	"context"
	"errors"
)

var ErrEmployeeNotFound = errors.New("employee not found")

// Employee is the minimal read view the verification pipeline needs: the
// display name for audit records and the active flag. Full employee CRUD
// lives in an external collaborator.
type Employee struct {
	ID       string
	TenantID string
	Name     string
	Active   bool
}

type Repository interface {
	GetByID(ctx context.Context, tenantID, personID string) (Employee, error)
}
