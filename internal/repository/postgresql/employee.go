package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/verihr/verihr-backend-go/internal/domain/employee"
	"github.com/verihr/verihr-backend-go/internal/pkg/database"
)

type employeeRepository struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.Repository {
	return &employeeRepository{db: db}
}

// GetByID implements employee.Repository.
func (r *employeeRepository) GetByID(ctx context.Context, tenantID, personID string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, tenant_id, name, active
		FROM employees
		WHERE tenant_id = $1
		  AND id = $2
		LIMIT 1
	`

	var emp employee.Employee
	err := q.QueryRow(ctx, query, tenantID, personID).Scan(
		&emp.ID, &emp.TenantID, &emp.Name, &emp.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}

	return emp, nil
}
