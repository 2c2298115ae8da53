package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/verihr/verihr-backend-go/internal/domain/biometric"
	"github.com/verihr/verihr-backend-go/internal/pkg/database"
)

type templateRepository struct {
	db *database.DB
}

func NewTemplateRepository(db *database.DB) biometric.TemplateRepository {
	return &templateRepository{db: db}
}

const templateColumns = `
	id, tenant_id, person_id, descriptor, alternates, backups,
	sharpness, brightness, contrast, detection_confidence, liveness_at_enrollment,
	status, verified, success_count, failure_count, last_failure_reason,
	created_at, updated_at
`

// GetActive implements biometric.TemplateRepository.
func (r *templateRepository) GetActive(ctx context.Context, tenantID, personID string) (*biometric.Template, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + templateColumns + `
		FROM biometric_templates
		WHERE tenant_id = $1
		  AND person_id = $2
		  AND status = $3
		LIMIT 1
	`

	template, err := scanTemplate(q.QueryRow(ctx, query, tenantID, personID, biometric.StatusActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active template: %w", err)
	}

	return &template, nil
}

// Create implements biometric.TemplateRepository. The demote-then-insert runs
// in one transaction so a crash between the two steps can never leave a person
// with two active templates.
func (r *templateRepository) Create(ctx context.Context, template biometric.Template) (biometric.Template, error) {
	descriptor, alternates, backups, err := marshalTemplateJSON(template)
	if err != nil {
		return biometric.Template{}, err
	}

	err = WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		if template.Status == biometric.StatusActive {
			demote := `
				UPDATE biometric_templates
				SET status = $3, updated_at = NOW()
				WHERE tenant_id = $1
				  AND person_id = $2
				  AND status = $4
			`
			if _, err := q.Exec(ctx, demote,
				template.TenantID, template.PersonID,
				biometric.StatusInactive, biometric.StatusActive,
			); err != nil {
				return fmt.Errorf("failed to demote previous template: %w", err)
			}
		}

		insert := `
			INSERT INTO biometric_templates (
				id, tenant_id, person_id, descriptor, alternates, backups,
				sharpness, brightness, contrast, detection_confidence, liveness_at_enrollment,
				status, verified, success_count, failure_count, last_failure_reason
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
			) RETURNING created_at, updated_at
		`
		return q.QueryRow(ctx, insert,
			template.ID,
			template.TenantID,
			template.PersonID,
			descriptor,
			alternates,
			backups,
			template.Quality.Sharpness,
			template.Quality.Brightness,
			template.Quality.Contrast,
			template.Quality.DetectionConfidence,
			template.LivenessAtEnrollment,
			template.Status,
			template.Verified,
			template.SuccessCount,
			template.FailureCount,
			template.LastFailureReason,
		).Scan(&template.CreatedAt, &template.UpdatedAt)
	})
	if err != nil {
		return biometric.Template{}, fmt.Errorf("failed to create template: %w", err)
	}

	return template, nil
}

// Update implements biometric.TemplateRepository.
func (r *templateRepository) Update(ctx context.Context, template biometric.Template) error {
	q := GetQuerier(ctx, r.db)

	descriptor, alternates, backups, err := marshalTemplateJSON(template)
	if err != nil {
		return err
	}

	query := `
		UPDATE biometric_templates
		SET descriptor = $2,
			alternates = $3,
			backups = $4,
			status = $5,
			verified = $6,
			updated_at = NOW()
		WHERE id = $1
	`

	if _, err := q.Exec(ctx, query,
		template.ID, descriptor, alternates, backups, template.Status, template.Verified,
	); err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}

	return nil
}

// Deactivate implements biometric.TemplateRepository. Soft lifecycle
// transition; template rows are never hard-deleted.
func (r *templateRepository) Deactivate(ctx context.Context, tenantID, personID string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE biometric_templates
		SET status = $3, updated_at = NOW()
		WHERE tenant_id = $1
		  AND person_id = $2
		  AND status = $4
	`

	if _, err := q.Exec(ctx, query, tenantID, personID, biometric.StatusInactive, biometric.StatusActive); err != nil {
		return fmt.Errorf("failed to deactivate template: %w", err)
	}

	return nil
}

// RecordUsage implements biometric.TemplateRepository.
func (r *templateRepository) RecordUsage(ctx context.Context, templateID string, success bool, failureReason string) error {
	q := GetQuerier(ctx, r.db)

	var query string
	var args []any
	if success {
		query = `
			UPDATE biometric_templates
			SET success_count = success_count + 1, updated_at = NOW()
			WHERE id = $1
		`
		args = []any{templateID}
	} else {
		query = `
			UPDATE biometric_templates
			SET failure_count = failure_count + 1,
				last_failure_reason = $2,
				updated_at = NOW()
			WHERE id = $1
		`
		args = []any{templateID, failureReason}
	}

	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record template usage: %w", err)
	}

	return nil
}

func marshalTemplateJSON(template biometric.Template) (descriptor, alternates, backups []byte, err error) {
	descriptor, err = json.Marshal(template.Descriptor)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal descriptor: %w", err)
	}
	alternates, err = json.Marshal(template.Alternates)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal alternates: %w", err)
	}
	backups, err = json.Marshal(template.Backups)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal backups: %w", err)
	}
	return descriptor, alternates, backups, nil
}

func scanTemplate(row pgx.Row) (biometric.Template, error) {
	var template biometric.Template
	var descriptor, alternates, backups []byte

	err := row.Scan(
		&template.ID, &template.TenantID, &template.PersonID,
		&descriptor, &alternates, &backups,
		&template.Quality.Sharpness, &template.Quality.Brightness,
		&template.Quality.Contrast, &template.Quality.DetectionConfidence,
		&template.LivenessAtEnrollment,
		&template.Status, &template.Verified,
		&template.SuccessCount, &template.FailureCount, &template.LastFailureReason,
		&template.CreatedAt, &template.UpdatedAt,
	)
	if err != nil {
		return biometric.Template{}, err
	}

	if err := json.Unmarshal(descriptor, &template.Descriptor); err != nil {
		return biometric.Template{}, fmt.Errorf("failed to unmarshal descriptor: %w", err)
	}
	if err := json.Unmarshal(alternates, &template.Alternates); err != nil {
		return biometric.Template{}, fmt.Errorf("failed to unmarshal alternates: %w", err)
	}
	if err := json.Unmarshal(backups, &template.Backups); err != nil {
		return biometric.Template{}, fmt.Errorf("failed to unmarshal backups: %w", err)
	}

	return template, nil
}
