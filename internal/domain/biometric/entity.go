package biometric

import (
	"time"

	"github.com/verihr/verihr-backend-go/internal/pkg/face"
)

type TemplateStatus string

const (
	StatusActive        TemplateStatus = "ACTIVE"
	StatusPendingReview TemplateStatus = "PENDING_REVIEW"
	StatusInactive      TemplateStatus = "INACTIVE"
	StatusRejected      TemplateStatus = "REJECTED"
	StatusExpired       TemplateStatus = "EXPIRED"
)

// MaxBackups bounds the prior-template archive kept on re-enrollment.
const MaxBackups = 3

// EncryptedDescriptor is one sealed descriptor as stored: ciphertext, nonce
// and authentication tag, plus the dimension needed to decode the plaintext.
type EncryptedDescriptor struct {
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
	Tag        []byte `json:"tag"`
	Dimension  int    `json:"dimension"`
}

// TemplateBackup archives a replaced descriptor. Re-enrollment never deletes
// the previous descriptor; it moves here, bounded to MaxBackups entries.
type TemplateBackup struct {
	Descriptor EncryptedDescriptor `json:"descriptor"`
	ArchivedAt time.Time           `json:"archived_at"`
}

// Template is the one active biometric record per (tenant, person). Never
// hard-deleted; lifecycle transitions preserve the audit trail.
type Template struct {
	ID       string
	TenantID string
	PersonID string

	Descriptor EncryptedDescriptor
	// Alternates hold additional sealed descriptors of the same person,
	// matched alongside the primary.
	Alternates []EncryptedDescriptor
	Backups    []TemplateBackup

	Quality              face.QualityMetrics
	LivenessAtEnrollment bool

	Status   TemplateStatus
	Verified bool

	SuccessCount      int
	FailureCount      int
	LastFailureReason *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ArchiveDescriptor pushes the current descriptor onto the backup list,
// newest first, trimming to the bound.
func (t *Template) ArchiveDescriptor(now time.Time) {
	backup := TemplateBackup{Descriptor: t.Descriptor, ArchivedAt: now}
	t.Backups = append([]TemplateBackup{backup}, t.Backups...)
	if len(t.Backups) > MaxBackups {
		t.Backups = t.Backups[:MaxBackups]
	}
}
