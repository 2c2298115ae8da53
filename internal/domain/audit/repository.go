package audit

import "context"

// Repository appends audit events. Writes are best-effort at call sites: a
// failed append is logged and never masks the error being reported to the
// caller.
type Repository interface {
	Append(ctx context.Context, event Event) error
}
