package notify

import "context"

// Permission is the state of the user's pop-up notification consent.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Surface is a best-effort OS-level pop-up channel. Pushes are
// fire-and-forget; a failed push never fails the rule that triggered it,
// because the in-app ledger entry already exists.
type Surface interface {
	Permission(ctx context.Context, userID string) Permission
	// Request asks the user for consent once; the result may remain
	// PermissionDefault until the user responds.
	Request(ctx context.Context, userID string) (Permission, error)
	Push(ctx context.Context, userID, title, body string)
}

// Noop is a surface that drops everything; used when no pop-up channel is
// configured and in tests.
type Noop struct{}

func (Noop) Permission(ctx context.Context, userID string) Permission { return PermissionDenied }
func (Noop) Request(ctx context.Context, userID string) (Permission, error) {
	return PermissionDenied, nil
}
func (Noop) Push(ctx context.Context, userID, title, body string) {}
