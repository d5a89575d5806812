package access

import (
	"errors"
	"fmt"
)

// Permission is a closed set of capabilities a credential may carry. Ledger
// operations check membership exhaustively rather than comparing raw strings.
type Permission string

const (
	// PermissionDeposit allows initiating deposits into the caller's wallet.
	PermissionDeposit Permission = "deposit"
	// PermissionTransfer allows moving funds to another wallet.
	PermissionTransfer Permission = "transfer"
	// PermissionRead allows balance, status and history queries.
	PermissionRead Permission = "read"
)

var (
	// ErrPermissionDenied signals the credential lacks the required scope.
	// The message deliberately reveals nothing about the target resource.
	ErrPermissionDenied = errors.New("insufficient permissions")

	// ErrUnknownPermission indicates a scope outside the closed set.
	ErrUnknownPermission = errors.New("unknown permission")
)

// All returns every permission, granted implicitly to bearer-token sessions.
func All() []Permission {
	return []Permission{PermissionDeposit, PermissionTransfer, PermissionRead}
}

// Parse validates a raw scope string against the closed permission set.
func Parse(raw string) (Permission, error) {
	switch Permission(raw) {
	case PermissionDeposit:
		return PermissionDeposit, nil
	case PermissionTransfer:
		return PermissionTransfer, nil
	case PermissionRead:
		return PermissionRead, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPermission, raw)
	}
}

// ParseAll validates a list of raw scope strings, rejecting the whole list on
// the first unknown entry.
func ParseAll(raw []string) ([]Permission, error) {
	perms := make([]Permission, 0, len(raw))
	for _, r := range raw {
		p, err := Parse(r)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, nil
}

// Strings converts a permission set back to its storage representation.
func Strings(perms []Permission) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, string(p))
	}
	return out
}

// Authorize checks that the granted set covers the required permission.
func Authorize(granted []Permission, required Permission) error {
	for _, p := range granted {
		if p == required {
			return nil
		}
	}
	return ErrPermissionDenied
}
