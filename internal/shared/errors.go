package shared

import "errors"

var (
	// ErrNotFound indicates an unknown product id or resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument indicates a non-positive quantity, an out of range percent or a
	// malformed category.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInsufficientStock indicates a sale or disposal larger than the current stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidCredentials indicates a rejected operator PIN.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserSafeMessage returns a message suitable for operators without leaking internals.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrInsufficientStock):
		return err.Error()
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid manager PIN"
	default:
		return "internal error"
	}
}
