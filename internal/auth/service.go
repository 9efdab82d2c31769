package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/gksmfly/convenience-store-system/internal/shared"
)

// PINHeader carries the manager PIN on privileged requests.
const PINHeader = "X-Manager-PIN"

// PINVerifier checks operator PINs against a bcrypt hash.
type PINVerifier struct {
	hash []byte
}

// NewPINVerifier constructs a verifier. An empty hash disables the check.
func NewPINVerifier(hash string) *PINVerifier {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return &PINVerifier{}
	}
	return &PINVerifier{hash: []byte(hash)}
}

// Enabled reports whether a PIN hash is configured.
func (v *PINVerifier) Enabled() bool {
	return v != nil && len(v.hash) > 0
}

// Verify validates the supplied PIN.
func (v *PINVerifier) Verify(pin string) error {
	if !v.Enabled() {
		return nil
	}
	if pin == "" {
		return shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(pin)); err != nil {
		return shared.ErrInvalidCredentials
	}
	return nil
}

// HashPIN produces a bcrypt hash suitable for MANAGER_PIN_HASH.
func HashPIN(pin string) (string, error) {
	if strings.TrimSpace(pin) == "" {
		return "", shared.ErrInvalidArgument
	}
	out, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
