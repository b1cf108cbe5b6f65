package security

import (
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"golang.org/x/crypto/bcrypt"
)

const StaffKeyHeader = "X-Staff-Key"

// StaffAuth guards venue staff endpoints with a shared key checked against a
// bcrypt hash. An empty hash disables the endpoints.
type StaffAuth struct {
	hash []byte
}

func NewStaffAuth(hash string) *StaffAuth {
	return &StaffAuth{hash: []byte(hash)}
}

// HashStaffKey produces a value suitable for STAFF_KEY_HASH.
func HashStaffKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (a *StaffAuth) Require(e *core.RequestEvent) error {
	if len(a.hash) == 0 {
		return apis.NewForbiddenError("Staff access is not configured", nil)
	}

	key := e.Request.Header.Get(StaffKeyHeader)
	if key == "" {
		return apis.NewUnauthorizedError("Staff key required", nil)
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(key)); err != nil {
		return apis.NewUnauthorizedError("Invalid staff key", nil)
	}

	return e.Next()
}
