package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"quiklii/internal/xpkg/errs"
)

// Claims is what the core trusts about a caller after token validation.
// Issuing and refreshing tokens belongs to the auth service, not here.
type Claims struct {
	UserID int64
	Role   string
}

const (
	RoleCustomer   = "customer"
	RoleRestaurant = "restaurant"
	RoleCourier    = "courier"
	RoleSystem     = "system"
)

type Validator interface {
	Validate(token string) (Claims, error)
}

// HMACValidator checks bearer tokens of the form
// "<user_id>:<role>:<expiry_unix>:<hex hmac-sha256>" against a shared secret.
type HMACValidator struct {
	secret []byte
	now    func() time.Time
}

func NewHMACValidator(secret string) *HMACValidator {
	return &HMACValidator{secret: []byte(secret), now: time.Now}
}

func (v *HMACValidator) Validate(token string) (Claims, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 4 {
		return Claims{}, errs.Authentication("malformed token")
	}

	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || userID <= 0 {
		return Claims{}, errs.Authentication("malformed token subject")
	}

	role := parts[1]
	switch role {
	case RoleCustomer, RoleRestaurant, RoleCourier, RoleSystem:
	default:
		return Claims{}, errs.Authentication("unknown role: %s", role)
	}

	expiry, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Claims{}, errs.Authentication("malformed token expiry")
	}
	if v.now().Unix() > expiry {
		return Claims{}, errs.Authentication("token expired")
	}

	want := Sign(string(v.secret), parts[0], role, expiry)
	if !hmac.Equal([]byte(want), []byte(parts[3])) {
		return Claims{}, errs.Authentication("token signature mismatch")
	}

	return Claims{UserID: userID, Role: role}, nil
}

// Sign computes the token signature. Exported for tests and for the token
// issuer, which shares the secret.
func Sign(secret, subject, role string, expiry int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s:%s:%d", subject, role, expiry)
	return hex.EncodeToString(mac.Sum(nil))
}
