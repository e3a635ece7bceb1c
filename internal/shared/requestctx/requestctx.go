// Package requestctx carries the caller's identity and presentation
// preferences explicitly through service calls.
package requestctx

import (
	"strings"

	"worldtour/internal/users"

	"github.com/google/uuid"
)

const (
	DefaultLocale   = "en"
	DefaultCurrency = "USD"
)

// RequestContext describes who is calling and how results should be presented
type RequestContext struct {
	UserID   uuid.UUID
	Email    string
	Role     users.Role
	Locale   string
	Currency string
}

// Anonymous returns a context with default locale and currency and no user
func Anonymous() RequestContext {
	return RequestContext{Locale: DefaultLocale, Currency: DefaultCurrency}
}

// Authenticated reports whether a user is attached
func (rc RequestContext) Authenticated() bool {
	return rc.UserID != uuid.Nil
}

// IsAdmin reports whether the caller holds the admin role
func (rc RequestContext) IsAdmin() bool {
	return rc.Role == users.RoleAdmin
}

// CanActOn reports whether the caller may manage a resource owned by ownerID
func (rc RequestContext) CanActOn(ownerID uuid.UUID) bool {
	return rc.IsAdmin() || (rc.Authenticated() && rc.UserID == ownerID)
}

// NormalizeCurrency upper-cases a three letter code, returning "" when invalid
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return ""
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return ""
		}
	}
	return code
}

// ParseAcceptLanguage returns the first language tag of an Accept-Language header
func ParseAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if tag != "" && tag != "*" {
			return tag
		}
	}
	return ""
}
