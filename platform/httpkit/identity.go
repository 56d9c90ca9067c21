package httpkit

import (
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Roles carried in access tokens.
const (
	RoleAdmin  = "admin"
	RoleBroker = "broker"
	RoleClient = "client"
)

// Identity is the caller as seen by handlers. Anonymous callers on public
// routes get an identity with IsAuthenticated false.
type Identity interface {
	UserID() uuid.UUID
	Roles() []string
	HasRole(role string) bool
	// IsAdmin reports whether the caller may act on any inquiry.
	IsAdmin() bool
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	roles         []string
	authenticated bool
}

func (i *identity) UserID() uuid.UUID        { return i.userID }
func (i *identity) Roles() []string          { return i.roles }
func (i *identity) HasRole(role string) bool { return slices.Contains(i.roles, role) }
func (i *identity) IsAdmin() bool            { return i.HasRole(RoleAdmin) }
func (i *identity) IsAuthenticated() bool    { return i.authenticated }

var anonymous = &identity{}

// GetIdentity reads the identity set by AuthRequired or OptionalAuth.
func GetIdentity(c *gin.Context) Identity {
	raw, ok := c.Get(ContextUserIDKey)
	if !ok {
		return anonymous
	}
	uid, ok := raw.(uuid.UUID)
	if !ok || uid == uuid.Nil {
		return anonymous
	}

	var roles []string
	if v, ok := c.Get(ContextRolesKey); ok {
		roles, _ = v.([]string)
	}
	return &identity{userID: uid, roles: roles, authenticated: true}
}

// MustGetIdentity is GetIdentity for authenticated routes. It aborts with
// 401 and returns nil when no identity is present.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		abortUnauthorized(c, "unauthorized")
		return nil
	}
	return id
}
