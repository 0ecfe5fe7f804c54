package domain

import (
	"context"
	"time"
)

// Role is a user's access level. The set is closed and totally ordered;
// see internal/security for the ordering.
type Role string

const (
	RoleUser       Role = "user"
	RoleEditor     Role = "editor"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super-admin"
)

// Valid reports whether r is one of the enumerated roles
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleEditor, RoleManager, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// User is an identity record. An invite user has no usable name or secret
// until the invited person claims it through signup.
type User struct {
	ID                     string     `json:"id"`
	UserName               string     `json:"userName"`
	Email                  string     `json:"email"`
	Role                   Role       `json:"role"`
	Tenants                []string   `json:"tenants"`
	Active                 bool       `json:"-"`
	IsInvite               bool       `json:"isInvite,omitempty"`
	PasswordHash           string     `json:"-"`
	PasswordChangedAt      *time.Time `json:"-"`
	PasswordResetTokenHash string     `json:"-"`
	PasswordResetExpires   *time.Time `json:"-"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}

// PrimaryTenant returns the first tenant the user belongs to, or ""
func (u *User) PrimaryTenant() string {
	if len(u.Tenants) == 0 {
		return ""
	}
	return u.Tenants[0]
}

// ChangedPasswordAfter reports whether the password changed after the
// given token issue time. Tokens issued before a credential change are
// no longer acceptable.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Unix() > issuedAt.Unix()
}

// UserRepository defines data access for users. Lookups return only
// active users unless includeInactive explicitly bypasses the default
// predicate.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string, includeInactive bool) (*User, error)
	GetByEmail(ctx context.Context, email string, includeInactive bool) (*User, error)
	GetInviteByEmail(ctx context.Context, email string) (*User, error)
	GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	ListByTenant(ctx context.Context, tenantID string, opts ListOptions) ([]*User, error)
}
