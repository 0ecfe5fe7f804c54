package domain

import (
	"context"
	"time"
)

// Tenant is an organization boundary. Slug is the short tenant
// identifier carried in tokens and stamped on every scoped resource;
// it is generated once, collision-checked, and never changes.
type Tenant struct {
	ID        string    `json:"id"`
	Slug      string    `json:"tenantId"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain,omitempty"`
	Members   []string  `json:"users,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TenantRepository defines data access for tenants
type TenantRepository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Update(ctx context.Context, tenant *Tenant) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Tenant, error)
	AttachMember(ctx context.Context, tenantID, userID string) error
	DetachMember(ctx context.Context, tenantID, userID string) error
}
