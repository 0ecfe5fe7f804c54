package domain

import (
	"context"
	"encoding/json"
	"time"
)

// ListOptions carries collection query parameters. Filters and sort
// columns are whitelisted per repository; unknown keys are ignored.
type ListOptions struct {
	Filters map[string]string
	Sort    string
	Page    int
	Limit   int
}

// Offset returns the SQL offset for the requested page
func (o ListOptions) Offset() int {
	page := o.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * o.EffectiveLimit()
}

// EffectiveLimit clamps the page size to [1, 100] with a default of 20
func (o ListOptions) EffectiveLimit() int {
	switch {
	case o.Limit <= 0:
		return 20
	case o.Limit > 100:
		return 100
	}
	return o.Limit
}

// Post is a tenant-owned content entry
type Post struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Image       string    `json:"image,omitempty"`
}

// PostRepository defines tenant-scoped data access for posts. Every
// read and mutation filters by tenant id in the same statement.
type PostRepository interface {
	Create(ctx context.Context, post *Post) error
	GetByID(ctx context.Context, tenantID, id string) (*Post, error)
	List(ctx context.Context, tenantID string, opts ListOptions) ([]*Post, error)
	Update(ctx context.Context, post *Post) error
	Delete(ctx context.Context, tenantID, id string) error
}

// ConfigEntry is a tenant-owned configuration key/value pair
type ConfigEntry struct {
	ID       string          `json:"id"`
	TenantID string          `json:"tenantId"`
	Key      string          `json:"config_key"`
	Value    json.RawMessage `json:"config_value"`
}

// ConfigRepository addresses configuration entries by key within a tenant
type ConfigRepository interface {
	Create(ctx context.Context, entry *ConfigEntry) error
	GetByKey(ctx context.Context, tenantID, key string) (*ConfigEntry, error)
	List(ctx context.Context, tenantID string, opts ListOptions) ([]*ConfigEntry, error)
	UpdateByKey(ctx context.Context, tenantID, key string, value json.RawMessage) (*ConfigEntry, error)
	DeleteByKey(ctx context.Context, tenantID, key string) error
}

// Employee is a tenant-owned staff record
type Employee struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Signature   string `json:"signature,omitempty"`
	ImageName   string `json:"imageName,omitempty"`
}

// EmployeeRepository defines tenant-scoped data access for employees
type EmployeeRepository interface {
	Create(ctx context.Context, employee *Employee) error
	GetByID(ctx context.Context, tenantID, id string) (*Employee, error)
	List(ctx context.Context, tenantID string, opts ListOptions) ([]*Employee, error)
	Update(ctx context.Context, employee *Employee) error
	Delete(ctx context.Context, tenantID, id string) error
}

// PriceItem is a tenant-owned price list entry with an explicit sort order
type PriceItem struct {
	ID              string `json:"id"`
	TenantID        string `json:"tenantId"`
	Order           int    `json:"order"`
	ItemName        string `json:"itemName"`
	ItemDuration    string `json:"itemDuration,omitempty"`
	ItemDescription string `json:"itemDescription,omitempty"`
	ItemPrice       string `json:"itemPrice"`
}

// PriceListRepository defines tenant-scoped data access for price items
type PriceListRepository interface {
	Create(ctx context.Context, item *PriceItem) error
	GetByID(ctx context.Context, tenantID, id string) (*PriceItem, error)
	List(ctx context.Context, tenantID string, opts ListOptions) ([]*PriceItem, error)
	Update(ctx context.Context, item *PriceItem) error
	Delete(ctx context.Context, tenantID, id string) error
	UpdateOrder(ctx context.Context, tenantID string, order []OrderUpdate) error
}

// Category is a tenant-owned content category with an explicit sort order
type Category struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	Order    int    `json:"order"`
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Icon     string `json:"icon"`
}

// CategoryRepository defines tenant-scoped data access for categories
type CategoryRepository interface {
	Create(ctx context.Context, category *Category) error
	GetByID(ctx context.Context, tenantID, id string) (*Category, error)
	List(ctx context.Context, tenantID string, opts ListOptions) ([]*Category, error)
	Update(ctx context.Context, category *Category) error
	Delete(ctx context.Context, tenantID, id string) error
	UpdateOrder(ctx context.Context, tenantID string, order []OrderUpdate) error
}

// Photo is one image in a tenant's gallery
type Photo struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenantId"`
	Order     int    `json:"order"`
	ImageName string `json:"imageName"`
}

// GalleryRepository defines tenant-scoped data access for gallery photos
type GalleryRepository interface {
	AddPhoto(ctx context.Context, photo *Photo) error
	GetPhoto(ctx context.Context, tenantID, id string) (*Photo, error)
	ListPhotos(ctx context.Context, tenantID string, opts ListOptions) ([]*Photo, error)
	UpdatePhoto(ctx context.Context, photo *Photo) error
	DeletePhoto(ctx context.Context, tenantID, id string) error
	UpdateOrder(ctx context.Context, tenantID string, order []OrderUpdate) error
}

// OrderUpdate pairs a record id with its new sort position
type OrderUpdate struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}
