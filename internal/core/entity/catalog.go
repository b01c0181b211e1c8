package entity

import (
	"context"
	"strings"

	"scrapdesk/internal/core/apperror"
)

// Catalog is the base type for reference data.
type Catalog struct {
	BaseEntity

	// Name is the display name (unique within tenant)
	Name string `db:"name" json:"name"`

	// Code is an optional classification code
	Code *string `db:"code" json:"code,omitempty"`
}

// NewCatalog creates a new Catalog with generated ID.
func NewCatalog(name string, code *string) Catalog {
	return Catalog{
		BaseEntity: NewBaseEntity(),
		Name:       name,
		Code:       code,
	}
}

// Normalize trims the name and drops a blank code.
func (c *Catalog) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	if c.Code != nil {
		code := strings.TrimSpace(*c.Code)
		if code == "" {
			c.Code = nil
		} else {
			c.Code = &code
		}
	}
}

// Validate implements Validatable interface.
func (c *Catalog) Validate(ctx context.Context) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	return nil
}

// CodeOrEmpty returns the code or an empty string.
func (c *Catalog) CodeOrEmpty() string {
	if c.Code == nil {
		return ""
	}
	return *c.Code
}
