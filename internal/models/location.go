package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Location struct {
	bun.BaseModel `bun:"table:locations"`

	ID          string    `bun:"id,pk" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	AddressLine string    `bun:"address_line,nullzero" json:"address_line,omitempty"`
	City        string    `bun:"city,nullzero" json:"city,omitempty"`
	Country     string    `bun:"country,nullzero" json:"country,omitempty"`
	Notes       string    `bun:"notes,type:text,nullzero" json:"notes,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

type CreateLocationRequest struct {
	Name        string `json:"name"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Notes       string `json:"notes"`
}
