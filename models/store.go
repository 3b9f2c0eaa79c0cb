package models

import (
	"time"
)

// Store is a venue whose talents receive gifts
type Store struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Slug        string    `db:"slug"`
	Description string    `db:"description"`
	AddressText string    `db:"address_text"`
	HoursText   string    `db:"hours_text"`
	IsPublic    bool      `db:"is_public"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Talent is a named person affiliated with a store who can receive gifts
type Talent struct {
	ID           string    `db:"id"`
	StoreID      string    `db:"store_id"`
	Name         string    `db:"name"`
	Slug         string    `db:"slug"`
	ProfileShort string    `db:"profile_short"`
	PhotoURL     *string   `db:"photo_url"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
