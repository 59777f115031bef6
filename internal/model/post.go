package model

import "time"

// Post is a brand listing published by an admin.
//
// Slug is derived deterministically from Name (lowercased, spaces to hyphens,
// non-alphanumerics stripped) and carries a UNIQUE constraint — it is the
// public URL identifier for the listing.
//
// SocialLinks is stored as a JSON array in a single TEXT column. The listing
// has at most a handful of links and they are only ever read back as a whole,
// so a join table would buy nothing.
type Post struct {
	ID           string    `json:"id"           db:"id"`
	UserID       string    `json:"userId"       db:"user_id"` // The admin who created the listing
	Name         string    `json:"name"         db:"name"`
	Description  string    `json:"description"  db:"description"`
	Location     string    `json:"location"     db:"location"`
	Category     string    `json:"category"     db:"category"`
	SocialLinks  []string  `json:"socialLinks"  db:"social_links"`
	BrandPicture string    `json:"brandPicture" db:"brand_picture"`
	Slug         string    `json:"slug"         db:"slug"`
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"    db:"updated_at"`
}
