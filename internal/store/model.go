package store

import "time"

// AccessLevel is the privilege a share grant confers. Only read access
// exists today; the column admits future levels.
type AccessLevel string

const AccessRead AccessLevel = "read"

type Model struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is a local identity, optionally linked to a Google account.
// PasswordHash is a placeholder for externally-authenticated accounts
// and is never returned to clients.
type User struct {
	Model
	ID           int64
	GoogleID     string
	Email        string
	PasswordHash string
	Name         string
	Picture      string
}

// ShareGrant gives a non-owner user access to an album. At most one
// grant exists per (album, user) pair.
type ShareGrant struct {
	UserID int64
	Email  string
	Access AccessLevel
}

// Album carries its grants so authorization can be decided from a single
// fetch. AlbumID is the public identifier; ID is the storage key.
type Album struct {
	Model
	ID          int64
	AlbumID     string
	Name        string
	Description string
	OwnerID     int64
	Shares      []ShareGrant
}

// Image belongs to exactly one album for its lifetime. AlbumID references
// the album storage key, not the public identifier.
type Image struct {
	Model
	ID         int64
	ImageID    string
	AlbumID    int64
	Name       string
	Tags       []string
	Person     string
	IsFavorite bool
	Comments   []string
	SizeBytes  int64
}
