package store

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
)

type CreateUserRequest struct {
	GoogleID     string
	Email        string
	PasswordHash string
	Name         string
	Picture      string
}

type CreateAlbumRequest struct {
	AlbumID     string
	Name        string
	Description string
	OwnerID     int64
}

type AddSharesRequest struct {
	AlbumID int64
	Grants  []ShareGrant
}

type CreateImageRequest struct {
	ImageID    string
	AlbumID    int64
	Name       string
	Tags       []string
	Person     string
	IsFavorite bool
	SizeBytes  int64
}
