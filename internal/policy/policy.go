// Package policy is the single decision point for album access. Handlers
// and services never compare owner ids or walk share grants themselves.
package policy

import "github.com/NagaaSaketh/KaviosPix-BE/internal/store"

// Action is a capability a caller may hold on an album or its images.
type Action string

const (
	ViewAlbum         Action = "view_album"
	EditAlbumMetadata Action = "edit_album_metadata"
	ShareAlbum        Action = "share_album"
	DeleteAlbum       Action = "delete_album"
	UploadImage       Action = "upload_image"
	FavoriteImage     Action = "favorite_image"
	CommentImage      Action = "comment_image"
	DeleteImage       Action = "delete_image"
)

// Can reports whether the caller may perform action on the album.
// The owner may do everything. A read grant allows viewing the album and
// uploading images into it; everything else stays owner-only.
func Can(callerID int64, action Action, album store.Album) bool {
	if callerID == album.OwnerID {
		return true
	}

	if !hasGrant(callerID, album) {
		return false
	}

	switch action {
	case ViewAlbum, UploadImage:
		return true
	default:
		return false
	}
}

func hasGrant(callerID int64, album store.Album) bool {
	for _, g := range album.Shares {
		if g.UserID == callerID {
			return true
		}
	}
	return false
}
