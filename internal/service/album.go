package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/NagaaSaketh/KaviosPix-BE/internal/pkg/serr"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/policy"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/store"
	"github.com/google/uuid"
)

type albumStore interface {
	CreateAlbum(ctx context.Context, r store.CreateAlbumRequest) (int64, error)
	GetAlbum(ctx context.Context, albumID string) (store.Album, error)
	ListUserAlbums(ctx context.Context, userID int64) ([]store.Album, error)
	UpdateAlbumDescription(ctx context.Context, id int64, description string) error
	AddShares(ctx context.Context, r store.AddSharesRequest) error
	DeleteAlbum(ctx context.Context, id int64) error
	GetUsersByEmails(ctx context.Context, emails []string) ([]store.User, error)
}

// imageCleaner removes an album's images, stored files included. Album
// deletion runs it before touching the album row, so a failure leaves
// the album in place.
type imageCleaner interface {
	RemoveAlbumImages(ctx context.Context, albumID int64) error
}

// AlbumService owns album lifecycle and sharing.
type AlbumService struct {
	store  albumStore
	images imageCleaner
}

func NewAlbumService(store albumStore, images imageCleaner) *AlbumService {
	return &AlbumService{
		store:  store,
		images: images,
	}
}

type CreateAlbumRequest struct {
	OwnerID     int64
	Name        string
	Description string
}

// Create makes a new album owned by the caller.
func (s *AlbumService) Create(ctx context.Context, r CreateAlbumRequest) (store.Album, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return store.Album{}, serr.NewServiceError(nil, http.StatusBadRequest, "album name is required")
	}

	albumID := uuid.NewString()
	id, err := s.store.CreateAlbum(ctx, store.CreateAlbumRequest{
		AlbumID:     albumID,
		Name:        name,
		Description: r.Description,
		OwnerID:     r.OwnerID,
	})
	if err != nil {
		return store.Album{}, fmt.Errorf("create album: %w", err)
	}

	return store.Album{
		ID:          id,
		AlbumID:     albumID,
		Name:        name,
		Description: r.Description,
		OwnerID:     r.OwnerID,
	}, nil
}

// Get returns the album if the caller may view it.
func (s *AlbumService) Get(ctx context.Context, callerID int64, albumID string) (store.Album, error) {
	album, err := s.getAlbum(ctx, albumID)
	if err != nil {
		return store.Album{}, err
	}

	if !policy.Can(callerID, policy.ViewAlbum, album) {
		return store.Album{}, serr.NewServiceError(nil, http.StatusForbidden, "access denied")
	}

	return album, nil
}

// List returns every album the user owns or has been granted access to.
func (s *AlbumService) List(ctx context.Context, userID int64) ([]store.Album, error) {
	albums, err := s.store.ListUserAlbums(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}

	return albums, nil
}

type UpdateDescriptionRequest struct {
	CallerID    int64
	AlbumID     string
	Description string
}

func (s *AlbumService) UpdateDescription(ctx context.Context, r UpdateDescriptionRequest) error {
	album, err := s.getAlbum(ctx, r.AlbumID)
	if err != nil {
		return err
	}

	if !policy.Can(r.CallerID, policy.EditAlbumMetadata, album) {
		return serr.NewServiceError(nil, http.StatusForbidden, "only the album owner can edit it")
	}

	if err := s.store.UpdateAlbumDescription(ctx, album.ID, r.Description); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return serr.NewServiceError(err, http.StatusNotFound, "album not found")
		}

		return fmt.Errorf("update album description: %w", err)
	}

	return nil
}

type ShareRequest struct {
	CallerID int64
	AlbumID  string
	Emails   []string
}

// Share grants read access to the listed recipients. The operation is
// all-or-nothing: if any recipient already holds a grant, nothing is
// written and the conflicting emails are reported back. The owner is
// never granted a share on their own album, and retrying a failed share
// with the remaining recipients is safe.
func (s *AlbumService) Share(ctx context.Context, r ShareRequest) ([]store.ShareGrant, error) {
	emails := normalizeEmails(r.Emails)
	if len(emails) == 0 {
		return nil, serr.NewServiceError(nil, http.StatusBadRequest, "no emails provided")
	}

	album, err := s.getAlbum(ctx, r.AlbumID)
	if err != nil {
		return nil, err
	}

	if !policy.Can(r.CallerID, policy.ShareAlbum, album) {
		return nil, serr.NewServiceError(nil, http.StatusForbidden, "only the album owner can share it")
	}

	users, err := s.store.GetUsersByEmails(ctx, emails)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}

	shared := make(map[int64]bool, len(album.Shares))
	for _, g := range album.Shares {
		shared[g.UserID] = true
	}

	var grants []store.ShareGrant
	var conflicts []string
	for _, u := range users {
		if u.ID == album.OwnerID {
			continue
		}
		if shared[u.ID] {
			conflicts = append(conflicts, u.Email)
			continue
		}

		grants = append(grants, store.ShareGrant{
			UserID: u.ID,
			Email:  u.Email,
			Access: store.AccessRead,
		})
	}

	if len(conflicts) > 0 {
		return nil, alreadySharedError(conflicts)
	}

	if len(grants) == 0 {
		return nil, serr.NewServiceError(nil, http.StatusBadRequest, "no valid recipients")
	}

	err = s.store.AddShares(ctx, store.AddSharesRequest{
		AlbumID: album.ID,
		Grants:  grants,
	})
	if err != nil {
		// racing share for the same recipient
		if errors.Is(err, store.ErrExists) {
			return nil, alreadySharedError(grantEmails(grants))
		}

		return nil, fmt.Errorf("add shares: %w", err)
	}

	return grants, nil
}

// Delete removes the album, its images first. An album row never
// outlives its grants and never loses images without going away itself.
func (s *AlbumService) Delete(ctx context.Context, callerID int64, albumID string) error {
	album, err := s.getAlbum(ctx, albumID)
	if err != nil {
		return err
	}

	if !policy.Can(callerID, policy.DeleteAlbum, album) {
		return serr.NewServiceError(nil, http.StatusForbidden, "only the album owner can delete it")
	}

	if err := s.images.RemoveAlbumImages(ctx, album.ID); err != nil {
		return fmt.Errorf("remove album images: %w", err)
	}

	if err := s.store.DeleteAlbum(ctx, album.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return serr.NewServiceError(err, http.StatusNotFound, "album not found")
		}

		return fmt.Errorf("delete album: %w", err)
	}

	return nil
}

func (s *AlbumService) getAlbum(ctx context.Context, albumID string) (store.Album, error) {
	album, err := s.store.GetAlbum(ctx, albumID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sErr := serr.NewServiceError(err, http.StatusNotFound, "album not found")
			sErr.Env["album_id"] = albumID
			return store.Album{}, sErr
		}

		return store.Album{}, fmt.Errorf("get album: %w", err)
	}

	return album, nil
}

func alreadySharedError(emails []string) error {
	return serr.NewServiceError(
		fmt.Errorf("already shared with: %s", strings.Join(emails, ", ")),
		http.StatusBadRequest,
		"album already shared with some of the provided emails")
}

func grantEmails(grants []store.ShareGrant) []string {
	emails := make([]string, 0, len(grants))
	for _, g := range grants {
		emails = append(emails, g.Email)
	}
	return emails
}

func normalizeEmails(emails []string) []string {
	seen := make(map[string]bool, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}

		seen[e] = true
		out = append(out, e)
	}
	return out
}
