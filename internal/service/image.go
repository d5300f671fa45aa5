package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/NagaaSaketh/KaviosPix-BE/internal/pkg/serr"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/policy"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/store"
	"github.com/google/uuid"
)

type imageStore interface {
	GetAlbum(ctx context.Context, albumID string) (store.Album, error)
	CreateImage(ctx context.Context, r store.CreateImageRequest) (int64, error)
	GetImage(ctx context.Context, imageID string) (store.Image, error)
	ListAlbumImages(ctx context.Context, albumID int64) ([]store.Image, error)
	SetImageFavorite(ctx context.Context, id int64, favorite bool) error
	AddImageComment(ctx context.Context, id int64, comment string) error
	DeleteImage(ctx context.Context, id int64) error
	DeleteAlbumImages(ctx context.Context, albumID int64) error
}

// allowedExtensions is the upload whitelist. Everything else is rejected
// before a single byte touches disk.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// ImageService handles image uploads, metadata and deletion. Stored
// files live under root, named by the image's public id.
type ImageService struct {
	store imageStore
	root  string
	log   *slog.Logger
}

type ImageServiceConfig struct {
	Root   string
	Logger *slog.Logger
}

func NewImageService(store imageStore, cfg ImageServiceConfig) *ImageService {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &ImageService{
		store: store,
		root:  cfg.Root,
		log:   log,
	}
}

type UploadRequest struct {
	CallerID   int64
	AlbumID    string
	FileName   string
	File       io.Reader
	Tags       []string
	Person     string
	IsFavorite bool
}

// Upload validates and stores an image in the album. The file is staged
// to disk first and removed again if the record cannot be written, so a
// failed upload leaves nothing behind.
func (s *ImageService) Upload(ctx context.Context, r UploadRequest) (store.Image, error) {
	album, err := s.getAlbum(ctx, r.AlbumID)
	if err != nil {
		return store.Image{}, err
	}

	if !policy.Can(r.CallerID, policy.UploadImage, album) {
		return store.Image{}, serr.NewServiceError(nil, http.StatusForbidden, "access denied")
	}

	ext := strings.ToLower(filepath.Ext(r.FileName))
	if !allowedExtensions[ext] {
		sErr := serr.NewServiceError(nil, http.StatusBadRequest, "unsupported image type")
		sErr.Env["file_name"] = r.FileName
		return store.Image{}, sErr
	}

	imageID := uuid.NewString()
	staged := filepath.Join(s.root, imageID+ext)

	size, err := s.stage(staged, r.File)
	if err != nil {
		return store.Image{}, err
	}

	id, err := s.store.CreateImage(ctx, store.CreateImageRequest{
		ImageID:    imageID,
		AlbumID:    album.ID,
		Name:       r.FileName,
		Tags:       r.Tags,
		Person:     r.Person,
		IsFavorite: r.IsFavorite,
		SizeBytes:  size,
	})
	if err != nil {
		s.removeFile(staged)

		if errors.Is(err, store.ErrNotFound) {
			return store.Image{}, serr.NewServiceError(err, http.StatusNotFound, "album not found")
		}

		return store.Image{}, fmt.Errorf("create image: %w", err)
	}

	return store.Image{
		ID:         id,
		ImageID:    imageID,
		AlbumID:    album.ID,
		Name:       r.FileName,
		Tags:       r.Tags,
		Person:     r.Person,
		IsFavorite: r.IsFavorite,
		SizeBytes:  size,
	}, nil
}

// List returns the album's images if the caller may view it.
func (s *ImageService) List(ctx context.Context, callerID int64, albumID string) ([]store.Image, error) {
	album, err := s.getAlbum(ctx, albumID)
	if err != nil {
		return nil, err
	}

	if !policy.Can(callerID, policy.ViewAlbum, album) {
		return nil, serr.NewServiceError(nil, http.StatusForbidden, "access denied")
	}

	images, err := s.store.ListAlbumImages(ctx, album.ID)
	if err != nil {
		return nil, fmt.Errorf("list album images: %w", err)
	}

	return images, nil
}

type FavoriteRequest struct {
	CallerID int64
	AlbumID  string
	ImageID  string
	Favorite bool
}

func (s *ImageService) Favorite(ctx context.Context, r FavoriteRequest) error {
	img, err := s.resolveImage(ctx, r.CallerID, r.AlbumID, r.ImageID, policy.FavoriteImage)
	if err != nil {
		return err
	}

	if err := s.store.SetImageFavorite(ctx, img.ID, r.Favorite); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return serr.NewServiceError(err, http.StatusNotFound, "image not found")
		}

		return fmt.Errorf("set image favorite: %w", err)
	}

	return nil
}

type CommentRequest struct {
	CallerID int64
	AlbumID  string
	ImageID  string
	Comment  string
}

func (s *ImageService) Comment(ctx context.Context, r CommentRequest) error {
	comment := strings.TrimSpace(r.Comment)
	if comment == "" {
		return serr.NewServiceError(nil, http.StatusBadRequest, "comment is required")
	}

	img, err := s.resolveImage(ctx, r.CallerID, r.AlbumID, r.ImageID, policy.CommentImage)
	if err != nil {
		return err
	}

	if err := s.store.AddImageComment(ctx, img.ID, comment); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return serr.NewServiceError(err, http.StatusNotFound, "image not found")
		}

		return fmt.Errorf("add image comment: %w", err)
	}

	return nil
}

type DeleteImageRequest struct {
	CallerID int64
	AlbumID  string
	ImageID  string
}

// Delete removes the record first and the stored file after. A leftover
// file is recoverable garbage, a dangling record is not.
func (s *ImageService) Delete(ctx context.Context, r DeleteImageRequest) error {
	img, err := s.resolveImage(ctx, r.CallerID, r.AlbumID, r.ImageID, policy.DeleteImage)
	if err != nil {
		return err
	}

	if err := s.store.DeleteImage(ctx, img.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return serr.NewServiceError(err, http.StatusNotFound, "image not found")
		}

		return fmt.Errorf("delete image: %w", err)
	}

	s.removeFile(s.filePath(img))
	return nil
}

// RemoveAlbumImages deletes every image in the album, records and files
// both. Runs as part of album deletion.
func (s *ImageService) RemoveAlbumImages(ctx context.Context, albumID int64) error {
	images, err := s.store.ListAlbumImages(ctx, albumID)
	if err != nil {
		return fmt.Errorf("list album images: %w", err)
	}

	if err := s.store.DeleteAlbumImages(ctx, albumID); err != nil {
		return fmt.Errorf("delete album images: %w", err)
	}

	for _, img := range images {
		s.removeFile(s.filePath(img))
	}

	return nil
}

// resolveImage loads the album and image, enforces the action, then
// rejects mismatched pairs. Policy runs before the pair check so a
// denied caller learns nothing about which album an image belongs to.
func (s *ImageService) resolveImage(ctx context.Context, callerID int64, albumID, imageID string, action policy.Action) (store.Image, error) {
	album, err := s.getAlbum(ctx, albumID)
	if err != nil {
		return store.Image{}, err
	}

	img, err := s.store.GetImage(ctx, imageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sErr := serr.NewServiceError(err, http.StatusNotFound, "image not found")
			sErr.Env["image_id"] = imageID
			return store.Image{}, sErr
		}

		return store.Image{}, fmt.Errorf("get image: %w", err)
	}

	if !policy.Can(callerID, action, album) {
		return store.Image{}, serr.NewServiceError(nil, http.StatusForbidden, "access denied")
	}

	if img.AlbumID != album.ID {
		return store.Image{}, serr.NewServiceError(nil, http.StatusBadRequest, "image does not belong to the album")
	}

	return img, nil
}

func (s *ImageService) getAlbum(ctx context.Context, albumID string) (store.Album, error) {
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

// stage writes the upload to its final location, cleaning up on failure.
func (s *ImageService) stage(path string, src io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create image file: %w", err)
	}

	size, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.removeFile(path)

		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return 0, serr.NewServiceError(err, http.StatusRequestEntityTooLarge, "image size exceeded")
		}

		return 0, fmt.Errorf("save image file: %w", err)
	}

	return size, nil
}

func (s *ImageService) filePath(img store.Image) string {
	return filepath.Join(s.root, img.ImageID+strings.ToLower(filepath.Ext(img.Name)))
}

func (s *ImageService) removeFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Error("failed to remove image file", "path", path, "error", err)
	}
}
