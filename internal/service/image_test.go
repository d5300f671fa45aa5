package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NagaaSaketh/KaviosPix-BE/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockImageStore struct {
	getAlbumFunc          func(ctx context.Context, albumID string) (store.Album, error)
	createImageFunc       func(ctx context.Context, r store.CreateImageRequest) (int64, error)
	getImageFunc          func(ctx context.Context, imageID string) (store.Image, error)
	listAlbumImagesFunc   func(ctx context.Context, albumID int64) ([]store.Image, error)
	setImageFavoriteFunc  func(ctx context.Context, id int64, favorite bool) error
	addImageCommentFunc   func(ctx context.Context, id int64, comment string) error
	deleteImageFunc       func(ctx context.Context, id int64) error
	deleteAlbumImagesFunc func(ctx context.Context, albumID int64) error
}

func (m *mockImageStore) GetAlbum(ctx context.Context, albumID string) (store.Album, error) {
	return m.getAlbumFunc(ctx, albumID)
}

func (m *mockImageStore) CreateImage(ctx context.Context, r store.CreateImageRequest) (int64, error) {
	return m.createImageFunc(ctx, r)
}

func (m *mockImageStore) GetImage(ctx context.Context, imageID string) (store.Image, error) {
	return m.getImageFunc(ctx, imageID)
}

func (m *mockImageStore) ListAlbumImages(ctx context.Context, albumID int64) ([]store.Image, error) {
	return m.listAlbumImagesFunc(ctx, albumID)
}

func (m *mockImageStore) SetImageFavorite(ctx context.Context, id int64, favorite bool) error {
	return m.setImageFavoriteFunc(ctx, id, favorite)
}

func (m *mockImageStore) AddImageComment(ctx context.Context, id int64, comment string) error {
	return m.addImageCommentFunc(ctx, id, comment)
}

func (m *mockImageStore) DeleteImage(ctx context.Context, id int64) error {
	return m.deleteImageFunc(ctx, id)
}

func (m *mockImageStore) DeleteAlbumImages(ctx context.Context, albumID int64) error {
	return m.deleteAlbumImagesFunc(ctx, albumID)
}

func albumGetter(album store.Album) func(ctx context.Context, albumID string) (store.Album, error) {
	return func(ctx context.Context, albumID string) (store.Album, error) {
		return album, nil
	}
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestImage_Upload(t *testing.T) {
	root := t.TempDir()

	var created store.CreateImageRequest
	srv := NewImageService(&mockImageStore{
		getAlbumFunc: albumGetter(sharedAlbum()),
		createImageFunc: func(ctx context.Context, r store.CreateImageRequest) (int64, error) {
			created = r
			return 3, nil
		},
	}, ImageServiceConfig{Root: root})

	img, err := srv.Upload(t.Context(), UploadRequest{
		CallerID: 10,
		AlbumID:  "album-uuid",
		FileName: "sunset.jpg",
		File:     strings.NewReader("fake image bytes"),
		Tags:     []string{"beach"},
		Person:   "Alice",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3), img.ID)
	assert.Equal(t, "sunset.jpg", img.Name)
	assert.Equal(t, int64(len("fake image bytes")), img.SizeBytes)
	assert.Equal(t, created.ImageID, img.ImageID)
	assert.Equal(t, []string{"beach"}, created.Tags)
	assert.Equal(t, "Alice", created.Person)
	assert.False(t, created.IsFavorite)

	files := dirEntries(t, root)
	require.Len(t, files, 1)
	assert.Equal(t, img.ImageID+".jpg", files[0])

	data, err := os.ReadFile(filepath.Join(root, files[0]))
	require.NoError(t, err)
	assert.Equal(t, "fake image bytes", string(data))
}

func TestImage_Upload_SharedReaderAllowed(t *testing.T) {
	root := t.TempDir()

	srv := NewImageService(&mockImageStore{
		getAlbumFunc: albumGetter(sharedAlbum()),
		createImageFunc: func(ctx context.Context, r store.CreateImageRequest) (int64, error) {
			return 4, nil
		},
	}, ImageServiceConfig{Root: root})

	_, err := srv.Upload(t.Context(), UploadRequest{
		CallerID: 20,
		AlbumID:  "album-uuid",
		FileName: "photo.png",
		File:     strings.NewReader("png"),
	})
	require.NoError(t, err)
}

func TestImage_Upload_Stranger(t *testing.T) {
	srv := NewImageService(&mockImageStore{
		getAlbumFunc: albumGetter(sharedAlbum()),
	}, ImageServiceConfig{Root: t.TempDir()})

	_, err := srv.Upload(t.Context(), UploadRequest{
		CallerID: 30,
		AlbumID:  "album-uuid",
		FileName: "photo.png",
		File:     strings.NewReader("png"),
	})
	requireStatus(t, err, 403)
}

func TestImage_Upload_BadExtension(t *testing.T) {
	root := t.TempDir()

	srv := NewImageService(&mockImageStore{
		getAlbumFunc: albumGetter(sharedAlbum()),
	}, ImageServiceConfig{Root: root})

	for _, name := range []string{"document.pdf", "script.sh", "archive.zip", "noextension"} {
		_, err := srv.Upload(t.Context(), UploadRequest{
			CallerID: 10,
			AlbumID:  "album-uuid",
			FileName: name,
			File:     strings.NewReader("data"),
		})
		requireStatus(t, err, 400)
	}

	// rejected uploads never touch disk
	require.Empty(t, dirEntries(t, root))
}

func TestImage_Upload_UppercaseExtension(t *testing.T) {
	srv := NewImageService(&mockImageStore{
		getAlbumFunc: albumGetter(sharedAlbum()),
		createImageFunc: func(ctx context.Context, r store.CreateImageRequest) (int64, error) {
			return 5, nil
		},
	}, ImageServiceConfig{Root: t.TempDir()})

	_, err := srv.Upload(t.Context(), UploadRequest{
		CallerID: 10,
		AlbumID:  "album-uuid",
		FileName: "PHOTO.JPG",
		File:     strings.NewReader("jpg"),
	})
	require.NoError(t, err)
}

func TestImage_Upload_StoreFailureRemovesFile(t *testing.T) {
	root := t.TempDir()

	srv := NewImageService(&mockImageStore{
		getAlbumFunc: albumGetter(sharedAlbum()),
		createImageFunc: func(ctx context.Context, r store.CreateImageRequest) (int64, error) {
			return 0, assert.AnError
		},
	}, ImageServiceConfig{Root: root})

	_, err := srv.Upload(t.Context(), UploadRequest{
		CallerID: 10,
		AlbumID:  "album-uuid",
		FileName: "photo.gif",
		File:     strings.NewReader("gif"),
	})
	require.Error(t, err)
	require.Empty(t, dirEntries(t, root))
}

func TestImage_List(t *testing.T) {
	srv := NewImageService(&mockImageStore{
		getAlbumFunc: albumGetter(sharedAlbum()),
		listAlbumImagesFunc: func(ctx context.Context, albumID int64) ([]store.Image, error) {
			require.Equal(t, int64(1), albumID)
			return []store.Image{{ID: 1, Name: "a.jpg"}, {ID: 2, Name: "b.png"}}, nil
		},
	}, ImageServiceConfig{Root: t.TempDir()})

	images, err := srv.List(t.Context(), 20, "album-uuid")
	require.NoError(t, err)
	require.Len(t, images, 2)
}

func TestImage_List_Stranger(t *testing.T) {
	srv := NewImageService(&mockImageStore{
		getAlbumFunc: albumGetter(sharedAlbum()),
	}, ImageServiceConfig{Root: t.TempDir()})

	_, err := srv.List(t.Context(), 30, "album-uuid")
	requireStatus(t, err, 403)
}

func TestImage_Favorite(t *testing.T) {
	var favID int64
	var favVal bool

	srv := NewImageService(&mockImageStore{
		getAlbumFunc: albumGetter(sharedAlbum()),
		getImageFunc: func(ctx context.Context, imageID string) (store.Image, error) {
			return store.Image{ID: 7, ImageID: imageID, AlbumID: 1, Name: "a.jpg"}, nil
		},
		setImageFavoriteFunc: func(ctx context.Context, id int64, favorite bool) error {
			favID = id
			favVal = favorite
			return nil
		},
	}, ImageServiceConfig{Root: t.TempDir()})

	err := srv.Favorite(t.Context(), FavoriteRequest{
		CallerID: 10,
		AlbumID:  "album-uuid",
		ImageID:  "image-uuid",
		Favorite: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), favID)
	assert.True(t, favVal)
}

func TestImage_Favorite_SharedReaderDenied(t *testing.T) {
	srv := NewImageService(&mockImageStore{
		getAlbumFunc: albumGetter(sharedAlbum()),
		getImageFunc: func(ctx context.Context, imageID string) (store.Image, error) {
			return store.Image{ID: 7, AlbumID: 1, Name: "a.jpg"}, nil
		},
	}, ImageServiceConfig{Root: t.TempDir()})

	err := srv.Favorite(t.Context(), FavoriteRequest{
		CallerID: 20,
		AlbumID:  "album-uuid",
		ImageID:  "image-uuid",
		Favorite: true,
	})
	requireStatus(t, err, 403)
}

func TestImage_Favorite_AlbumMismatch(t *testing.T) {
	srv := NewImageService(&mockImageStore{
		getAlbumFunc: albumGetter(sharedAlbum()),
		getImageFunc: func(ctx context.Context, imageID string) (store.Image, error) {
			return store.Image{ID: 7, AlbumID: 99, Name: "a.jpg"}, nil
		},
	}, ImageServiceConfig{Root: t.TempDir()})

	err := srv.Favorite(t.Context(), FavoriteRequest{
		CallerID: 10,
		AlbumID:  "album-uuid",
		ImageID:  "image-uuid",
		Favorite: true,
	})
	requireStatus(t, err, 400)
}

func TestImage_Favorite_StrangerMismatchDenied(t *testing.T) {
	srv := NewImageService(&mockImageStore{
		getAlbumFunc: albumGetter(sharedAlbum()),
		getImageFunc: func(ctx context.Context, imageID string) (store.Image, error) {
			return store.Image{ID: 7, AlbumID: 99, Name: "a.jpg"}, nil
		},
	}, ImageServiceConfig{Root: t.TempDir()})

	err := srv.Favorite(t.Context(), FavoriteRequest{
		CallerID: 42,
		AlbumID:  "album-uuid",
		ImageID:  "image-uuid",
		Favorite: true,
	})
	requireStatus(t, err, 403)
}

func TestImage_Favorite_ImageNotFound(t *testing.T) {
	srv := NewImageService(&mockImageStore{
		getAlbumFunc: albumGetter(sharedAlbum()),
		getImageFunc: func(ctx context.Context, imageID string) (store.Image, error) {
			return store.Image{}, store.ErrNotFound
		},
	}, ImageServiceConfig{Root: t.TempDir()})

	err := srv.Favorite(t.Context(), FavoriteRequest{
		CallerID: 10,
		AlbumID:  "album-uuid",
		ImageID:  "missing",
		Favorite: true,
	})
	requireStatus(t, err, 404)
}

func TestImage_Comment(t *testing.T) {
	var comment string

	srv := NewImageService(&mockImageStore{
		getAlbumFunc: albumGetter(sharedAlbum()),
		getImageFunc: func(ctx context.Context, imageID string) (store.Image, error) {
			return store.Image{ID: 7, AlbumID: 1, Name: "a.jpg"}, nil
		},
		addImageCommentFunc: func(ctx context.Context, id int64, c string) error {
			comment = c
			return nil
		},
	}, ImageServiceConfig{Root: t.TempDir()})

	err := srv.Comment(t.Context(), CommentRequest{
		CallerID: 10,
		AlbumID:  "album-uuid",
		ImageID:  "image-uuid",
		Comment:  "  great shot  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "great shot", comment)
}

func TestImage_Comment_Empty(t *testing.T) {
	srv := NewImageService(&mockImageStore{}, ImageServiceConfig{Root: t.TempDir()})

	err := srv.Comment(t.Context(), CommentRequest{
		CallerID: 10,
		AlbumID:  "album-uuid",
		ImageID:  "image-uuid",
		Comment:  "   ",
	})
	requireStatus(t, err, 400)
}

func TestImage_Delete(t *testing.T) {
	root := t.TempDir()

	staged := filepath.Join(root, "image-uuid.jpg")
	require.NoError(t, os.WriteFile(staged, []byte("jpg"), 0o644))

	srv := NewImageService(&mockImageStore{
		getAlbumFunc: albumGetter(sharedAlbum()),
		getImageFunc: func(ctx context.Context, imageID string) (store.Image, error) {
			return store.Image{ID: 7, ImageID: "image-uuid", AlbumID: 1, Name: "sunset.jpg"}, nil
		},
		deleteImageFunc: func(ctx context.Context, id int64) error {
			require.Equal(t, int64(7), id)
			return nil
		},
	}, ImageServiceConfig{Root: root})

	err := srv.Delete(t.Context(), DeleteImageRequest{
		CallerID: 10,
		AlbumID:  "album-uuid",
		ImageID:  "image-uuid",
	})
	require.NoError(t, err)
	require.Empty(t, dirEntries(t, root))
}

func TestImage_Delete_SharedReaderDenied(t *testing.T) {
	srv := NewImageService(&mockImageStore{
		getAlbumFunc: albumGetter(sharedAlbum()),
		getImageFunc: func(ctx context.Context, imageID string) (store.Image, error) {
			return store.Image{ID: 7, AlbumID: 1, Name: "a.jpg"}, nil
		},
	}, ImageServiceConfig{Root: t.TempDir()})

	err := srv.Delete(t.Context(), DeleteImageRequest{
		CallerID: 20,
		AlbumID:  "album-uuid",
		ImageID:  "image-uuid",
	})
	requireStatus(t, err, 403)
}

func TestImage_RemoveAlbumImages(t *testing.T) {
	root := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(root, "img-1.jpg"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "img-2.png"), []byte("b"), 0o644))

	deleted := false
	srv := NewImageService(&mockImageStore{
		listAlbumImagesFunc: func(ctx context.Context, albumID int64) ([]store.Image, error) {
			return []store.Image{
				{ID: 1, ImageID: "img-1", AlbumID: albumID, Name: "a.jpg"},
				{ID: 2, ImageID: "img-2", AlbumID: albumID, Name: "b.png"},
			}, nil
		},
		deleteAlbumImagesFunc: func(ctx context.Context, albumID int64) error {
			deleted = true
			return nil
		},
	}, ImageServiceConfig{Root: root})

	err := srv.RemoveAlbumImages(t.Context(), 1)
	require.NoError(t, err)
	assert.True(t, deleted)
	require.Empty(t, dirEntries(t, root))
}
