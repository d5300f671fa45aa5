package service

import (
	"context"
	"testing"

	"github.com/NagaaSaketh/KaviosPix-BE/internal/pkg/serr"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAlbumStore struct {
	createAlbumFunc            func(ctx context.Context, r store.CreateAlbumRequest) (int64, error)
	getAlbumFunc               func(ctx context.Context, albumID string) (store.Album, error)
	listUserAlbumsFunc         func(ctx context.Context, userID int64) ([]store.Album, error)
	updateAlbumDescriptionFunc func(ctx context.Context, id int64, description string) error
	addSharesFunc              func(ctx context.Context, r store.AddSharesRequest) error
	deleteAlbumFunc            func(ctx context.Context, id int64) error
	getUsersByEmailsFunc       func(ctx context.Context, emails []string) ([]store.User, error)
}

func (m *mockAlbumStore) CreateAlbum(ctx context.Context, r store.CreateAlbumRequest) (int64, error) {
	return m.createAlbumFunc(ctx, r)
}

func (m *mockAlbumStore) GetAlbum(ctx context.Context, albumID string) (store.Album, error) {
	return m.getAlbumFunc(ctx, albumID)
}

func (m *mockAlbumStore) ListUserAlbums(ctx context.Context, userID int64) ([]store.Album, error) {
	return m.listUserAlbumsFunc(ctx, userID)
}

func (m *mockAlbumStore) UpdateAlbumDescription(ctx context.Context, id int64, description string) error {
	return m.updateAlbumDescriptionFunc(ctx, id, description)
}

func (m *mockAlbumStore) AddShares(ctx context.Context, r store.AddSharesRequest) error {
	return m.addSharesFunc(ctx, r)
}

func (m *mockAlbumStore) DeleteAlbum(ctx context.Context, id int64) error {
	return m.deleteAlbumFunc(ctx, id)
}

func (m *mockAlbumStore) GetUsersByEmails(ctx context.Context, emails []string) ([]store.User, error) {
	return m.getUsersByEmailsFunc(ctx, emails)
}

type mockImageCleaner struct {
	removeAlbumImagesFunc func(ctx context.Context, albumID int64) error
}

func (m *mockImageCleaner) RemoveAlbumImages(ctx context.Context, albumID int64) error {
	return m.removeAlbumImagesFunc(ctx, albumID)
}

func sharedAlbum() store.Album {
	return store.Album{
		ID:      1,
		AlbumID: "album-uuid",
		Name:    "Holidays",
		OwnerID: 10,
		Shares: []store.ShareGrant{
			{UserID: 20, Email: "reader@example.com", Access: store.AccessRead},
		},
	}
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()

	var sErr *serr.ServiceError
	require.ErrorAs(t, err, &sErr)
	require.Equal(t, status, sErr.StatusCode)
}

func TestAlbum_Create(t *testing.T) {
	var created store.CreateAlbumRequest

	srv := NewAlbumService(&mockAlbumStore{
		createAlbumFunc: func(ctx context.Context, r store.CreateAlbumRequest) (int64, error) {
			created = r
			return 5, nil
		},
	}, &mockImageCleaner{})

	album, err := srv.Create(t.Context(), CreateAlbumRequest{
		OwnerID:     10,
		Name:        "  Holidays  ",
		Description: "Summer 2025",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(5), album.ID)
	assert.Equal(t, "Holidays", album.Name)
	assert.NotEmpty(t, album.AlbumID)
	assert.Equal(t, created.AlbumID, album.AlbumID)
	assert.Equal(t, int64(10), created.OwnerID)
}

func TestAlbum_Create_EmptyName(t *testing.T) {
	srv := NewAlbumService(&mockAlbumStore{}, &mockImageCleaner{})

	_, err := srv.Create(t.Context(), CreateAlbumRequest{OwnerID: 10, Name: "   "})
	requireStatus(t, err, 400)
}

func TestAlbum_Get_SharedReader(t *testing.T) {
	srv := NewAlbumService(&mockAlbumStore{
		getAlbumFunc: func(ctx context.Context, albumID string) (store.Album, error) {
			return sharedAlbum(), nil
		},
	}, &mockImageCleaner{})

	album, err := srv.Get(t.Context(), 20, "album-uuid")
	require.NoError(t, err)
	assert.Equal(t, "Holidays", album.Name)
}

func TestAlbum_Get_Stranger(t *testing.T) {
	srv := NewAlbumService(&mockAlbumStore{
		getAlbumFunc: func(ctx context.Context, albumID string) (store.Album, error) {
			return sharedAlbum(), nil
		},
	}, &mockImageCleaner{})

	_, err := srv.Get(t.Context(), 30, "album-uuid")
	requireStatus(t, err, 403)
}

func TestAlbum_Get_NotFound(t *testing.T) {
	srv := NewAlbumService(&mockAlbumStore{
		getAlbumFunc: func(ctx context.Context, albumID string) (store.Album, error) {
			return store.Album{}, store.ErrNotFound
		},
	}, &mockImageCleaner{})

	_, err := srv.Get(t.Context(), 10, "missing")
	requireStatus(t, err, 404)
}

func TestAlbum_UpdateDescription(t *testing.T) {
	var updatedID int64
	var updatedDesc string

	srv := NewAlbumService(&mockAlbumStore{
		getAlbumFunc: func(ctx context.Context, albumID string) (store.Album, error) {
			return sharedAlbum(), nil
		},
		updateAlbumDescriptionFunc: func(ctx context.Context, id int64, description string) error {
			updatedID = id
			updatedDesc = description
			return nil
		},
	}, &mockImageCleaner{})

	err := srv.UpdateDescription(t.Context(), UpdateDescriptionRequest{
		CallerID:    10,
		AlbumID:     "album-uuid",
		Description: "New description",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), updatedID)
	assert.Equal(t, "New description", updatedDesc)
}

func TestAlbum_UpdateDescription_SharedReaderDenied(t *testing.T) {
	srv := NewAlbumService(&mockAlbumStore{
		getAlbumFunc: func(ctx context.Context, albumID string) (store.Album, error) {
			return sharedAlbum(), nil
		},
	}, &mockImageCleaner{})

	err := srv.UpdateDescription(t.Context(), UpdateDescriptionRequest{
		CallerID:    20,
		AlbumID:     "album-uuid",
		Description: "sneaky edit",
	})
	requireStatus(t, err, 403)
}

func TestAlbum_Share(t *testing.T) {
	var added store.AddSharesRequest

	srv := NewAlbumService(&mockAlbumStore{
		getAlbumFunc: func(ctx context.Context, albumID string) (store.Album, error) {
			return sharedAlbum(), nil
		},
		getUsersByEmailsFunc: func(ctx context.Context, emails []string) ([]store.User, error) {
			return []store.User{
				{ID: 30, Email: "new@example.com"},
			}, nil
		},
		addSharesFunc: func(ctx context.Context, r store.AddSharesRequest) error {
			added = r
			return nil
		},
	}, &mockImageCleaner{})

	grants, err := srv.Share(t.Context(), ShareRequest{
		CallerID: 10,
		AlbumID:  "album-uuid",
		Emails:   []string{"New@Example.com"},
	})
	require.NoError(t, err)
	require.Len(t, grants, 1)

	assert.Equal(t, int64(30), grants[0].UserID)
	assert.Equal(t, store.AccessRead, grants[0].Access)
	assert.Equal(t, int64(1), added.AlbumID)
	require.Len(t, added.Grants, 1)
}

func TestAlbum_Share_NoEmails(t *testing.T) {
	srv := NewAlbumService(&mockAlbumStore{}, &mockImageCleaner{})

	_, err := srv.Share(t.Context(), ShareRequest{
		CallerID: 10,
		AlbumID:  "album-uuid",
		Emails:   []string{"  ", ""},
	})
	requireStatus(t, err, 400)
}

func TestAlbum_Share_NotOwner(t *testing.T) {
	srv := NewAlbumService(&mockAlbumStore{
		getAlbumFunc: func(ctx context.Context, albumID string) (store.Album, error) {
			return sharedAlbum(), nil
		},
	}, &mockImageCleaner{})

	_, err := srv.Share(t.Context(), ShareRequest{
		CallerID: 20,
		AlbumID:  "album-uuid",
		Emails:   []string{"new@example.com"},
	})
	requireStatus(t, err, 403)
}

func TestAlbum_Share_AlreadyShared(t *testing.T) {
	addSharesCalled := false

	srv := NewAlbumService(&mockAlbumStore{
		getAlbumFunc: func(ctx context.Context, albumID string) (store.Album, error) {
			return sharedAlbum(), nil
		},
		getUsersByEmailsFunc: func(ctx context.Context, emails []string) ([]store.User, error) {
			return []store.User{
				{ID: 20, Email: "reader@example.com"},
				{ID: 30, Email: "new@example.com"},
			}, nil
		},
		addSharesFunc: func(ctx context.Context, r store.AddSharesRequest) error {
			addSharesCalled = true
			return nil
		},
	}, &mockImageCleaner{})

	// one conflicting recipient fails the whole request
	_, err := srv.Share(t.Context(), ShareRequest{
		CallerID: 10,
		AlbumID:  "album-uuid",
		Emails:   []string{"reader@example.com", "new@example.com"},
	})
	requireStatus(t, err, 400)
	assert.False(t, addSharesCalled)

	var sErr *serr.ServiceError
	require.ErrorAs(t, err, &sErr)
	assert.Contains(t, sErr.Err.Error(), "reader@example.com")
}

func TestAlbum_Share_OwnerExcluded(t *testing.T) {
	srv := NewAlbumService(&mockAlbumStore{
		getAlbumFunc: func(ctx context.Context, albumID string) (store.Album, error) {
			return sharedAlbum(), nil
		},
		getUsersByEmailsFunc: func(ctx context.Context, emails []string) ([]store.User, error) {
			return []store.User{
				{ID: 10, Email: "owner@example.com"},
			}, nil
		},
	}, &mockImageCleaner{})

	_, err := srv.Share(t.Context(), ShareRequest{
		CallerID: 10,
		AlbumID:  "album-uuid",
		Emails:   []string{"owner@example.com"},
	})
	requireStatus(t, err, 400)
}

func TestAlbum_Share_NoValidRecipients(t *testing.T) {
	srv := NewAlbumService(&mockAlbumStore{
		getAlbumFunc: func(ctx context.Context, albumID string) (store.Album, error) {
			return sharedAlbum(), nil
		},
		getUsersByEmailsFunc: func(ctx context.Context, emails []string) ([]store.User, error) {
			return nil, nil
		},
	}, &mockImageCleaner{})

	_, err := srv.Share(t.Context(), ShareRequest{
		CallerID: 10,
		AlbumID:  "album-uuid",
		Emails:   []string{"nobody@example.com"},
	})
	requireStatus(t, err, 400)
}

func TestAlbum_Delete(t *testing.T) {
	var calls []string

	srv := NewAlbumService(&mockAlbumStore{
		getAlbumFunc: func(ctx context.Context, albumID string) (store.Album, error) {
			return sharedAlbum(), nil
		},
		deleteAlbumFunc: func(ctx context.Context, id int64) error {
			calls = append(calls, "album")
			return nil
		},
	}, &mockImageCleaner{
		removeAlbumImagesFunc: func(ctx context.Context, albumID int64) error {
			calls = append(calls, "images")
			return nil
		},
	})

	err := srv.Delete(t.Context(), 10, "album-uuid")
	require.NoError(t, err)
	require.Equal(t, []string{"images", "album"}, calls)
}

func TestAlbum_Delete_NotOwner(t *testing.T) {
	srv := NewAlbumService(&mockAlbumStore{
		getAlbumFunc: func(ctx context.Context, albumID string) (store.Album, error) {
			return sharedAlbum(), nil
		},
	}, &mockImageCleaner{})

	err := srv.Delete(t.Context(), 20, "album-uuid")
	requireStatus(t, err, 403)
}

func TestAlbum_Delete_ImagesFail(t *testing.T) {
	albumDeleted := false

	srv := NewAlbumService(&mockAlbumStore{
		getAlbumFunc: func(ctx context.Context, albumID string) (store.Album, error) {
			return sharedAlbum(), nil
		},
		deleteAlbumFunc: func(ctx context.Context, id int64) error {
			albumDeleted = true
			return nil
		},
	}, &mockImageCleaner{
		removeAlbumImagesFunc: func(ctx context.Context, albumID int64) error {
			return assert.AnError
		},
	})

	err := srv.Delete(t.Context(), 10, "album-uuid")
	require.Error(t, err)
	assert.False(t, albumDeleted)
}
