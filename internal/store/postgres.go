package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const (
	errUniqueViolation     pq.ErrorCode = "23505"
	errForeignKeyViolation pq.ErrorCode = "23503"
)

// PostgresStore persists users, albums, grants and images in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
}

func NewPostgresDB(cfg PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.DB))
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = "id, COALESCE(google_id, ''), email, password_hash, name, picture, created_at, updated_at"

func (s *PostgresStore) scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.GoogleID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.Picture,
		&u.CreatedAt,
		&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}

		return User{}, fmt.Errorf("scan user: %w", err)
	}

	return u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

func (s *PostgresStore) GetUserByGoogleID(ctx context.Context, googleID string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE google_id = $1", googleID))
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1", email))
}

// GetUsersByEmails resolves share recipients. Emails arrive lowercased
// while stored emails keep the provider's casing, so the match folds.
func (s *PostgresStore) GetUsersByEmails(ctx context.Context, emails []string) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE LOWER(email) = ANY($1)", pq.Array(emails))
	if err != nil {
		return nil, fmt.Errorf("query users by emails: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		err := rows.Scan(
			&u.ID,
			&u.GoogleID,
			&u.Email,
			&u.PasswordHash,
			&u.Name,
			&u.Picture,
			&u.CreatedAt,
			&u.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func (s *PostgresStore) CreateUser(ctx context.Context, r CreateUserRequest) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (google_id, email, password_hash, name, picture)
		 VALUES (NULLIF($1, ''), $2, $3, $4, $5)
		 RETURNING id`,
		r.GoogleID,
		r.Email,
		r.PasswordHash,
		r.Name,
		r.Picture).Scan(&id)
	if err != nil {
		if isPqErr(err, errUniqueViolation) {
			return 0, ErrExists
		}

		return 0, fmt.Errorf("insert user: %w", err)
	}

	return id, nil
}

func (s *PostgresStore) LinkGoogleID(ctx context.Context, userID int64, googleID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET google_id = $1, updated_at = now() WHERE id = $2",
		googleID, userID)
	if err != nil {
		if isPqErr(err, errUniqueViolation) {
			return ErrExists
		}

		return fmt.Errorf("link google id: %w", err)
	}

	return requireAffected(res)
}

func (s *PostgresStore) CreateAlbum(ctx context.Context, r CreateAlbumRequest) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO albums (album_id, name, description, owner_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		r.AlbumID,
		r.Name,
		r.Description,
		r.OwnerID).Scan(&id)
	if err != nil {
		if isPqErr(err, errForeignKeyViolation) {
			return 0, ErrNotFound
		}

		return 0, fmt.Errorf("insert album: %w", err)
	}

	return id, nil
}

// GetAlbum resolves an album by its public identifier, grants included.
func (s *PostgresStore) GetAlbum(ctx context.Context, albumID string) (Album, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, album_id, name, description, owner_id, created_at, updated_at
		 FROM albums
		 WHERE album_id = $1`, albumID)

	var a Album
	err := row.Scan(
		&a.ID,
		&a.AlbumID,
		&a.Name,
		&a.Description,
		&a.OwnerID,
		&a.CreatedAt,
		&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Album{}, ErrNotFound
		}

		return Album{}, fmt.Errorf("scan album: %w", err)
	}

	a.Shares, err = s.albumShares(ctx, a.ID)
	if err != nil {
		return Album{}, err
	}

	return a, nil
}

func (s *PostgresStore) albumShares(ctx context.Context, albumID int64) ([]ShareGrant, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, email, access FROM album_shares WHERE album_id = $1 ORDER BY id", albumID)
	if err != nil {
		return nil, fmt.Errorf("query album shares: %w", err)
	}
	defer rows.Close()

	var grants []ShareGrant
	for rows.Next() {
		var g ShareGrant
		if err := rows.Scan(&g.UserID, &g.Email, &g.Access); err != nil {
			return nil, fmt.Errorf("scan share grant: %w", err)
		}
		grants = append(grants, g)
	}

	return grants, rows.Err()
}

// ListUserAlbums returns albums the user owns or holds a grant on.
func (s *PostgresStore) ListUserAlbums(ctx context.Context, userID int64) ([]Album, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT a.id, a.album_id, a.name, a.description, a.owner_id, a.created_at, a.updated_at
		 FROM albums AS a
		 LEFT JOIN album_shares AS sh ON sh.album_id = a.id
		 WHERE a.owner_id = $1 OR sh.user_id = $1
		 ORDER BY a.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user albums: %w", err)
	}
	defer rows.Close()

	var albums []Album
	for rows.Next() {
		var a Album
		err := rows.Scan(
			&a.ID,
			&a.AlbumID,
			&a.Name,
			&a.Description,
			&a.OwnerID,
			&a.CreatedAt,
			&a.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan album: %w", err)
		}
		albums = append(albums, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range albums {
		albums[i].Shares, err = s.albumShares(ctx, albums[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return albums, nil
}

func (s *PostgresStore) UpdateAlbumDescription(ctx context.Context, id int64, description string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE albums SET description = $1, updated_at = now() WHERE id = $2",
		description, id)
	if err != nil {
		return fmt.Errorf("update album description: %w", err)
	}

	return requireAffected(res)
}

// AddShares appends grants to an album. The unique index on
// (album_id, user_id) turns a racing duplicate into ErrExists instead of
// a second grant.
func (s *PostgresStore) AddShares(ctx context.Context, r AddSharesRequest) error {
	for _, g := range r.Grants {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO album_shares (album_id, user_id, email, access) VALUES ($1, $2, $3, $4)",
			r.AlbumID, g.UserID, g.Email, g.Access)
		if err != nil {
			if isPqErr(err, errUniqueViolation) {
				return ErrExists
			}
			if isPqErr(err, errForeignKeyViolation) {
				return ErrNotFound
			}

			return fmt.Errorf("insert share grant: %w", err)
		}
	}

	return nil
}

func (s *PostgresStore) DeleteAlbum(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM albums WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete album: %w", err)
	}

	return requireAffected(res)
}

func (s *PostgresStore) CreateImage(ctx context.Context, r CreateImageRequest) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO images (image_id, album_id, name, tags, person, is_favorite, size_bytes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		r.ImageID,
		r.AlbumID,
		r.Name,
		pq.Array(r.Tags),
		r.Person,
		r.IsFavorite,
		r.SizeBytes).Scan(&id)
	if err != nil {
		if isPqErr(err, errForeignKeyViolation) {
			return 0, ErrNotFound
		}

		return 0, fmt.Errorf("insert image: %w", err)
	}

	return id, nil
}

func (s *PostgresStore) GetImage(ctx context.Context, imageID string) (Image, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, image_id, album_id, name, tags, person, is_favorite, comments, size_bytes, created_at, updated_at
		 FROM images
		 WHERE image_id = $1`, imageID)

	var img Image
	err := row.Scan(
		&img.ID,
		&img.ImageID,
		&img.AlbumID,
		&img.Name,
		pq.Array(&img.Tags),
		&img.Person,
		&img.IsFavorite,
		pq.Array(&img.Comments),
		&img.SizeBytes,
		&img.CreatedAt,
		&img.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Image{}, ErrNotFound
		}

		return Image{}, fmt.Errorf("scan image: %w", err)
	}

	return img, nil
}

func (s *PostgresStore) ListAlbumImages(ctx context.Context, albumID int64) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, image_id, album_id, name, tags, person, is_favorite, comments, size_bytes, created_at, updated_at
		 FROM images
		 WHERE album_id = $1
		 ORDER BY id`, albumID)
	if err != nil {
		return nil, fmt.Errorf("query album images: %w", err)
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		err := rows.Scan(
			&img.ID,
			&img.ImageID,
			&img.AlbumID,
			&img.Name,
			pq.Array(&img.Tags),
			&img.Person,
			&img.IsFavorite,
			pq.Array(&img.Comments),
			&img.SizeBytes,
			&img.CreatedAt,
			&img.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, img)
	}

	return images, rows.Err()
}

func (s *PostgresStore) SetImageFavorite(ctx context.Context, id int64, favorite bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE images SET is_favorite = $1, updated_at = now() WHERE id = $2",
		favorite, id)
	if err != nil {
		return fmt.Errorf("set image favorite: %w", err)
	}

	return requireAffected(res)
}

// AddImageComment appends to the comment sequence in a single statement,
// so concurrent comments never lose each other.
func (s *PostgresStore) AddImageComment(ctx context.Context, id int64, comment string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE images SET comments = array_append(comments, $1), updated_at = now() WHERE id = $2",
		comment, id)
	if err != nil {
		return fmt.Errorf("add image comment: %w", err)
	}

	return requireAffected(res)
}

func (s *PostgresStore) DeleteImage(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM images WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}

	return requireAffected(res)
}

func (s *PostgresStore) DeleteAlbumImages(ctx context.Context, albumID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM images WHERE album_id = $1", albumID)
	if err != nil {
		return fmt.Errorf("delete album images: %w", err)
	}

	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func isPqErr(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	return pqErr.Code == code
}
