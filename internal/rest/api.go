package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/NagaaSaketh/KaviosPix-BE/internal/oauth"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/pkg/httpx"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/pkg/router"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/pkg/serr"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/service"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/session"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/store"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/token"
)

type authService interface {
	LoginURL(env oauth.Env, provider string) (string, error)
	HandleCallback(ctx context.Context, env oauth.Env, r service.CallbackRequest) (service.CallbackResponse, error)
	Profile(ctx context.Context, userID int64) (store.User, error)
}

type albumService interface {
	Create(ctx context.Context, r service.CreateAlbumRequest) (store.Album, error)
	List(ctx context.Context, userID int64) ([]store.Album, error)
	UpdateDescription(ctx context.Context, r service.UpdateDescriptionRequest) error
	Share(ctx context.Context, r service.ShareRequest) ([]store.ShareGrant, error)
	Delete(ctx context.Context, callerID int64, albumID string) error
}

type imageService interface {
	Upload(ctx context.Context, r service.UploadRequest) (store.Image, error)
	List(ctx context.Context, callerID int64, albumID string) ([]store.Image, error)
	Favorite(ctx context.Context, r service.FavoriteRequest) error
	Comment(ctx context.Context, r service.CommentRequest) error
	Delete(ctx context.Context, r service.DeleteImageRequest) error
}

type credentialVerifier interface {
	Validate(raw string) (token.Claims, error)
}

type revocationList interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type identityStore interface {
	GetUserByID(ctx context.Context, id int64) (store.User, error)
}

type APIConfig struct {
	Auth        authService
	Albums      albumService
	Images      imageService
	Verifier    credentialVerifier
	Revoker     revocationList
	Store       identityStore
	FrontendURL *url.URL
	CookieTTL   time.Duration
	MaxUpload   int64
	Production  bool
}

// API is the HTTP surface of the service.
type API struct {
	auth        authService
	albums      albumService
	images      imageService
	verifier    credentialVerifier
	revoker     revocationList
	store       identityStore
	frontendURL *url.URL
	cookieTTL   time.Duration
	maxUpload   int64
	production  bool
	rt          *router.Router
}

func NewAPI(cfg APIConfig) *API {
	api := &API{
		auth:        cfg.Auth,
		albums:      cfg.Albums,
		images:      cfg.Images,
		verifier:    cfg.Verifier,
		revoker:     cfg.Revoker,
		store:       cfg.Store,
		frontendURL: cfg.FrontendURL,
		cookieTTL:   cfg.CookieTTL,
		maxUpload:   cfg.MaxUpload,
		production:  cfg.Production,
		rt:          router.New(),
	}
	api.mount()
	return api
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.rt.ServeHTTP(w, r)
}

func (a *API) mount() {
	a.rt.HandleFunc("GET /{$}", a.handleIndex)
	a.rt.HandleFunc("GET /auth/{provider}", a.handleLogin)
	a.rt.HandleFunc("GET /auth/{provider}/callback", a.handleCallback)
	a.rt.HandleFunc("POST /logout", a.handleLogout)

	a.rt.Handle("GET /user/profile", a.protected(a.handleProfile))
	a.rt.Handle("GET /profile/view", a.protected(a.handleProfile))

	a.rt.Handle("GET /albums", a.protected(a.handleListAlbums))
	a.rt.Handle("POST /albums", a.protected(a.handleCreateAlbum))
	a.rt.Handle("PUT /albums/{albumID}", a.protected(a.handleUpdateAlbum))
	a.rt.Handle("POST /albums/{albumID}/share", a.protected(a.handleShareAlbum))
	a.rt.Handle("DELETE /albums/{albumID}", a.protected(a.handleDeleteAlbum))

	a.rt.Handle("GET /albums/{albumID}/images", a.protected(a.handleListImages))
	a.rt.Handle("POST /albums/{albumID}/images", a.protected(a.handleUploadImage))
	a.rt.Handle("PUT /albums/{albumID}/images/{imageID}/favorite", a.protected(a.handleFavoriteImage))
	a.rt.Handle("POST /albums/{albumID}/images/{imageID}/comments", a.protected(a.handleCommentImage))
	a.rt.Handle("DELETE /albums/{albumID}/images/{imageID}", a.protected(a.handleDeleteImage))
}

type messageResponse struct {
	Message string `json:"message"`
}

func (a *API) handleIndex(w http.ResponseWriter, r *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "KaviosPix API is up and running"})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := r.PathValue("provider")
	url, err := a.auth.LoginURL(oauth.NewHTTPEnv("oauth", w, r), p)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// handleCallback finishes the login. Success plants the session cookie
// and sends the browser back to the frontend; new accounts land on the
// onboarding page. Every failure past the provider lookup redirects
// too, persistence and issuance included, a browser mid-flow cannot do
// anything useful with a JSON body.
func (a *API) handleCallback(w http.ResponseWriter, r *http.Request) {
	resp, err := a.auth.HandleCallback(r.Context(), oauth.NewHTTPEnv("oauth", w, r), service.CallbackRequest{
		Provider: r.PathValue("provider"),
		Code:     r.URL.Query().Get("code"),
		State:    r.URL.Query().Get("state"),
	})
	if err != nil {
		// unknown provider precedes the flow, no redirect in progress yet
		if errors.Is(err, oauth.ErrProviderNotFound) {
			httpx.HandleErr(w, r, err)
			return
		}

		slog.Error("oauth callback failed",
			"error", err,
			"provider", r.PathValue("provider"),
		)

		failed := a.frontendURL.JoinPath("login")
		failed.RawQuery = url.Values{"error": {"oauth_failed"}}.Encode()
		http.Redirect(w, r, failed.String(), http.StatusFound)
		return
	}

	session.SetCredentialCookie(w, resp.Credential, a.cookieTTL, a.production)

	target := a.frontendURL
	if resp.NewUser {
		target = a.frontendURL.JoinPath("home")
	}
	http.Redirect(w, r, target.String(), http.StatusFound)
}

// handleLogout revokes the credential server-side and clears the cookie.
// A missing or invalid cookie still clears and succeeds; logout is
// idempotent.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		if claims, err := a.verifier.Validate(cookie.Value); err == nil {
			if err := a.revoker.Revoke(r.Context(), claims.TokenID, time.Until(claims.ExpiresAt)); err != nil {
				httpx.HandleErr(w, r, fmt.Errorf("revoke credential: %w", err))
				return
			}
		}
	}

	session.ClearCredentialCookie(w, a.production)
	_ = httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoUrl"`
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := a.auth.Profile(r.Context(), callerFrom(r.Context()).ID)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	err = httpx.WriteJSON(w, http.StatusOK, userResponse{
		ID:       strconv.FormatInt(user.ID, 10),
		Email:    user.Email,
		Name:     user.Name,
		PhotoURL: user.Picture,
	})
	if err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("write response json: %w", err))
	}
}

type sharedUserResponse struct {
	Email  string `json:"emailID"`
	Access string `json:"access"`
}

type albumResponse struct {
	AlbumID     string               `json:"albumID"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Owned       bool                 `json:"owned"`
	SharedUsers []sharedUserResponse `json:"sharedUsers"`
}

func toAlbumResponse(album store.Album, callerID int64) albumResponse {
	shares := make([]sharedUserResponse, 0, len(album.Shares))
	for _, g := range album.Shares {
		shares = append(shares, sharedUserResponse{
			Email:  g.Email,
			Access: string(g.Access),
		})
	}

	return albumResponse{
		AlbumID:     album.AlbumID,
		Name:        album.Name,
		Description: album.Description,
		Owned:       album.OwnerID == callerID,
		SharedUsers: shares,
	}
}

func (a *API) handleListAlbums(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())

	albums, err := a.albums.List(r.Context(), caller.ID)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	resp := make([]albumResponse, 0, len(albums))
	for _, album := range albums {
		resp = append(resp, toAlbumResponse(album, caller.ID))
	}

	if err := httpx.WriteJSON(w, http.StatusOK, resp); err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("write response json: %w", err))
	}
}

type createAlbumRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (a *API) handleCreateAlbum(w http.ResponseWriter, r *http.Request) {
	var req createAlbumRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, serr.NewServiceError(err, http.StatusBadRequest, "invalid request body"))
		return
	}

	album, err := a.albums.Create(r.Context(), service.CreateAlbumRequest{
		OwnerID:     callerFrom(r.Context()).ID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusCreated, toAlbumResponse(album, album.OwnerID)); err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("write response json: %w", err))
	}
}

type updateAlbumRequest struct {
	Description string `json:"description"`
}

func (a *API) handleUpdateAlbum(w http.ResponseWriter, r *http.Request) {
	var req updateAlbumRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, serr.NewServiceError(err, http.StatusBadRequest, "invalid request body"))
		return
	}

	err := a.albums.UpdateDescription(r.Context(), service.UpdateDescriptionRequest{
		CallerID:    callerFrom(r.Context()).ID,
		AlbumID:     r.PathValue("albumID"),
		Description: req.Description,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	_ = httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "album updated"})
}

type shareAlbumRequest struct {
	SharedUsers []string `json:"sharedUsers"`
}

func (a *API) handleShareAlbum(w http.ResponseWriter, r *http.Request) {
	var req shareAlbumRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, serr.NewServiceError(err, http.StatusBadRequest, "invalid request body"))
		return
	}

	grants, err := a.albums.Share(r.Context(), service.ShareRequest{
		CallerID: callerFrom(r.Context()).ID,
		AlbumID:  r.PathValue("albumID"),
		Emails:   req.SharedUsers,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	_ = httpx.WriteJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("album shared with %d user(s)", len(grants)),
	})
}

func (a *API) handleDeleteAlbum(w http.ResponseWriter, r *http.Request) {
	err := a.albums.Delete(r.Context(), callerFrom(r.Context()).ID, r.PathValue("albumID"))
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	_ = httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "album deleted"})
}

type imageResponse struct {
	ImageID    string   `json:"imageID"`
	Name       string   `json:"name"`
	Tags       []string `json:"tags"`
	Person     string   `json:"person"`
	IsFavorite bool     `json:"isFavorite"`
	Comments   []string `json:"comments"`
	Size       int64    `json:"size"`
}

func toImageResponse(img store.Image) imageResponse {
	resp := imageResponse{
		ImageID:    img.ImageID,
		Name:       img.Name,
		Tags:       img.Tags,
		Person:     img.Person,
		IsFavorite: img.IsFavorite,
		Comments:   img.Comments,
		Size:       img.SizeBytes,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if resp.Comments == nil {
		resp.Comments = []string{}
	}
	return resp
}

func (a *API) handleListImages(w http.ResponseWriter, r *http.Request) {
	images, err := a.images.List(r.Context(), callerFrom(r.Context()).ID, r.PathValue("albumID"))
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	resp := make([]imageResponse, 0, len(images))
	for _, img := range images {
		resp = append(resp, toImageResponse(img))
	}

	if err := httpx.WriteJSON(w, http.StatusOK, resp); err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("write response json: %w", err))
	}
}

// handleUploadImage accepts a multipart form: the file under "image",
// plus tags (JSON-encoded string array), person and isFavorite fields.
// Form parsing happens before anything is staged to disk.
func (a *API) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)

	file, header, err := r.FormFile("image")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			httpx.HandleErr(w, r, serr.NewServiceError(err, http.StatusRequestEntityTooLarge, "image size exceeded"))
			return
		}

		httpx.HandleErr(w, r, serr.NewServiceError(err, http.StatusBadRequest, "image file is required"))
		return
	}
	defer file.Close()

	var tags []string
	if raw := r.FormValue("tags"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			httpx.HandleErr(w, r, serr.NewServiceError(err, http.StatusBadRequest, "tags must be a JSON array of strings"))
			return
		}
	}

	isFavorite, _ := strconv.ParseBool(r.FormValue("isFavorite"))

	img, err := a.images.Upload(r.Context(), service.UploadRequest{
		CallerID:   callerFrom(r.Context()).ID,
		AlbumID:    r.PathValue("albumID"),
		FileName:   header.Filename,
		File:       file,
		Tags:       tags,
		Person:     r.FormValue("person"),
		IsFavorite: isFavorite,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusCreated, toImageResponse(img)); err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("write response json: %w", err))
	}
}

type favoriteRequest struct {
	IsFavorite bool `json:"isFavorite"`
}

func (a *API) handleFavoriteImage(w http.ResponseWriter, r *http.Request) {
	var req favoriteRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, serr.NewServiceError(err, http.StatusBadRequest, "invalid request body"))
		return
	}

	err := a.images.Favorite(r.Context(), service.FavoriteRequest{
		CallerID: callerFrom(r.Context()).ID,
		AlbumID:  r.PathValue("albumID"),
		ImageID:  r.PathValue("imageID"),
		Favorite: req.IsFavorite,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	_ = httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "image updated"})
}

type commentRequest struct {
	Comment string `json:"comment"`
}

func (a *API) handleCommentImage(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, serr.NewServiceError(err, http.StatusBadRequest, "invalid request body"))
		return
	}

	err := a.images.Comment(r.Context(), service.CommentRequest{
		CallerID: callerFrom(r.Context()).ID,
		AlbumID:  r.PathValue("albumID"),
		ImageID:  r.PathValue("imageID"),
		Comment:  req.Comment,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	_ = httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "comment added"})
}

func (a *API) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	err := a.images.Delete(r.Context(), service.DeleteImageRequest{
		CallerID: callerFrom(r.Context()).ID,
		AlbumID:  r.PathValue("albumID"),
		ImageID:  r.PathValue("imageID"),
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	_ = httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "image deleted"})
}
