package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"myshop/internal/apperr"
	"myshop/internal/auth"
	"myshop/internal/catalog"
	"myshop/internal/models"
	"myshop/internal/resource"
	"myshop/internal/session"
	"myshop/internal/state"
	"myshop/internal/telemetry"
)

const (
	homeCacheKey = "home"
	homeCacheTTL = 30 * time.Second
)

// Cache is the Redis surface the gateway uses for rate limiting, the home
// page and token revocation.
type Cache interface {
	IsRateLimited(ctx context.Context, key string, max int, window time.Duration) bool
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
}

type RateLimit struct {
	Requests int
	Window   time.Duration
}

type Handler struct {
	catalog catalog.Repository
	auth    *auth.Repository
	issuer  *auth.Issuer
	cache   Cache
	limit   RateLimit
}

// NewHandler builds the gateway handlers. cache may be nil, which disables
// rate limiting, home caching and token revocation.
func NewHandler(catalog catalog.Repository, authRepo *auth.Repository, issuer *auth.Issuer, cache Cache, limit RateLimit) *Handler {
	return &Handler{
		catalog: catalog,
		auth:    authRepo,
		issuer:  issuer,
		cache:   cache,
		limit:   limit,
	}
}

// Register mounts every gateway route on mux. Protected routes go through mw.
func (h *Handler) Register(mux *http.ServeMux, mw *auth.Middleware) {
	public := func(fn http.HandlerFunc) http.HandlerFunc {
		return telemetry.Middleware(h.rateLimited(fn))
	}
	protected := func(fn http.HandlerFunc) http.HandlerFunc {
		return telemetry.Middleware(h.rateLimited(mw.ValidateToken(fn)))
	}

	mux.HandleFunc("GET /api/products", public(h.ListProducts))
	mux.HandleFunc("GET /api/products/search", public(h.SearchProducts))
	mux.HandleFunc("GET /api/products/{id}", public(h.GetProduct))
	mux.HandleFunc("GET /api/categories", public(h.ListCategories))
	mux.HandleFunc("GET /api/categories/{name}/products", public(h.ListProductsByCategory))
	mux.HandleFunc("GET /api/home", public(h.Home))

	mux.HandleFunc("POST /api/auth/signup", public(h.Signup))
	mux.HandleFunc("POST /api/auth/login", public(h.Login))
	mux.HandleFunc("POST /api/auth/password-reset", public(h.RequestPasswordReset))
	mux.HandleFunc("POST /api/auth/password-reset/confirm", public(h.ConfirmPasswordReset))

	mux.HandleFunc("GET /api/profile", protected(h.GetProfile))
	mux.HandleFunc("PUT /api/profile", protected(h.UpdateProfile))
	mux.HandleFunc("POST /api/auth/logout", protected(h.Logout))
}

func (h *Handler) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.cache == nil || h.limit.Requests <= 0 {
			next(w, r)
			return
		}

		clientIP := r.RemoteAddr
		if idx := strings.LastIndex(clientIP, ":"); idx != -1 {
			clientIP = clientIP[:idx]
		}

		if h.cache.IsRateLimited(r.Context(), clientIP, h.limit.Requests, h.limit.Window) {
			slog.Warn("Rate limit exceeded", "ip", clientIP)
			http.Error(w, `{"error": "Too many requests"}`, http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.catalog.ListProducts(r.Context()))
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeResult(w, resource.Failure[models.Product](apperr.Newf(apperr.KindInvalidArgument, "invalid product id %q", r.PathValue("id"))))
		return
	}
	writeResult(w, h.catalog.GetProduct(r.Context(), id))
}

func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.catalog.SearchProducts(r.Context(), r.URL.Query().Get("q")))
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.catalog.ListCategories(r.Context()))
}

func (h *Handler) ListProductsByCategory(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.catalog.ListProductsByCategory(r.Context(), r.PathValue("name")))
}

// Home fans out to products and categories. A products failure fails the
// page; a categories failure degrades to an empty list and the degraded page
// is not cached.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	if h.cache != nil {
		if cached, err := h.cache.Get(ctx, homeCacheKey); err == nil {
			slog.Info("Cache HIT", "key", homeCacheKey, "duration", time.Since(start))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(cached)
			return
		}
	}

	var (
		products   []models.Product
		categories []string
		degraded   bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res := h.catalog.ListProducts(gctx)
		if err := res.Err(); err != nil {
			return err
		}
		products, _ = res.Value()
		return nil
	})
	g.Go(func() error {
		res := h.catalog.ListCategories(gctx)
		if err := res.Err(); err != nil {
			slog.Warn("Categories fallback", "error", err)
			categories = []string{}
			degraded = true
			return nil
		}
		categories, _ = res.Value()
		return nil
	})

	if err := g.Wait(); err != nil {
		writeResult(w, resource.Failure[models.HomeResponse](err))
		return
	}

	result := resource.Success(models.HomeResponse{Products: products, Categories: categories})
	responseBytes, err := json.Marshal(result)
	if err != nil {
		slog.Error("JSON marshal error", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if h.cache != nil && !degraded {
		go func() {
			_ = h.cache.Set(context.Background(), homeCacheKey, responseBytes, homeCacheTTL)
		}()
	}

	slog.Info("Request processed", "route", "home", "duration", time.Since(start))
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(responseBytes)
}

type signupRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// SessionResponse is returned by signup and login.
type SessionResponse struct {
	auth.Token
	Principal models.Principal `json:"principal"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeResult(w, resource.Failure[SessionResponse](err))
		return
	}

	sess := session.New()
	profile := models.UserProfile{Name: req.Name, Phone: req.Phone, Address: req.Address, Email: req.Email}
	res := h.auth.Signup(r.Context(), sess, profile, req.Password)
	if err := res.Err(); err != nil {
		writeResult(w, resource.Failure[SessionResponse](err))
		return
	}
	writeResult(w, h.startSession(sess))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeResult(w, resource.Failure[SessionResponse](err))
		return
	}

	sess := session.New()
	res := h.auth.Login(r.Context(), sess, req.Email, req.Password)
	if err := res.Err(); err != nil {
		writeResult(w, resource.Failure[SessionResponse](err))
		return
	}
	writeResult(w, h.startSession(sess))
}

func (h *Handler) startSession(sess *session.Session) resource.Result[SessionResponse] {
	p, ok := sess.Principal()
	if !ok {
		return resource.Failure[SessionResponse](apperr.New(apperr.KindNotAuthenticated, "user not logged in"))
	}
	token, err := h.issuer.Issue(p)
	if err != nil {
		slog.Error("Failed to issue token", "user_id", p.ID, "error", err)
		return resource.Failure[SessionResponse](err)
	}
	return resource.Success(SessionResponse{Token: token, Principal: p})
}

func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeResult(w, resource.Failure[string](err))
		return
	}
	writeResult(w, h.auth.RequestPasswordReset(r.Context(), req.Email))
}

func (h *Handler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeResult(w, resource.Failure[resource.Unit](err))
		return
	}
	writeResult(w, h.auth.ConfirmPasswordReset(r.Context(), req.Token, req.Password))
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctl := state.NewProfileController(ctx, h.auth, session.FromContext(ctx))
	defer ctl.Close()

	res, err := ctl.Await(ctx)
	if err != nil {
		writeResult(w, resource.Failure[models.UserProfile](err))
		return
	}
	writeResult(w, res)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var p models.UserProfile
	if err := decodeBody(w, r, &p); err != nil {
		writeResult(w, resource.Failure[models.UserProfile](err))
		return
	}

	ctx := r.Context()
	ctl := state.NewProfileController(ctx, h.auth, session.FromContext(ctx))
	defer ctl.Close()

	writeResult(w, ctl.Update(ctx, p))
}

// Logout revokes the bearer token until it would have expired and answers
// with the signed-out slot.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)

	if tokenID := sess.TokenID(); tokenID != "" && h.cache != nil {
		if err := h.cache.Revoke(ctx, tokenID, h.issuer.TTL()); err != nil {
			slog.Error("Failed to revoke token", "error", err)
			writeResult(w, resource.Failure[models.UserProfile](apperr.Wrap(apperr.KindTransport, err, "revoke session token")))
			return
		}
	}

	h.auth.Logout(sess)
	writeJSON(w, http.StatusOK, resource.Failure[models.UserProfile](apperr.ErrLoggedOut))
}
