package api

import (
	"database/sql"
	"net/http"

	"github.com/justinas/alice"
	"github.com/rs/cors"

	"github.com/erazemk/inventar/internal/inventory"
	"github.com/erazemk/inventar/internal/revocation"
)

// Options configures the API router.
type Options struct {
	DB             *sql.DB
	JWTSecret      string
	Service        *inventory.Service
	Revoked        revocation.List
	AllowedOrigins []string
	// Images serves stored files under /images/ when set.
	Images http.Handler
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(opts Options) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: opts.DB, JWTSecret: opts.JWTSecret, Revoked: opts.Revoked}
	productTypesHandler := &ProductTypesHandler{Service: opts.Service}
	itemsHandler := &ItemsHandler{Service: opts.Service}

	authed := alice.New(AuthMiddleware(opts.JWTSecret, opts.Revoked))

	// Public.
	mux.HandleFunc("POST /api/register", authHandler.Register)
	mux.HandleFunc("POST /api/login", authHandler.Login)
	if opts.Images != nil {
		mux.Handle("GET /images/", opts.Images)
	}

	// Session.
	mux.Handle("POST /api/logout", authed.ThenFunc(authHandler.Logout))
	mux.Handle("POST /api/refresh", authed.ThenFunc(authHandler.Refresh))
	mux.Handle("GET /api/user", authed.ThenFunc(authHandler.User))

	// Product types.
	mux.Handle("GET /api/product-types", authed.ThenFunc(productTypesHandler.List))
	mux.Handle("POST /api/product-types", authed.ThenFunc(productTypesHandler.Create))
	mux.Handle("GET /api/product-types/{id}", authed.ThenFunc(productTypesHandler.Get))
	mux.Handle("PUT /api/product-types/{id}", authed.ThenFunc(productTypesHandler.Update))
	mux.Handle("POST /api/product-types/{id}", authed.ThenFunc(productTypesHandler.Override))
	mux.Handle("DELETE /api/product-types/{id}", authed.ThenFunc(productTypesHandler.Delete))

	// Items.
	mux.Handle("GET /api/items", authed.ThenFunc(itemsHandler.List))
	mux.Handle("POST /api/items", authed.ThenFunc(itemsHandler.Create))
	mux.Handle("PUT /api/items/{id}", authed.ThenFunc(itemsHandler.Update))
	mux.Handle("DELETE /api/items/{id}", authed.ThenFunc(itemsHandler.Delete))

	c := cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	return alice.New(RecoverMiddleware, LoggingMiddleware, c.Handler).Then(mux)
}
