package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/inventar/internal/auth"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/revocation"
	"github.com/erazemk/inventar/internal/store"
)

// AuthHandler handles registration, login and token endpoints.
type AuthHandler struct {
	DB        *sql.DB
	JWTSecret string
	Revoked   revocation.List
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authorization struct {
	Token string `json:"token"`
	Type  string `json:"type"`
}

// authResponse is the body returned by register, login and refresh.
type authResponse struct {
	Status        string        `json:"status"`
	Message       string        `json:"message,omitempty"`
	User          *model.User   `json:"user"`
	Authorization authorization `json:"authorization"`
}

func (h *AuthHandler) respondToken(w http.ResponseWriter, status int, message string, user *model.User) {
	token, err := auth.GenerateToken(h.JWTSecret, user.ID, user.Email)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	jsonResponse(w, status, authResponse{
		Status:        "success",
		Message:       message,
		User:          user,
		Authorization: authorization{Token: token, Type: "bearer"},
	})
}

// Register handles POST /api/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONSize)
	if err := decodeJSON(r, &req); err != nil {
		bodyError(w, err)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	errs := map[string][]string{}
	switch {
	case req.Name == "":
		errs["name"] = []string{"The name field is required."}
	case utf8.RuneCountInString(req.Name) > 255:
		errs["name"] = []string{"The name field must not be greater than 255 characters."}
	}
	if req.Email == "" {
		errs["email"] = []string{"The email field is required."}
	} else if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		errs["email"] = []string{"The email field must be a valid email address."}
	}
	switch {
	case req.Username == "":
		errs["username"] = []string{"The username field is required."}
	case utf8.RuneCountInString(req.Username) > 255:
		errs["username"] = []string{"The username field must not be greater than 255 characters."}
	}
	if req.Password == "" {
		errs["password"] = []string{"The password field is required."}
	} else if err := model.ValidatePassword(req.Password); err != nil {
		errs["password"] = []string{"The password field must be at least 8 characters."}
	}

	if _, ok := errs["email"]; !ok {
		existing, err := store.GetUserByEmail(r.Context(), h.DB, req.Email)
		if err != nil {
			slog.Error("checking email", "error", err)
			jsonError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if existing != nil {
			errs["email"] = []string{"The email has already been taken."}
		}
	}
	if _, ok := errs["username"]; !ok {
		existing, err := store.GetUserByUsername(r.Context(), h.DB, req.Username)
		if err != nil {
			slog.Error("checking username", "error", err)
			jsonError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if existing != nil {
			errs["username"] = []string{"The username has already been taken."}
		}
	}

	if len(errs) > 0 {
		jsonValidation(w, errs)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Name, req.Email, req.Username, string(hash))
	if err != nil {
		if store.IsUniqueViolation(err) {
			jsonValidation(w, map[string][]string{"username": {"The username has already been taken."}})
			return
		}
		slog.Error("creating user", "error", err)
		jsonError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	slog.Info("user registered", "user", user.Username)
	h.respondToken(w, http.StatusCreated, "User registered successfully", user)
}

// Login handles POST /api/login. Users log in with their username; an email
// is accepted when no username is given.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONSize)
	if err := decodeJSON(r, &req); err != nil {
		bodyError(w, err)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	errs := map[string][]string{}
	if req.Username == "" && req.Email == "" {
		errs["username"] = []string{"The username field is required."}
	}
	if req.Password == "" {
		errs["password"] = []string{"The password field is required."}
	}
	if len(errs) > 0 {
		jsonValidation(w, errs)
		return
	}

	var user *model.User
	var err error
	login := req.Username
	if login != "" {
		user, err = store.GetUserByUsername(r.Context(), h.DB, login)
	} else {
		login = req.Email
		user, err = store.GetUserByEmail(r.Context(), h.DB, login)
	}
	if err != nil {
		slog.Error("looking up user", "error", err)
		jsonError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		slog.Warn("login failed", "user", login, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	slog.Info("user logged in", "user", user.Username)
	h.respondToken(w, http.StatusOK, "", user)
}

// Logout handles POST /api/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "Unauthenticated")
		return
	}

	if err := h.revoke(r, claims); err != nil {
		slog.Error("revoking token", "error", err)
		jsonError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	slog.Info("user logged out", "user", claims.Email)
	jsonSuccess(w, http.StatusOK, "Logged out successfully", nil)
}

// Refresh handles POST /api/refresh: it issues a new token and revokes the
// one used for the request.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "Unauthenticated")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		slog.Error("getting user", "error", err)
		jsonError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "Unauthenticated")
		return
	}

	if err := h.revoke(r, claims); err != nil {
		slog.Error("revoking token", "error", err)
		jsonError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.respondToken(w, http.StatusOK, "", user)
}

// User handles GET /api/user. The body is the bare user object.
func (h *AuthHandler) User(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "Unauthenticated")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		slog.Error("getting user", "error", err)
		jsonError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "Unauthenticated")
		return
	}

	jsonResponse(w, http.StatusOK, user)
}

func (h *AuthHandler) revoke(r *http.Request, claims *auth.Claims) error {
	if h.Revoked == nil || claims.ID == "" {
		return nil
	}
	expiresAt := time.Now().Add(auth.TokenExpiry)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return h.Revoked.Revoke(r.Context(), claims.ID, expiresAt)
}
