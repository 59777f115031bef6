package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/friendlylisteh/server/internal/apperror"
	"github.com/friendlylisteh/server/internal/auth"
	"github.com/friendlylisteh/server/internal/service"
)

// AuthHandler serves signup, signin, signout, and the two Google sign-in
// paths (profile posted by the SPA, and our own server-side OAuth flow).
type AuthHandler struct {
	auths        *service.AuthService
	google       *auth.GoogleProvider // nil when Google OAuth isn't configured
	clientOrigin string               // where the OAuth callback redirects to
	logger       *slog.Logger
}

func NewAuthHandler(auths *service.AuthService, google *auth.GoogleProvider, clientOrigin string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auths:        auths,
		google:       google,
		clientOrigin: clientOrigin,
		logger:       logger,
	}
}

type signupRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleSigninRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"googlePhotoUrl"`
	GoogleID string `json:"googleId"` // optional; present when the SPA has the subject ID
}

// HandleSignup registers a new account and sets the auth cookie.
//
// HTTP: POST /api/auth/signup
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON request body"))
		return
	}

	result, err := h.auths.Signup(r.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	setAuthCookie(w, result.Token)
	writeJSON(w, http.StatusCreated, result.User)
}

// HandleSignin authenticates an email/password pair and sets the auth cookie.
//
// HTTP: POST /api/auth/signin
func (h *AuthHandler) HandleSignin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON request body"))
		return
	}

	result, err := h.auths.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	setAuthCookie(w, result.Token)
	writeJSON(w, http.StatusOK, result.User)
}

// HandleGoogleSignin accepts a Google profile posted by the SPA after its
// client-side sign-in, provisioning an account on first contact.
//
// HTTP: POST /api/auth/google
func (h *AuthHandler) HandleGoogleSignin(w http.ResponseWriter, r *http.Request) {
	var req googleSigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON request body"))
		return
	}

	result, err := h.auths.GoogleSignin(r.Context(), service.GoogleProfile{
		Name:     req.Name,
		Email:    req.Email,
		PhotoURL: req.PhotoURL,
		GoogleID: req.GoogleID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}

	setAuthCookie(w, result.Token)
	writeJSON(w, status, result.User)
}

// HandleSignout clears the auth cookie. The JWT itself stays valid until it
// expires — signout is purely client-side state removal.
//
// HTTP: POST /api/user/signout
func (h *AuthHandler) HandleSignout(w http.ResponseWriter, r *http.Request) {
	clearAuthCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}

// HandleGoogleLogin starts the server-side OAuth flow: generates a CSRF state
// nonce, stores it in a short-lived cookie, and redirects to Google.
//
// HTTP: GET /api/auth/google/login
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		writeError(w, apperror.ValidationFailed("oauth", "Google sign-in is not configured"))
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the server-side OAuth flow: verifies the
// state, exchanges the code for a profile, signs the user in, and redirects
// back to the SPA with the auth cookie set.
//
// HTTP: GET /api/auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		writeError(w, apperror.ValidationFailed("oauth", "Google sign-in is not configured"))
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("google callback: state mismatch or missing")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// State cookies are single-use.
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("google callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, h.clientOrigin, http.StatusTemporaryRedirect)
		return
	}

	profile, err := h.google.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.logger.Error("google callback: exchange failed", slog.String("error", err.Error()))
		http.Error(w, "Google sign-in failed", http.StatusBadGateway)
		return
	}

	result, err := h.auths.GoogleSignin(r.Context(), service.GoogleProfile{
		Name:     profile.Name,
		Email:    profile.Email,
		PhotoURL: profile.Picture,
		GoogleID: profile.Sub,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	setAuthCookie(w, result.Token)
	http.Redirect(w, r, h.clientOrigin, http.StatusTemporaryRedirect)
}

// setAuthCookie stores the JWT in the HttpOnly auth cookie. MaxAge matches
// the token TTL so the cookie and the token expire together.
func setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.TokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
