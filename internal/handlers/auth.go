package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/accountd/authserver/internal/mailer"
	"github.com/accountd/authserver/internal/services"
	"github.com/accountd/authserver/internal/store"
	"github.com/accountd/authserver/internal/token"
	"github.com/accountd/authserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Fixed response messages. The wording is part of the API contract with the
// front-end and the emails it sends out.
const (
	msgVerificationSent = "Verification e-mail sent, please verify your mail to activate your account"
	msgUserExists       = "User already exists"
	msgResetLinkSent    = "We have sent you a link to reset your password"
	msgResetTokenBad    = "Token is invalid please request a new one"
	msgResetSuccess     = "Password reset success"
	msgPasswordUpdated  = "Password updated successfully"
	msgTokenInvalid     = "Token is invalid or expired"
	msgNoActiveAccount  = "No active account found with the given credentials"
)

// Front-end paths the verification endpoint redirects to.
const (
	verifyOutcomeSuccess = "/account/email_valid/true"
	verifyOutcomeExpired = "/account/email_valid/expired"
	verifyOutcomeInvalid = "/account/email_valid/invalid"
)

// AuthHandler provides the account authentication endpoints.
type AuthHandler struct {
	users     *services.UserService
	blacklist *services.BlacklistService
	tokens    *token.Issuer
	resets    *token.ResetGenerator
	mail      mailer.Mailer

	appURL      string
	frontendURL string
	logger      zerolog.Logger
}

// AuthHandlerConfig carries the collaborators an AuthHandler needs.
type AuthHandlerConfig struct {
	Users     *services.UserService
	Blacklist *services.BlacklistService
	Tokens    *token.Issuer
	Resets    *token.ResetGenerator
	Mailer    mailer.Mailer

	AppURL      string
	FrontendURL string
	Logger      zerolog.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(cfg AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		users:       cfg.Users,
		blacklist:   cfg.Blacklist,
		tokens:      cfg.Tokens,
		resets:      cfg.Resets,
		mail:        cfg.Mailer,
		appURL:      strings.TrimRight(cfg.AppURL, "/"),
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		logger:      cfg.Logger,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/register", handler.Register)
	r.Get("/email-verify", handler.VerifyEmail)
	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.Post("/token/refresh", handler.RefreshToken)
	r.Post("/password-reset", handler.RequestPasswordReset)
	r.Patch("/password-reset/{uidb64}/{token}", handler.SetNewPassword)
	r.With(handler.RequireAuth).Put("/change-password", handler.ChangePassword)
	r.With(handler.RequireAuth).Patch("/change-password", handler.ChangePassword)
	r.With(handler.RequireAuth).Get("/me", handler.Me)
}

// RequireAuth enforces access-token authentication and injects the subject
// into the request context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		claims, err := h.tokens.ParsePurpose(tokenString, token.PurposeAccess)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), contextSubjectKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Register creates an inactive user account and emails a verification link.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	if _, err := h.users.GetByEmail(r.Context(), req.Email); err == nil {
		writeJSON(w, http.StatusConflict, msgResponse{Msg: msgUserExists})
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "failed to check user")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	user, err := h.users.Create(r.Context(), types.User{
		Email:        req.Email,
		Name:         req.Name,
		IsActive:     false,
		PasswordHash: string(hashed),
	})
	if err != nil {
		// The unique index is the authority; a concurrent registration that
		// slipped past the existence check still answers Conflict.
		if errors.Is(err, store.ErrDuplicateEmail) {
			writeJSON(w, http.StatusConflict, msgResponse{Msg: msgUserExists})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	verification, err := h.tokens.Verification(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	link := h.appURL + "/auth/email-verify?token=" + verification
	h.dispatchEmail(r.Context(), mailer.VerificationMessage(user.Name, user.Email, link))

	writeJSON(w, http.StatusCreated, msgResponse{Msg: msgVerificationSent})
}

// VerifyEmail consumes the emailed verification token and redirects the
// browser to a front-end outcome page. This endpoint never answers JSON;
// it is opened from email clients.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	claims, err := h.tokens.ParsePurpose(r.URL.Query().Get("token"), token.PurposeAccess)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) {
			h.redirectVerifyOutcome(w, r, verifyOutcomeExpired)
			return
		}
		h.redirectVerifyOutcome(w, r, verifyOutcomeInvalid)
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		h.redirectVerifyOutcome(w, r, verifyOutcomeInvalid)
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.logger.Error().Err(err).Int("user_id", userID).Msg("verify email: user lookup failed")
		}
		h.redirectVerifyOutcome(w, r, verifyOutcomeInvalid)
		return
	}

	// Re-verifying an already-active account is a no-op, not an error.
	if !user.IsActive {
		if err := h.users.Activate(r.Context(), user.ID); err != nil {
			h.logger.Error().Err(err).Int("user_id", user.ID).Msg("verify email: activation failed")
			h.redirectVerifyOutcome(w, r, verifyOutcomeInvalid)
			return
		}
	}

	h.redirectVerifyOutcome(w, r, verifyOutcomeSuccess)
}

// Login verifies credentials against an active account and returns a token
// pair with minimal user identity.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusUnauthorized, detailResponse{Detail: msgNoActiveAccount})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, detailResponse{Detail: msgNoActiveAccount})
		return
	}

	if !user.IsActive {
		writeJSON(w, http.StatusUnauthorized, detailResponse{Detail: msgNoActiveAccount})
		return
	}

	access, err := h.tokens.Access(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}
	refresh, err := h.tokens.Refresh(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, TokenPairResponse{
		Access:  access,
		Refresh: refresh,
		User:    userInfo(user),
	})
}

// Logout blacklists the presented refresh token so it can no longer mint
// access tokens.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	claims, err := h.tokens.ParsePurpose(req.Refresh, token.PurposeRefresh)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: msgTokenInvalid})
		return
	}

	userID, err := claims.UserID()
	if err != nil || claims.ID == "" || claims.ExpiresAt == nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: msgTokenInvalid})
		return
	}

	if err := h.blacklist.Add(r.Context(), claims.ID, userID, claims.ExpiresAt.Time); err != nil {
		if errors.Is(err, store.ErrDuplicateToken) {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: msgTokenInvalid})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to logout")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RefreshToken exchanges a valid, non-blacklisted refresh token for a new
// access token.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	claims, err := h.tokens.ParsePurpose(req.Refresh, token.PurposeRefresh)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: msgTokenInvalid})
		return
	}

	userID, err := claims.UserID()
	if err != nil || claims.ID == "" {
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: msgTokenInvalid})
		return
	}

	revoked, err := h.blacklist.Contains(r.Context(), claims.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check token")
		return
	}
	if revoked {
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: msgTokenInvalid})
		return
	}

	access, err := h.tokens.Access(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, AccessResponse{Access: access})
}

// RequestPasswordReset emails a reset link when the account exists. The
// response is identical either way so it cannot be used to enumerate
// registered emails.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "failed to process request")
			return
		}
	} else {
		uidb64 := base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(user.ID)))
		reset := h.resets.Make(user)
		link := h.frontendURL + "/password_reset/" + uidb64 + "/" + reset
		h.dispatchEmail(r.Context(), mailer.PasswordResetMessage(user.Email, link))
	}

	writeJSON(w, http.StatusOK, successResponse{Success: msgResetLinkSent})
}

// SetNewPassword consumes a reset link and replaces the user's password.
// Every token or identifier failure answers with the same 401 so the caller
// learns nothing about which check failed.
func (h *AuthHandler) SetNewPassword(w http.ResponseWriter, r *http.Request) {
	var req SetNewPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Password == "" {
		writeJSON(w, http.StatusBadRequest, fieldErrors{"password": {"This field is required."}})
		return
	}

	decoded, err := base64.RawURLEncoding.DecodeString(chi.URLParam(r, "uidb64"))
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: msgResetTokenBad})
		return
	}
	userID, err := strconv.Atoi(string(decoded))
	if err != nil || userID < 1 {
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: msgResetTokenBad})
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusUnauthorized, messageResponse{Message: msgResetTokenBad})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to process request")
		return
	}

	if !h.resets.Check(user, chi.URLParam(r, "token")) {
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: msgResetTokenBad})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to set password")
		return
	}
	if err := h.users.UpdatePassword(r.Context(), user.ID, string(hashed)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to set password")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: msgResetSuccess})
}

// ChangePassword replaces the authenticated user's password after checking
// the current one.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	missing := fieldErrors{}
	if req.OldPassword == "" {
		missing["old_password"] = []string{"This field is required."}
	}
	if req.NewPassword == "" {
		missing["new_password"] = []string{"This field is required."}
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, missing)
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		writeJSON(w, http.StatusBadRequest, fieldErrors{"old_password": {"Wrong password."}})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to change password")
		return
	}
	if err := h.users.UpdatePassword(r.Context(), user.ID, string(hashed)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to change password")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: msgPasswordUpdated})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) redirectVerifyOutcome(w http.ResponseWriter, r *http.Request, outcome string) {
	http.Redirect(w, r, h.frontendURL+outcome, http.StatusMovedPermanently)
}

// dispatchEmail sends fire-and-forget: a delivery failure is logged but
// never changes the response.
func (h *AuthHandler) dispatchEmail(ctx context.Context, msg mailer.Message) {
	if err := h.mail.Send(ctx, msg); err != nil {
		h.logger.Error().Err(err).Strs("to", msg.To).Str("subject", msg.Subject).Msg("email dispatch failed")
	}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

type SetNewPasswordRequest struct {
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// UserInfo is the minimal identity returned alongside a token pair.
type UserInfo struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type TokenPairResponse struct {
	Access  string   `json:"access"`
	Refresh string   `json:"refresh"`
	User    UserInfo `json:"user"`
}

type AccessResponse struct {
	Access string `json:"access"`
}

type msgResponse struct {
	Msg string `json:"msg"`
}

type successResponse struct {
	Success string `json:"success"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

// fieldErrors is a field-name to error-list map, the shape used for
// validation failures.
type fieldErrors map[string][]string

func userInfo(user types.User) UserInfo {
	return UserInfo{ID: user.ID, Email: user.Email, Name: user.Name}
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return "", errors.New("invalid authorization")
	}
	return tokenString, nil
}
