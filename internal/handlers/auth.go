// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"backoffice/internal/apierr"
	"backoffice/internal/middleware"
	"backoffice/internal/models"
	"backoffice/internal/response"
	"backoffice/internal/session"
)

// totpIssuer labels the account in authenticator apps.
const totpIssuer = "Backoffice"

// UserStore is the account persistence used by the auth handlers.
// *store.UserStore satisfies it.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, userID uuid.UUID) error
	CheckPassword(user *models.User, password string) bool
}

// SessionStore creates and destroys bearer sessions. *session.Store
// satisfies it.
type SessionStore interface {
	Create(ctx context.Context, data *session.Data) (string, error)
	Destroy(ctx context.Context, token string) error
}

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	sessions  SessionStore
	userStore UserStore
}

// NewAuth creates a new Auth handler group.
func NewAuth(sessions SessionStore, userStore UserStore) *Auth {
	return &Auth{sessions: sessions, userStore: userStore}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Code     string `json:"code" validate:"omitempty,len=6,numeric"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type verifyRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

type setupResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
	QRCode     string `json:"qrCode"` // base64 PNG
}

// Login checks credentials, plus the TOTP code when the account enabled
// two-factor authentication, and answers with a bearer token.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateStruct(&req); err != nil {
		response.Error(w, err)
		return
	}

	user, err := a.userStore.FindByEmail(r.Context(), req.Email)
	if err != nil {
		slog.Error("login lookup failed", "error", err)
		response.Error(w, err)
		return
	}
	if user == nil || !a.userStore.CheckPassword(user, req.Password) {
		slog.Warn("login rejected", "email", req.Email)
		response.Error(w, apierr.New(apierr.ErrUnauthorized, "Invalid email or password."))
		return
	}

	if user.RequiresTOTP() {
		if req.Code == "" {
			response.Error(w, apierr.New(apierr.ErrUnauthorized, "Two-factor code required."))
			return
		}
		if !totp.Validate(req.Code, *user.TOTPSecret) {
			slog.Warn("login rejected: bad totp code", "email", req.Email)
			response.Error(w, apierr.New(apierr.ErrUnauthorized, "Invalid two-factor code."))
			return
		}
	}

	token, err := a.sessions.Create(r.Context(), &session.Data{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
	})
	if err != nil {
		slog.Error("session create failed", "error", err)
		response.Error(w, err)
		return
	}

	slog.Info("login", "email", user.Email, "totp", user.RequiresTOTP())
	response.JSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// Logout destroys the current session. It succeeds even when the token
// already expired.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromCtx(r.Context())
	if token == "" {
		token = session.TokenFromRequest(r)
	}
	if err := a.sessions.Destroy(r.Context(), token); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	response.JSON(w, http.StatusOK, map[string]string{"message": "Signed out."})
}

// TwoFASetup generates a TOTP secret for the signed-in user and answers
// with the enrolment QR code as a PNG, or as JSON with ?format=json.
func (a *Auth) TwoFASetup(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	user, err := a.userStore.FindByID(r.Context(), sess.UserID)
	if err != nil {
		response.Error(w, err)
		return
	}
	if user == nil {
		response.Error(w, apierr.New(apierr.ErrUnauthorized, "Account no longer exists."))
		return
	}
	if user.TOTPEnabled {
		response.Error(w, apierr.New(apierr.ErrConflict, "Two-factor authentication is already enabled."))
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
	})
	if err != nil {
		slog.Error("totp generate failed", "error", err)
		response.Error(w, err)
		return
	}

	if err := a.userStore.SetTOTPSecret(r.Context(), user.ID, key.Secret()); err != nil {
		slog.Error("save totp secret failed", "error", err)
		response.Error(w, err)
		return
	}

	qrPNG, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		slog.Error("qr code generation failed", "error", err)
		response.Error(w, err)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		response.JSON(w, http.StatusOK, setupResponse{
			Secret:     key.Secret(),
			OTPAuthURL: key.URL(),
			QRCode:     base64.StdEncoding.EncodeToString(qrPNG),
		})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(qrPNG)
}

// TwoFAVerify enables two-factor authentication once the user proves the
// authenticator app produces valid codes.
func (a *Auth) TwoFAVerify(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := validateStruct(&req); err != nil {
		response.Error(w, err)
		return
	}

	user, err := a.userStore.FindByID(r.Context(), sess.UserID)
	if err != nil {
		response.Error(w, err)
		return
	}
	if user == nil {
		response.Error(w, apierr.New(apierr.ErrUnauthorized, "Account no longer exists."))
		return
	}
	if user.TOTPSecret == nil || *user.TOTPSecret == "" {
		response.Error(w, apierr.New(apierr.ErrValidation, "Run two-factor setup first."))
		return
	}
	if !totp.Validate(req.Code, *user.TOTPSecret) {
		response.Error(w, apierr.New(apierr.ErrValidation, "Invalid code. Please try again."))
		return
	}

	if !user.TOTPEnabled {
		if err := a.userStore.EnableTOTP(r.Context(), user.ID); err != nil {
			slog.Error("enable totp failed", "error", err)
			response.Error(w, err)
			return
		}
		slog.Info("two-factor enabled", "email", user.Email)
	}
	response.JSON(w, http.StatusOK, map[string]bool{"totpEnabled": true})
}
