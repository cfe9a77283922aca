package user

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-contacts-go/pkg/utilities"
)

// Handler exposes HTTP endpoints for user operations.
type Handler struct {
	svc    *UserService
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// CredentialsRequest is the body of signup and login.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r CredentialsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, utilities.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// VerifyRequest is the body of the resend-verification endpoint.
type VerifyRequest struct {
	Email string `json:"email"`
}

func (r VerifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required.Error("missing required field email"), utilities.Email),
	)
}

// SubscriptionRequest is the body of PATCH /api/users.
type SubscriptionRequest struct {
	Subscription string `json:"subscription"`
}

func (r SubscriptionRequest) Validate() error {
	allowed := make([]any, 0, len(entity.Subscriptions))
	for _, s := range entity.Subscriptions {
		allowed = append(allowed, s)
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Subscription, validation.Required, validation.In(allowed...)),
	)
}

type signupResponse struct {
	User entity.PublicView `json:"user"`
}

type loginResponse struct {
	Token string            `json:"token"`
	User  entity.PublicView `json:"user"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !h.bind(w, r, &req) {
		return
	}
	u, err := h.svc.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrEmailInUse) {
			utilities.WriteMessage(w, http.StatusConflict, "Email in use")
			return
		}
		h.logger.Errorw("signup failed", "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "Registration failed")
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, signupResponse{User: u.Public()})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !h.bind(w, r, &req) {
		return
	}
	token, u, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			utilities.WriteMessage(w, http.StatusUnauthorized, "Email or password is wrong")
			return
		}
		h.logger.Errorw("login failed", "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "Login failed")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, loginResponse{Token: token, User: u.Public()})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		utilities.WriteMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	if err := h.svc.Logout(r.Context(), u); err != nil {
		h.logger.Errorw("logout failed", "user_id", u.ID, "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "Logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		utilities.WriteMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, u.Public())
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Verify(r.Context(), r.PathValue("token"))
	switch {
	case err == nil:
		utilities.WriteMessage(w, http.StatusOK, "Verification successful")
	case errors.Is(err, ErrVerificationNotFound):
		utilities.WriteMessage(w, http.StatusNotFound, "User not found")
	default:
		h.logger.Errorw("verification failed", "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "Verification failed")
	}
}

func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !h.bind(w, r, &req) {
		return
	}
	err := h.svc.ResendVerification(r.Context(), req.Email)
	switch {
	case err == nil:
		utilities.WriteMessage(w, http.StatusOK, "Verification email sent")
	case errors.Is(err, ErrUserNotFound):
		utilities.WriteMessage(w, http.StatusBadRequest, "User not found")
	case errors.Is(err, ErrAlreadyVerified):
		utilities.WriteMessage(w, http.StatusBadRequest, "Verification has already been passed")
	default:
		h.logger.Errorw("resend verification failed", "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "Sending verification email failed")
	}
}

func (h *Handler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		utilities.WriteMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	var req SubscriptionRequest
	if !h.bind(w, r, &req) {
		return
	}
	updated, err := h.svc.UpdateSubscription(r.Context(), u, req.Subscription)
	if err != nil {
		h.logger.Errorw("subscription update failed", "user_id", u.ID, "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "Subscription update failed")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, updated.Public())
}

// bind decodes and validates the body, writing a 400 on failure.
// An empty body is validated as a zero request so the message names the missing fields.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, req validation.Validatable) bool {
	if err := utilities.DecodeJSON(r, req); err != nil && !errors.Is(err, utilities.ErrEmptyBody) {
		h.logger.Debugw("invalid payload", "path", r.URL.Path, "err", err)
		utilities.WriteMessage(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	if err := req.Validate(); err != nil {
		utilities.WriteMessage(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
