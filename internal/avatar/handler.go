package avatar

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-contacts-go/pkg/utilities"
)

const (
	maxUploadBytes = 10 << 20
	formField      = "avatar"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type updateResponse struct {
	UpdatedUser *entity.User `json:"updatedUser"`
}

// Update handles PATCH /api/avatars with a multipart "avatar" file.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		utilities.WriteMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile(formField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utilities.WriteMessage(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		h.logger.Debugw("avatar upload rejected", "user_id", u.ID, "err", err)
		utilities.WriteMessage(w, http.StatusBadRequest, "Missing file 'avatar'")
		return
	}
	defer file.Close()

	updated, err := h.svc.Replace(r.Context(), u, file, header.Filename)
	if err != nil {
		h.logger.Errorw("avatar update failed", "user_id", u.ID, "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "Error while updating avatar")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, updateResponse{UpdatedUser: updated})
}
