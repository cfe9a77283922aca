package contact

import (
	"errors"
	"math"
	"net/http"
	"regexp"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/contact/entity"
	"github.com/ovaphlow/pitchfork/service-contacts-go/pkg/utilities"
)

// Handler contains dependencies for handling contact endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

// NewHandler constructs a new Handler.
func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

var phoneRe = regexp.MustCompile(`^[0-9]{10}$`)

// ContactRequest is the body of POST and PUT. Pointers tell an absent
// field apart from a zero value.
type ContactRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Favorite *bool   `json:"favorite"`
}

// ValidateCreate requires every field.
func (r ContactRequest) ValidateCreate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Email, validation.Required, utilities.Email),
		validation.Field(&r.Phone, validation.Required, validation.Match(phoneRe).Error("must be exactly 10 digits")),
		validation.Field(&r.Favorite, validation.NotNil),
	)
}

// ValidateUpdate applies the create rules to the fields that are present.
func (r ContactRequest) ValidateUpdate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty),
		validation.Field(&r.Email, validation.NilOrNotEmpty, utilities.Email),
		validation.Field(&r.Phone, validation.NilOrNotEmpty, validation.Match(phoneRe).Error("must be exactly 10 digits")),
	)
}

func (r ContactRequest) patch() entity.Patch {
	return entity.Patch{Name: r.Name, Email: r.Email, Phone: r.Phone, Favorite: r.Favorite}
}

type favoriteRequest struct {
	Favorite *bool `json:"favorite"`
}

type response struct {
	Status  string          `json:"status"`
	Code    int             `json:"code"`
	Message string          `json:"message,omitempty"`
	Contact *entity.Contact `json:"contact,omitempty"`
}

type listResponse struct {
	Status   string            `json:"status"`
	Code     int               `json:"code"`
	Contacts []*entity.Contact `json:"contacts"`
}

// List handles GET /api/contacts?page=&limit=&favorite=. Without page
// or limit every contact is returned.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseListFilter(r)
	if err != nil {
		utilities.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	contacts, err := h.svc.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, listResponse{Status: "success", Code: http.StatusOK, Contacts: contacts})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, response{Status: "success", Code: http.StatusOK, Contact: c})
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := utilities.DecodeJSON(r, &req); err != nil && !errors.Is(err, utilities.ErrEmptyBody) {
		utilities.WriteMessage(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := req.ValidateCreate(); err != nil {
		utilities.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.svc.Add(r.Context(), &entity.Contact{
		Name:     *req.Name,
		Email:    *req.Email,
		Phone:    *req.Phone,
		Favorite: *req.Favorite,
	})
	if err != nil {
		h.logger.Errorw("add contact failed", "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "An error occurred while adding a contact")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, response{Status: "success", Code: http.StatusOK, Message: "Contact added!", Contact: c})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, response{Status: "success", Code: http.StatusOK, Message: "Contact removed!"})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := utilities.DecodeJSON(r, &req); err != nil && !errors.Is(err, utilities.ErrEmptyBody) {
		utilities.WriteMessage(w, http.StatusBadRequest, "invalid payload")
		return
	}
	p := req.patch()
	if p.Empty() {
		utilities.WriteMessage(w, http.StatusBadRequest, "missing fields")
		return
	}
	if err := req.ValidateUpdate(); err != nil {
		utilities.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.svc.Update(r.Context(), r.PathValue("id"), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, response{Status: "success", Code: http.StatusOK, Message: "Contact updated!", Contact: c})
}

// UpdateFavorite requires the favorite key to be present; false is a valid value.
func (h *Handler) UpdateFavorite(w http.ResponseWriter, r *http.Request) {
	var req favoriteRequest
	if err := utilities.DecodeJSON(r, &req); err != nil && !errors.Is(err, utilities.ErrEmptyBody) {
		utilities.WriteMessage(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Favorite == nil {
		utilities.WriteMessage(w, http.StatusBadRequest, "Missing field 'favorite'")
		return
	}
	c, err := h.svc.SetFavorite(r.Context(), r.PathValue("id"), *req.Favorite)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, response{Status: "success", Code: http.StatusOK, Contact: c})
}

// fail maps not-found to 404 and everything else to a logged 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNotFound) {
		utilities.WriteMessage(w, http.StatusNotFound, "Contact not found")
		return
	}
	h.logger.Errorw("contact request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	utilities.WriteMessage(w, http.StatusInternalServerError, "Something went wrong")
}

func parseListFilter(r *http.Request) (entity.ListFilter, error) {
	q := r.URL.Query()
	var f entity.ListFilter
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, errors.New("limit must be a positive integer")
		}
		f.Limit = min(n, MaxLimit)
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, errors.New("page must be a positive integer")
		}
		if n > math.MaxInt/MaxLimit {
			return f, errors.New("page is out of range")
		}
		if f.Limit == 0 {
			f.Limit = DefaultLimit
		}
		f.Offset = (n - 1) * f.Limit
	}
	if v := q.Get("favorite"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, errors.New("favorite must be true or false")
		}
		f.Favorite = &b
	}
	return f, nil
}
