package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/contact/entity"
	"github.com/ovaphlow/pitchfork/service-contacts-go/pkg/utilities"
)

var ErrNotFound = errors.New("contact not found")

// DefaultLimit is the page size when only page is given.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Repository is implemented by repo.Repo.
type Repository interface {
	List(ctx context.Context, f entity.ListFilter) ([]*entity.Contact, error)
	GetByID(ctx context.Context, id string) (*entity.Contact, error)
	Create(ctx context.Context, c *entity.Contact) error
	Update(ctx context.Context, id string, p entity.Patch) (*entity.Contact, error)
	Delete(ctx context.Context, id string) (int64, error)
}

// Service encapsulates business logic for contacts and depends on a repo.
type Service struct {
	repo  Repository
	newID func() string
}

// NewService constructs a Service with the provided repository.
func NewService(r Repository) *Service {
	return &Service{repo: r, newID: utilities.NewSnowflakeID}
}

// List returns every contact, or one page of them when f.Limit is set,
// optionally only (non-)favorites.
func (s *Service) List(ctx context.Context, f entity.ListFilter) ([]*entity.Contact, error) {
	if f.Limit < 0 {
		f.Limit = 0
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.List(ctx, f)
}

// Get returns a contact by id.
func (s *Service) Get(ctx context.Context, id string) (*entity.Contact, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// Add stores a new contact under a fresh id. Input is validated by the handler.
func (s *Service) Add(ctx context.Context, in *entity.Contact) (*entity.Contact, error) {
	in.ID = s.newID()
	if err := s.repo.Create(ctx, in); err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return in, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id string, p entity.Patch) (*entity.Contact, error) {
	c, err := s.repo.Update(ctx, id, p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// SetFavorite changes only the favorite flag.
func (s *Service) SetFavorite(ctx context.Context, id string, favorite bool) (*entity.Contact, error) {
	return s.Update(ctx, id, entity.Patch{Favorite: &favorite})
}

// Delete removes a contact by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	rows, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
