package user

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/mail"
	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-contacts-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-contacts-go/pkg/utilities"
)

var (
	ErrEmailInUse           = errors.New("email in use")
	ErrBadCredentials       = errors.New("invalid credentials")
	ErrUserNotFound         = errors.New("user not found")
	ErrAlreadyVerified      = errors.New("already verified")
	ErrVerificationNotFound = errors.New("verification token not found")
)

// Repository is the subset of userrepo.UserRepo the service depends on.
type Repository interface {
	Create(ctx context.Context, u *entity.User) (int64, error)
	Delete(ctx context.Context, id int64) error
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*entity.User, error)
	SetToken(ctx context.Context, id int64, token *string) error
	MarkVerified(ctx context.Context, id int64) error
	SetVerificationToken(ctx context.Context, id int64, token string) error
	SetSubscription(ctx context.Context, id int64, subscription string) (*entity.User, error)
}

type TokenIssuer interface {
	Issue(userID int64) (string, error)
}

// UserService orchestrates authentication and user lifecycle flows.
type UserService struct {
	repo   Repository
	hasher auth.PasswordHasher
	tokens TokenIssuer
	mailer mail.Sender
	logger *zap.SugaredLogger
	// baseURL prefixes verification links, e.g. http://localhost:3000
	baseURL string
	// newVerificationToken is swapped in tests.
	newVerificationToken func() string
}

func NewUserService(r Repository, hasher auth.PasswordHasher, tokens TokenIssuer, mailer mail.Sender, baseURL string, logger *zap.SugaredLogger) *UserService {
	if hasher == nil {
		hasher = auth.BcryptHasher{Cost: 10}
	}
	return &UserService{
		repo:                 r,
		hasher:               hasher,
		tokens:               tokens,
		mailer:               mailer,
		logger:               logger,
		baseURL:              strings.TrimRight(baseURL, "/"),
		newVerificationToken: utilities.NewUUID,
	}
}

// Signup registers an unverified user and mails the verification link.
// The user row is removed again when the mail cannot be sent, so the
// address stays free for a retry.
func (s *UserService) Signup(ctx context.Context, email, password string) (*entity.User, error) {
	email = strings.TrimSpace(email)
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	vt := s.newVerificationToken()
	u := &entity.User{
		Email:             email,
		PasswordHash:      hash,
		Subscription:      entity.SubscriptionStarter,
		AvatarURL:         GravatarURL(email),
		VerificationToken: &vt,
	}
	if _, err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrDuplicateEmail) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.mailer.Send(ctx, mail.VerificationMessage(u.Email, s.verifyLink(vt))); err != nil {
		if delErr := s.repo.Delete(ctx, u.ID); delErr != nil {
			s.logger.Errorw("signup rollback failed", "user_id", u.ID, "err", delErr)
		}
		return nil, fmt.Errorf("send verification: %w", err)
	}
	return u, nil
}

// Login checks credentials and replaces the stored session token with a new one.
// Unknown email and wrong password are reported identically.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *entity.User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, ErrBadCredentials
		}
		return "", nil, fmt.Errorf("lookup email: %w", err)
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return "", nil, ErrBadCredentials
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return "", nil, err
	}
	if err := s.repo.SetToken(ctx, u.ID, &token); err != nil {
		return "", nil, fmt.Errorf("store token: %w", err)
	}
	u.Token = &token
	return token, u, nil
}

// Logout clears the stored session token.
func (s *UserService) Logout(ctx context.Context, u *entity.User) error {
	if err := s.repo.SetToken(ctx, u.ID, nil); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	u.Token = nil
	return nil
}

// Verify consumes a verification token. A token that was already used is
// indistinguishable from one that never existed.
func (s *UserService) Verify(ctx context.Context, token string) error {
	u, err := s.repo.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVerificationNotFound
		}
		return fmt.Errorf("lookup verification token: %w", err)
	}
	if err := s.repo.MarkVerified(ctx, u.ID); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

// ResendVerification issues a fresh verification token for an unverified
// user and mails it.
func (s *UserService) ResendVerification(ctx context.Context, email string) error {
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup email: %w", err)
	}
	if u.Verify {
		return ErrAlreadyVerified
	}

	vt := s.newVerificationToken()
	if err := s.repo.SetVerificationToken(ctx, u.ID, vt); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}
	if err := s.mailer.Send(ctx, mail.VerificationMessage(u.Email, s.verifyLink(vt))); err != nil {
		return fmt.Errorf("send verification: %w", err)
	}
	return nil
}

// UpdateSubscription switches the user's tier. The tier is validated by the handler.
func (s *UserService) UpdateSubscription(ctx context.Context, u *entity.User, subscription string) (*entity.User, error) {
	updated, err := s.repo.SetSubscription(ctx, u.ID, subscription)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update subscription: %w", err)
	}
	return updated, nil
}

func (s *UserService) verifyLink(token string) string {
	return s.baseURL + "/api/users/verify/" + token
}

// GravatarURL derives the default identicon avatar for an email.
func GravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?s=250&d=identicon"
}
