package repo

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/user/entity"
)

// ErrDuplicateEmail is returned by Create when the email unique index rejects the row.
var ErrDuplicateEmail = errors.New("duplicate email")

const userColumns = `id, email, password_hash, token, subscription, avatar_url,
		verify, verification_token, created_at, updated_at`

// UserRepo provides data access for users table using sqlx.
// Lookups return sql.ErrNoRows unchanged when nothing matches.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row. Returns new ID.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) (int64, error) {
	const q = `INSERT INTO users (email, password_hash, subscription, avatar_url, verify, verification_token)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.GetContext(ctx, &u.ID, q,
		u.Email, u.PasswordHash, u.Subscription, u.AvatarURL, u.Verify, u.VerificationToken,
	); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateEmail
		}
		return 0, err
	}
	return u.ID, nil
}

// Delete removes a user row. Used to roll back a signup whose verification mail failed.
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
	return err
}

// GetByID fetches a full user row.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

// GetByEmail returns a user matched by email (case-insensitive due to citext).
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

// GetByIDAndToken matches both the id and the currently stored session token,
// so a token stops resolving as soon as it is cleared or replaced.
func (r *UserRepo) GetByIDAndToken(ctx context.Context, id int64, token string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1 AND token=$2`, id, token)
}

// GetByVerificationToken finds the user an emailed verification link belongs to.
func (r *UserRepo) GetByVerificationToken(ctx context.Context, token string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE verification_token=$1`, token)
}

// SetToken stores the active session token; nil logs the user out.
func (r *UserRepo) SetToken(ctx context.Context, id int64, token *string) error {
	const q = `UPDATE users SET token=$2, updated_at=NOW() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id, token)
	return err
}

// MarkVerified sets verify and clears the verification token.
func (r *UserRepo) MarkVerified(ctx context.Context, id int64) error {
	const q = `UPDATE users SET verify=true, verification_token=NULL, updated_at=NOW() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// SetVerificationToken replaces the pending verification token.
func (r *UserRepo) SetVerificationToken(ctx context.Context, id int64, token string) error {
	const q = `UPDATE users SET verification_token=$2, updated_at=NOW() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id, token)
	return err
}

// SetAvatarURL updates avatar_url and returns the updated row.
func (r *UserRepo) SetAvatarURL(ctx context.Context, id int64, url string) (*entity.User, error) {
	return r.getOne(ctx, `UPDATE users SET avatar_url=$2, updated_at=NOW() WHERE id=$1 RETURNING `+userColumns, id, url)
}

// SetSubscription updates the subscription tier and returns the updated row.
func (r *UserRepo) SetSubscription(ctx context.Context, id int64, subscription string) (*entity.User, error) {
	return r.getOne(ctx, `UPDATE users SET subscription=$2, updated_at=NOW() WHERE id=$1 RETURNING `+userColumns, id, subscription)
}

func (r *UserRepo) getOne(ctx context.Context, q string, args ...any) (*entity.User, error) {
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, args...); err != nil {
		return nil, err
	}
	return &row, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
