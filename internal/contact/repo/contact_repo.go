package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/contact/entity"
)

const contactColumns = `id, name, email, phone, favorite, created_at, updated_at`

// Repo is the repository implementation for contacts backed by PostgreSQL.
type Repo struct {
	db *sqlx.DB
}

// NewRepo constructs a new Repo with an existing connection.
func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

// List returns contacts oldest first. A zero f.Limit binds NULL, which
// Postgres reads as LIMIT ALL.
func (r *Repo) List(ctx context.Context, f entity.ListFilter) ([]*entity.Contact, error) {
	const q = `SELECT ` + contactColumns + ` FROM contacts
		WHERE ($1::boolean IS NULL OR favorite = $1)
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3`
	var limit *int
	if f.Limit > 0 {
		limit = &f.Limit
	}
	out := []*entity.Contact{}
	if err := r.db.SelectContext(ctx, &out, q, f.Favorite, limit, f.Offset); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID returns sql.ErrNoRows when the id is unknown.
func (r *Repo) GetByID(ctx context.Context, id string) (*entity.Contact, error) {
	var c entity.Contact
	if err := r.db.GetContext(ctx, &c, `SELECT `+contactColumns+` FROM contacts WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts c and fills its timestamps.
func (r *Repo) Create(ctx context.Context, c *entity.Contact) error {
	const q = `INSERT INTO contacts (id, name, email, phone, favorite)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, q, c.ID, c.Name, c.Email, c.Phone, c.Favorite)
	return row.Scan(&c.CreatedAt, &c.UpdatedAt)
}

// Update applies the non-nil fields of p and returns the updated row,
// or sql.ErrNoRows when the id is unknown.
func (r *Repo) Update(ctx context.Context, id string, p entity.Patch) (*entity.Contact, error) {
	const q = `UPDATE contacts SET
		name = COALESCE($2, name),
		email = COALESCE($3, email),
		phone = COALESCE($4, phone),
		favorite = COALESCE($5, favorite),
		updated_at = NOW()
		WHERE id=$1 RETURNING ` + contactColumns
	var c entity.Contact
	if err := r.db.GetContext(ctx, &c, q, id, p.Name, p.Email, p.Phone, p.Favorite); err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete removes a contact and reports the number of rows affected.
func (r *Repo) Delete(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id=$1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
