package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/challengeclub/competition-server-go/internal/model"
)

type AdminRepository interface {
	Find(ctx context.Context, userID string) (*model.Admin, error)
	FindBootstrap(ctx context.Context) (*model.Admin, error)
	Count(ctx context.Context) (int, error)
	List(ctx context.Context) ([]model.AdminListing, error)
	Add(ctx context.Context, userID string, addedBy *string) error
	Remove(ctx context.Context, userID string) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) AdminRepository
}

// adminDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type adminDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type adminRepo struct {
	db adminDB
}

func NewAdminRepository(db *sqlx.DB) AdminRepository {
	return &adminRepo{db: db}
}

func (r *adminRepo) WithTx(tx *sqlx.Tx) AdminRepository {
	return &adminRepo{db: tx}
}

func (r *adminRepo) Find(ctx context.Context, userID string) (*model.Admin, error) {
	var admin model.Admin
	err := r.db.GetContext(ctx, &admin, `
		SELECT * FROM admins WHERE user_id = $1
	`, userID)
	return HandleNotFound(&admin, err)
}

// FindBootstrap returns the earliest admin row. That admin can never be
// removed.
func (r *adminRepo) FindBootstrap(ctx context.Context) (*model.Admin, error) {
	var admin model.Admin
	err := r.db.GetContext(ctx, &admin, `
		SELECT * FROM admins ORDER BY added_at ASC, user_id ASC LIMIT 1
	`)
	return HandleNotFound(&admin, err)
}

func (r *adminRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM admins`)
	return count, err
}

func (r *adminRepo) List(ctx context.Context) ([]model.AdminListing, error) {
	admins := []model.AdminListing{}
	err := r.db.SelectContext(ctx, &admins, `
		SELECT a.user_id, u.platform_username, u.registered_username, a.added_at
		FROM admins a
		JOIN users u ON u.id = a.user_id
		ORDER BY a.added_at ASC
	`)
	if err != nil {
		return nil, err
	}
	return admins, nil
}

func (r *adminRepo) Add(ctx context.Context, userID string, addedBy *string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admins (user_id, added_by, added_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO NOTHING
	`, userID, addedBy)
	return err
}

func (r *adminRepo) Remove(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM admins WHERE user_id = $1
	`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
