package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
)

var ErrAccountAlreadyExists = errors.New("account already exists")

const accountColumns = `a.id, a.email, a.name, a.phone, a.password_hash, a.created_at, a.updated_at`

type AccountRepository struct {
	db DBTX
}

func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *entity.Account) error {
	query := `
		INSERT INTO accounts (email, name, phone, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		strings.ToLower(strings.TrimSpace(account.Email)),
		account.Name,
		account.Phone,
		account.PasswordHash,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrAccountAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	account.ID = uint64(id)
	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id uint64) (*entity.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.id = ?`
	return r.findOne(ctx, query, id)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.email = ? LIMIT 1`
	return r.findOne(ctx, query, strings.ToLower(strings.TrimSpace(email)))
}

// FindBySessionToken resolves an unexpired cookie session to its account.
func (r *AccountRepository) FindBySessionToken(ctx context.Context, token string, now time.Time) (*entity.Account, error) {
	query := `SELECT ` + accountColumns + `
		FROM sessions s
		INNER JOIN accounts a ON a.id = s.account_id
		WHERE s.token = ? AND s.expires_at > ?
		LIMIT 1
	`
	return r.findOne(ctx, query, token, now)
}

func (r *AccountRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Account, error) {
	account := &entity.Account{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&account.ID,
		&account.Email,
		&account.Name,
		&account.Phone,
		&account.PasswordHash,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}
