package repository

import (
	"database/sql"
	"vh-recruit-api/model"

	"github.com/google/uuid"
)

// IAccountRepository defines the contract for account storage. Both account
// classes live in one table with a role column, so the variant is resolved
// by the row itself, never by which query happened to answer.
type IAccountRepository interface {
	Create(account *model.Account) error
	GetByEmail(email string) (*model.Account, error)
	GetByID(id uuid.UUID) (*model.Account, error)
}

type AccountRepository struct {
	DB *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{DB: db}
}

func (r *AccountRepository) Create(account *model.Account) error {
	query := `INSERT INTO accounts (id, email, name, role, password_hash) VALUES ($1, $2, $3, $4, $5) RETURNING created_at`
	return r.DB.QueryRow(query, account.ID, account.Email, account.Name, account.Role, account.PasswordHash).
		Scan(&account.CreatedAt)
}

func (r *AccountRepository) GetByEmail(email string) (*model.Account, error) {
	account := &model.Account{}
	query := `SELECT id, email, name, role, password_hash, created_at FROM accounts WHERE email = $1`
	err := r.DB.QueryRow(query, email).
		Scan(&account.ID, &account.Email, &account.Name, &account.Role, &account.PasswordHash, &account.CreatedAt)
	if err != nil {
		return nil, err // sql.ErrNoRows when the email is unknown
	}
	return account, nil
}

func (r *AccountRepository) GetByID(id uuid.UUID) (*model.Account, error) {
	account := &model.Account{}
	query := `SELECT id, email, name, role, password_hash, created_at FROM accounts WHERE id = $1`
	err := r.DB.QueryRow(query, id).
		Scan(&account.ID, &account.Email, &account.Name, &account.Role, &account.PasswordHash, &account.CreatedAt)
	if err != nil {
		return nil, err
	}
	return account, nil
}
