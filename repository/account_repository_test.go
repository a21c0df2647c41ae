// file: repository/account_repository_test.go

package repository

import (
	"database/sql"
	"regexp"
	"testing"
	"time"
	"vh-recruit-api/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAccountRepository_GetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewAccountRepository(db)

	t.Run("resolves the variant from the row", func(t *testing.T) {
		id := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "email", "name", "role", "password_hash", "created_at"}).
			AddRow(id.String(), "admin@x.com", "Admin", "privileged", "hash", time.Now())

		mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE email = $1`)).
			WithArgs("admin@x.com").
			WillReturnRows(rows)

		account, err := repo.GetByEmail("admin@x.com")
		assert.NoError(t, err)
		assert.Equal(t, id, account.ID)
		assert.Equal(t, model.RolePrivileged, account.Role)
		assert.True(t, account.RequiresStepUp())
	})

	t.Run("unknown email surfaces ErrNoRows", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE email = $1`)).
			WithArgs("ghost@x.com").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByEmail("ghost@x.com")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewAccountRepository(db)
	account := &model.Account{
		ID:           uuid.New(),
		Email:        "new@x.com",
		Name:         "New Person",
		Role:         model.RoleStandard,
		PasswordHash: "hash",
	}
	createdAt := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO accounts`)).
		WithArgs(account.ID, account.Email, account.Name, account.Role, account.PasswordHash).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	assert.NoError(t, repo.Create(account))
	assert.Equal(t, createdAt, account.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
