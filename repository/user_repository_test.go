package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"storefront-service/models"
	"storefront-service/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var userColumns = []string{"id", "email", "password_hash", "name", "session_credential", "created_at", "updated_at"}

func TestUserRepository_Create_LowercasesEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := repository.NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user := &models.User{ID: uuid.New(), Email: "Ada@Example.COM", PasswordHash: "hash", Name: "Ada"}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := repository.NewUserRepository(db)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1`)).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(id.String(), "ada@example.com", "hash", "Ada", "", now, now))

	user, err := repo.FindByEmail(context.Background(), "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, id.String(), user.ToIdentity().ID)
}

func TestUserRepository_FindByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := repository.NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
		WillReturnRows(sqlmock.NewRows(userColumns))

	user, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Nil(t, user)
}

func TestProfileRepository(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := repository.NewProfileRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "profiles"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, repo.UpsertProfile(context.Background(), &models.Profile{ID: userID, Name: "Ada", Email: "ada@example.com"}))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "profiles"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "session_credential", "created_at", "updated_at"}))
	profile, err := repo.FetchProfile(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, profile)
	assert.NoError(t, mock.ExpectationsWereMet())
}
