package repo

import (
	"testing"

	accountrepo "github.com/kstolbov/pointsledger/internal/repo/account-repo"
	entryrepo "github.com/kstolbov/pointsledger/internal/repo/entry-repo"
	userrepo "github.com/kstolbov/pointsledger/internal/repo/user-repo"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
)

func NewMock(t *testing.T) (*Repositories, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	repo := New(mockDB)
	defer mockDB.Close()

	return repo, mockDB
}

func TestNew(t *testing.T) {
	repo, mock := NewMock(t)

	assert.NotNil(t, repo.UserRepo)
	assert.NotNil(t, repo.AccountRepo)
	assert.NotNil(t, repo.EntryRepo)
	assert.NotNil(t, repo.ProfileRepo)

	assert.IsType(t, &userrepo.Repository{}, repo.UserRepo)
	assert.IsType(t, &accountrepo.Repository{}, repo.AccountRepo)
	assert.IsType(t, &entryrepo.Repository{}, repo.EntryRepo)
	assert.IsType(t, &userrepo.Repository{}, repo.ProfileRepo)

	// The same repository backs identity lookups and profile reads.
	assert.Same(t, repo.UserRepo, repo.ProfileRepo)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unmet expectations: %v", err)
	}
}
