package seed

import (
	"testing"

	"inkwell/internal/models"
	"inkwell/internal/testutil"
	"inkwell/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func count(t *testing.T, s *Seeder, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(model).Count(&n).Error)
	return n
}

func TestRun_CreatesRequestedRows(t *testing.T) {
	s := NewSeeder(testutil.NewSQLiteDB(t))

	res, err := s.Run(t.Context(), Options{Users: 3, Posts: 5, Comments: 12, RandSeed: 42})
	require.NoError(t, err)

	assert.Len(t, res.Users, 3)
	assert.Len(t, res.Posts, 5)
	assert.Equal(t, 12, res.Comments)
	assert.EqualValues(t, 3, count(t, s, &models.User{}))
	assert.EqualValues(t, 5, count(t, s, &models.Post{}))
	assert.EqualValues(t, 12, count(t, s, &models.Comment{}))

	userIDs := map[string]bool{}
	for _, u := range res.Users {
		userIDs[u.ID] = true
		require.NoError(t, validation.ValidateEmail(u.Email))
		require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(DefaultPassword)))
	}
	for _, p := range res.Posts {
		assert.True(t, userIDs[p.UserID])
		_, err := validation.Title(p.Title)
		assert.NoError(t, err)
		_, err = validation.Content(p.Content)
		assert.NoError(t, err)
	}
}

func TestRun_CleanReplacesExistingData(t *testing.T) {
	s := NewSeeder(testutil.NewSQLiteDB(t))

	_, err := s.Run(t.Context(), Options{Users: 2, Posts: 2, Comments: 2, RandSeed: 1})
	require.NoError(t, err)
	_, err = s.Run(t.Context(), Options{Users: 1, Posts: 1, Clean: true, RandSeed: 2})
	require.NoError(t, err)

	assert.EqualValues(t, 1, count(t, s, &models.User{}))
	assert.EqualValues(t, 1, count(t, s, &models.Post{}))
	assert.EqualValues(t, 0, count(t, s, &models.Comment{}))
}

func TestRun_RejectsImpossibleCounts(t *testing.T) {
	s := NewSeeder(testutil.NewSQLiteDB(t))

	tests := []struct {
		name string
		opts Options
	}{
		{"negative", Options{Users: -1}},
		{"posts without users", Options{Posts: 1}},
		{"comments without posts", Options{Users: 1, Comments: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Run(t.Context(), tt.opts)
			assert.Error(t, err)
		})
	}
	assert.EqualValues(t, 0, count(t, s, &models.User{}))
}
