package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfield/identity/internal/apperrors"
	"github.com/openfield/identity/internal/testutil"
)

func Test_FavoriteRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("add favorite", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			r := FavoriteRepo{DB: tx}
			user := createTestUser(t, &users, "fav@example.com")

			fav, err := r.Add(t.Context(), user.ID, 42)

			require.NoError(t, err)
			assert.NotZero(t, fav.ID)
			assert.Equal(t, user.ID, fav.UserID)
			assert.EqualValues(t, 42, fav.FieldID)
			assert.WithinDuration(t, time.Now(), fav.CreatedAt, time.Second)
		})
	})

	t.Run("add same field twice", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			r := FavoriteRepo{DB: tx}
			user := createTestUser(t, &users, "favtwice@example.com")

			_, err := r.Add(t.Context(), user.ID, 7)
			require.NoError(t, err)

			_, err = r.Add(t.Context(), user.ID, 7)

			assert.ErrorIs(t, err, apperrors.ErrFavoriteExists)
		})
	})

	t.Run("same field for different users", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			r := FavoriteRepo{DB: tx}
			first := createTestUser(t, &users, "favfirst@example.com")
			second := createTestUser(t, &users, "favsecond@example.com")

			_, err := r.Add(t.Context(), first.ID, 7)
			require.NoError(t, err)

			_, err = r.Add(t.Context(), second.ID, 7)
			assert.NoError(t, err, "uniqueness is per user")
		})
	})

	t.Run("remove favorite", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			r := FavoriteRepo{DB: tx}
			user := createTestUser(t, &users, "favremove@example.com")

			_, err := r.Add(t.Context(), user.ID, 9)
			require.NoError(t, err)

			require.NoError(t, r.Remove(t.Context(), user.ID, 9))

			list, err := r.ListByUser(t.Context(), user.ID)
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	})

	t.Run("remove missing favorite", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			r := FavoriteRepo{DB: tx}
			user := createTestUser(t, &users, "favmissing@example.com")

			err := r.Remove(t.Context(), user.ID, 12345)

			assert.ErrorIs(t, err, apperrors.ErrFavoriteNotFound)
		})
	})

	t.Run("list own favorites only", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			r := FavoriteRepo{DB: tx}
			user := createTestUser(t, &users, "favlist@example.com")
			other := createTestUser(t, &users, "favother@example.com")

			_, err := r.Add(t.Context(), user.ID, 1)
			require.NoError(t, err)
			_, err = r.Add(t.Context(), user.ID, 2)
			require.NoError(t, err)
			_, err = r.Add(t.Context(), other.ID, 3)
			require.NoError(t, err)

			list, err := r.ListByUser(t.Context(), user.ID)

			require.NoError(t, err)
			require.Len(t, list, 2)
		})
	})
}
