package tokenstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, s Store) {
	t.Helper()

	// Missing key
	_, err := s.Get(KeyAccessToken)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Set and get
	require.NoError(t, s.Set(KeyAccessToken, "tok-1"))
	v, err := s.Get(KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", v)

	// Overwrite replaces the previous value
	require.NoError(t, s.Set(KeyAccessToken, "tok-2"))
	v, err = s.Get(KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", v)

	// Delete
	require.NoError(t, s.Delete(KeyAccessToken))
	_, err = s.Get(KeyAccessToken)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Deleting an absent key is not an error
	require.NoError(t, s.Delete(KeyAccessToken))

	// Expired entries count as absent
	require.NoError(t, s.SetExpiring(KeyCodeVerifier, "verifier", -time.Second))
	_, err = s.Get(KeyCodeVerifier)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Unexpired entries are readable
	require.NoError(t, s.SetExpiring(KeyCodeVerifier, "verifier", 10*time.Minute))
	v, err = s.Get(KeyCodeVerifier)
	require.NoError(t, err)
	assert.Equal(t, "verifier", v)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemory())
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(t.TempDir() + "/auth.db")
	require.NoError(t, err)
	defer s.Close()

	testStore(t, s)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := t.TempDir() + "/auth.db"

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(KeyIDToken, "id-tok"))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.Get(KeyIDToken)
	require.NoError(t, err)
	assert.Equal(t, "id-tok", v)
}

func TestSQLiteStore_CleanupExpired(t *testing.T) {
	s, err := OpenSQLite(t.TempDir() + "/auth.db")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetExpiring(KeyCodeVerifier, "stale", -time.Minute))
	require.NoError(t, s.Set(KeyIDToken, "keep"))
	require.NoError(t, s.CleanupExpired())

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM auth_state").Scan(&count))
	assert.Equal(t, 1, count)
}
