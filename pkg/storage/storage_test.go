package storage

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, expiresAt, err := signer.Generate("rep-1", "attendance/rep-1.csv")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 2*time.Second)

	claims, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "rep-1", claims.ID)
	assert.Equal(t, "attendance/rep-1.csv", claims.Path)
}

func TestSignedURLRejectsExpiredAndForeign(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("rep-1", "a.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = signer.Parse(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	other := NewSignedURLSigner("other", time.Minute)
	_, err = other.Parse(token)
	assert.Error(t, err)
}

func TestLocalStorageSaveReadDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("attendance/r.csv", []byte("x"))
	require.NoError(t, err)
	data, err := store.Read("attendance/r.csv")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)

	require.NoError(t, store.Delete("attendance/r.csv"))
	_, err = store.Read("attendance/r.csv")
	assert.Error(t, err)
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	_, err = store.Save("../escape.csv", []byte("x"))
	assert.Error(t, err)
}

func TestCleanupOlderThan(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	_, err = store.Save("old.csv", []byte("x"))
	require.NoError(t, err)

	deleted, err := store.CleanupOlderThan(-time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.csv"}, deleted)
}
