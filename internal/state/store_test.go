package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore_UsesEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(DirEnv, dir)

	store, err := NewStore()
	require.NoError(t, err)
	assert.Equal(t, dir, store.BaseDir())
	assert.Equal(t, filepath.Join(dir, "state.yaml"), store.Path())
}

func TestLoad_MissingFile(t *testing.T) {
	store := NewStoreAt(t.TempDir())
	sess, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Session{}, sess)
	assert.False(t, sess.SignedIn())
}

func TestSignInAndOut(t *testing.T) {
	dir := t.TempDir()
	store := NewStoreAt(dir)

	_, err := store.SetPreferences(Preferences{PrivateByDefault: true})
	require.NoError(t, err)

	sess, err := store.SignIn("tok", "u1")
	require.NoError(t, err)
	assert.True(t, sess.SignedIn())

	// A fresh store sees the persisted session.
	reloaded, err := NewStoreAt(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", reloaded.AccessToken)
	assert.Equal(t, "u1", reloaded.UserID)
	assert.True(t, reloaded.Preferences.PrivateByDefault)

	sess, err = store.SignOut()
	require.NoError(t, err)
	assert.False(t, sess.SignedIn())
	assert.True(t, sess.Preferences.PrivateByDefault, "preferences survive sign out")
}

func TestSignIn_RequiresFields(t *testing.T) {
	store := NewStoreAt(t.TempDir())
	_, err := store.SignIn("", "u1")
	assert.Error(t, err)
	_, err = store.SignIn("tok", "")
	assert.Error(t, err)
}

func TestSetOnboardingComplete(t *testing.T) {
	store := NewStoreAt(t.TempDir())
	sess, err := store.SetOnboardingComplete()
	require.NoError(t, err)
	assert.True(t, sess.OnboardingComplete)

	sess, err = store.Load()
	require.NoError(t, err)
	assert.True(t, sess.OnboardingComplete)
}

func TestLoad_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state.yaml"), []byte("access_token: [unterminated"), 0o600))
	_, err := NewStoreAt(dir).Load()
	assert.Error(t, err)
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStoreAt(dir)
	_, err := store.SignIn("tok", "u1")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.yaml", entries[0].Name())
}
