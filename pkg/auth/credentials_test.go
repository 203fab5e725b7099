package auth

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore(t *testing.T) {
	store := NewMockStore()

	account := &Account{Phone: "+33600000000", Password: "secret"}
	require.NoError(t, store.Store(account))
	assert.True(t, store.Exists("+33600000000"))

	got, err := store.Retrieve("+33600000000")
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Password)

	// The store hands out copies
	got.Password = "changed"
	again, err := store.Retrieve("+33600000000")
	require.NoError(t, err)
	assert.Equal(t, "secret", again.Password)

	require.NoError(t, store.Delete("+33600000000"))
	assert.False(t, store.Exists("+33600000000"))

	_, err = store.Retrieve("+33600000000")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestMockStoreValidation(t *testing.T) {
	store := NewMockStore()
	assert.ErrorIs(t, store.Store(&Account{Password: "x"}), ErrInvalidCredentials)

	_, err := store.Retrieve("")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv("KLASSDUMP_PASSPHRASE", "test-passphrase")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	account := &Account{Phone: "+33600000000", Password: "secret", Label: "parent"}
	require.NoError(t, store.Store(account))

	// A fresh store with the same passphrase reads the file back
	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	got, err := reopened.Retrieve("+33600000000")
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Password)
	assert.Equal(t, "parent", got.Label)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv("KLASSDUMP_PASSPHRASE", "right")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Account{Phone: "+33600000000", Password: "secret"}))

	t.Setenv("KLASSDUMP_PASSPHRASE", "wrong")
	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	_, err = reopened.Retrieve("+33600000000")
	assert.Error(t, err)
}

func TestEncryptedFileStoreRetrieveAny(t *testing.T) {
	t.Setenv("KLASSDUMP_PASSPHRASE", "test-passphrase")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	// No file yet
	_, err = store.RetrieveAny()
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	require.NoError(t, store.Store(&Account{Phone: "+33600000000", Password: "one"}))
	got, err := store.RetrieveAny()
	require.NoError(t, err)
	assert.Equal(t, "+33600000000", got.Phone)

	// Ambiguous once a second account is stored
	require.NoError(t, store.Store(&Account{Phone: "+33700000000", Password: "two"}))
	_, err = store.RetrieveAny()
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileStoreDelete(t *testing.T) {
	t.Setenv("KLASSDUMP_PASSPHRASE", "test-passphrase")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Store(&Account{Phone: "+33600000000", Password: "secret"}))
	require.NoError(t, store.Delete("+33600000000"))
	assert.False(t, store.Exists("+33600000000"))

	assert.ErrorIs(t, store.Delete("+33600000000"), ErrCredentialsNotFound)
}

func TestEncryptedFileStoreGeneratedKeyFile(t *testing.T) {
	t.Setenv("KLASSDUMP_PASSPHRASE", "")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Account{Phone: "+33600000000", Password: "secret"}))

	// The generated key file lets a fresh store decrypt
	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	got, err := reopened.Retrieve("+33600000000")
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Password)
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Run("missing variables", func(t *testing.T) {
		t.Setenv("KLASSDUMP_PHONE", "")
		t.Setenv("KLASSDUMP_PASSWORD", "")
		_, err := store.Retrieve("+33600000000")
		assert.ErrorIs(t, err, ErrCredentialsNotFound)
	})

	t.Run("set variables", func(t *testing.T) {
		t.Setenv("KLASSDUMP_PHONE", "+33600000000")
		t.Setenv("KLASSDUMP_PASSWORD", "secret")

		got, err := store.Retrieve("")
		require.NoError(t, err)
		assert.Equal(t, "+33600000000", got.Phone)
		assert.Equal(t, "secret", got.Password)

		_, err = store.Retrieve("+33700000000")
		assert.ErrorIs(t, err, ErrCredentialsNotFound)
	})

	t.Run("read only", func(t *testing.T) {
		assert.Error(t, store.Store(&Account{Phone: "x", Password: "y"}))
		assert.Error(t, store.Delete("x"))
	})
}

func TestManagerFallback(t *testing.T) {
	failing := NewMockStore()
	failing.StoreErr = assert.AnError
	failing.RetrieveErr = assert.AnError
	working := NewMockStore()

	manager := &Manager{stores: []CredentialStore{failing, working}}

	account := &Account{Phone: "+33600000000", Password: "secret"}
	require.NoError(t, manager.Store(account))
	assert.False(t, account.LastModified.IsZero())

	got, err := manager.Retrieve("+33600000000")
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Password)
}

func TestManagerValidation(t *testing.T) {
	manager := &Manager{stores: []CredentialStore{NewMockStore()}}
	assert.Error(t, manager.Store(&Account{Password: "x"}))
	assert.Error(t, manager.Store(&Account{Phone: "+33600000000"}))
}

func TestManagerRetrieveDefault(t *testing.T) {
	t.Setenv("KLASSDUMP_PASSPHRASE", "test-passphrase")
	t.Setenv("KLASSDUMP_PHONE", "")
	t.Setenv("KLASSDUMP_PASSWORD", "")

	fileStore, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "credentials.enc"))
	require.NoError(t, err)
	manager := &Manager{stores: []CredentialStore{fileStore, NewEnvironmentStore()}}

	_, err = manager.RetrieveDefault()
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	require.NoError(t, fileStore.Store(&Account{Phone: "+33600000000", Password: "stored"}))
	got, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "stored", got.Password)

	// Environment beats the file store
	t.Setenv("KLASSDUMP_PHONE", "+33700000000")
	t.Setenv("KLASSDUMP_PASSWORD", "env")
	got, err = manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "env", got.Password)
}
