package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrCredentialsNotFound indicates no stored credentials for the account
	ErrCredentialsNotFound = errors.New("credentials not found")

	// ErrInvalidCredentials indicates malformed credentials
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Account represents a Klassroom account's credentials
type Account struct {
	Phone        string    `json:"phone"`
	Password     string    `json:"password"`
	Label        string    `json:"label,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves credentials for a given account
	Store(account *Account) error

	// Retrieve gets credentials for a specific phone number
	Retrieve(phone string) (*Account, error)

	// Delete removes credentials for a specific phone number
	Delete(phone string) error

	// Exists checks if credentials exist for a phone number
	Exists(phone string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a new credential manager with appropriate storage backends
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	// Try keyring first (system keychain)
	keyringStore, err := NewKeyringStore()
	if err == nil {
		stores = append(stores, keyringStore)
	}

	// Always add encrypted file store as fallback
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	// Add environment store as last resort
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store saves credentials using the first available store
func (m *Manager) Store(account *Account) error {
	if account.Phone == "" {
		return errors.New("phone number is required")
	}
	if account.Password == "" {
		return errors.New("password is required")
	}

	account.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(account); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(phone string) (*Account, error) {
	for _, store := range m.stores {
		if account, err := store.Retrieve(phone); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("credentials not found for phone: %s", phone)
}

// RetrieveDefault gets credentials from the environment, falling back to the
// single stored account in the encrypted store.
func (m *Manager) RetrieveDefault() (*Account, error) {
	for _, store := range m.stores {
		if envStore, ok := store.(*EnvironmentStore); ok {
			if account, err := envStore.Retrieve(""); err == nil && account != nil {
				return account, nil
			}
		}
	}
	for _, store := range m.stores {
		if fileStore, ok := store.(*EncryptedFileStore); ok {
			if account, err := fileStore.RetrieveAny(); err == nil && account != nil {
				return account, nil
			}
		}
	}
	return nil, ErrCredentialsNotFound
}

// Delete removes credentials from every store that has them
func (m *Manager) Delete(phone string) error {
	var deleted bool
	for _, store := range m.stores {
		if store.Exists(phone) {
			if err := store.Delete(phone); err == nil {
				deleted = true
			}
		}
	}
	if !deleted {
		return ErrCredentialsNotFound
	}
	return nil
}

// getConfigDir returns the directory used for on-disk credential storage
func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "klassdump"), nil
}
