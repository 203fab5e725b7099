package auth

import (
	"errors"
	"os"
)

// EnvironmentStore implements CredentialStore using environment variables.
// It is read-only and exists for scripted runs.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (s *EnvironmentStore) Store(account *Account) error {
	return errors.New("environment store is read-only")
}

// Retrieve gets credentials from KLASSDUMP_PHONE / KLASSDUMP_PASSWORD.
// An empty phone matches whatever the environment provides.
func (s *EnvironmentStore) Retrieve(phone string) (*Account, error) {
	envPhone := os.Getenv("KLASSDUMP_PHONE")
	envPassword := os.Getenv("KLASSDUMP_PASSWORD")

	if envPhone == "" || envPassword == "" {
		return nil, ErrCredentialsNotFound
	}
	if phone != "" && phone != envPhone {
		return nil, ErrCredentialsNotFound
	}

	return &Account{
		Phone:    envPhone,
		Password: envPassword,
	}, nil
}

// Delete is not supported for environment variables
func (s *EnvironmentStore) Delete(phone string) error {
	return errors.New("environment store is read-only")
}

// Exists checks if credentials exist in the environment
func (s *EnvironmentStore) Exists(phone string) bool {
	account, err := s.Retrieve(phone)
	return err == nil && account != nil
}
