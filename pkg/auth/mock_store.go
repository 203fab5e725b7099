package auth

import "sync"

// MockStore is an in-memory CredentialStore for tests
type MockStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account

	// Optional error injection
	StoreErr    error
	RetrieveErr error
	DeleteErr   error
}

// NewMockStore creates an empty in-memory credential store
func NewMockStore() *MockStore {
	return &MockStore{
		accounts: make(map[string]*Account),
	}
}

func (m *MockStore) Store(account *Account) error {
	if m.StoreErr != nil {
		return m.StoreErr
	}
	if account == nil || account.Phone == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *account
	m.accounts[account.Phone] = &copied
	return nil
}

func (m *MockStore) Retrieve(phone string) (*Account, error) {
	if m.RetrieveErr != nil {
		return nil, m.RetrieveErr
	}
	if phone == "" {
		return nil, ErrInvalidCredentials
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	account, exists := m.accounts[phone]
	if !exists {
		return nil, ErrCredentialsNotFound
	}
	copied := *account
	return &copied, nil
}

func (m *MockStore) Delete(phone string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[phone]; !exists {
		return ErrCredentialsNotFound
	}
	delete(m.accounts, phone)
	return nil
}

func (m *MockStore) Exists(phone string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.accounts[phone]
	return exists
}
