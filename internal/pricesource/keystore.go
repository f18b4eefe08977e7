package pricesource

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fernet/fernet-go"
)

// KeyStore persists provider API keys encrypted at rest with a fernet key.
// Keys never appear in the ledger database or in logs.
type KeyStore struct {
	path   string
	secret *fernet.Key
}

// NewKeyStore creates a key store backed by the file at path, encrypted
// with the given base64-encoded fernet secret.
func NewKeyStore(path, secret string) (*KeyStore, error) {
	key, err := fernet.DecodeKey(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to decode keystore secret: %w", err)
	}
	return &KeyStore{path: path, secret: key}, nil
}

// GenerateSecret returns a fresh base64-encoded fernet key, for first-time
// setup.
func GenerateSecret() (string, error) {
	var key fernet.Key
	if err := key.Generate(); err != nil {
		return "", fmt.Errorf("failed to generate keystore secret: %w", err)
	}
	return key.Encode(), nil
}

// Load decrypts and returns all stored API keys, keyed by provider name.
// A missing file is not an error; it yields an empty map.
func (s *KeyStore) Load() (map[string]string, error) {
	token, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}

	plaintext := fernet.VerifyAndDecrypt(token, 0, []*fernet.Key{s.secret})
	if plaintext == nil {
		return nil, fmt.Errorf("failed to decrypt keystore %s", s.path)
	}

	keys := map[string]string{}
	if err := json.Unmarshal(plaintext, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse keystore: %w", err)
	}
	return keys, nil
}

// Save encrypts and persists the given API keys, replacing the stored set.
func (s *KeyStore) Save(keys map[string]string) error {
	plaintext, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("failed to encode keystore: %w", err)
	}

	token, err := fernet.EncryptAndSign(plaintext, s.secret)
	if err != nil {
		return fmt.Errorf("failed to encrypt keystore: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create keystore directory: %w", err)
	}
	if err := os.WriteFile(s.path, token, 0o600); err != nil {
		return fmt.Errorf("failed to write keystore: %w", err)
	}
	return nil
}

// Get returns the API key for provider, or empty string when unset.
func (s *KeyStore) Get(provider string) (string, error) {
	keys, err := s.Load()
	if err != nil {
		return "", err
	}
	return keys[provider], nil
}

// Set stores or replaces the API key for provider.
func (s *KeyStore) Set(provider, apiKey string) error {
	keys, err := s.Load()
	if err != nil {
		return err
	}
	keys[provider] = apiKey
	return s.Save(keys)
}
