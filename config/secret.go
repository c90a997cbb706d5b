package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"
)

const KeyringService = "improve"

var ErrNoSecret = errors.New("secret not found")

// Secrets looks up API keys in the environment and then the system keyring.
type Secrets struct {
	Open func() (keyring.Keyring, error)
}

func DefaultSecrets() Secrets {
	return Secrets{Open: openKeyring}
}

func openKeyring() (keyring.Keyring, error) {
	return keyring.Open(keyring.Config{
		ServiceName: KeyringService,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
		},
		LibSecretCollectionName:  "login",
		WinCredPrefix:            KeyringService,
		KeychainTrustApplication: true,
	})
}

// Get returns the value of env if set, otherwise the keyring item named env.
func (s Secrets) Get(env string) (string, error) {
	if v := os.Getenv(env); v != "" {
		return v, nil
	}
	if s.Open == nil {
		return "", fmt.Errorf("%w: %s", ErrNoSecret, env)
	}
	kr, err := s.Open()
	if err != nil {
		return "", fmt.Errorf("opening keyring: %w", err)
	}
	item, err := kr.Get(env)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: set %s or store it in the %q keyring", ErrNoSecret, env, KeyringService)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s from keyring: %w", env, err)
	}
	return string(item.Data), nil
}

// Set stores value in the keyring under name.
func (s Secrets) Set(name, value string) error {
	kr, err := s.Open()
	if err != nil {
		return fmt.Errorf("opening keyring: %w", err)
	}
	return kr.Set(keyring.Item{
		Key:         name,
		Data:        []byte(value),
		Label:       fmt.Sprintf("%s for %s", name, KeyringService),
		Description: "API key used by improve",
	})
}
