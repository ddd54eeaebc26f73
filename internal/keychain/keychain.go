// Package keychain keeps the saved chq connection string in the OS credential
// store, so passwords do not have to live in shell history or the
// environment.
package keychain

import (
	"errors"

	"github.com/99designs/keyring"
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "chq"

const keyDSN = "dsn"

var ErrNoDSN = errors.New("no saved connection string")

// Store reads and writes the saved connection string.
type Store struct {
	ring keyring.Keyring
}

// Open opens the native credential store. There is no file fallback.
func Open() (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: ServiceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.WinCredBackend,
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.PassBackend,
		},
		KeychainTrustApplication: true,
		PassPrefix:               ServiceName,
		WinCredPrefix:            ServiceName,
	})

	if err != nil {
		return nil, err
	}

	return New(ring), nil
}

func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

func (s *Store) SaveDSN(dsn string) error {
	return s.ring.Set(keyring.Item{
		Key:   keyDSN,
		Data:  []byte(dsn),
		Label: "chq connection string",
	})
}

func (s *Store) LoadDSN() (string, error) {
	item, err := s.ring.Get(keyDSN)

	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNoDSN
	}

	if err != nil {
		return "", err
	}

	if len(item.Data) == 0 {
		return "", ErrNoDSN
	}

	return string(item.Data), nil
}

// ClearDSN removes the saved connection string. Removing nothing is not an
// error.
func (s *Store) ClearDSN() error {
	err := s.ring.Remove(keyDSN)

	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}

	return err
}
