// Package secrets keeps upstream credentials in a per-user file (0600),
// sealed with AES-GCM so they never sit in the config in plain text.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const fileName = "credentials.json"

// ErrNotFound is returned by Get for an unknown name.
var ErrNotFound = errors.New("credential not found")

type credentialFile struct {
	Credentials map[string]string `json:"credentials"` // name -> base64(nonce|ciphertext)
}

// Store reads and writes sealed credentials below Dir.
type Store struct {
	Dir        string
	Passphrase string
}

// DefaultStore uses the user config dir. The passphrase comes from
// VERMIETER_SECRETS_KEY and falls back to a per-user derivation.
func DefaultStore() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	pass := os.Getenv("VERMIETER_SECRETS_KEY")
	if pass == "" {
		pass = "vermieter-" + os.Getenv("USER")
	}
	return &Store{Dir: filepath.Join(dir, "vermieter"), Passphrase: pass}, nil
}

func (s *Store) Put(name, value string) error {
	if name = norm(name); name == "" {
		return fmt.Errorf("credential name required")
	}
	cf, err := s.load()
	if err != nil {
		return err
	}
	sealed, err := s.seal([]byte(value))
	if err != nil {
		return err
	}
	cf.Credentials[name] = base64.StdEncoding.EncodeToString(sealed)
	return s.save(cf)
}

func (s *Store) Get(name string) (string, error) {
	cf, err := s.load()
	if err != nil {
		return "", err
	}
	enc, ok := cf.Credentials[norm(name)]
	if !ok {
		return "", ErrNotFound
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", fmt.Errorf("decode credential %s: %w", name, err)
	}
	plain, err := s.open(raw)
	if err != nil {
		return "", fmt.Errorf("open credential %s: %w", name, err)
	}
	return string(plain), nil
}

func (s *Store) Delete(name string) error {
	cf, err := s.load()
	if err != nil {
		return err
	}
	delete(cf.Credentials, norm(name))
	return s.save(cf)
}

func (s *Store) path() string { return filepath.Join(s.Dir, fileName) }

func (s *Store) load() (credentialFile, error) {
	cf := credentialFile{Credentials: map[string]string{}}
	data, err := os.ReadFile(s.path())
	if errors.Is(err, os.ErrNotExist) {
		return cf, nil
	}
	if err != nil {
		return cf, err
	}
	if err := json.Unmarshal(data, &cf); err != nil {
		return cf, fmt.Errorf("parse %s: %w", s.path(), err)
	}
	if cf.Credentials == nil {
		cf.Credentials = map[string]string{}
	}
	return cf, nil
}

func (s *Store) save(cf credentialFile) error {
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path())
}

func (s *Store) aead() (cipher.AEAD, error) {
	key := sha256.Sum256([]byte(s.Passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (s *Store) seal(plain []byte) ([]byte, error) {
	gcm, err := s.aead()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func (s *Store) open(sealed []byte) ([]byte, error) {
	gcm, err := s.aead()
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, body := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func norm(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}
