package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	sekura "github.com/sekurapp/go-sekura"
	"golang.org/x/crypto/chacha20poly1305"
)

var _ sekura.CredentialStore = (*SecureFile)(nil)

// SecureFile is a CredentialStore that keeps all values in one JSON file,
// each value sealed with XChaCha20-Poly1305 under a caller-provided key.
// The key comes from the platform keychain; the file itself can sit on
// ordinary app storage. Writes go through a temp file and rename so a crash
// never leaves a torn credential behind.
type SecureFile struct {
	path string
	key  []byte
	mu   sync.Mutex
}

// NewSecureFile opens (or will create on first write) the store at path.
// key must be chacha20poly1305.KeySize (32) bytes.
func NewSecureFile(path string, key []byte) (*SecureFile, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, goerrors.New("encryption key must be 32 bytes", goerrors.CategoryBadInput)
	}
	return &SecureFile{path: path, key: key}, nil
}

func (s *SecureFile) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", err
	}
	sealed, ok := values[key]
	if !ok {
		return "", sekura.ErrCredentialNotFound
	}
	return s.open(sealed)
}

func (s *SecureFile) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	sealed, err := s.seal(value)
	if err != nil {
		return err
	}
	values[key] = sealed
	return s.flush(values)
}

func (s *SecureFile) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.flush(values)
}

func (s *SecureFile) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "credential file read failed")
	}
	values := map[string]string{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "credential file is corrupt")
	}
	return values, nil
}

func (s *SecureFile) flush(values map[string]string) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "credential encode failed")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "credential file write failed")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return goerrors.Wrap(err, goerrors.CategoryInternal, "credential file write failed")
	}
	if err := tmp.Close(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "credential file write failed")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "credential file write failed")
	}
	return nil
}

// seal encrypts value with a fresh random nonce prepended to the ciphertext.
func (s *SecureFile) seal(value string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "cipher init failed")
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "nonce generation failed")
	}
	sealed := aead.Seal(nonce, nonce, []byte(value), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *SecureFile) open(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "credential value is corrupt")
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "cipher init failed")
	}
	if len(sealed) < aead.NonceSize() {
		return "", goerrors.New("credential value is corrupt", goerrors.CategoryInternal)
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "credential decryption failed")
	}
	return string(plain), nil
}
