package auditlog

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fernet/fernet-go"
	"golang.org/x/crypto/sha3"
)

// ErrKeyExists is returned by GenerateKey when the key file already exists
// and overwriting was not requested.
var ErrKeyExists = errors.New("key file already exists")

const keyFileMode = 0o600

// LoadKey reads a base64 Fernet key from path.
func LoadKey(path string) (*fernet.Key, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	key, err := fernet.DecodeKey(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return key, nil
}

// GenerateKey writes a fresh random key to path with mode 0600 and returns
// its fingerprint. An existing file is kept unless force is set, because
// replacing the key makes every earlier entry unreadable.
func GenerateKey(path string, force bool) (string, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return "", ErrKeyExists
	}

	var key fernet.Key
	if err := key.Generate(); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, keyFileMode)
	if errors.Is(err, os.ErrExist) {
		return "", ErrKeyExists
	}
	if err != nil {
		return "", fmt.Errorf("create key file: %w", err)
	}
	if _, err := f.WriteString(key.Encode()); err != nil {
		_ = f.Close() //nolint:errcheck // the write error is reported
		return "", fmt.Errorf("write key file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close key file: %w", err)
	}
	if err := os.Chmod(path, keyFileMode); err != nil {
		return "", fmt.Errorf("chmod key file: %w", err)
	}
	return Fingerprint(&key), nil
}

// Fingerprint identifies a key without revealing it: the first 8 bytes of
// its SHA3-256 digest, hex encoded.
func Fingerprint(key *fernet.Key) string {
	sum := sha3.Sum256(key[:])
	return hex.EncodeToString(sum[:8])
}

// KeyFingerprint loads the key at path and returns its fingerprint.
func KeyFingerprint(path string) (string, error) {
	key, err := LoadKey(path)
	if err != nil {
		return "", err
	}
	return Fingerprint(key), nil
}
