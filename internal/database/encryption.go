package database

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	encryptionSecretEnv = "RELAYHUB_ENCRYPTION_SECRET"
	encryptionSaltEnv   = "RELAYHUB_ENCRYPTION_SALT"

	defaultEncryptionSalt = "relayhub-user-fields-v1"
	keyDerivationIters    = 100000
	nonceSize             = 12

	// encryptedPrefix marks stored ciphertext so plaintext rows written
	// before encryption was enabled still decode.
	encryptedPrefix = "enc1:"
)

// encryptor provides optional at-rest encryption for user display fields.
// When RELAYHUB_ENCRYPTION_SECRET is unset all operations pass values
// through untouched.
type encryptor struct {
	gcm cipher.AEAD
}

func NewEncryptor() (*encryptor, error) {
	secret := os.Getenv(encryptionSecretEnv)
	if secret == "" {
		return &encryptor{gcm: nil}, nil
	}

	salt := os.Getenv(encryptionSaltEnv)
	if salt == "" {
		salt = defaultEncryptionSalt
	}

	key := pbkdf2.Key([]byte(secret), []byte(salt), keyDerivationIters, 32, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &encryptor{gcm: gcm}, nil
}

func (e *encryptor) EncryptIfEnabled(plaintext string) (string, error) {
	if plaintext == "" || e.gcm == nil {
		return plaintext, nil
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := e.gcm.Seal(nil, nonce, []byte(plaintext), nil)
	result := append(nonce, ciphertext...)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(result), nil
}

func (e *encryptor) DecryptIfEnabled(stored string) (string, error) {
	if !strings.HasPrefix(stored, encryptedPrefix) {
		return stored, nil
	}
	if e.gcm == nil {
		return "", fmt.Errorf("encrypted value found but %s is not set", encryptionSecretEnv)
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, encryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	plaintext, err := e.gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt value: %w", err)
	}
	return string(plaintext), nil
}
