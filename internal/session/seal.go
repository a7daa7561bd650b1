package session

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// sealKey retrieves the token sealing key from the settings table.
// If no key exists, it generates one, stores it, and returns it.
// Uses INSERT OR IGNORE + re-SELECT to avoid TOCTOU race on concurrent use.
func sealKey(ctx context.Context, db *sql.DB) ([]byte, error) {
	buf := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generating seal key: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('seal_key', ?)`,
		candidate,
	)
	if err != nil {
		return nil, fmt.Errorf("storing seal key: %w", err)
	}

	// Always read back (either our insert or the existing value).
	var stored string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'seal_key'`,
	).Scan(&stored)
	if err != nil {
		return nil, fmt.Errorf("querying seal key: %w", err)
	}

	key, err := hex.DecodeString(stored)
	if err != nil || len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("stored seal key is corrupt")
	}
	return key, nil
}

// seal encrypts plaintext with XChaCha20-Poly1305, prefixing the nonce.
func seal(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// open decrypts data produced by seal.
func open(key, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("sealed data too short")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]

	return aead.Open(nil, nonce, ciphertext, nil)
}
