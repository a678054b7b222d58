package keys

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Secret key errors.
var (
	ErrNoSecret       = errors.New("secret key is empty")
	ErrSecretLength   = errors.New("secret key must be 32 or 64 bytes")
	ErrSecretMismatch = errors.New("secret key public half does not match its seed")
)

// ParseSecret decodes a Solana secret key given either as a JSON byte array
// (the solana-keygen file format, e.g. "[12,34,...]") or as a base58
// string. 32 bytes are treated as an ed25519 seed, 64 bytes as a full
// private key whose trailing public half must match the seed.
func ParseSecret(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrNoSecret
	}

	var raw []byte
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("parse secret key array: %w", err)
		}
		raw = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("secret key byte %d out of range: %d", i, v)
			}
			raw[i] = byte(v)
		}
	} else {
		b, err := base58.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("decode base58 secret key: %w", err)
		}
		raw = b
	}

	switch len(raw) {
	case ed25519.SeedSize:
		return solana.PrivateKey(ed25519.NewKeyFromSeed(raw)), nil
	case ed25519.PrivateKeySize:
		priv := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
		if !bytes.Equal(priv[ed25519.SeedSize:], raw[ed25519.SeedSize:]) {
			return nil, ErrSecretMismatch
		}
		return solana.PrivateKey(priv), nil
	}
	return nil, fmt.Errorf("%w: got %d", ErrSecretLength, len(raw))
}

// SecretBytesJSON renders a private key as a JSON byte array, the format
// solana-keygen writes and SECRET_KEY expects.
func SecretBytesJSON(priv []byte) string {
	ints := make([]int, len(priv))
	for i, b := range priv {
		ints[i] = int(b)
	}
	data, _ := json.Marshal(ints)
	return string(data)
}
