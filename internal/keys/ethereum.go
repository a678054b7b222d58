package keys

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Ethereum generates secp256k1 keypairs with EIP-55 checksummed addresses.
type Ethereum struct{}

func (Ethereum) Chain() string { return ChainEthereum }

func (Ethereum) Generate() (Keypair, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return Keypair{}, err
	}
	raw := crypto.FromECDSA(key)
	return Keypair{
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		Secret:     hex.EncodeToString(raw),
		PrivateKey: raw,
	}, nil
}

// Trim strips the 0x lead so patterns apply to the hex body.
func (Ethereum) Trim(address string) string {
	if len(address) >= 2 && address[0] == '0' && (address[1] == 'x' || address[1] == 'X') {
		return address[2:]
	}
	return address
}

func (e Ethereum) Validate(pattern string, caseSensitive bool) error {
	p := e.Trim(pattern)
	for i := 0; i < len(p); i++ {
		if !isHex(p[i]) {
			return fmt.Errorf("invalid character %q (allowed: 0-9, a-f, optional 0x prefix)", p[i])
		}
	}
	return nil
}

// Difficulty is 16 per hex digit, doubled for every letter when the
// checksum casing has to match as well.
func (e Ethereum) Difficulty(prefix, suffix string, caseSensitive bool) *big.Int {
	pattern := e.Trim(prefix) + suffix
	if pattern == "" {
		return nil
	}
	if !caseSensitive {
		pattern = strings.ToLower(pattern)
	}
	return patternDenominator(len(pattern), countHexLetters(pattern), caseSensitive)
}

func patternDenominator(hexLen, letters int, caseSensitive bool) *big.Int {
	den := new(big.Int).Exp(big.NewInt(16), big.NewInt(int64(hexLen)), nil)
	if caseSensitive && letters > 0 {
		den.Mul(den, new(big.Int).Exp(big.NewInt(2), big.NewInt(int64(letters)), nil))
	}
	return den
}

func countHexLetters(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if c := lower(s[i]); c >= 'a' && c <= 'f' {
			n++
		}
	}
	return n
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
