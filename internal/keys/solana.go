package keys

import (
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
)

// base58Alphabet is the address alphabet: no 0, O, I or l.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// Solana generates ed25519 keypairs with base58 addresses.
type Solana struct{}

func (Solana) Chain() string { return ChainSolana }

// Generate returns a new keypair. Secret is the base58 encoding of the
// 64 byte private key, the form wallets import.
func (Solana) Generate() (Keypair, error) {
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{
		Address:    priv.PublicKey().String(),
		Secret:     priv.String(),
		PrivateKey: priv,
	}, nil
}

func (Solana) Trim(address string) string { return address }

func (Solana) Validate(pattern string, caseSensitive bool) error {
	for i := 0; i < len(pattern); i++ {
		if base58Matches(pattern[i], caseSensitive) == 0 {
			if caseSensitive {
				return fmt.Errorf("invalid character %q (base58 has no 0, O, I or l)", pattern[i])
			}
			return fmt.Errorf("invalid character %q (base58 has no 0)", pattern[i])
		}
	}
	return nil
}

// Difficulty treats every address position as uniform over the alphabet.
// The leading character of a 44 character address is skewed towards the
// low end of the alphabet, so this is an estimate, not an exact figure.
func (Solana) Difficulty(prefix, suffix string, caseSensitive bool) *big.Int {
	pattern := prefix + suffix
	if pattern == "" {
		return nil
	}
	p := big.NewRat(1, 1)
	for i := 0; i < len(pattern); i++ {
		k := base58Matches(pattern[i], caseSensitive)
		if k == 0 {
			return nil
		}
		p.Mul(p, big.NewRat(int64(k), int64(len(base58Alphabet))))
	}
	return expectedAttempts(p)
}

// base58Matches returns how many alphabet characters match c.
func base58Matches(c byte, caseSensitive bool) int {
	n := 0
	for i := 0; i < len(base58Alphabet); i++ {
		a := base58Alphabet[i]
		if caseSensitive {
			if a == c {
				n++
			}
			continue
		}
		if lower(a) == lower(c) {
			n++
		}
	}
	return n
}
