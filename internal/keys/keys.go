// Package keys supplies the keypair sources a vanity search draws from.
// A Source generates fresh random keypairs and knows how its addresses are
// rendered, which pattern characters can ever appear in them and how hard a
// pattern is to hit.
package keys

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Supported chains.
const (
	ChainSolana   = "sol"
	ChainEthereum = "eth"
)

// ErrUnknownChain is returned by SourceFor for chains without a Source.
var ErrUnknownChain = errors.New("unknown chain")

// Keypair is one generated candidate.
type Keypair struct {
	Address    string // displayable public identifier
	Secret     string // displayable private material
	PrivateKey []byte
}

// Source generates keypairs for a single chain.
type Source interface {
	// Chain returns the short chain name.
	Chain() string

	// Generate returns a fresh keypair drawn from a cryptographically
	// strong random source. Safe for concurrent use.
	Generate() (Keypair, error)

	// Trim returns the part of an address (or a prefix pattern) that
	// patterns are matched against.
	Trim(address string) string

	// Validate reports whether every character of pattern can appear in
	// an address under the given case mode.
	Validate(pattern string, caseSensitive bool) error

	// Difficulty returns the expected number of attempts to find one
	// address matching prefix and suffix. Returns nil if both are empty.
	Difficulty(prefix, suffix string, caseSensitive bool) *big.Int
}

// Chains lists the chain names accepted by SourceFor, default first.
func Chains() []string {
	return []string{ChainSolana, ChainEthereum}
}

// SourceFor returns the Source for the named chain.
func SourceFor(chain string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(chain)) {
	case "", ChainSolana, "solana":
		return Solana{}, nil
	case ChainEthereum, "ethereum":
		return Ethereum{}, nil
	}
	return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownChain, chain, strings.Join(Chains(), ", "))
}

// expectedAttempts converts a match probability into the expected number
// of attempts for a single match.
func expectedAttempts(p *big.Rat) *big.Int {
	if p.Sign() == 0 {
		return nil
	}
	d := new(big.Int).Quo(p.Denom(), p.Num())
	if d.Sign() == 0 {
		return big.NewInt(1)
	}
	return d
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
