// Package chain talks to a Solana cluster over JSON-RPC for the small
// wallet helpers: balance lookups, devnet airdrops and SOL transfers.
package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
)

// DefaultCluster is used when no cluster is given.
const DefaultCluster = "devnet"

// Transfer errors.
var (
	ErrZeroAmount        = errors.New("transfer amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Endpoint resolves a cluster name, or a literal http(s) URL, to an RPC
// endpoint.
func Endpoint(cluster string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(cluster))
	switch c {
	case "", "devnet":
		return rpc.DevNet_RPC, nil
	case "testnet":
		return rpc.TestNet_RPC, nil
	case "mainnet", "mainnet-beta":
		return rpc.MainNetBeta_RPC, nil
	case "localnet", "localhost":
		return rpc.LocalNet_RPC, nil
	}
	if strings.HasPrefix(c, "http://") || strings.HasPrefix(c, "https://") {
		return strings.TrimSpace(cluster), nil
	}
	return "", fmt.Errorf("unknown cluster %q (want devnet, testnet, mainnet, localnet or an http(s) URL)", cluster)
}

// LamportsToSOL converts lamports to SOL.
func LamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / float64(solana.LAMPORTS_PER_SOL)
}

// SOLToLamports converts SOL to lamports, truncating fractions of a lamport.
func SOLToLamports(sol float64) uint64 {
	if sol <= 0 {
		return 0
	}
	return uint64(sol * float64(solana.LAMPORTS_PER_SOL))
}

// Client wraps an RPC connection to one cluster.
type Client struct {
	rpc      *rpc.Client
	endpoint string
}

// New constructs a Client for the given endpoint.
func New(endpoint string) *Client {
	return &Client{
		rpc:      rpc.New(endpoint),
		endpoint: endpoint,
	}
}

// Endpoint returns the RPC endpoint in use.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Balance returns the finalized balance of address in lamports.
func (c *Client) Balance(ctx context.Context, address string) (uint64, error) {
	pub, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("parse address: %w", err)
	}

	out, err := c.rpc.GetBalance(ctx, pub, rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return out.Value, nil
}

// Airdrop requests lamports for address and returns the transaction
// signature. Only test clusters honor airdrops.
func (c *Client) Airdrop(ctx context.Context, address string, lamports uint64) (string, error) {
	pub, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return "", fmt.Errorf("parse address: %w", err)
	}

	sig, err := c.rpc.RequestAirdrop(ctx, pub, lamports, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("request airdrop: %w", err)
	}
	return sig.String(), nil
}

// AirdropIfRequired requests amount lamports only when the current balance
// is below minimum. The returned signature is empty when no airdrop was
// needed; balance is the balance observed before any request.
func (c *Client) AirdropIfRequired(ctx context.Context, address string, amount, minimum uint64) (sig string, balance uint64, err error) {
	balance, err = c.Balance(ctx, address)
	if err != nil {
		return "", 0, err
	}
	if balance >= minimum {
		return "", balance, nil
	}

	sig, err = c.Airdrop(ctx, address, amount)
	if err != nil {
		return "", balance, err
	}
	return sig, balance, nil
}

// Transfer sends lamports from the owner of from to the address to and
// returns the transaction signature. The sender's finalized balance is
// checked first; fees are left to the cluster to reject.
func (c *Client) Transfer(ctx context.Context, from solana.PrivateKey, to string, lamports uint64) (string, error) {
	if lamports == 0 {
		return "", ErrZeroAmount
	}

	recipient, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return "", fmt.Errorf("parse recipient: %w", err)
	}
	sender := from.PublicKey()

	balance, err := c.Balance(ctx, sender.String())
	if err != nil {
		return "", err
	}
	if balance < lamports {
		return "", fmt.Errorf("%w: have %d lamports, sending %d", ErrInsufficientFunds, balance, lamports)
	}

	recent, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, sender, recipient).Build(),
		},
		recent.Value.Blockhash,
		solana.TransactionPayer(sender),
	)
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(sender) {
			return &from
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	sig, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	return sig.String(), nil
}
