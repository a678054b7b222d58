package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vanity-sol/internal/chain"
	"vanity-sol/internal/keys"
	"vanity-sol/internal/logger"
)

var (
	flagCluster    string
	flagRPCTimeout time.Duration
	flagAmount     float64
	flagMinBalance float64
)

var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Print the SOL balance of an address",
	Long: `balance prints the finalized balance of address. Without an address it
uses the keypair in ` + secretKeyEnv + `.`,
	Args: cobra.MaximumNArgs(1),
	RunE: balanceRun,
}

var airdropCmd = &cobra.Command{
	Use:   "airdrop [address]",
	Short: "Request test SOL when the balance is low",
	Long: `airdrop requests --amount SOL for address when its balance is below
--min-balance. Only devnet, testnet and local validators honor airdrops.
Without an address it uses the keypair in ` + secretKeyEnv + `.`,
	Args: cobra.MaximumNArgs(1),
	RunE: airdropRun,
}

func init() {
	for _, c := range []*cobra.Command{balanceCmd, airdropCmd, sendCmd} {
		c.Flags().StringVar(&flagCluster, "cluster", chain.DefaultCluster, "devnet, testnet, mainnet, localnet or an RPC URL")
		c.Flags().DurationVar(&flagRPCTimeout, "rpc-timeout", 30*time.Second, "timeout for RPC calls")
		rootCmd.AddCommand(c)
	}
	airdropCmd.Flags().Float64Var(&flagAmount, "amount", 1, "SOL to request")
	airdropCmd.Flags().Float64Var(&flagMinBalance, "min-balance", 3.5, "only request when the balance is below this many SOL")
}

func balanceRun(cmd *cobra.Command, args []string) error {
	client, addr, err := rpcTarget(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flagRPCTimeout)
	defer cancel()

	lamports, err := client.Balance(ctx, addr)
	if err != nil {
		return err
	}

	if flagFormat == "json" {
		return encodeJSON(cmd.OutOrStdout(), struct {
			Address  string  `json:"address"`
			Lamports uint64  `json:"lamports"`
			SOL      float64 `json:"sol"`
		}{addr, lamports, chain.LamportsToSOL(lamports)})
	}

	bold.Printf("  Address: ")
	fmt.Println(addr)
	bold.Printf("  Balance: ")
	green.Printf("%.9f SOL\n", chain.LamportsToSOL(lamports))
	return nil
}

func airdropRun(cmd *cobra.Command, args []string) error {
	if flagAmount <= 0 {
		return fmt.Errorf("--amount must be positive")
	}

	client, addr, err := rpcTarget(args)
	if err != nil {
		return err
	}

	log, err := logger.New("VANITY", logger.Level(flagVerbose, flagFormat == "json"))
	if err != nil {
		return fmt.Errorf("constructing logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), flagRPCTimeout)
	defer cancel()

	amount := chain.SOLToLamports(flagAmount)
	minimum := chain.SOLToLamports(flagMinBalance)
	log.Debugw("airdrop", "endpoint", client.Endpoint(), "address", addr, "amount", amount, "minimum", minimum)

	sig, before, err := client.AirdropIfRequired(ctx, addr, amount, minimum)
	if err != nil {
		return err
	}
	if sig == "" {
		log.Infow("airdrop skipped", "balance", chain.LamportsToSOL(before), "min", flagMinBalance)
	} else {
		log.Infow("airdrop requested", "signature", sig, "amount", flagAmount)
	}

	if flagFormat == "json" {
		return encodeJSON(cmd.OutOrStdout(), struct {
			Address   string  `json:"address"`
			Requested bool    `json:"requested"`
			Signature string  `json:"signature,omitempty"`
			Balance   float64 `json:"balanceBefore"`
		}{addr, sig != "", sig, chain.LamportsToSOL(before)})
	}

	if sig == "" {
		yellow.Printf("balance %.9f SOL is at least %.9f SOL, no airdrop needed\n", chain.LamportsToSOL(before), flagMinBalance)
		return nil
	}
	green.Printf("✓ ")
	fmt.Printf("requested %.9f SOL\n", flagAmount)
	bold.Printf("  Signature: ")
	fmt.Println(sig)
	return nil
}

// rpcTarget resolves the cluster client and the address to act on: the
// argument when given, otherwise the SECRET_KEY keypair.
func rpcTarget(args []string) (*chain.Client, string, error) {
	client, err := rpcClient()
	if err != nil {
		return nil, "", err
	}

	if len(args) > 0 {
		return client, args[0], nil
	}
	priv, err := loadSecret()
	if err != nil {
		return nil, "", err
	}
	return client, priv.PublicKey().String(), nil
}

// rpcClient checks the shared flags and returns a client for --cluster.
func rpcClient() (*chain.Client, error) {
	if err := checkFormat(); err != nil {
		return nil, err
	}
	src, err := keys.SourceFor(flagChain)
	if err != nil {
		return nil, err
	}
	if src.Chain() != keys.ChainSolana {
		return nil, fmt.Errorf("cluster commands need --chain %s", keys.ChainSolana)
	}

	endpoint, err := chain.Endpoint(flagCluster)
	if err != nil {
		return nil, err
	}
	return chain.New(endpoint), nil
}
