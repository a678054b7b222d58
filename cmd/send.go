package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vanity-sol/internal/chain"
	"vanity-sol/internal/logger"
)

// recipientEnv names the fallback recipient when no argument is given.
const recipientEnv = "RECIPIENT_WALLET"

var flagSendAmount float64

var sendCmd = &cobra.Command{
	Use:   "send [recipient]",
	Short: "Transfer SOL from the " + secretKeyEnv + " keypair",
	Long: `send transfers --amount SOL from the keypair in ` + secretKeyEnv + ` to recipient
and prints the transaction signature. The sender's balance is checked
before the transaction is built. Without a recipient argument ` + recipientEnv + `
is used, read from the environment or the env file like ` + secretKeyEnv + `.

Examples:
  vanity-sol send 9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM --amount 0.5
  vanity-sol send --amount 1 --cluster localnet --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: sendRun,
}

func init() {
	// Cluster flags are registered alongside balance and airdrop.
	sendCmd.Flags().Float64Var(&flagSendAmount, "amount", 0, "SOL to send")
	_ = sendCmd.MarkFlagRequired("amount")
}

func sendRun(cmd *cobra.Command, args []string) error {
	if flagSendAmount <= 0 {
		return fmt.Errorf("--amount must be positive")
	}

	client, err := rpcClient()
	if err != nil {
		return err
	}
	from, err := loadSecret()
	if err != nil {
		return err
	}
	to := os.Getenv(recipientEnv)
	if len(args) > 0 {
		to = args[0]
	}
	if to == "" {
		return fmt.Errorf("no recipient: pass one or set %s", recipientEnv)
	}

	log, err := logger.New("VANITY", logger.Level(flagVerbose, flagFormat == "json"))
	if err != nil {
		return fmt.Errorf("constructing logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), flagRPCTimeout)
	defer cancel()

	lamports := chain.SOLToLamports(flagSendAmount)
	log.Debugw("send", "endpoint", client.Endpoint(), "from", from.PublicKey(), "to", to, "lamports", lamports)

	sig, err := client.Transfer(ctx, from, to, lamports)
	if err != nil {
		return err
	}
	log.Infow("transfer sent", "signature", sig, "amount", flagSendAmount)

	if flagFormat == "json" {
		return encodeJSON(cmd.OutOrStdout(), struct {
			From      string  `json:"from"`
			To        string  `json:"to"`
			Lamports  uint64  `json:"lamports"`
			SOL       float64 `json:"sol"`
			Signature string  `json:"signature"`
		}{from.PublicKey().String(), to, lamports, flagSendAmount, sig})
	}

	green.Printf("✓ ")
	fmt.Printf("sent %.9f SOL to %s\n", flagSendAmount, to)
	bold.Printf("  Signature: ")
	fmt.Println(sig)
	return nil
}
