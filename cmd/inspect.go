package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"vanity-sol/internal/keys"
)

// secretKeyEnv holds a Solana secret key as a JSON byte array or base58.
const secretKeyEnv = "SECRET_KEY"

var flagEnvFile string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the address of the keypair in " + secretKeyEnv,
	Long: `inspect loads ` + secretKeyEnv + ` from the environment (or a .env file) and
prints the address it belongs to. The value may be a JSON byte array as
written by solana-keygen, or a base58 string.`,
	Args: cobra.NoArgs,
	RunE: inspectRun,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "file to load "+secretKeyEnv+" from when it is not set")
}

func inspectRun(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}

	priv, err := loadSecret()
	if err != nil {
		return err
	}

	addr := priv.PublicKey().String()
	if flagFormat == "json" {
		return encodeJSON(cmd.OutOrStdout(), jsonKeypair{
			Chain:      keys.ChainSolana,
			Address:    addr,
			PrivateKey: priv.String(),
			SecretKey:  json.RawMessage(keys.SecretBytesJSON(priv)),
		})
	}

	green.Printf("✓ ")
	fmt.Printf("loaded %s\n", secretKeyEnv)
	bold.Printf("  Address:     ")
	fmt.Println(addr)
	return nil
}

// loadSecret reads SECRET_KEY, falling back to the env file. A missing env
// file is not an error; the variable simply stays unset.
func loadSecret() (solana.PrivateKey, error) {
	if flagEnvFile != "" {
		if err := godotenv.Load(flagEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", flagEnvFile, err)
		}
	}

	priv, err := keys.ParseSecret(os.Getenv(secretKeyEnv))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", secretKeyEnv, err)
	}
	return priv, nil
}
