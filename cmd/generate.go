package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vanity-sol/internal/keys"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one random keypair",
	Args:  cobra.NoArgs,
	RunE:  generateRun,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "save the keypair to this file")
}

func generateRun(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}

	src, err := keys.SourceFor(flagChain)
	if err != nil {
		return err
	}

	kp, err := src.Generate()
	if err != nil {
		return fmt.Errorf("generate keypair: %w", err)
	}

	if flagFormat == "json" {
		if err := encodeJSON(cmd.OutOrStdout(), newJSONKeypair(src, kp)); err != nil {
			return err
		}
	} else {
		printKeypair(src, kp)
	}

	if flagOutput != "" {
		f, err := os.Create(flagOutput)
		if err != nil {
			return fmt.Errorf("saving keypair: %w", err)
		}
		defer f.Close()
		if err := writeKeypair(f, src, kp); err != nil {
			return fmt.Errorf("saving keypair: %w", err)
		}
	}
	return nil
}

func printKeypair(src keys.Source, kp keys.Keypair) {
	bold.Printf("  Address:     ")
	green.Printf("%s\n", kp.Address)
	bold.Printf("  Private key: ")
	red.Printf("%s\n", kp.Secret)
	if src.Chain() == keys.ChainSolana {
		bold.Printf("  Secret key:  ")
		red.Printf("%s\n", keys.SecretBytesJSON(kp.PrivateKey))
	}
}
