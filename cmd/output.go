package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"vanity-sol/internal/grinder"
	"vanity-sol/internal/keys"
)

type jsonKeypair struct {
	Chain      string          `json:"chain"`
	Address    string          `json:"address"`
	PrivateKey string          `json:"privateKey"`
	SecretKey  json.RawMessage `json:"secretKey,omitempty"`
}

type jsonResult struct {
	Found bool `json:"found"`
	jsonKeypair
	Attempt   uint64 `json:"attempt"`
	Attempts  uint64 `json:"attempts"`
	ElapsedMS int64  `json:"elapsedMs"`
}

func newJSONKeypair(src keys.Source, kp keys.Keypair) jsonKeypair {
	out := jsonKeypair{
		Chain:      src.Chain(),
		Address:    kp.Address,
		PrivateKey: kp.Secret,
	}
	if src.Chain() == keys.ChainSolana {
		out.SecretKey = json.RawMessage(keys.SecretBytesJSON(kp.PrivateKey))
	}
	return out
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printJSON(w io.Writer, src keys.Source, res grinder.Result) error {
	return encodeJSON(w, jsonResult{
		Found:       true,
		jsonKeypair: newJSONKeypair(src, res.Match.Keypair),
		Attempt:     res.Match.Attempt,
		Attempts:    res.Attempts,
		ElapsedMS:   res.Elapsed.Milliseconds(),
	})
}

// saveToFile writes the match in the same layout the TUI saves.
func saveToFile(path string, src keys.Source, m *grinder.Match) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeMatch(f, src, m)
}

func writeMatch(w io.Writer, src keys.Source, m *grinder.Match) error {
	if err := writeKeypair(w, src, m.Keypair); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Attempt:     %d\nElapsed:     %s\n", m.Attempt, m.Elapsed.Round(time.Millisecond))
	return err
}

func writeKeypair(w io.Writer, src keys.Source, kp keys.Keypair) error {
	fmt.Fprintf(w, "Chain:       %s\n", src.Chain())
	fmt.Fprintf(w, "Address:     %s\n", kp.Address)
	if src.Chain() == keys.ChainSolana {
		fmt.Fprintf(w, "Secret Key:  %s\n", keys.SecretBytesJSON(kp.PrivateKey))
	}
	_, err := fmt.Fprintf(w, "Private Key: %s\n", kp.Secret)
	return err
}
