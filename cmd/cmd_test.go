package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"vanity-sol/internal/grinder"
	"vanity-sol/internal/keys"
)

// setFlag overrides a package flag for the duration of the test.
func setFlag[T any](t *testing.T, p *T, v T) {
	t.Helper()
	old := *p
	*p = v
	t.Cleanup(func() { *p = old })
}

// resetFlags puts every command's flags back to their defaults so each
// execution starts from a clean parse.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns what it wrote to
// stdout.
func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() {
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestCheckFormat(t *testing.T) {
	for _, f := range []string{"text", "json"} {
		setFlag(t, &flagFormat, f)
		if err := checkFormat(); err != nil {
			t.Fatalf("checkFormat(%q) = %v", f, err)
		}
	}
	setFlag(t, &flagFormat, "yaml")
	if err := checkFormat(); err == nil {
		t.Fatal("checkFormat accepted yaml")
	}
}

func TestWriteMatch(t *testing.T) {
	src := keys.Solana{}
	kp, err := src.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	m := &grinder.Match{Keypair: kp, Attempt: 42, Elapsed: 1500 * time.Millisecond}

	var buf bytes.Buffer
	if err := writeMatch(&buf, src, m); err != nil {
		t.Fatalf("writeMatch: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Chain:       sol",
		"Address:     " + kp.Address,
		"Private Key: " + kp.Secret,
		"Secret Key:  [",
		"Attempt:     42",
		"Elapsed:     1.5s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteKeypairEthereumHasNoByteArray(t *testing.T) {
	src := keys.Ethereum{}
	kp, err := src.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var buf bytes.Buffer
	if err := writeKeypair(&buf, src, kp); err != nil {
		t.Fatalf("writeKeypair: %v", err)
	}
	if strings.Contains(buf.String(), "Secret Key:") {
		t.Fatalf("ethereum output has a byte array line:\n%s", buf.String())
	}
}

func TestLoadSecretFromEnv(t *testing.T) {
	priv := solana.NewWallet().PrivateKey
	t.Setenv(secretKeyEnv, keys.SecretBytesJSON(priv))
	setFlag(t, &flagEnvFile, "")

	got, err := loadSecret()
	if err != nil {
		t.Fatalf("loadSecret: %v", err)
	}
	if !got.PublicKey().Equals(priv.PublicKey()) {
		t.Fatalf("loaded %s, want %s", got.PublicKey(), priv.PublicKey())
	}
}

func TestLoadSecretFromEnvFile(t *testing.T) {
	priv := solana.NewWallet().PrivateKey
	t.Setenv(secretKeyEnv, "")
	os.Unsetenv(secretKeyEnv)

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(secretKeyEnv+"="+priv.String()+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	setFlag(t, &flagEnvFile, path)

	got, err := loadSecret()
	if err != nil {
		t.Fatalf("loadSecret: %v", err)
	}
	if !got.PublicKey().Equals(priv.PublicKey()) {
		t.Fatalf("loaded %s, want %s", got.PublicKey(), priv.PublicKey())
	}
}

func TestLoadSecretMissing(t *testing.T) {
	t.Setenv(secretKeyEnv, "")
	os.Unsetenv(secretKeyEnv)
	setFlag(t, &flagEnvFile, filepath.Join(t.TempDir(), "missing.env"))

	if _, err := loadSecret(); !errors.Is(err, keys.ErrNoSecret) {
		t.Fatalf("loadSecret error = %v, want ErrNoSecret", err)
	}
}

func TestRPCTarget(t *testing.T) {
	setFlag(t, &flagFormat, "text")
	setFlag(t, &flagCluster, "devnet")

	setFlag(t, &flagChain, keys.ChainSolana)
	const addr = "11111111111111111111111111111111"
	client, got, err := rpcTarget([]string{addr})
	if err != nil {
		t.Fatalf("rpcTarget: %v", err)
	}
	if got != addr {
		t.Fatalf("address = %q, want %q", got, addr)
	}
	if client.Endpoint() != rpc.DevNet_RPC {
		t.Fatalf("endpoint = %q, want %q", client.Endpoint(), rpc.DevNet_RPC)
	}

	setFlag(t, &flagChain, keys.ChainEthereum)
	if _, _, err := rpcTarget([]string{addr}); err == nil {
		t.Fatal("rpcTarget accepted the eth chain")
	}
}

func TestRootJSON(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name      string
		ctx       context.Context
		args      []string
		wantErr   error
		wantFound bool
		reason    string
	}{
		{
			name:    "budget exhausted",
			ctx:     context.Background(),
			args:    []string{"--prefix", "11111", "--max-attempts", "10", "--format", "json"},
			wantErr: grinder.ErrExhausted,
			reason:  "no match within budget",
		},
		{
			name:   "stopped",
			ctx:    cancelled,
			args:   []string{"--prefix", "11111", "--format", "json"},
			reason: "search stopped",
		},
		{
			name:      "eth 0x matches any address",
			ctx:       context.Background(),
			args:      []string{"--chain", "eth", "--prefix", "0x", "--workers", "2", "--format", "json"},
			wantFound: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.ctx, tt.args...)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("execute: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}

			var got struct {
				Found    bool   `json:"found"`
				Reason   string `json:"reason"`
				Chain    string `json:"chain"`
				Address  string `json:"address"`
				Attempt  uint64 `json:"attempt"`
				Attempts uint64 `json:"attempts"`
			}
			if err := json.Unmarshal([]byte(out), &got); err != nil {
				t.Fatalf("stdout is not JSON: %v\n%s", err, out)
			}
			if got.Found != tt.wantFound {
				t.Fatalf("found = %v, want %v", got.Found, tt.wantFound)
			}
			if got.Reason != tt.reason {
				t.Fatalf("reason = %q, want %q", got.Reason, tt.reason)
			}

			switch tt.name {
			case "budget exhausted":
				if got.Attempts != 10 {
					t.Fatalf("attempts = %d, want 10", got.Attempts)
				}
			case "eth 0x matches any address":
				if got.Chain != keys.ChainEthereum || !strings.HasPrefix(got.Address, "0x") {
					t.Fatalf("unexpected keypair: chain=%q address=%q", got.Chain, got.Address)
				}
				if got.Attempt < 1 || got.Attempt > got.Attempts {
					t.Fatalf("attempt = %d of %d", got.Attempt, got.Attempts)
				}
			}
		})
	}
}

func TestSendRejected(t *testing.T) {
	const addr = "11111111111111111111111111111111"
	tests := map[string][]string{
		"missing amount":  {"send", addr},
		"zero amount":     {"send", addr, "--amount", "0"},
		"two recipients":  {"send", addr, addr, "--amount", "1"},
		"eth chain":       {"send", addr, "--amount", "1", "--chain", "eth"},
		"unknown cluster": {"send", addr, "--amount", "1", "--cluster", "moonnet"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := execute(t, context.Background(), args...); err == nil {
				t.Fatalf("send %v succeeded", args)
			}
		})
	}
}

func TestSendNeedsRecipient(t *testing.T) {
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	t.Setenv(secretKeyEnv, priv.String())
	t.Setenv(recipientEnv, "")
	missing := filepath.Join(t.TempDir(), "missing.env")

	_, err = execute(t, context.Background(), "send", "--amount", "1", "--env-file", missing)
	if err == nil || !strings.Contains(err.Error(), recipientEnv) {
		t.Fatalf("err = %v, want a missing %s error", err, recipientEnv)
	}
}
