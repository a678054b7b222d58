package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"vanity-sol/internal/grinder"
	"vanity-sol/internal/keys"
	"vanity-sol/internal/logger"
)

// version is set at build time via -ldflags "-X vanity-sol/cmd.version=vX.Y.Z"
var version = "dev"

var (
	flagPrefix        string
	flagSuffix        string
	flagWorkers       int
	flagCase          bool
	flagMaxAttempts   uint64
	flagTimeout       time.Duration
	flagProgressEvery uint64
	flagBar           bool
	flagTUI           bool
	flagOutput        string

	// Shared by every subcommand.
	flagChain   string
	flagFormat  string
	flagVerbose bool
)

var (
	green   = color.New(color.FgGreen, color.Bold)
	yellow  = color.New(color.FgYellow, color.Bold)
	cyan    = color.New(color.FgCyan)
	red     = color.New(color.FgRed)
	bold    = color.New(color.Bold)
	magenta = color.New(color.FgMagenta, color.Bold)
)

const logoASCII = `
__   ___   _  _ ___ _______   __  ___  ___  _
\ \ / /_\ | \| |_ _|_   _\ \ / / / __|/ _ \| |
 \ V / _ \| .' || |  | |  \ V /  \__ \ (_) | |__
  \_/_/ \_\_|\_|___| |_|   |_|   |___/\___/|____|
`

var rootCmd = &cobra.Command{
	Use:     "vanity-sol",
	Version: version,
	Short:   "Vanity Solana keypair grinder",
	Long: `vanity-sol searches for a keypair whose address starts with a chosen prefix.
Matching is case-insensitive unless --case-sensitive is given.

Examples:
  vanity-sol --prefix anza
  vanity-sol --prefix sol --suffix x --workers 16
  vanity-sol --prefix dead --chain eth
  vanity-sol --prefix abc --max-attempts 5000000 --format json
  vanity-sol              (launch interactive TUI)`,
	SilenceUsage: true,
	RunE:         runRoot,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&flagPrefix, "prefix", "p", "", "address must start with this string")
	rootCmd.Flags().StringVarP(&flagSuffix, "suffix", "s", "", "address must end with this string")
	rootCmd.Flags().IntVarP(&flagWorkers, "workers", "w", grinder.DefaultWorkers, "number of parallel workers")
	rootCmd.Flags().BoolVar(&flagCase, "case-sensitive", false, "case-sensitive matching")
	rootCmd.Flags().Uint64Var(&flagMaxAttempts, "max-attempts", 0, "give up after this many attempts (0 = no limit)")
	rootCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "give up after this long (0 = no limit)")
	rootCmd.Flags().Uint64Var(&flagProgressEvery, "progress-every", grinder.DefaultProgressEvery, "log progress every N attempts (0 = never)")
	rootCmd.Flags().BoolVar(&flagBar, "bar", false, "show a live progress bar instead of progress lines")
	rootCmd.Flags().BoolVar(&flagTUI, "tui", false, "launch interactive TUI (default when no pattern is given)")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "save the result to this file")

	rootCmd.PersistentFlags().StringVar(&flagChain, "chain", keys.ChainSolana, "key type: "+strings.Join(keys.Chains(), " or "))
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: text or json")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
}

func runRoot(cmd *cobra.Command, args []string) error {
	if flagTUI || (flagPrefix == "" && flagSuffix == "") {
		return runTUI()
	}
	return runCLI(cmd)
}

func runCLI(cmd *cobra.Command) error {
	if err := checkFormat(); err != nil {
		return err
	}

	src, err := keys.SourceFor(flagChain)
	if err != nil {
		return err
	}

	quiet := flagBar || flagFormat == "json"
	log, err := logger.New("VANITY", logger.Level(flagVerbose, quiet))
	if err != nil {
		return fmt.Errorf("constructing logger: %w", err)
	}
	defer log.Sync()

	cfg := grinder.Config{
		Prefix:        flagPrefix,
		Suffix:        flagSuffix,
		CaseSensitive: flagCase,
		Workers:       flagWorkers,
		MaxAttempts:   flagMaxAttempts,
		Timeout:       flagTimeout,
		ProgressEvery: flagProgressEvery,
	}

	search, err := grinder.New(cfg, src, log)
	if err != nil {
		return err
	}

	if flagFormat == "text" {
		magenta.Print(logoASCII)
		bold.Printf("\nvanity-sol  •  chain: %s  •  workers: %d\n", src.Chain(), flagWorkers)
		printPattern(src, cfg)
		fmt.Println()
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var stopBar func()
	if flagBar && flagFormat == "text" {
		stopBar = trackBar(search)
	}

	res, err := search.Run(ctx)
	if stopBar != nil {
		stopBar()
	}

	switch {
	case err == nil:
	case errors.Is(err, grinder.ErrExhausted):
		reportMiss(cmd.OutOrStdout(), res, "no match within budget")
		return err
	case errors.Is(err, context.Canceled):
		reportMiss(cmd.OutOrStdout(), res, "search stopped")
		return nil
	default:
		return err
	}

	if flagFormat == "json" {
		if err := printJSON(cmd.OutOrStdout(), src, res); err != nil {
			return err
		}
	} else {
		printResult(src, cfg, res)
	}

	if flagOutput != "" {
		if err := saveToFile(flagOutput, src, res.Match); err != nil {
			return fmt.Errorf("saving result: %w", err)
		}
		if flagFormat == "text" {
			green.Printf("saved to %s\n", flagOutput)
		}
	}

	return nil
}

func checkFormat() error {
	if flagFormat != "text" && flagFormat != "json" {
		return fmt.Errorf("--format must be text or json")
	}
	return nil
}

// trackBar draws an open-ended progress bar fed from the search's attempt
// counter. The returned func stops and clears it.
func trackBar(search *grinder.Search) func() {
	bar := progressbar.NewOptions64(-1,
		progressbar.OptionSetDescription("grinding"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(15),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("keys"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = bar.Set64(int64(search.Attempts()))
			case <-done:
				_ = bar.Set64(int64(search.Attempts()))
				return
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
		_ = bar.Finish()
	}
}

func printPattern(src keys.Source, cfg grinder.Config) {
	var parts []string
	if cfg.Prefix != "" {
		parts = append(parts, fmt.Sprintf("prefix=%q", cfg.Prefix))
	}
	if cfg.Suffix != "" {
		parts = append(parts, fmt.Sprintf("suffix=%q", cfg.Suffix))
	}
	mode := "case-insensitive"
	if cfg.CaseSensitive {
		mode = "case-sensitive"
	}
	yellow.Printf("pattern: %s  (%s)\n", strings.Join(parts, "  "), mode)

	if d := src.Difficulty(cfg.Prefix, cfg.Suffix, cfg.CaseSensitive); d != nil && d.Cmp(big.NewInt(1)) > 0 {
		cyan.Printf("~1 in %s addresses match\n", d.String())
	}
	if cfg.MaxAttempts > 0 {
		cyan.Printf("budget: %s attempts\n", grinder.FormatCount(cfg.MaxAttempts))
	}
	if cfg.Timeout > 0 {
		cyan.Printf("budget: %s\n", grinder.FormatDuration(cfg.Timeout))
	}
}

func printResult(src keys.Source, cfg grinder.Config, res grinder.Result) {
	m := res.Match
	fmt.Printf("\n%s  found on attempt %s  •  %s tried  •  %.0f keys/s  •  %s\n",
		green.Sprint("✓"),
		grinder.FormatCount(m.Attempt),
		grinder.FormatCount(res.Attempts),
		grinder.Rate(res.Attempts, res.Elapsed),
		m.Elapsed.Round(time.Millisecond),
	)
	bold.Printf("  Address:     ")
	highlightAddress(src, cfg, m.Keypair.Address)
	fmt.Println()
	bold.Printf("  Private key: ")
	red.Printf("%s\n", m.Keypair.Secret)
	if src.Chain() == keys.ChainSolana {
		bold.Printf("  Secret key:  ")
		red.Printf("%s\n", keys.SecretBytesJSON(m.Keypair.PrivateKey))
	}
	fmt.Println()
}

func reportMiss(w io.Writer, res grinder.Result, reason string) {
	if flagFormat == "json" {
		_ = encodeJSON(w, struct {
			Found     bool   `json:"found"`
			Reason    string `json:"reason"`
			Attempts  uint64 `json:"attempts"`
			ElapsedMS int64  `json:"elapsedMs"`
		}{false, reason, res.Attempts, res.Elapsed.Milliseconds()})
		return
	}
	fmt.Printf("\n%s  %s  •  %s tried  •  %.0f keys/s  •  %s\n",
		yellow.Sprint("✗"),
		reason,
		grinder.FormatCount(res.Attempts),
		grinder.Rate(res.Attempts, res.Elapsed),
		res.Elapsed.Round(time.Millisecond),
	)
}

// highlightAddress prints addr with the matched prefix and suffix in green.
func highlightAddress(src keys.Source, cfg grinder.Config, addr string) {
	body := src.Trim(addr)
	fmt.Print(addr[:len(addr)-len(body)])
	prefixLen := len(src.Trim(cfg.Prefix))
	suffixLen := len(cfg.Suffix)
	for i, ch := range body {
		inPrefix := prefixLen > 0 && i < prefixLen
		inSuffix := suffixLen > 0 && i >= len(body)-suffixLen
		if inPrefix || inSuffix {
			green.Printf("%c", ch)
		} else {
			fmt.Printf("%c", ch)
		}
	}
}
