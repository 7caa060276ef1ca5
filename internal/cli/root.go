// Package cli implements the vcmarket command line. Every command loads the
// configured input files, runs one analysis and prints the result.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vcmarket/internal/config"
	"vcmarket/internal/logging"
	"vcmarket/internal/model"
	"vcmarket/internal/pipeline"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

type appContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Companies    string
	EUInvestors  string
	USInvestors  string
	SkipInvalid  bool
}

// App carries the initialized dependencies through the command tree.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	OutputFormat string
}

// NewRootCommand creates the root command with all global flags and
// subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "vcmarket",
		Short:   "Venture market analysis over company and investor exports",
		Long:    "vcmarket scores investors, summarizes funding by industry, predicts the next\nfunding round of every company and ranks companies by a weighted score.",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app, err := GetApp(cmd); err == nil {
				app.Logger.Sync()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./vcmarket.yaml or $VCM_CONFIG_FILE)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json)")
	pf.StringVar(&opts.Companies, "companies", "", "company CSV file or URL")
	pf.StringVar(&opts.EUInvestors, "eu-investors", "", "EU investor CSV file or URL")
	pf.StringVar(&opts.USInvestors, "us-investors", "", "US investor CSV file or URL")
	pf.BoolVar(&opts.SkipInvalid, "skip-invalid-rows", false, "drop invalid rows instead of failing")

	cmd.AddCommand(
		newStatsCmd(),
		newIndustriesCmd(),
		newInvestorsCmd(),
		newRankCmd(),
		newExportCmd(),
		newFAQCmd(),
	)
	return cmd
}

// persistentPreRun loads config and the logger, then stores the App.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	switch strings.ToLower(opts.OutputFormat) {
	case "text", "json":
	default:
		return &pipeline.ParameterError{Field: "output", Reason: fmt.Sprintf("unknown format %q", opts.OutputFormat)}
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	if opts.Companies != "" {
		cfg.Inputs.Companies = opts.Companies
	}
	if opts.EUInvestors != "" {
		cfg.Inputs.EUInvestors = opts.EUInvestors
	}
	if opts.USInvestors != "" {
		cfg.Inputs.USInvestors = opts.USInvestors
	}
	if opts.SkipInvalid {
		cfg.Inputs.SkipInvalidRows = true
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	app := &App{Config: cfg, Logger: logger, OutputFormat: strings.ToLower(opts.OutputFormat)}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appContextKey{}, app))
	return nil
}

// GetApp extracts the App from a command's context.
func GetApp(cmd *cobra.Command) (*App, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New("command context is nil")
	}
	app, ok := ctx.Value(appContextKey{}).(*App)
	if !ok || app == nil {
		return nil, errors.New("app not found in command context")
	}
	return app, nil
}

// LoadDataset loads the configured input files.
func (a *App) LoadDataset(ctx context.Context) (*pipeline.Dataset, error) {
	retry := pipeline.NewRetryManager(a.Config.Retry, a.Logger)
	loader := pipeline.NewLoader(pipeline.NewIngester(nil, retry, a.Logger), a.Config.PipelineOptions(), nil, a.Logger)
	ds, err := loader.Load(ctx, a.Config.Sources())
	if err != nil {
		return nil, err
	}
	if len(ds.Rejected) > 0 {
		a.Logger.Warn("invalid rows skipped", zap.Int("rejected", len(ds.Rejected)))
	}
	return ds, nil
}

// runWithDataset is the RunE shared by commands that analyse a dataset.
func runWithDataset(fn func(cmd *cobra.Command, app *App, ds *pipeline.Dataset) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := GetApp(cmd)
		if err != nil {
			return err
		}
		ds, err := app.LoadDataset(cmd.Context())
		if err != nil {
			return err
		}
		return fn(cmd, app, ds)
	}
}

// Execute runs the root command and prints a failure to stderr.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// PrintError writes err with any rejected rows to the command's stderr.
func PrintError(cmd *cobra.Command, err error) {
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "Error: %v\n", err)
	var dq *pipeline.DataQualityError
	if errors.As(err, &dq) {
		for _, r := range dq.Rejected {
			fmt.Fprintf(w, "  row %d (%s): %s\n", r.Row, r.Name, r.Reason)
		}
	}
}

// printJSON outputs data as indented JSON.
func printJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// rankFlags registers N and weight flags that default to the configured
// ranking.
type rankFlags struct {
	n                         int
	investor, funding, market float64
}

func (f *rankFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.n, "n", "n", 0, "number of companies (default from config)")
	cmd.Flags().Float64Var(&f.investor, "investor-weight", 0, "weight of the investor score (default from config)")
	cmd.Flags().Float64Var(&f.funding, "funding-weight", 0, "weight of the funding difference score (default from config)")
	cmd.Flags().Float64Var(&f.market, "market-weight", 0, "weight of the market context score (default from config)")
}

// request overlays the flags the user set on the configured ranking.
func (f *rankFlags) request(cmd *cobra.Command, cfg *config.Config) model.RankRequest {
	req := cfg.RankRequest()
	flags := cmd.Flags()
	if flags.Changed("n") {
		req.N = f.n
	}
	if flags.Changed("investor-weight") {
		req.Weights.Investor = f.investor
	}
	if flags.Changed("funding-weight") {
		req.Weights.Funding = f.funding
	}
	if flags.Changed("market-weight") {
		req.Weights.Market = f.market
	}
	return req
}
