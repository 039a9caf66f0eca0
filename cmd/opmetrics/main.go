package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/opmetrics/internal/codec"
	"github.com/ethpandaops/opmetrics/internal/config"
	"github.com/ethpandaops/opmetrics/internal/report"
	"github.com/ethpandaops/opmetrics/internal/version"
)

// options holds the persistent flags of one command tree.
type options struct {
	cfgFile     string
	logLevel    string
	frequency   string
	timeUnit    string
	compression string
	topOpcodes  int
}

func main() {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "opmetrics",
		Short: "Interpreter performance record aggregation",
		Long: `opmetrics merges per-pass interpreter performance records
(opcode histograms, cache hit/miss counters, miss penalties and host-call
times), converts cycle counts into wall-clock units and renders reports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "path to config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	cmd.AddCommand(
		versionCmd(),
		reportCmd(opts),
		mergeCmd(opts),
	)

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.FullWithPlatform())
		},
	}
}

func reportCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <files...>",
		Short: "Merge records, convert them to time and print a report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(opts)
			if err != nil {
				return err
			}

			conv, err := cfg.Converter()
			if err != nil {
				return err
			}

			unit, err := cfg.Unit()
			if err != nil {
				return fmt.Errorf("time_unit: %w", err)
			}

			rec, err := aggregateFiles(cmd.Context(), log, cfg, args)
			if err != nil {
				return err
			}

			if err := rec.ConvertCyclesToTime(conv, unit); err != nil {
				return fmt.Errorf("converting aggregate: %w", err)
			}

			log.WithFields(logrus.Fields{
				"frequency_hz": conv.Frequency(),
				"unit":         unit,
			}).Debug("Converted aggregate")

			return report.Render(cmd.OutOrStdout(), rec, report.Options{
				TopOpcodes: cfg.Report.TopOpcodes,
			})
		},
	}

	cmd.Flags().StringVar(&opts.frequency, "frequency", "", "CPU cycle counter frequency, e.g. 3.2GHz")
	cmd.Flags().StringVar(&opts.timeUnit, "unit", "", "report time unit (ns, us, ms, s)")
	cmd.Flags().IntVar(&opts.topOpcodes, "top", 0, "number of opcodes to show (-1 for all)")

	return cmd
}

func mergeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <files...>",
		Short: "Merge records and write the encoded aggregate to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(opts)
			if err != nil {
				return err
			}

			rec, err := aggregateFiles(cmd.Context(), log, cfg, args)
			if err != nil {
				return err
			}

			return codec.Write(cmd.OutOrStdout(), rec, cfg.Compression)
		},
	}

	cmd.Flags().StringVar(&opts.compression, "compression", "", "output compression (none, gzip, zstd, zlib, snappy)")

	return cmd
}

// setup loads the config, applies flag overrides and builds the logger.
func setup(opts *options) (*config.Config, logrus.FieldLogger, error) {
	cfg := config.DefaultConfig()

	if opts.cfgFile != "" {
		loaded, err := config.LoadConfig(opts.cfgFile)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}

		cfg = loaded
	}

	// CLI flags override the config file.
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}

	if opts.frequency != "" {
		cfg.Frequency = opts.frequency
	}

	if opts.timeUnit != "" {
		cfg.TimeUnit = opts.timeUnit
	}

	if opts.compression != "" {
		cfg.Compression = opts.compression
	}

	if opts.topOpcodes != 0 {
		cfg.Report.TopOpcodes = opts.topOpcodes
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validating config: %w", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing log level %q: %w", cfg.LogLevel, err)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	log.SetLevel(level)

	return cfg, log, nil
}
