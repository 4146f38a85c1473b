/*
Package cmd contains the command line interface for the acasci pipelines

Copyright © 2024 Shono <code@shono.io>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shono-io/acasci/pkg"
	"github.com/shono-io/acasci/report"
	"github.com/shono-io/acasci/sdk"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	runId   string
)

var rootCmd = &cobra.Command{
	Use:   "acasci",
	Short: "ci pipelines for the acas client",
	Long: `acasci runs the acasclient pipelines: it tests the client against a live ACAS backend
matching the trigger and publishes the client distribution to the package indexes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return configureLogging(viper.GetString("log.level"), viper.GetString("log.format"))
	},
}

func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		logFailure(log.Logger, err)
		cancel()
		os.Exit(sdk.ExitCode(err))
	}
}

func logFailure(logger zerolog.Logger, err error) {
	evt := logger.Error().Err(err)

	var stepErr *sdk.StepError
	if errors.As(err, &stepErr) {
		evt = evt.Str("step", stepErr.Step)
	}
	if category, ok := sdk.CategoryOf(err); ok {
		evt = evt.Str("category", string(category))
	}

	evt.Msg("run failed")
}

func init() {
	cobra.OnInitialize(initConfig)
	pkg.SetDefaults(viper.GetViper())

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.acasci.yaml)")
	rootCmd.PersistentFlags().StringVar(&runId, "run-id", "", "identifier attached to reported step events (default is a random uuid)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level")
	rootCmd.PersistentFlags().String("log-format", "console", "log format, console or json")

	if err := viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		log.Panic().Err(err).Msg("failed to bind flags")
	}
	if err := viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format")); err != nil {
		log.Panic().Err(err).Msg("failed to bind flags")
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// a missing .env is fine, the process environment still applies
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".acasci" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".acasci")
	}

	viper.SetEnvPrefix("ACASCI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func configureLogging(level string, format string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)

	switch format {
	case "", "console":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	case "json":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	return nil
}

func loadConfig() (pkg.Config, error) {
	return pkg.LoadConfig(viper.GetViper())
}

func currentRunId() string {
	if runId == "" {
		runId = uuid.New().String()
	}

	return runId
}

// newReporter always reports to the log. With a nats server configured step events are also
// published, and stored in a key value bucket when one is named.
func newReporter(ctx context.Context, cfg pkg.Config) (report.Reporter, error) {
	reporters := []report.Reporter{report.NewLogReporter(log.Logger)}

	if !cfg.Nats.Enabled() {
		return report.Multi(reporters...), nil
	}

	nc, err := cfg.Nats.Connect("acasci")
	if err != nil {
		return nil, fmt.Errorf("unable to connect to nats: %w", err)
	}

	if cfg.Nats.Bucket != "" {
		store, err := report.NewRunStore(ctx, nc, cfg.Nats.Bucket)
		if err != nil {
			nc.Close()
			return nil, err
		}
		reporters = append(reporters, store)
	}

	// -- last, so the connection is drained after everything else closed
	reporters = append(reporters, report.NewNatsReporter(nc, cfg.Nats.Prefix))

	return report.Multi(reporters...), nil
}
