package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"consigli/internal/cli"
	"consigli/internal/config"
	"consigli/internal/log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

// rootState is filled in by initConfig before any subcommand runs.
type rootState struct {
	cfgFile string
	envFile string
	v       *viper.Viper
	cfg     *config.Config
	logger  *log.Logger
}

func newRootCmd() *cobra.Command {
	st := &rootState{v: viper.New()}

	cmd := &cobra.Command{
		Use:           "consigli",
		Short:         "Expense tracking with spending analysis and advice",
		Long:          "consigli records expenses, classifies them through an external service and\nturns the spending history into one actionable advisory at a time.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return st.initConfig(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&st.cfgFile, "config", "", "config file (default: ./consigli.yaml when present)")
	flags.StringVar(&st.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("backend", "memory", "data backend (memory, sqlite, postgres)")

	_ = st.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = st.v.BindPFlag("log_format", flags.Lookup("log-format"))
	_ = st.v.BindPFlag("data_backend", flags.Lookup("backend"))

	cmd.AddCommand(
		serveCmd(st),
		eventsCmd(st),
		migrateCmd(st),
		expenseCmd(st),
		analyzeCmd(st),
		adviceCmd(st),
		feedbackCmd(st),
		summaryCmd(st),
		versionCmd(),
	)
	return cmd
}

func (st *rootState) initConfig(cmd *cobra.Command) error {
	if err := cli.LoadEnvFile(st.envFile); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}

	st.v.AutomaticEnv()
	if st.cfgFile != "" {
		st.v.SetConfigFile(st.cfgFile)
	} else {
		st.v.AddConfigPath(".")
		st.v.SetConfigName("consigli")
		st.v.SetConfigType("yaml")
	}
	if err := st.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if st.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	st.cfg = config.Load(st.v)
	if err := st.cfg.Validate(); err != nil {
		return err
	}

	logger, err := cli.NewLogger(st.cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	st.logger = logger
	return nil
}

// app wires the services for commands that need them.
func (st *rootState) app(ctx context.Context) (*cli.App, error) {
	return cli.NewApp(ctx, st.cfg, st.logger, cli.Options{})
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "consigli", version)
		},
	}
}

func main() {
	root := newRootCmd()
	ctx, cancel := cli.SignalContext(context.Background(), log.New(log.Config{Component: log.ComponentApp, Output: os.Stderr}))
	err := root.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
