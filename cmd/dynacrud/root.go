package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nisimpson/dynacrud"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	logLevel   string

	logger  *zap.Logger
	service *dynacrud.Service

	// extra options applied when the service is built; tests inject a client here
	serviceOptions []dynacrud.Option
)

var rootCmd = &cobra.Command{
	Use:   "dynacrud",
	Short: "Configuration driven CRUD over DynamoDB tables",
	Long: `dynacrud reads a YAML table configuration, provisions the described
tables and runs create, read, update, delete and search operations against them.
Results are written to stdout as JSON.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations["service"] != "true" {
			return nil
		}
		return openService(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "dynacrud.yaml", "Path to the table configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level; overrides DYNACRUD_LOG_LEVEL")
}

func openService(ctx context.Context) error {
	md, err := dynacrud.LoadMetadata()
	if err != nil {
		return err
	}
	if logLevel != "" {
		md.LogLevel = logLevel
	}

	logger, err = dynacrud.NewLogger(md.LogLevel)
	if err != nil {
		return err
	}

	cfg, err := dynacrud.LoadConfig(configPath)
	if err != nil {
		return err
	}

	opts := append([]dynacrud.Option{
		dynacrud.WithLogger(logger),
		dynacrud.WithMetadata(md),
	}, serviceOptions...)

	service, err = dynacrud.New(ctx, cfg, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}
	return nil
}

// needsService marks cmd as requiring a ready Service before it runs.
func needsService(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations["service"] = "true"
	return cmd
}
