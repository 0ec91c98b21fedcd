package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/twinfer/ontocloud"
	"github.com/twinfer/ontocloud/config"
)

// Set with -ldflags "-X main.version=..."
var version = "dev"

// app carries what every subcommand needs once the root command has run.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "ontocloud",
		Short: "Convert JSON documents to RDF and load them into Fuseki",
		Long: `ontocloud turns JSON objects into RDF Turtle documents, keeps uploaded
datasets and produced Turtle in a SQL store, and bulk-loads Turtle into an
Apache Jena Fuseki triple store.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newServeCmd(a),
		newConvertCmd(a),
		newLoadCmd(a),
		newExportCmd(a),
		newUploadCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

func (a *app) init() error {
	cfg := config.DefaultConfig()
	if a.configPath != "" {
		loaded, err := config.LoadFromFile(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := cfg.Log.Build()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// openStore opens the configured database.
func (a *app) openStore() (*ontocloud.Store, error) {
	db := a.cfg.Database
	switch db.Driver {
	case "postgres":
		return ontocloud.NewStorePostgreSQL(db.DSN)
	default:
		opts := make([]ontocloud.StoreOption, 0, len(db.Pragmas))
		for k, v := range db.Pragmas {
			opts = append(opts, ontocloud.WithPragma(k, v))
		}
		return ontocloud.NewStoreSQLite(db.DSN, opts...)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// No config or logger needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ontocloud %s\n", version)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
