// Package commands defines all Cobra CLI commands for the vecstore binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/vvault/vecstore-go/internal/audit"
	"github.com/vvault/vecstore-go/internal/config"
	"github.com/vvault/vecstore-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vecstore",
		Short: "vecstore — document storage and similarity search over vector databases",
		Long: `vecstore chunks documents, embeds the chunks, and stores them in a vector
database behind a uniform interface.

Supported backends are Pinecone and Qdrant, selected via the
DATASTORE_PROVIDER environment variable or a YAML config file
(~/.vecstore/config.yaml). Documents are split into token-bounded chunks,
embedded via the configured provider, and written as one vector record per
chunk. Similarity queries run concurrently across the backend and return
scored chunks with their metadata.

See 'vecstore --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.vecstore/config.yaml)")

	root.AddCommand(
		NewUpsertCmd(),
		NewQueryCmd(),
		NewDeleteCmd(),
		NewStatsCmd(),
		NewLogCmd(),
		NewVersionCmd(),
	)

	return root
}
