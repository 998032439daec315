// Package cli holds the ledgerd command tree.
package cli

import (
	"errors"
	"io/fs"
	"os"

	"game-economy-ledger/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the ledgerd command. Running it without a
// subcommand starts the server.
func NewRootCommand() *cobra.Command {
	var (
		configPath string
		envFile    string
	)

	root := &cobra.Command{
		Use:           "ledgerd",
		Short:         "Game economy ledger service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default ./config.yaml, env LEDGER_CONFIG)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config; missing is fine")

	load := func() (*config.Config, error) {
		// Existing environment variables win over the dotenv file.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		path := configPath
		if path == "" {
			path = os.Getenv("LEDGER_CONFIG")
		}
		return config.Load(path)
	}

	serve := newServeCommand(load)
	root.AddCommand(serve, newTokenCommand(load))
	root.RunE = serve.RunE
	return root
}
