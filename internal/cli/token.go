package cli

import (
	"errors"
	"fmt"
	"time"

	"game-economy-ledger/config"
	"game-economy-ledger/internal/service"

	"github.com/spf13/cobra"
)

func newTokenCommand(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "token SUBJECT",
		Short: "Mint a bearer token for a collaborating game module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if cfg.JWT.Secret == "" {
				return errors.New("jwt.secret must be set")
			}
			tokens := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
			token, expires, err := tokens.Generate(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n# expires %s\n", token, expires.UTC().Format(time.RFC3339))
			return nil
		},
	}
}
