package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"darkest-dnd-server/auth"
	"darkest-dnd-server/config"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an admin token signed with ADMIN_TOKEN_SECRET",
	Long: `Issues a token that admits a new session as game master when passed as
/ws?token=..., and authorizes mutating operator routes as a bearer token.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		tok, err := auth.Issue(cfg.AdminTokenSecret, tokenSubject, tokenTTL)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "game-master", "token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 12*time.Hour, "token lifetime")
}
