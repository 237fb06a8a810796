package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	svc "github.com/krshsl/brandcast/services"
)

var (
	tokenOwner string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a bearer token that identifies an owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		owners := svc.NewOwnerIdentifier(nil, config.Auth.JWTSecret, config.Auth.DefaultOwnerID)
		owner := tokenOwner
		if owner == "" {
			owner = owners.DefaultOwnerID()
		}
		token, err := owners.IssueToken(owner, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenOwner, "owner", "", "owner id (defaults to DEFAULT_OWNER_ID)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}
