package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/drawkeeper/internal/server/auth"
)

func newTokenCmd() *cobra.Command {
	var (
		secret  string
		subject string
		ttl     time.Duration
		service bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with the server secret",
		Long: `Mint a bearer token signed with the server secret.

Owner tokens carry the owner id as subject. Service tokens may only call
the status endpoint.

Examples:
  drawctl token --secret "$DRAWKEEPER_SECRET" --owner alice
  drawctl token --secret "$DRAWKEEPER_SECRET" --owner poller --service --ttl 720h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("--secret is required")
			}
			kind := auth.KindOwner
			if service {
				kind = auth.KindService
			}
			tok, err := auth.GenerateToken(subject, kind, []byte(secret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "JWT signing secret of the server")
	cmd.Flags().StringVar(&subject, "owner", "", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token validity")
	cmd.Flags().BoolVar(&service, "service", false, "mint a service token instead of an owner token")
	return cmd
}
