// Command tokengen mints operator bearer tokens for the listing history
// endpoint. The signing secret defaults to $JWT_SECRET.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yiyuan-he/agentic-enablement-eval/internal/utils"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		secret  string
		subject string
		role    string
		ttl     time.Duration
		verbose bool
	)
	cmd := &cobra.Command{
		Use:          "tokengen",
		Short:        "Mint a bearer token for GET /api/buckets/history",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				return fmt.Errorf("signing secret required: pass --secret or set JWT_SECRET")
			}
			tok, err := utils.NewAccessToken(secret, subject, role, ttl)
			if err != nil {
				return err
			}
			if verbose {
				fmt.Fprintf(out, "# sub=%s role=%s expires=%s\n", subject, role, tok.Exp.Format(time.RFC3339))
			}
			fmt.Fprintln(out, tok.Token)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HS256 signing secret")
	f.StringVar(&subject, "sub", "operator", "token subject")
	f.StringVar(&role, "role", utils.RoleOperator, "role claim")
	f.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	f.BoolVarP(&verbose, "verbose", "v", false, "print claims before the token")
	return cmd
}
