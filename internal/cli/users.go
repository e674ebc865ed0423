package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List all accounts (admin only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tok, err := requireAdmin(ctx)
			if err != nil {
				return err
			}
			users, err := client.ListUsers(ctx, tok)
			if err != nil {
				return describe("list users", err)
			}
			return render(cmd.OutOrStdout(), users, func(w io.Writer) error {
				tw := newTable(w)
				fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tROLE\tACTIVE")
				for _, u := range users {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", u.ID, u.Username, u.Email, u.Role, u.Active)
				}
				return tw.Flush()
			})
		},
	}
}
