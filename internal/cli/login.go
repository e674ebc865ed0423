package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/me/hackloud/pkg/hackloud"
	"github.com/me/hackloud/pkg/model"
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var email, token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to Mi Disco Duro",
		Long: "Sign in with email and password, or adopt an existing token with --token.\n" +
			"The token is stored only once the backend confirms it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if token == "" {
				p := newPrompter(cmd)
				var err error
				if email == "" {
					if email, err = p.line("Email: "); err != nil {
						return err
					}
				}
				password, err := p.secret("Password: ")
				if err != nil {
					return err
				}
				token, err = client.Login(ctx, model.Credentials{Email: email, Password: password})
				if err != nil {
					return fmt.Errorf("login: %s", hackloud.Message(err))
				}
			}

			if err := sess.Login(ctx, token); err != nil {
				return fmt.Errorf("login: %s", hackloud.Message(err))
			}
			u := sess.Snapshot().User
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", u.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted if omitted)")
	cmd.Flags().StringVar(&token, "token", "", "Use an existing token instead of email and password")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sess.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

type whoami struct {
	User      *model.User `json:"user" yaml:"user"`
	Admin     bool        `json:"admin" yaml:"admin"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty" yaml:"expires_at,omitempty"`
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := requireSession(cmd.Context())
			if err != nil {
				return err
			}
			snap := sess.Snapshot()
			out := whoami{User: snap.User, Admin: snap.IsAdmin()}
			if claims, err := hackloud.ParseTokenClaims(tok); err == nil && !claims.ExpiresAt.IsZero() {
				out.ExpiresAt = &claims.ExpiresAt
			}
			return render(cmd.OutOrStdout(), out, func(w io.Writer) error {
				if err := printUser(w, out.User, client.AvatarURL(out.User)); err != nil {
					return err
				}
				if out.Admin {
					fmt.Fprintln(w, "You have admin rights.")
				}
				if out.ExpiresAt != nil {
					fmt.Fprintf(w, "Session expires %s\n", humanize.Time(*out.ExpiresAt))
				}
				return nil
			})
		},
	}
}

func newRegisterCmd() *cobra.Command {
	var reg model.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd)
			var err error
			if reg.Username == "" {
				if reg.Username, err = p.line("Username: "); err != nil {
					return err
				}
			}
			if reg.Email == "" {
				if reg.Email, err = p.line("Email: "); err != nil {
					return err
				}
			}
			if reg.Password, err = p.secret("Password: "); err != nil {
				return err
			}

			id, err := client.Register(cmd.Context(), reg)
			if err != nil {
				return describe("register", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %s created, sign in with 'hackloud login --email %s'\n", id, reg.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&reg.Username, "username", "", "Username (prompted if omitted)")
	cmd.Flags().StringVar(&reg.Email, "email", "", "Email (prompted if omitted)")
	return cmd
}
