package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/me/hackloud/internal/profile"
	"github.com/me/hackloud/pkg/model"
	"github.com/spf13/cobra"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show and edit profiles",
	}
	cmd.AddCommand(
		newProfileShowCmd(),
		newProfileUpdateCmd(),
		newAvatarCmd(),
		newPasswordCmd(),
	)
	return cmd
}

func profileService() *profile.Service {
	return profile.NewService(client, sess, logger)
}

func showProfile(cmd *cobra.Command, u *model.User) error {
	return render(cmd.OutOrStdout(), u, func(w io.Writer) error {
		return printUser(w, u, client.AvatarURL(u))
	})
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [user_id]",
		Short: "Show your profile, or another user's public profile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 1 {
				u, err := client.FetchUserByID(ctx, args[0])
				if err != nil {
					return describe("show profile", err)
				}
				return showProfile(cmd, u)
			}
			if _, err := requireSession(ctx); err != nil {
				return err
			}
			u, err := profileService().Load(ctx, "")
			if err != nil {
				return describe("show profile", err)
			}
			return showProfile(cmd, u)
		},
	}
}

func newProfileUpdateCmd() *cobra.Command {
	var fields model.ProfileUpdate

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields",
		Example: `  hackloud profile update --first-name Ana --bio "Backups and cats"
  hackloud profile update --email ana@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := requireSession(ctx); err != nil {
				return err
			}
			u, err := profileService().UpdateProfile(ctx, fields)
			if err != nil {
				return describe("update profile", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Profile updated")
			return showProfile(cmd, u)
		},
	}

	f := cmd.Flags()
	f.StringVar(&fields.Username, "username", "", "New username")
	f.StringVar(&fields.Email, "email", "", "New email")
	f.StringVar(&fields.FirstName, "first-name", "", "First name")
	f.StringVar(&fields.LastName, "last-name", "", "Last name")
	f.StringVar(&fields.Bio, "bio", "", "Short biography")
	return cmd
}

func newAvatarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "avatar",
		Short: "Manage your avatar",
	}

	set := &cobra.Command{
		Use:   "set <image>",
		Short: "Upload a new avatar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := requireSession(ctx); err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open avatar: %w", err)
			}
			defer f.Close()

			u, err := profileService().UpdateAvatar(ctx, f.Name(), f)
			if err != nil {
				return describe("update avatar", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Avatar updated: %s\n", client.AvatarURL(u))
			return nil
		},
	}

	var yes bool
	rm := &cobra.Command{
		Use:   "rm",
		Short: "Remove your avatar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := requireSession(ctx); err != nil {
				return err
			}
			if !confirmDelete(cmd, yes, "your avatar") {
				return nil
			}
			if _, err := profileService().DeleteAvatar(ctx); err != nil {
				return describe("remove avatar", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Avatar removed")
			return nil
		},
	}

	rm.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	cmd.AddCommand(set, rm)
	return cmd
}

func newPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "password",
		Short: "Change your password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := requireSession(ctx); err != nil {
				return err
			}
			p := newPrompter(cmd)
			var change model.PasswordChange
			var err error
			if change.OldPassword, err = p.secret("Current password: "); err != nil {
				return err
			}
			if change.NewPassword, err = p.secret("New password: "); err != nil {
				return err
			}
			if change.ConfirmPassword, err = p.secret("Repeat new password: "); err != nil {
				return err
			}
			if err := profileService().UpdatePassword(ctx, change); err != nil {
				return describe("change password", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password changed")
			return nil
		},
	}
}
