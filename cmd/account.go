package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	registerName     string
	registerEmail    string
	registerPassword string
	registerConfirm  string

	loginEmail    string
	loginPassword string

	profileName  string
	profileEmail string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm := registerConfirm
		if !cmd.Flags().Changed("confirm") {
			confirm = registerPassword
		}
		sess, err := current.sessions.Register(cmd.Context(), registerName, registerEmail, registerPassword, confirm)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s! You are logged in as %s.\n", sess.Name, sess.Email)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with email and password",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current.sessions.Login(cmd.Context(), loginEmail, loginPassword)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s).\n", sess.Name, sess.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.sessions.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current.requireSession(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s <%s>\n", sess.Name, sess.Email)
		fmt.Fprintf(out, "User ID:   %s\n", sess.UserID)
		fmt.Fprintf(out, "Logged in: %s\n", sess.LoginTime.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Change the name or email of your account",
	Args:  checkArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current.requireSession(cmd.Context())
		if err != nil {
			return err
		}
		sess, err = current.sessions.UpdateProfile(cmd.Context(), sess, profileName, profileEmail)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Profile updated: %s <%s>\n", sess.Name, sess.Email)
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerName, "name", "", "Your name")
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "Email address used to log in")
	registerCmd.Flags().StringVar(&registerPassword, "password", "", "Password")
	registerCmd.Flags().StringVar(&registerConfirm, "confirm", "", "Repeat the password (defaults to --password)")

	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Email address")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Password")

	profileCmd.Flags().StringVar(&profileName, "name", "", "New name")
	profileCmd.Flags().StringVar(&profileEmail, "email", "", "New email address")
}
