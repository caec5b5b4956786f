package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fanplatform.dk/internal/models"
)

func passwordFrom(password string) (string, error) {
	if password == "" {
		password = os.Getenv("FAN_PASSWORD")
	}
	if password == "" {
		return "", errors.New("password is required (--password or FAN_PASSWORD)")
	}
	return password, nil
}

func loginCmd(a *app) *cobra.Command {
	var emailAddr, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFrom(password)
			if err != nil {
				return err
			}
			resp, err := a.client.Login(cmd.Context(), emailAddr, pw)
			if err != nil {
				return err
			}
			if err := a.saveToken(); err != nil {
				return err
			}
			if resp.User != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", resp.User.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&emailAddr, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (or FAN_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func signupCmd(a *app) *cobra.Command {
	var form models.SignupForm
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFrom(form.Password)
			if err != nil {
				return err
			}
			form.Password = pw
			resp, err := a.client.Signup(cmd.Context(), form)
			if err != nil {
				return err
			}
			if err := a.saveToken(); err != nil {
				return err
			}
			if resp.User != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s\n", resp.User.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&form.Name, "name", "", "full name")
	cmd.Flags().StringVar(&form.Email, "email", "", "account email")
	cmd.Flags().StringVar(&form.Password, "password", "", "password (or FAN_PASSWORD)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.client.Logout(cmd.Context())
			if serr := a.saveToken(); serr != nil {
				return serr
			}
			return err
		},
	}
}

func profileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.coord.Profile(cmd.Context())
			if err != nil {
				return err
			}
			printProfile(cmd.OutOrStdout(), p)
			return nil
		},
	}

	var name, emailAddr string
	var notifyEmail, notifyPush bool
	set := &cobra.Command{
		Use:   "set",
		Short: "Update profile fields; only the flags given are changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd models.ProfileUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				upd.Name = &name
			}
			if flags.Changed("email") {
				upd.Email = &emailAddr
			}
			if flags.Changed("notify-email") {
				upd.NotifyEmail = &notifyEmail
			}
			if flags.Changed("notify-push") {
				upd.NotifyPush = &notifyPush
			}
			if _, err := a.coord.Profile(cmd.Context()); err != nil {
				return err
			}
			p, err := a.coord.UpdateProfile(cmd.Context(), upd)
			if err != nil {
				return err
			}
			printProfile(cmd.OutOrStdout(), *p)
			return nil
		},
	}
	set.Flags().StringVar(&name, "name", "", "display name")
	set.Flags().StringVar(&emailAddr, "email", "", "contact email")
	set.Flags().BoolVar(&notifyEmail, "notify-email", false, "email notifications")
	set.Flags().BoolVar(&notifyPush, "notify-push", false, "push notifications")

	avatar := &cobra.Command{
		Use:   "avatar <image>",
		Short: "Upload a profile picture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := uploadFile(args[0], func(name string, r io.Reader) (string, error) {
				return a.client.UploadAvatar(cmd.Context(), name, r)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}

	cmd.AddCommand(set, avatar)
	return cmd
}

func printProfile(w io.Writer, p models.Profile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", p.Name)
	fmt.Fprintf(tw, "Email:\t%s\n", p.Email)
	if p.AvatarURL != "" {
		fmt.Fprintf(tw, "Avatar:\t%s\n", p.AvatarURL)
	}
	fmt.Fprintf(tw, "Email notifications:\t%s\n", strconv.FormatBool(p.NotifyEmail))
	fmt.Fprintf(tw, "Push notifications:\t%s\n", strconv.FormatBool(p.NotifyPush))
	tw.Flush()
}

func uploadFile(path string, upload func(name string, r io.Reader) (string, error)) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open '%s': %w", path, err)
	}
	defer f.Close()
	return upload(filepath.Base(path), f)
}
