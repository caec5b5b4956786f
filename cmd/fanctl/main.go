// cmd/fanctl/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fanplatform.dk/internal/apiclient"
	"fanplatform.dk/internal/config"
	"fanplatform.dk/internal/coordinator"
	"fanplatform.dk/internal/querycache"
	"fanplatform.dk/internal/utils"
)

var Version = "dev"

// app is what every subcommand works with once the root command has run.
type app struct {
	cfg       config.ClientConfig
	client    *apiclient.Client
	coord     *coordinator.Coordinator
	tokenPath string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var (
		configPath string
		clubID     int64
		linkOnly   bool
		verbose    bool
	)

	root := &cobra.Command{
		Use:           "fanctl",
		Short:         "Pay club fees and manage club payments from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initCLILogger(verbose)

			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			a.cfg = cfg.Client
			if cmd.Flags().Changed("club") {
				a.cfg.ClubID = clubID
			}
			if linkOnly {
				a.cfg.RedirectMode = config.RedirectLink
			}
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", getenv("CONFIG_PATH", "configs/config.yaml"), "path to the YAML configuration")
	root.PersistentFlags().Int64Var(&clubID, "club", 0, "club id (defaults to client.club_id)")
	root.PersistentFlags().BoolVar(&linkOnly, "link", false, "print checkout links instead of opening a browser")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(feesCmd(a))
	root.AddCommand(paymentsCmd(a))
	root.AddCommand(loginCmd(a))
	root.AddCommand(signupCmd(a))
	root.AddCommand(logoutCmd(a))
	root.AddCommand(profileCmd(a))
	root.AddCommand(settingsCmd(a))
	root.AddCommand(activitiesCmd(a))
	root.AddCommand(rsvpCmd(a))
	return root
}

// initCLILogger keeps stdout for command output.
func initCLILogger(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func (a *app) init(cmd *cobra.Command) error {
	clientIDPath, err := statePath(a.cfg.ClientIDPath, "client_id")
	if err != nil {
		return err
	}
	if a.tokenPath, err = statePath(a.cfg.TokenPath, "token"); err != nil {
		return err
	}

	clientID, err := utils.LoadOrCreateClientID(clientIDPath)
	if err != nil {
		return err
	}
	a.client, err = apiclient.New(a.cfg.BaseURL, nil)
	if err != nil {
		return err
	}
	token, err := utils.ReadStateFile(a.tokenPath)
	if err != nil {
		return err
	}
	a.client.SetToken(token)
	if err := a.client.FetchCSRFToken(cmd.Context()); err != nil {
		slog.Debug("No CSRF token fetched", "error", err)
	}

	out := cmd.OutOrStdout()
	a.coord = coordinator.New(a.client, coordinator.Options{
		ClientID:   clientID,
		Redirector: coordinator.NewRedirector(a.cfg.RedirectMode, execBrowser{}, out),
		Fallback:   coordinator.LinkFallbackRedirector{Out: out},
		Notifier:   coordinator.WriterNotifier{Out: cmd.ErrOrStderr()},
		Cache:      querycache.New(30 * time.Second),
	})
	slog.Debug("fanctl ready", "base_url", a.cfg.BaseURL, "club_id", a.cfg.ClubID, "redirect_mode", a.cfg.RedirectMode)
	return nil
}

func (a *app) saveToken() error {
	return utils.WriteStateFile(a.tokenPath, a.client.Token())
}

func statePath(configured, name string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	return utils.DefaultStatePath(name)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
