package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/daimoniac/apilog/internal/config"
	apierrors "github.com/daimoniac/apilog/internal/errors"
	"github.com/daimoniac/apilog/internal/session"
)

func newSessionsCmd() *cobra.Command {
	sessions := &cobra.Command{
		Use:   "sessions",
		Short: "Manage sessions in the sqlite session store",
		Long: `Sessions are shared with a running server through the sqlite store
(SESSION_STORE=sqlite). The memory store only lives inside the serving
process, so these commands refuse to run against it.`,
	}

	sessions.AddCommand(newSessionsIssueCmd())
	sessions.AddCommand(newSessionsRevokeCmd())

	return sessions
}

func newSessionsIssueCmd() *cobra.Command {
	var (
		userID string
		perms  []string
		ttl    time.Duration
	)

	issue := &cobra.Command{
		Use:   "issue",
		Short: "Create a session for a user and print its cookie",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := openSharedStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if !cmd.Flags().Changed("ttl") {
				ttl = cfg.Session.TTL
			}

			s, err := session.Create(cmd.Context(), store, &session.User{ID: userID, Perms: perms}, ttl)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s session %s for %s\n", okStyle.Render("OK"), s.ID, nameStyle.Render(userID))
			if s.ExpiresAt.IsZero() {
				fmt.Fprintln(out, "  never expires")
			} else {
				fmt.Fprintf(out, "  expires %s\n", s.ExpiresAt.Format(time.RFC3339))
			}
			fmt.Fprintf(out, "  Cookie: %s=%s\n", cfg.Session.CookieName, s.ID)
			return nil
		},
	}

	issue.Flags().StringVar(&userID, "user", "", "user id the session belongs to")
	issue.Flags().StringArrayVar(&perms, "perm", nil, "permission granted to the user (repeatable)")
	issue.Flags().DurationVar(&ttl, "ttl", 0, "session lifetime, 0 never expires (default SESSION_TTL)")
	_ = issue.MarkFlagRequired("user")

	return issue
}

func newSessionsRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := openSharedStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to revoke session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s session %s revoked\n", okStyle.Render("OK"), args[0])
			return nil
		},
	}
}

// openSharedStore opens the sqlite store a running server reads from
func openSharedStore() (*config.Config, *session.SQLiteStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Session.Store != "sqlite" {
		return nil, nil, fmt.Errorf("%w: session commands need SESSION_STORE=sqlite, got %s", apierrors.ErrInvalidInput, cfg.Session.Store)
	}

	store, err := session.NewSQLiteStore(cfg.Session.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize sqlite session store: %w", err)
	}
	return cfg, store, nil
}
