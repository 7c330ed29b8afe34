package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"peerprep/backend/internal/config"
	"peerprep/backend/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	Format string // "json" | "text"

	store storage.Storage
}

var validFormats = []string{"text", "json"}

// newRootCommand builds the CLI. A nil store is opened from the configuration
// on first use.
func newRootCommand(store storage.Storage) *cobra.Command {
	opts := &rootOptions{store: store}

	cmd := &cobra.Command{
		Use:           "admin",
		Short:         "Inspect and maintain the matching service's stored state",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			if opts.store != nil {
				return nil
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			opts.store = store
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newHistoryCommand(opts))
	cmd.AddCommand(newMatchCommand(opts))
	cmd.AddCommand(newQueueCommand(opts))
	cmd.AddCommand(newForgetCommand(opts))
	return cmd
}

// openStore connects with the service's own configuration. Redis is optional.
func openStore() (storage.Storage, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			rdb = nil
		}
	}
	return storage.NewStorageService(db, rdb), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <user_id>",
		Short: "List a user's matches, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matches, err := opts.store.GetMatchesForUser(args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				return printJSON(out, matches)
			}
			if len(matches) == 0 {
				fmt.Fprintf(out, "No matches for %s.\n", args[0])
				return nil
			}
			for _, m := range matches {
				fmt.Fprintf(out, "%s  %s  %s <-> %s  %s/%s/%dmin\n",
					m.CreatedAt.Format(time.RFC3339), m.Status, m.UserA, m.UserB,
					m.AgreedTopic, m.AgreedDifficulty, m.AgreedTime)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of matches (0 for all)")
	return cmd
}

func newMatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "match <match_id>",
		Short: "Show one stored match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.store.GetMatchByID(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				return printJSON(out, m)
			}
			fmt.Fprintf(out, "Match:    %s\nUsers:    %s, %s\nTerms:    %s/%s/%dmin\nStatus:   %s\nCreated:  %s\n",
				m.MatchID, m.UserA, m.UserB, m.AgreedTopic, m.AgreedDifficulty, m.AgreedTime,
				m.Status, m.CreatedAt.Format(time.RFC3339))
			if m.ResolvedAt != nil {
				fmt.Fprintf(out, "Resolved: %s\n", m.ResolvedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newQueueCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "List users currently searching, as mirrored in Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := opts.store.GetSearchingUsers()
			if err != nil {
				return err
			}
			slices.Sort(users)
			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				return printJSON(out, users)
			}
			fmt.Fprintf(out, "%d searching\n", len(users))
			for _, u := range users {
				fmt.Fprintln(out, u)
			}
			return nil
		},
	}
}

func newForgetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <user_id>",
		Short: "Delete a user's saved preferences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := opts.store.DeletePreference(args[0])
			if errors.Is(err, storage.ErrPreferenceNotFound) {
				fmt.Fprintf(cmd.OutOrStdout(), "No saved preferences for %s.\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Preferences of %s deleted.\n", args[0])
			return nil
		},
	}
}
