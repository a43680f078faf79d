package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vmunix/bellhop/internal/config"
	"github.com/vmunix/bellhop/internal/database"
	"github.com/vmunix/bellhop/internal/session"
)

var pruneMaxIdle time.Duration

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and revoke login sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsRevokeCmd = &cobra.Command{
	Use:   "revoke <user_id>",
	Short: "Delete every session of a Matrix user",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsRevoke,
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete sessions idle longer than --max-idle",
	Args:  cobra.NoArgs,
	RunE:  runSessionsPrune,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsRevokeCmd)
	sessionsCmd.AddCommand(sessionsPruneCmd)

	sessionsPruneCmd.Flags().DurationVar(&pruneMaxIdle, "max-idle", 0, "Idle cutoff (default: sessions.max_idle from config)")
}

// sessionInfo is the listing shape. It carries a short id prefix and never
// the access token.
type sessionInfo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

func openStore() (*session.Store, *config.Config, func(), error) {
	path, err := resolveConfigPath(nil)
	if err != nil {
		return nil, nil, nil, err
	}
	// Session commands only need the database path.
	cfg, err := config.LoadWithoutValidation(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	return session.NewStore(db), cfg, func() { _ = db.Close() }, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	store, _, closeDB, err := openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	sessions, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	infos := make([]sessionInfo, len(sessions))
	for i, s := range sessions {
		infos[i] = sessionInfo{ID: shortID(s.ID), UserID: s.UserID, CreatedAt: s.CreatedAt, LastSeen: s.LastSeen}
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	if len(infos) == 0 {
		fmt.Fprintln(out, "No active sessions.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tCREATED\tLAST SEEN")
	for _, s := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.UserID, s.CreatedAt.Local().Format(time.DateTime), humanize.Time(s.LastSeen))
	}
	return w.Flush()
}

func runSessionsRevoke(cmd *cobra.Command, args []string) error {
	store, _, closeDB, err := openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	n, err := store.DeleteByUser(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Revoked %d session(s) for %s\n", n, args[0])
	return nil
}

func runSessionsPrune(cmd *cobra.Command, args []string) error {
	store, cfg, closeDB, err := openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	maxIdle := pruneMaxIdle
	if maxIdle <= 0 {
		maxIdle = cfg.Sessions.MaxIdle
	}

	n, err := store.PruneIdle(cmd.Context(), time.Now().Add(-maxIdle))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d session(s) idle longer than %s\n", n, maxIdle)
	return nil
}
