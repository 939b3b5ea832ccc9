package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"drowsyguard/internal/model"
	"drowsyguard/internal/repository/sqlite"
)

const timeLayout = "2006-01-02 15:04:05"

type options struct {
	dbPath string
	asJSON bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:          "journal",
		Short:        "Inspect the drowsiness session journal",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", filepath.Join("data", "journal.db"), "Database path")
	rootCmd.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "Print JSON instead of a table")

	rootCmd.AddCommand(
		newSessionsCmd(opts),
		newAlertsCmd(opts),
		newStatsCmd(opts),
		newClearCmd(opts),
	)
	return rootCmd
}

func openDB(opts *options) (*sqlite.DB, error) {
	if _, err := os.Stat(opts.dbPath); err != nil {
		return nil, fmt.Errorf("open journal %s: %w", opts.dbPath, err)
	}
	return sqlite.New(opts.dbPath)
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func newSessionsCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(opts)
			if err != nil {
				return err
			}
			defer db.Close()

			sessions, err := sqlite.NewSessionRepository(db).GetAll(limit)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), sessions)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDEVICE\tSTARTED\tDURATION\tALERTS")
			for _, s := range sessions {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", s.ID, deviceLabel(s.DeviceID), s.StartedAt.Local().Format(timeLayout), sessionDuration(s), s.AlertCount)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of sessions")
	return cmd
}

func newAlertsCmd(opts *options) *cobra.Command {
	var (
		sessionID string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List alerts, optionally for one session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(opts)
			if err != nil {
				return err
			}
			defer db.Close()

			alerts, err := sqlite.NewAlertRepository(db).GetAll(&model.AlertFilter{SessionID: sessionID, Limit: limit})
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), alerts)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSESSION\tTIME\tFILE\tSIZE")
			for _, a := range alerts {
				file := a.Filename
				if file == "" {
					file = "-"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", a.ID, a.SessionID, a.Timestamp.Local().Format(timeLayout), file, a.FileSize)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Only alerts of this session")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of alerts")
	return cmd
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the journal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(opts)
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := sqlite.NewAlertRepository(db).GetStats()
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sessions: %d\n", stats.TotalSessions)
			fmt.Fprintf(out, "alerts:   %d\n", stats.TotalAlerts)
			fmt.Fprintf(out, "size:     %.2f MB\n", float64(stats.TotalBytes)/(1024*1024))

			devices := make([]string, 0, len(stats.PerDevice))
			for d := range stats.PerDevice {
				devices = append(devices, d)
			}
			sort.Strings(devices)
			for _, d := range devices {
				fmt.Fprintf(out, "  %s: %d\n", d, stats.PerDevice[d])
			}
			return nil
		},
	}
}

func newClearCmd(opts *options) *cobra.Command {
	var (
		yes       bool
		deleteImg bool
	)
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every session and alert",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the journal without --yes")
			}
			db, err := openDB(opts)
			if err != nil {
				return err
			}
			defer db.Close()

			alertRepo := sqlite.NewAlertRepository(db)
			var files []string
			if deleteImg {
				alerts, err := alertRepo.GetAll(&model.AlertFilter{})
				if err != nil {
					return err
				}
				for _, a := range alerts {
					if a.FilePath != "" {
						files = append(files, a.FilePath)
					}
				}
			}

			if err := sqlite.NewSessionRepository(db).DeleteAll(); err != nil {
				return err
			}

			removed := 0
			for _, f := range files {
				if err := os.Remove(f); err == nil {
					removed++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "journal cleared, %d images removed\n", removed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	cmd.Flags().BoolVar(&deleteImg, "images", false, "Also delete alert snapshots from disk")
	return cmd
}

func deviceLabel(id string) string {
	if id == "" {
		return "default"
	}
	return id
}

func sessionDuration(s model.SessionRecord) string {
	if s.StoppedAt == nil {
		return "running"
	}
	return s.StoppedAt.Sub(s.StartedAt).Round(time.Second).String()
}
