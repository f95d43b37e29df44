package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-type index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func runStats(cmd *cobra.Command, format string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	all, err := a.store.GetAllStats(cmd.Context())
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	if format == "json" {
		type row struct {
			ContentType   string    `json:"content_type"`
			TotalItems    int       `json:"total_items"`
			TotalChunks   int       `json:"total_chunks"`
			LastIndexedAt time.Time `json:"last_indexed_at"`
			DurationMS    int64     `json:"index_duration_ms"`
		}
		rows := make([]row, len(all))
		for i, s := range all {
			rows[i] = row{
				ContentType:   string(s.ContentType),
				TotalItems:    s.TotalItems,
				TotalChunks:   s.TotalChunks,
				LastIndexedAt: s.LastIndexedAt,
				DurationMS:    s.IndexDurationMS,
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(all) == 0 {
		fmt.Fprintln(w, "Nothing indexed yet. Run 'semidx index' first.")
		return nil
	}

	fmt.Fprintf(w, "%-6s %8s %8s %-20s %10s\n", "TYPE", "ITEMS", "CHUNKS", "LAST INDEXED", "DURATION")
	for _, s := range all {
		fmt.Fprintf(w, "%-6s %8d %8d %-20s %10s\n",
			s.ContentType, s.TotalItems, s.TotalChunks,
			s.LastIndexedAt.Local().Format("2006-01-02 15:04:05"),
			(time.Duration(s.IndexDurationMS) * time.Millisecond).String())
	}
	return nil
}
