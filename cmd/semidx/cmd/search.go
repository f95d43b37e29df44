package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kvasirlabs/semidx/internal/search"
	"github.com/kvasirlabs/semidx/internal/store"
)

type searchOptions struct {
	contentType string
	limit       int
	threshold   float64
	format      string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed content by meaning",
		Long: `Embed the query and rank indexed chunks by cosine similarity.

Examples:
  semidx search "authentication middleware"
  semidx search "database migration" --type code --limit 5
  semidx search "setup instructions" --threshold 0.6 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.contentType, "type", "t", "", "Restrict to a content type: task, code, doc")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", search.DefaultLimit, "Maximum number of results")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Minimum similarity score")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	searchOpts := search.Options{Limit: opts.limit, Threshold: opts.threshold}
	if opts.contentType != "" {
		ct, err := store.ParseContentType(opts.contentType)
		if err != nil {
			return err
		}
		searchOpts.Types = []store.ContentType{ct}
	}

	results, err := search.New(a.store, a.embedder).SearchText(cmd.Context(), query, searchOpts)
	if err != nil {
		return err
	}
	return writeResults(cmd.OutOrStdout(), results, opts.format)
}

// jsonResult is the stable JSON shape for search and similar output.
type jsonResult struct {
	Rank        int     `json:"rank"`
	Similarity  float64 `json:"similarity"`
	ContentType string  `json:"content_type"`
	ContentID   string  `json:"content_id"`
	ChunkIndex  int     `json:"chunk_index"`
	Preview     string  `json:"preview,omitempty"`
	Metadata    string  `json:"metadata,omitempty"`
}

func writeResults(w io.Writer, results []search.Result, format string) error {
	switch format {
	case "json":
		out := make([]jsonResult, len(results))
		for i, r := range results {
			out[i] = jsonResult{
				Rank:        r.Rank,
				Similarity:  r.Similarity,
				ContentType: string(r.Record.ContentType),
				ContentID:   r.Record.ContentID,
				ChunkIndex:  r.Record.ChunkIndex,
				Preview:     r.Record.ContentPreview,
				Metadata:    r.Record.Metadata,
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)

	case "text":
		if len(results) == 0 {
			fmt.Fprintln(w, "No results.")
			return nil
		}
		for _, r := range results {
			fmt.Fprintf(w, "%2d. [%.3f] %s %s", r.Rank, r.Similarity,
				r.Record.ContentType, r.Record.ContentID)
			if r.Record.ChunkIndex > 0 {
				fmt.Fprintf(w, " (chunk %d)", r.Record.ChunkIndex)
			}
			fmt.Fprintln(w)
			if preview := strings.TrimSpace(r.Record.ContentPreview); preview != "" {
				fmt.Fprintf(w, "    %s\n", firstLine(preview))
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown format %q (want text or json)", format)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
