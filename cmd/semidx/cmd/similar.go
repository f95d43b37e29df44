package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kvasirlabs/semidx/internal/search"
	"github.com/kvasirlabs/semidx/internal/store"
)

func newSimilarCmd() *cobra.Command {
	var opts searchOptions
	var searchTypes []string

	cmd := &cobra.Command{
		Use:   "similar <type> <id>",
		Short: "Find content similar to an indexed item",
		Long: `Rank indexed items by similarity to an already-indexed item. The item
itself is excluded and multi-chunk files are collapsed to their best chunk.

Examples:
  semidx similar task "#42"
  semidx similar code internal/auth/token.go --types doc --limit 5`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimilar(cmd, args[0], args[1], searchTypes, opts)
		},
	}

	cmd.Flags().StringSliceVar(&searchTypes, "types", nil, "Content types to search (default all)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", search.DefaultLimit, "Maximum number of results")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Minimum similarity score")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSimilar(cmd *cobra.Command, typeArg, id string, searchTypes []string, opts searchOptions) error {
	sourceType, err := store.ParseContentType(typeArg)
	if err != nil {
		return err
	}

	searchOpts := search.Options{Limit: opts.limit, Threshold: opts.threshold}
	for _, st := range searchTypes {
		ct, err := store.ParseContentType(st)
		if err != nil {
			return err
		}
		searchOpts.Types = append(searchOpts.Types, ct)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	results, err := search.New(a.store, a.embedder).FindSimilar(cmd.Context(), sourceType, id, searchOpts)
	if err != nil {
		return err
	}
	return writeResults(cmd.OutOrStdout(), results, opts.format)
}
