package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kvasirlabs/semidx/internal/chunker"
	"github.com/kvasirlabs/semidx/internal/index"
	"github.com/kvasirlabs/semidx/internal/store"
	"github.com/kvasirlabs/semidx/internal/tasks"
)

type indexOptions struct {
	force    bool
	patterns []string
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index tasks|code|docs [path]",
		Short: "Build or refresh the vector index",
		Long: `Index project content into the vector store. Unchanged content is
detected by hash and skipped; use --force to rebuild everything.

Examples:
  semidx index code
  semidx index docs ./documentation
  semidx index code --pattern "src/**/*.go" --force
  semidx index tasks`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Reindex even if content is unchanged")
	cmd.Flags().StringSliceVarP(&opts.patterns, "pattern", "p", nil, "Glob pattern to include (repeatable, overrides the extension allowlist)")

	return cmd
}

func runIndex(cmd *cobra.Command, args []string, opts indexOptions) error {
	target := args[0]
	root := "."
	if len(args) > 1 {
		root = args[1]
	}

	var contentType store.ContentType
	switch target {
	case "tasks":
		contentType = store.ContentTypeTask
	case "code":
		contentType = store.ContentTypeCode
	case "docs":
		contentType = store.ContentTypeDoc
	default:
		return fmt.Errorf("unknown index target %q (want tasks, code, or docs)", target)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	// One index run per store at a time. Concurrent writers would race on
	// the delete-then-insert sequence.
	dir, err := a.dataDir()
	if err != nil {
		return err
	}
	lock := flock.New(filepath.Join(dir, "index.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire index lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another index run is in progress")
	}
	defer func() { _ = lock.Unlock() }()

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil && isatty.IsTerminal(os.Stdout.Fd()) {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("indexing"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		if bar != nil {
			_ = bar.Set(done)
		}
	}

	ch := chunker.New(chunker.Options{
		MaxSize: a.cfg.Chunking.MaxSize,
		Overlap: a.cfg.Chunking.Overlap,
	})

	ixOpts := []index.Option{
		index.WithExcludeGlobs(a.cfg.Paths.Exclude),
		index.WithProgress(progress),
	}

	var stats index.Stats
	if contentType == store.ContentTypeTask {
		src, err := tasks.OpenSQLite(a.taskDBPath())
		if err != nil {
			return err
		}
		defer src.Close()

		ix, err := index.New(a.store, a.embedder, ch, append(ixOpts, index.WithTaskSource(src))...)
		if err != nil {
			return err
		}
		stats, err = ix.IndexTasks(cmd.Context(), opts.force)
		if err != nil {
			return err
		}
	} else {
		ix, err := index.New(a.store, a.embedder, ch, ixOpts...)
		if err != nil {
			return err
		}
		stats, err = ix.IndexDirectory(cmd.Context(), root, contentType, opts.patterns, opts.force)
		if err != nil {
			return err
		}
	}

	if bar != nil {
		_ = bar.Finish()
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"Indexed %d, skipped %d, %d chunks, %d errors in %s\n",
		stats.ItemsIndexed, stats.ItemsSkipped, stats.ChunksCreated,
		stats.Errors, stats.Duration.Round(time.Millisecond))
	if stats.Errors > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Some items failed; see the log for details.")
	}
	return nil
}
