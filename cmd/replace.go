package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/docpilot/internal/batch"
	"github.com/ziadkadry99/docpilot/internal/docx"
	"github.com/ziadkadry99/docpilot/internal/progress"
	"github.com/ziadkadry99/docpilot/internal/spanedit"
	"github.com/ziadkadry99/docpilot/internal/walker"
)

var replaceCmd = &cobra.Command{
	Use:   "replace FIND REPLACE PATH...",
	Short: "Find and replace text in .docx files, preserving formatting",
	Long: `Replaces text in every document matched by PATH. Each PATH may be a file,
a directory (filtered by the include/exclude patterns in .docpilot.yml) or a
glob such as "contracts/**/*.docx". Files are edited in place; matches may
cross formatting runs but never paragraphs.`,
	Args: cobra.MinimumNArgs(3),
	RunE: runReplace,
}

func init() {
	replaceCmd.Flags().Bool("all", false, "replace every occurrence instead of the first per document")
	replaceCmd.Flags().Bool("allow-degraded", false, "fall back to plain text when formatting cannot be preserved")
	replaceCmd.Flags().Bool("dry-run", false, "report matches without writing files")
	replaceCmd.Flags().IntP("jobs", "j", 4, "number of documents to edit in parallel")
	rootCmd.AddCommand(replaceCmd)
}

// replaceOptions configures a batch replacement.
type replaceOptions struct {
	Find    string
	Replace string
	All     bool
	DryRun  bool
	Jobs    int
	Editor  spanedit.Options
}

// fileOutcome is the result of replacing within one file.
type fileOutcome struct {
	File     walker.FileInfo
	Count    int
	Degraded bool
	Capped   bool
	// Matches lists every occurrence found, filled on dry runs.
	Matches []spanedit.Match
	Err     error
}

func runReplace(cmd *cobra.Command, args []string) error {
	opts := replaceOptions{
		Find:    args[0],
		Replace: args[1],
		Editor: spanedit.Options{
			MaxReplacements: cfg.MaxReplacements,
			AllowDegraded:   cfg.AllowDegraded,
		},
	}
	if opts.Find == "" {
		return fmt.Errorf("search text must not be empty")
	}
	opts.All, _ = cmd.Flags().GetBool("all")
	opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
	opts.Jobs, _ = cmd.Flags().GetInt("jobs")
	if cmd.Flags().Changed("allow-degraded") {
		opts.Editor.AllowDegraded, _ = cmd.Flags().GetBool("allow-degraded")
	}

	files, err := walker.Expand(args[2:], walker.WalkerConfig{
		Include: cfg.Include,
		Exclude: cfg.Exclude,
	})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No documents found.")
		return nil
	}

	task := "Replacing"
	if opts.DryRun {
		task = "Scanning"
	}
	outcomes := replaceFiles(cmd.Context(), files, opts, progress.NewReporter(task))
	return printReplaceSummary(cmd.OutOrStdout(), outcomes, opts.DryRun)
}

// replaceFiles edits files concurrently. A failure in one file does not
// stop the batch; files with errors or no matches are left untouched.
func replaceFiles(ctx context.Context, files []walker.FileInfo, opts replaceOptions, reporter progress.Reporter) []fileOutcome {
	editor := spanedit.New(opts.Editor)

	reporter.Start(len(files))
	b := batch.New[walker.FileInfo, fileOutcome](opts.Jobs, func(done, _ int, f walker.FileInfo) {
		reporter.Update(done, f.RelPath)
	})
	results := b.Run(ctx, files, func(_ context.Context, f walker.FileInfo) (fileOutcome, error) {
		return replaceFile(editor, f, opts), nil
	})
	reporter.Finish()

	outcomes := make([]fileOutcome, len(files))
	for i, r := range results {
		out := r.Value
		if r.Err != nil {
			out = fileOutcome{File: files[i], Err: r.Err}
		}
		if out.Err != nil {
			logger.Warn("replace failed", zap.String("path", out.File.Path), zap.Error(out.Err))
		} else {
			logger.Debug("replace done", zap.String("path", out.File.Path), zap.Int("count", out.Count))
		}
		outcomes[i] = out
	}
	return outcomes
}

func replaceFile(editor *spanedit.Editor, f walker.FileInfo, opts replaceOptions) fileOutcome {
	out := fileOutcome{File: f}
	pkg, err := docx.Open(f.Path)
	if err != nil {
		out.Err = err
		return out
	}
	if opts.DryRun {
		out.Matches = spanedit.FindInDocument(pkg.Document, opts.Find)
	}
	res, err := editor.ReplaceInDocument(pkg.Document, opts.Find, opts.Replace, opts.All)
	if err != nil {
		out.Err = err
		return out
	}
	out.Count, out.Degraded, out.Capped = res.Count, res.Degraded, res.Capped
	if res.Count == 0 || opts.DryRun {
		return out
	}
	if err := pkg.Save(f.Path); err != nil {
		out.Err = err
	}
	return out
}

func printReplaceSummary(w io.Writer, outcomes []fileOutcome, dryRun bool) error {
	var total, changed, failed int
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			failed++
			fmt.Fprintf(w, "  FAIL %s: %v\n", o.File.RelPath, o.Err)
		case o.Count > 0:
			changed++
			total += o.Count
			note := ""
			if o.Degraded {
				note += " (formatting discarded)"
			}
			if o.Capped {
				note += " (replacement limit reached)"
			}
			fmt.Fprintf(w, "  %4d  %s%s\n", o.Count, o.File.RelPath, note)
			for _, m := range o.Matches {
				fmt.Fprintf(w, "        paragraph %d, bytes %d-%d\n", m.Paragraph+1, m.Span.Start, m.Span.End)
			}
		}
	}

	verb := "Replaced"
	if dryRun {
		verb = "Would replace"
	}
	fmt.Fprintf(w, "\n%s %d occurrence(s) in %d of %d document(s)\n", verb, total, changed, len(outcomes))
	if failed > 0 {
		if failedSpans(outcomes) {
			fmt.Fprintln(w, "Some matches could not be edited without losing formatting; rerun with --allow-degraded to force them.")
		}
		return fmt.Errorf("%d document(s) failed", failed)
	}
	return nil
}

func failedSpans(outcomes []fileOutcome) bool {
	for _, o := range outcomes {
		if errors.Is(o.Err, spanedit.ErrInconsistentSpan) {
			return true
		}
	}
	return false
}
