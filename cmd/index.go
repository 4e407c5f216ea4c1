package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/docpilot/internal/progress"
	"github.com/ziadkadry99/docpilot/internal/walker"
	"github.com/ziadkadry99/docpilot/internal/workspace"
)

var indexCmd = &cobra.Command{
	Use:   "index [PATH...]",
	Short: "Import documents and build the semantic search index",
	Long: `Imports every document matched by PATH into the workspace and indexes its
paragraphs for semantic search. Without arguments, rebuilds the index for
all documents already in the workspace.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.index == nil {
		return workspace.ErrIndexDisabled
	}

	if len(args) > 0 {
		files, err := walker.Expand(args, walker.WalkerConfig{
			Include: cfg.Include,
			Exclude: cfg.Exclude,
		})
		if err != nil {
			return err
		}
		imported := importFiles(ctx, a.service, files, progress.NewReporter("Importing"))
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d document(s)\n", imported, len(files))
	}

	n, err := a.service.ReindexAll(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d paragraph(s); index holds %d\n", n, a.index.Count())
	return nil
}

// importFiles adds files to the workspace, skipping byte-identical
// duplicates within the batch, and returns how many were imported.
func importFiles(ctx context.Context, svc *workspace.Service, files []walker.FileInfo, reporter progress.Reporter) int {
	seen := make(map[string]bool)
	imported := 0

	reporter.Start(len(files))
	for i, f := range files {
		reporter.Update(i+1, f.RelPath)
		if seen[f.ContentHash] {
			logger.Debug("skipping duplicate", zap.String("path", f.Path))
			continue
		}
		seen[f.ContentHash] = true

		data, err := os.ReadFile(f.Path)
		if err != nil {
			logger.Warn("reading document", zap.String("path", f.Path), zap.Error(err))
			continue
		}
		if _, err := svc.Import(ctx, cliActor(), f.Path, data); err != nil {
			logger.Warn("importing document", zap.String("path", f.Path), zap.Error(err))
			continue
		}
		imported++
	}
	reporter.Finish()
	return imported
}
