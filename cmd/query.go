package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docpilot/internal/vectordb"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Semantically search document paragraphs",
	Long:  `Searches the paragraph index using a natural language query and returns the closest paragraphs with their document and style.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().Int("limit", 10, "maximum number of results")
	queryCmd.Flags().String("document", "", "restrict results to one document ID")
	queryCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	limit, _ := cmd.Flags().GetInt("limit")
	documentID, _ := cmd.Flags().GetString("document")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.index != nil && a.index.Count() == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Index is empty. Run `docpilot index` first.")
		return nil
	}

	results, err := a.service.Search(ctx, args[0], documentID, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No results found.")
		return nil
	}

	if jsonOutput {
		return printQueryResultsJSON(cmd.OutOrStdout(), results)
	}
	fmt.Fprint(cmd.OutOrStdout(), vectordb.FormatResults(results))
	return nil
}

type queryResultJSON struct {
	Rank         int     `json:"rank"`
	Similarity   float64 `json:"similarity"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	Paragraph    int     `json:"paragraph"`
	Style        string  `json:"style,omitempty"`
	Text         string  `json:"text"`
}

func printQueryResultsJSON(w io.Writer, results []vectordb.SearchResult) error {
	out := make([]queryResultJSON, 0, len(results))
	for i, r := range results {
		m := r.Document.Metadata
		out = append(out, queryResultJSON{
			Rank:         i + 1,
			Similarity:   float64(r.Similarity),
			DocumentID:   m.DocumentID,
			DocumentName: m.DocumentName,
			Paragraph:    m.Paragraph,
			Style:        m.Style,
			Text:         r.Document.Content,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
