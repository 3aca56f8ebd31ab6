package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/store"
)

// fixture is the JSON layout accepted by "searchctl seed".
type fixture struct {
	Documents []index.Document `json:"documents"`
	Postings  []index.Posting  `json:"postings"`
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var f fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture %s: %w", path, err)
	}
	return &f, nil
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixture.json>",
		Short: "Load documents and postings from a JSON fixture",
		Long: `Loads a development fixture of the form
  {"documents": [{"id": 1, "url": "https://..."}],
   "postings":  [{"keyword": "db", "docId": 1, "frequency": 3}]}
Documents are upserted by id; postings are appended.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadFixture(args[0])
			if err != nil {
				return err
			}
			return opts.withBackend(cmd.Context(), func(b store.Backend) error {
				if err := b.ApplySchema(cmd.Context()); err != nil {
					return err
				}
				if err := b.Seed(cmd.Context(), f.Documents, f.Postings); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d documents and %d postings\n", len(f.Documents), len(f.Postings))
				return nil
			})
		},
	}
}
