package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/opq/internal/corpus"
	"github.com/valter-silva-au/opq/pkg/models"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Inspect or load the knowledge corpus",
}

var corpusTimeoutFlag time.Duration

var corpusCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Read a sample from the configured corpus and summarise it",
	Long: `Connect to the configured knowledge corpus, read the same sample the
feedback synthesizer would, and print the most frequent topics and the
projects with unresolved errors.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if CorpusSource == nil {
			return fmt.Errorf("no knowledge corpus configured (corpus.backend is none)")
		}

		ctx, cancel := context.WithTimeout(commandContext(cmd), corpusTimeoutFlag)
		defer cancel()

		session, err := CorpusSource.Open(ctx)
		if err != nil {
			return fmt.Errorf("opening %s corpus: %w", CorpusSource.Name(), err)
		}
		defer session.Close()

		records, err := session.Recent(ctx, CorpusLimit)
		if err != nil {
			return fmt.Errorf("reading %s corpus: %w", CorpusSource.Name(), err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s corpus: %d record(s) sampled (limit %d)\n", CorpusSource.Name(), len(records), CorpusLimit)
		topics, projects := summariseCorpus(records)
		if len(topics) > 0 {
			fmt.Fprintln(out, "\nTop topics:")
			for _, tc := range topics {
				fmt.Fprintf(out, "  %-24s %d\n", tc.name, tc.count)
			}
		}
		if len(projects) > 0 {
			fmt.Fprintln(out, "\nUnresolved errors by project:")
			for _, pc := range projects {
				fmt.Fprintf(out, "  %-24s %d\n", pc.name, pc.count)
			}
		}
		return nil
	},
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

type namedCount struct {
	name  string
	count int
}

// summariseCorpus returns up to five topics by frequency and every project
// with at least one unresolved error record.
func summariseCorpus(records []models.CorpusRecord) (topics, projects []namedCount) {
	topicCounts := make(map[string]int)
	projectCounts := make(map[string]int)
	for _, r := range records {
		seen := make(map[string]bool)
		for _, t := range r.Topics {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			topicCounts[t]++
		}
		if r.ProjectPath != "" && r.HasErrors && !r.HasSolutions {
			projectCounts[r.ProjectPath]++
		}
	}
	topics = rank(topicCounts)
	if len(topics) > 5 {
		topics = topics[:5]
	}
	return topics, rank(projectCounts)
}

func rank(counts map[string]int) []namedCount {
	out := make([]namedCount, 0, len(counts))
	for k, v := range counts {
		out = append(out, namedCount{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}

var corpusImportCmd = &cobra.Command{
	Use:   "import <records.yaml>",
	Short: "Load records from a YAML file into the configured corpus",
	Long: `Load knowledge records from a YAML records file into the configured corpus
backend. SQLite and PostgreSQL schemas are created on first import; records
with an existing id are replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := corpus.ReadFile(args[0])
		if err != nil {
			return err
		}
		n, err := corpus.Import(commandContext(cmd), CorpusConfig, BasePath, records)
		if err != nil {
			return fmt.Errorf("importing corpus: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d record(s) into the %s corpus.\n", n, CorpusConfig.Backend)
		return nil
	},
}

func init() {
	corpusCheckCmd.Flags().DurationVar(&corpusTimeoutFlag, "timeout", 10*time.Second, "Time limit for the corpus read")
	corpusCmd.AddCommand(corpusCheckCmd)
	corpusCmd.AddCommand(corpusImportCmd)
	rootCmd.AddCommand(corpusCmd)
}
