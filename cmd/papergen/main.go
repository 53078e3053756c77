package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"papergen/internal/config"
	"papergen/internal/document"
	"papergen/internal/logger"
	"papergen/internal/pipeline"
	"papergen/internal/prisma"
	"papergen/internal/search"
	"papergen/internal/storage"
	"papergen/internal/textgen"
)

var (
	rootCmd = &cobra.Command{
		Use:   "papergen",
		Short: "Review article generator with citations and PRISMA screening",
	}
	configPath string
	dbPath     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the run registry database (SQLite); overrides output.db")

	generateCmd.Flags().String("topic", "", "Informal description of the article topic")
	generateCmd.Flags().String("level", "", "Indexing level: "+strings.Join(search.Levels(), ", "))
	generateCmd.Flags().String("country", "", "Country the national problem paragraph focuses on")
	_ = generateCmd.MarkFlagRequired("topic")

	replaceSectionCmd.Flags().StringSlice("heading", nil, "Heading(s) that introduce the section")
	replaceSectionCmd.Flags().String("content", "", "File with the new section body")
	replaceSectionCmd.Flags().String("out", "", "Output path (defaults to overwriting the document)")
	replaceSectionCmd.Flags().Bool("append-fallback", false, "Append a new section when no heading matches")
	_ = replaceSectionCmd.MarkFlagRequired("heading")
	_ = replaceSectionCmd.MarkFlagRequired("content")

	appendSectionCmd.Flags().String("title", "", "Heading of the new section")
	appendSectionCmd.Flags().String("content", "", "File with the section body")
	appendSectionCmd.Flags().Bool("break", false, "Insert a page break before the section")
	appendSectionCmd.Flags().String("out", "", "Output path (defaults to overwriting the document)")
	_ = appendSectionCmd.MarkFlagRequired("title")
	_ = appendSectionCmd.MarkFlagRequired("content")

	mergeCmd.Flags().String("heading", "", "Heading placed before each merged document")
	mergeCmd.Flags().String("out", "", "Output path (defaults to overwriting the target)")

	runsCmd.Flags().Int("limit", 20, "Number of runs to list (0 lists all)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(replaceSectionCmd)
	rootCmd.AddCommand(appendSectionCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(runsCmd)
}

func loadConfig() *config.Config {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if dbPath != "" {
		cfg.Output.DB = dbPath
	}
	return cfg
}

func initStore(cfg *config.Config) (*storage.SQLiteStore, error) {
	return storage.NewSQLiteStore(cfg.Output.DB)
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the full article pipeline for a topic",
	Run: func(cmd *cobra.Command, args []string) {
		topic, _ := cmd.Flags().GetString("topic")
		level, _ := cmd.Flags().GetString("level")
		country, _ := cmd.Flags().GetString("country")

		cfg := loadConfig()
		lg, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
		if err != nil {
			log.Fatalf("Failed to create logger: %v", err)
		}
		defer lg.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if cfg.AI.APIKey == "" {
			log.Fatalf("AI API key not configured")
		}
		gen, err := textgen.NewGenerator(ctx, textgen.Options{
			Provider:          cfg.AI.Provider,
			APIKey:            cfg.AI.APIKey,
			Model:             cfg.AI.Model,
			BaseURL:           cfg.AI.BaseURL,
			RequestsPerMinute: cfg.AI.RequestsPerMinute,
		})
		if err != nil {
			log.Fatalf("Failed to create generator: %v", err)
		}

		var searcher search.Searcher
		if cfg.Search.APIKey != "" {
			opts := []search.Option{search.WithRate(cfg.Search.RatePerSecond)}
			if cfg.Search.BaseURL != "" {
				opts = append(opts, search.WithBaseURL(cfg.Search.BaseURL))
			}
			searcher = search.NewSerpAPI(cfg.Search.APIKey, opts...)
		} else {
			fmt.Println("⚠️  No SerpAPI key configured, skipping article retrieval")
		}

		store, err := initStore(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		orch, err := pipeline.New(cfg, pipeline.Deps{
			Generator: gen,
			Searcher:  searcher,
			Recorder:  store,
			Logger:    lg,
		})
		if err != nil {
			log.Fatalf("Failed to create pipeline: %v", err)
		}

		fmt.Printf("🚀 Generating article for: %s\n", topic)
		start := time.Now()
		resp, err := orch.Run(ctx, pipeline.Request{Topic: topic, Level: level, Country: country})
		if err != nil {
			var abort *pipeline.AbortError
			if errors.As(err, &abort) {
				fmt.Printf("❌ Aborted at stage %s\n", abort.Stage)
				for _, p := range abort.Artifacts {
					fmt.Printf("   📄 %s\n", p)
				}
			}
			log.Fatalf("Generation failed: %v", err)
		}

		fmt.Printf("✅ Article generated in %v (run %s)\n", time.Since(start).Round(time.Second), resp.RunID)
		fmt.Printf("📝 Title: %s\n", resp.Title)
		fmt.Printf("🔑 Variables: %s / %s\n", resp.Variables[0], resp.Variables[1])
		fmt.Printf("📊 PRISMA: %d identified, %d excluded, %d included\n", resp.Totals.Identified, resp.Totals.Excluded, resp.Totals.Included)
		fmt.Printf("📄 Final document: %s\n", resp.Artifacts.Final)
		fmt.Printf("📄 Markdown: %s\n", resp.Artifacts.Markdown)
		fmt.Printf("📋 Report: %s\n", resp.Report)
	},
}

var replaceSectionCmd = &cobra.Command{
	Use:   "replace-section DOC",
	Short: "Replace the body of a section identified by its heading",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		headings, _ := cmd.Flags().GetStringSlice("heading")
		contentPath, _ := cmd.Flags().GetString("content")
		out, _ := cmd.Flags().GetString("out")
		fallback, _ := cmd.Flags().GetBool("append-fallback")

		d := readDocument(args[0])
		content := readContent(contentPath)

		updated, err := document.ReplaceSection(d, headings, content)
		switch {
		case errors.Is(err, document.ErrStructureMismatch) && fallback:
			updated = document.AppendSection(d, headings[0], content, false)
			fmt.Printf("⚠️  No heading matched %v, appended a new section instead\n", headings)
		case err != nil:
			log.Fatalf("Replace failed: %v", err)
		}

		path := outputPath(out, args[0])
		writeDocument(path, updated)
		fmt.Printf("✅ Section replaced in %s\n", path)
	},
}

var appendSectionCmd = &cobra.Command{
	Use:   "append-section DOC",
	Short: "Append a titled section at the end of a document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		title, _ := cmd.Flags().GetString("title")
		contentPath, _ := cmd.Flags().GetString("content")
		withBreak, _ := cmd.Flags().GetBool("break")
		out, _ := cmd.Flags().GetString("out")

		d := readDocument(args[0])
		updated := document.AppendSection(d, title, readContent(contentPath), withBreak)

		path := outputPath(out, args[0])
		writeDocument(path, updated)
		fmt.Printf("✅ Section %q appended to %s\n", title, path)
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge TARGET SOURCE...",
	Short: "Merge documents into a target in order",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		heading, _ := cmd.Flags().GetString("heading")
		out, _ := cmd.Flags().GetString("out")

		target := readDocument(args[0])
		subs := make([]document.SubDocument, 0, len(args)-1)
		for _, p := range args[1:] {
			subs = append(subs, document.SubDocument{Path: p, Heading: heading})
		}
		merged, skipped := document.MergeFiles(target, subs)
		for _, s := range skipped {
			fmt.Printf("⚠️  %v\n", s)
		}

		path := outputPath(out, args[0])
		writeDocument(path, merged)
		fmt.Printf("✅ Merged %d of %d documents into %s\n", len(subs)-len(skipped), len(subs), path)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats FILE.yaml",
	Short: "Aggregate per-source PRISMA counts",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatalf("Failed to read stats: %v", err)
		}
		var stats prisma.Stats
		if err := yaml.Unmarshal(data, &stats); err != nil {
			log.Fatalf("Failed to parse stats: %v", err)
		}
		stats = stats.Normalize()
		if err := stats.Validate(); err != nil {
			log.Fatalf("Invalid stats: %v", err)
		}

		fmt.Println(prisma.SummaryLines(stats))
		t := prisma.Aggregate(stats)
		fmt.Printf("📊 Total: %d identified, %d excluded, %d included\n", t.Identified, t.Excluded, t.Included)
		fmt.Println(prisma.Caption(t, 1))
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg := loadConfig()
		store, err := initStore(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		runs, err := store.ListRuns(context.Background(), limit)
		if err != nil {
			log.Fatalf("Failed to list runs: %v", err)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return
		}
		for _, r := range runs {
			icon := "⏳"
			switch r.Status {
			case storage.StatusSucceeded:
				icon = "✅"
			case storage.StatusFailed:
				icon = "❌"
			}
			fmt.Printf("%s %s  %s  %-8s %s\n", icon, r.StartedAt.Local().Format("2006-01-02 15:04"), r.ID, r.Level, r.Topic)
			if r.Title != "" {
				fmt.Printf("   📝 %s\n", r.Title)
			}
			if r.Error != "" {
				fmt.Printf("   ⚠️  %s\n", r.Error)
			}
		}
	},
}

func readDocument(path string) document.Document {
	d, err := document.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}
	return d
}

func readContent(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read content %s: %v", path, err)
	}
	return string(b)
}

func writeDocument(path string, d document.Document) {
	if err := document.WriteFile(path, d); err != nil {
		log.Fatalf("Failed to write %s: %v", path, err)
	}
}

func outputPath(out, fallback string) string {
	if out != "" {
		return out
	}
	return fallback
}
