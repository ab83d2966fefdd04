package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"deepspear/internal/server/config"
	"deepspear/internal/server/database"
	"deepspear/internal/server/report"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	days   int
	output string
	title  string
)

var rootCmd = &cobra.Command{
	Use:   "uploadstats",
	Short: "Render a daily image-upload chart from recorded detections",
	RunE:  run,
}

func init() {
	rootCmd.Flags().IntVarP(&days, "days", "d", 30, "number of days to include in the graph")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "output file path (default upload_stats.png)")
	rootCmd.Flags().StringVarP(&title, "title", "t", "", "additional text for the graph title")
	rootCmd.SilenceUsage = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if days < 1 {
		return fmt.Errorf("days must be at least 1, got %d", days)
	}

	cfg := config.Load()
	ctx := context.Background()

	// A datastore connection failure is fatal to the tool, not retried.
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	fmt.Printf("Generating upload statistics for the last %d days...\n", days)

	counts, err := repo.DailyCounts(ctx, days)
	if err != nil {
		return fmt.Errorf("fetching daily counts: %w", err)
	}
	if len(counts) == 0 {
		fmt.Println("No upload data found in the specified time period.")
		return nil
	}
	fmt.Printf("Found data for %d days with uploads.\n", len(counts))

	series := report.BuildSeries(counts, days, time.Now())
	summary := report.Summarize(series)

	chartTitle := "Daily Image Uploads - DeepSpear AI"
	if title != "" {
		chartTitle += " - " + title
	}

	outPath := output
	if outPath == "" {
		outPath = "upload_stats.png"
	}

	if err := report.RenderChart(series, chartTitle, summary, outPath); err != nil {
		return err
	}
	fmt.Printf("Graph saved to: %s\n", outPath)

	fmt.Println("\nSummary:")
	fmt.Printf("  Total images uploaded: %s\n", humanize.Comma(summary.Total))
	fmt.Printf("  Days with uploads: %d/%d\n", summary.DaysWithUploads, days)
	fmt.Printf("  Average per day: %.1f\n", summary.AveragePerDay)
	fmt.Printf("  Max per day: %d\n", summary.MaxPerDay)

	return nil
}
