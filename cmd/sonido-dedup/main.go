// Command sonido-dedup runs duplicate detection over a local fingerprint
// database and prints a batch summary. Thresholds and tolerances come from
// the environment (see fingerprint/config); storage wiring from flags.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/RyanBlaney/sonido-dedup/detect"
	"github.com/RyanBlaney/sonido-dedup/fingerprint/config"
	"github.com/RyanBlaney/sonido-dedup/logging"
	"github.com/RyanBlaney/sonido-dedup/storage"
)

func main() {
	dbPath := flag.String("db", "./data/fingerprints.db", "path to the fingerprint database")
	limit := flag.Int("limit", 0, "maximum records to load (0 = all)")
	exact := flag.Bool("exact", false, "also report byte-identical fingerprint groups")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		logging.SetLevel(logging.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.LoadDetectionConfig(ctx)
	if err != nil {
		logging.Fatal(err, "Invalid detection configuration")
	}

	store, err := storage.OpenSQLiteStore(*dbPath)
	if err != nil {
		logging.Fatal(err, "Failed to open fingerprint store")
	}
	defer store.Close()

	detector, err := detect.NewDetector(cfg)
	if err != nil {
		logging.Fatal(err, "Failed to create detector")
	}

	records, err := store.LoadRecords(ctx, *limit)
	if err != nil {
		logging.Fatal(err, "Failed to load records")
	}

	report, err := detector.FindDuplicateClusters(ctx, records)
	if err != nil {
		logging.Fatal(err, "Duplicate detection failed")
	}

	runID, err := store.SaveBatch(ctx, report)
	if err != nil {
		logging.Fatal(err, "Failed to persist batch results")
	}

	fmt.Printf("\nDuplicate Detection Results (run %s)\n", runID)
	fmt.Printf("  Records loaded:    %d\n", report.RecordsTotal)
	fmt.Printf("  Records compared:  %d\n", report.RecordsCompared)
	fmt.Printf("  Comparisons made:  %d\n", report.Comparisons)
	fmt.Printf("  Duplicate edges:   %d\n", len(report.DuplicateEdges))
	fmt.Printf("  Variant pairs:     %d\n", len(report.Variants))
	fmt.Printf("  Clusters:          %d\n", len(report.Clusters))
	fmt.Printf("  Skipped records:   %d\n", len(report.Skipped))
	fmt.Printf("  Processing time:   %s\n", report.ProcessingTime)

	if report.RecordsCompared > 1 {
		bruteForce := report.RecordsCompared * (report.RecordsCompared - 1) / 2
		saved := 100 * (1 - float64(report.Comparisons)/float64(bruteForce))
		fmt.Printf("  Pruning saved:     %.1f%% of %d brute-force comparisons\n", saved, bruteForce)
	}

	for _, skipped := range report.Skipped {
		fmt.Printf("  skipped %s: %s\n", skipped.AssetID, skipped.Reason)
	}

	if mean, ok := report.Summary["similarity_mean"]; ok {
		fmt.Printf("  Edge similarity:   mean %.3f, median %.3f\n",
			mean, report.Summary["similarity_median"])
	}

	if *exact {
		groups := detector.FindExactDuplicates(records)
		fmt.Printf("\nExact fingerprint groups: %d\n", len(groups))
		for _, group := range groups {
			fmt.Print("  ")
			for i, member := range group.Members {
				if i > 0 {
					fmt.Print(" <-> ")
				}
				fmt.Printf("%s (%s)", member.AssetID, member.Format)
			}
			fmt.Println()
		}
	}
}
