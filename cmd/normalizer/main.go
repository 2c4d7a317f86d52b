// Package main provides the normalizer command-line tool for rewriting news
// fixtures into canonical form.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"antifakenews/internal/normalizer"
	"antifakenews/internal/source"
)

func main() {
	inputPath := flag.String("input", "", "Path to input fixture (e.g., data/db.json)")
	outputPath := flag.String("output", "", "Path to output JSON file (defaults to -input)")
	recount := flag.Bool("recount", false, "Replace vote tallies with the verdicts of the comments")
	dryRun := flag.Bool("dry-run", false, "Report changes without writing")
	flag.Parse()

	if *inputPath == "" {
		fmt.Println("Usage: normalizer -input <db.json> [-output <db.json>] [-recount] [-dry-run]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *outputPath == "" {
		*outputPath = *inputPath
	}

	content, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("Error reading file: %v\n", err)
	}

	fmt.Printf("📂 Reading: %s (%d bytes)\n", *inputPath, len(content))

	var doc source.FixtureDocument
	if err := json.Unmarshal(content, &doc); err != nil {
		log.Fatalf("Error parsing fixture: %v\n", err)
	}

	processor := normalizer.NewProcessorWithTransformer(&normalizer.Transformer{RecountVotes: *recount})

	result, report, err := processor.Process(&doc)
	if err != nil {
		log.Fatalf("❌ %v\n", err)
	}

	fmt.Printf("📊 %s\n", report)

	if *dryRun {
		fmt.Println("⚠️  Dry run, nothing written")

		return
	}

	if mkdirErr := os.MkdirAll(filepath.Dir(*outputPath), 0755); mkdirErr != nil {
		log.Fatalf("Error creating directory: %v\n", mkdirErr)
	}

	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Error marshaling JSON: %v\n", err)
	}

	if err := os.WriteFile(*outputPath, append(jsonData, '\n'), 0644); err != nil {
		log.Fatalf("Error writing file: %v\n", err)
	}

	fmt.Printf("✅ Saved to: %s\n", *outputPath)
}
