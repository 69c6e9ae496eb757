// Command vendor-import seeds the vendor mapping table from a JSON file
// of vendor-to-category pairs, the format exported by the mobile client.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"tally/internal/backend"
	"tally/internal/categorize"
	"tally/internal/config"
	applog "tally/internal/log"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: "vendor-import"})
	applog.SetDefault(logger)

	path := flag.String("file", "vendor_map.json", "path to the vendor map JSON file")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(*path)
	if err != nil {
		logger.Error("Failed to read vendor map", "path", *path, "error", err)
		os.Exit(1)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Error("Failed to parse vendor map", "path", *path, "error", err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger.Logger).Create(cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	categorizer := categorize.New(result.Vendors)
	ctx := context.Background()

	var imported, skipped int
	for vendor, value := range raw {
		// The export format nests bookkeeping entries under reserved keys.
		if strings.HasPrefix(vendor, "__") {
			skipped++
			continue
		}
		var category string
		if err := json.Unmarshal(value, &category); err != nil {
			logger.Warn("Skipping non-string mapping", "vendor", vendor)
			skipped++
			continue
		}
		if err := categorizer.SetMapping(ctx, vendor, category); err != nil {
			logger.Warn("Skipping invalid mapping", "vendor", vendor, "error", err)
			skipped++
			continue
		}
		imported++
	}

	fmt.Printf("imported %d vendor mappings (%d skipped)\n", imported, skipped)
}
