package main

import (
	"context"
	"fmt"
	"os"

	"subchapter-tutor-be/internal/config"
	"subchapter-tutor-be/internal/pkg/logger"
	"subchapter-tutor-be/pkg/catalog"
	storefactory "subchapter-tutor-be/pkg/contentstore/factory"

	"github.com/fatih/color"
)

func main() {
	cfg := config.Load()
	if err := cfg.ValidateContent(); err != nil {
		color.Red("%v", err)
		os.Exit(2)
	}

	store, err := storefactory.NewBackend(context.Background(), cfg.Storage)
	if err != nil {
		color.Red("Failed to open content store: %v", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.Timeout)
	defer cancel()

	color.Cyan("Scanning %s\n", store.Identity())
	cat, skipped, err := catalog.Build(ctx, store, logger.NewNopLogger())
	if err != nil {
		color.Red("Listing failed: %v", err)
		os.Exit(1)
	}

	color.Yellow("\nAccepted (%d)", cat.Len())
	for _, entry := range cat.Entries() {
		fmt.Printf("  %-40s %s\n", entry.Name.Label, entry.Unit)
	}

	if len(skipped) > 0 {
		color.Yellow("\nSkipped (%d)", len(skipped))
		for _, s := range skipped {
			color.Red("  %-40s %s", s.Unit, s.Reason)
		}
		os.Exit(1)
	}
	color.Green("\nAll units follow the naming convention.")
}
