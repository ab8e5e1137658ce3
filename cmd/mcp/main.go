package main

import (
	"context"
	"log"

	"subchapter-tutor-be/internal/config"
	"subchapter-tutor-be/internal/mcptools"
	"subchapter-tutor-be/internal/pkg/logger"
	"subchapter-tutor-be/pkg/catalog"
	storefactory "subchapter-tutor-be/pkg/contentstore/factory"

	"github.com/mark3labs/mcp-go/server"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	if err := cfg.ValidateContent(); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}

	// stdout carries the protocol; logs go to stderr.
	sysLogger := logger.NewStderrLogger()
	defer sysLogger.Sync()

	content, cacheCloser, err := storefactory.NewContentStore(context.Background(), cfg.Storage, cfg.Cache, sysLogger)
	if err != nil {
		log.Fatalf("[FATAL] Failed to open content store: %v", err)
	}
	defer cacheCloser.Close()
	defer content.Close()

	catalogs := catalog.NewBuilder(content, sysLogger, cfg.Storage.Timeout)
	s := mcptools.NewServer(mcptools.NewTools(catalogs, content), version)

	if err := server.ServeStdio(s); err != nil {
		sysLogger.Error("MCP", "Server stopped with error", map[string]interface{}{"error": err.Error()})
	}
}
