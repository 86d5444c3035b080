package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/semlens-inc/semlens-engine/pkg/budget"
	"github.com/semlens-inc/semlens-engine/pkg/cache"
	"github.com/semlens-inc/semlens-engine/pkg/config"
	"github.com/semlens-inc/semlens-engine/pkg/export"
	"github.com/semlens-inc/semlens-engine/pkg/logging"
	appmcp "github.com/semlens-inc/semlens-engine/pkg/mcp"
	"github.com/semlens-inc/semlens-engine/pkg/mcp/tools"
	"github.com/semlens-inc/semlens-engine/pkg/provider/postgres"
	"github.com/semlens-inc/semlens-engine/pkg/query"
	"go.uber.org/zap"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	provCfg := &postgres.Config{
		Host:     cfg.Provider.Host,
		Port:     cfg.Provider.Port,
		User:     cfg.Provider.User,
		Password: cfg.Provider.Password,
		Database: cfg.Provider.Database,
		SSLMode:  cfg.Provider.SSLMode,
	}

	// Log startup configuration
	log.Printf("Configuration loaded:")
	log.Printf("  Environment: %s", cfg.Env)
	log.Printf("  Package root: %s", cfg.PackageRoot)
	log.Printf("  Source: %s", logging.SanitizeConnectionString(provCfg.ConnectionString()))
	log.Printf("  Cache dir: %s", cfg.Cache.Dir)

	// Two-tier response cache. The durable tier is optional; an empty
	// directory disables it and the engine runs on the in-process tier
	// alone.
	l1 := cache.NewL1(cfg.Cache.L1MaxEntries, cfg.Cache.L1MaxBytes)
	var l2 *cache.L2
	if cfg.Cache.Dir != "" {
		l2, err = cache.OpenL2(cfg.Cache.Dir, logger)
		if err != nil {
			log.Fatalf("Failed to open durable cache: %v", err)
		}
		defer l2.Close()

		// Badger reclaims value-log space only when asked.
		go func() {
			ticker := time.NewTicker(10 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				l2.RunGC()
			}
		}()
	}
	policies := cache.DefaultPolicies()
	if cfg.Cache.AnalysisTTLMinutes > 0 {
		ttl := time.Duration(cfg.Cache.AnalysisTTLMinutes) * time.Minute
		policies[cache.CategoryAnalysis] = cache.TTLPolicy{L1: ttl, L2: 6 * ttl}
	}
	tiered := cache.NewTiered(l1, l2, policies, logger)

	// Source model provider. The engine serves previously exported
	// packages even when the source is unreachable, so a failed
	// connection only disables the export tool.
	ctx := context.Background()
	prov, err := postgres.NewProvider(ctx, provCfg, logger)
	if err != nil {
		logger.Warn("source model unavailable, export disabled",
			zap.String("error", logging.SanitizeError(err)))
	} else {
		defer prov.Close()
	}

	budgeter := budget.New(cfg.Budget.MaxResponseTokens)
	engine := query.NewEngine(cfg.PackageRoot, tiered, budgeter, logger)

	// MCP server over streamable HTTP.
	mcpServer := appmcp.NewServer("semlens-engine", cfg.Version, logger)
	tools.RegisterQueryTools(mcpServer.MCP(), &tools.QueryToolDeps{
		Engine: engine,
		Logger: logger,
	})
	if prov != nil {
		exportOpts := export.Options{
			IncludeSampleRows:  cfg.Export.IncludeSampleRows,
			SampleRowCount:     cfg.Export.SampleRowCount,
			WorkerConcurrency:  cfg.Export.EffectiveWorkerConcurrency(),
			StreamingThreshold: cfg.Export.StreamingThreshold,
			SourceName:         cfg.Export.SourceName,
		}
		tools.RegisterExportTools(mcpServer.MCP(), &tools.ExportToolDeps{
			Builder:        export.NewBuilder(prov, cfg.PackageRoot, logger),
			DefaultOptions: exportOpts,
			Logger:         logger,
		})
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpServer.NewStreamableHTTPServer())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	addr := cfg.BindAddr + ":" + cfg.Port
	log.Printf("Starting semlens-engine on %s (version: %s)", addr, cfg.Version)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
