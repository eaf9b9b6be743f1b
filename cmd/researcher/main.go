package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sitescout/sitescout/internal/config"
	"github.com/sitescout/sitescout/internal/discovery"
	"github.com/sitescout/sitescout/internal/extract"
	"github.com/sitescout/sitescout/internal/metrics"
	"github.com/sitescout/sitescout/internal/pipeline"
	"github.com/sitescout/sitescout/internal/provider"
	"github.com/sitescout/sitescout/internal/research"
	"github.com/sitescout/sitescout/internal/storage"
	"github.com/sitescout/sitescout/internal/version"
)

func main() {
	// Configure logging
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logrus.Infof("SiteScout v%s starting...", version.Version)

	// Load configuration
	configPath := "config.json"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logrus.Infof("Configuration loaded: company=%s, seed=%s, concurrency=%d",
		cfg.CompanyName, cfg.SeedURL, cfg.Concurrency)

	// Initialize storage
	store, err := storage.NewStorage(cfg.DBPath)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	logrus.Infof("Database initialized: %s", cfg.DBPath)

	// Metrics tracker doubles as a progress sink.
	tracker := metrics.NewTracker()
	sink := research.MultiSink{research.LogSink{}, tracker}

	// Cancel on SIGINT/SIGTERM; the global timeout caps the whole run.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.GlobalTimeoutMs)*time.Millisecond)
	defer cancel()

	router, err := buildRouter(ctx, cfg, sink)
	if err != nil {
		logrus.Fatalf("Failed to configure providers: %v", err)
	}

	perPage := time.Duration(cfg.PerPageTimeoutMs) * time.Millisecond
	engine := discovery.NewEngine(cfg.MaxLinks, cfg.MaxCrawlDepth, perPage, cfg.UserAgent, sink)

	var fetcher extract.Fetcher
	if cfg.RenderJS {
		rf, err := extract.NewRenderFetcher()
		if err != nil {
			logrus.Fatalf("Failed to start headless browser: %v", err)
		}
		defer rf.Close()
		fetcher = rf
	} else {
		fetcher = extract.NewHTTPFetcher(cfg.UserAgent)
	}

	chain := extract.NewChain(cfg.MinSubstantialContentLength)
	pipe := pipeline.New(cfg, engine, fetcher, chain, router, sink)

	target := research.Target{Company: cfg.CompanyName, URL: cfg.SeedURL}
	start := time.Now()

	artifact, batch, err := pipe.Research(ctx, target)
	elapsed := time.Since(start)

	terminationReason := "completed"
	switch {
	case errors.Is(err, research.ErrPipelineCancelled):
		terminationReason = "cancelled"
		logrus.Warnf("Run cancelled after %s; %d pages had completed", elapsed.Round(time.Second), batch.Attempted)
	case errors.Is(err, research.ErrDiscoveryExhausted):
		terminationReason = "no_links"
		logrus.Errorf("No links discovered for %s", cfg.SeedURL)
	case err != nil:
		terminationReason = "error"
		logrus.Errorf("Research failed: %v", err)
	}

	if err == nil {
		printArtifact(artifact)

		runID, saveErr := store.SaveRun(target, batch.Attempted, batch, artifact, elapsed)
		if saveErr != nil {
			logrus.Errorf("Failed to archive run: %v", saveErr)
		} else {
			logrus.Infof("Run archived: %s", runID)
		}
	}

	// Final metrics
	logrus.Info("Final stats: " + tracker.LogProgress())
	if werr := tracker.WriteToFile(cfg.MetricsPath, terminationReason); werr != nil {
		logrus.Errorf("Failed to write metrics: %v", werr)
	} else {
		logrus.Infof("Metrics written to %s", cfg.MetricsPath)
	}

	if err != nil {
		os.Exit(1)
	}
}

// buildRouter assembles the per-purpose provider routes from config.
func buildRouter(ctx context.Context, cfg *config.Config, sink research.ProgressSink) (*provider.Router, error) {
	clients := map[string]provider.Client{}

	// Instantiate each provider at most once, shared across purposes.
	getClient := func(name string) (provider.Client, error) {
		if c, ok := clients[name]; ok {
			return c, nil
		}
		var (
			c   provider.Client
			err error
		)
		selModel := modelFor(cfg.Providers.Selection, name)
		synModel := modelFor(cfg.Providers.Synthesis, name)
		switch name {
		case "openai":
			c, err = provider.NewOpenAIClient("", cfg.Providers.OpenAIBaseURL, selModel, synModel)
		case "gemini":
			c, err = provider.NewGeminiClient(ctx, "", selModel, synModel)
		default:
			err = fmt.Errorf("unknown provider %q", name)
		}
		if err != nil {
			return nil, err
		}
		clients[name] = c
		return c, nil
	}

	buildRoute := func(pc config.PurposeConfig) (provider.Route, error) {
		primary, err := getClient(pc.Primary)
		if err != nil {
			return provider.Route{}, fmt.Errorf("primary %q: %w", pc.Primary, err)
		}
		route := provider.Route{Primary: primary}
		if pc.Secondary != "" {
			secondary, err := getClient(pc.Secondary)
			if err != nil {
				// A missing secondary key just disables failover.
				logrus.Warnf("Secondary provider %q unavailable, failover disabled: %v", pc.Secondary, err)
			} else {
				route.Secondary = secondary
			}
		}
		return route, nil
	}

	selection, err := buildRoute(cfg.Providers.Selection)
	if err != nil {
		return nil, err
	}
	synthesis, err := buildRoute(cfg.Providers.Synthesis)
	if err != nil {
		return nil, err
	}

	routes := map[provider.Purpose]provider.Route{
		provider.PurposeSelection: selection,
		provider.PurposeSynthesis: synthesis,
	}
	maxWait := time.Duration(cfg.Providers.MaxWaitMs) * time.Millisecond
	return provider.NewRouter(routes, cfg.Providers.RateLimitRPS, maxWait, sink), nil
}

// modelFor returns the model a purpose config assigns to the named provider,
// whichever side of the route it sits on.
func modelFor(pc config.PurposeConfig, name string) string {
	if pc.Primary == name {
		return pc.PrimaryModel
	}
	if pc.Secondary == name {
		return pc.SecondaryModel
	}
	return ""
}

// printArtifact writes the final report to stdout as indented JSON.
func printArtifact(artifact research.IntelligenceArtifact) {
	out, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		logrus.Errorf("Failed to render artifact: %v", err)
		return
	}
	fmt.Println(string(out))
}
