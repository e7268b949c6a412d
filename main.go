// Lemon is the CurationsLA curation service: it sources positive local
// news from configured feeds, stores curated batches, and publishes
// digests as Ghost drafts.
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/CurationsLA/lemon/internal/api"
	"github.com/CurationsLA/lemon/internal/classifier"
	"github.com/CurationsLA/lemon/internal/config"
	"github.com/CurationsLA/lemon/internal/feeds"
	"github.com/CurationsLA/lemon/internal/ghost"
	"github.com/CurationsLA/lemon/internal/logger"
	"github.com/CurationsLA/lemon/internal/metrics"
	"github.com/CurationsLA/lemon/internal/pipeline"
	"github.com/CurationsLA/lemon/internal/scheduler"
	"github.com/CurationsLA/lemon/internal/store"
)

const defaultConfigPath = "config.yml"

func main() {
	cfg, err := config.Load(config.Path(defaultConfigPath))
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.Must(cfg.Logging)
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("service failed", logger.Error(err))
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	redisClient, err := store.NewClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	batchStore := store.New(redisClient, cfg.Store.Retention, log)

	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.New(registry)

	fetcher := feeds.NewFetcher(
		&http.Client{},
		cfg.Fetch.Timeout,
		cfg.Fetch.MaxConcurrent,
		log,
	)

	var publisher pipeline.Publisher
	if cfg.PublishingEnabled() {
		client, err := ghost.NewClient(cfg.CMS.APIURL, cfg.CMS.AdminKey, &http.Client{}, log)
		if err != nil {
			return err
		}
		publisher = client
	} else {
		log.Warn("cms credentials not configured, draft publishing disabled")
	}

	pipe := pipeline.New(cfg, pipeline.Deps{
		Fetcher: fetcher,
		Classifier: classifier.New(classifier.Rules{
			Banned:   cfg.Filter.BannedKeywords,
			Positive: cfg.Filter.PositiveKeywords,
			Locality: cfg.Filter.LocalityKeywords,
			MinScore: cfg.Filter.MinScore,
		}),
		Store:     batchStore,
		Publisher: publisher,
		Metrics:   pipelineMetrics,
		Logger:    log,
	})

	if cfg.Schedule.Enabled {
		sched, err := scheduler.New(cfg.Schedule.Cron, pipe.RunScheduled, log)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	handler := api.NewHandler(pipe, batchStore)
	server := api.NewServer(cfg, handler, api.HealthDeps{StorePing: batchStore.Ping}, registry, log)

	return server.Run(context.Background())
}
