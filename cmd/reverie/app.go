package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/cognicore/reverie/internal/llm"
	"github.com/cognicore/reverie/internal/logging"
	"github.com/cognicore/reverie/pkg/reverie"
	"github.com/cognicore/reverie/pkg/reverie/cluster"
	"github.com/cognicore/reverie/pkg/reverie/config"
	"github.com/cognicore/reverie/pkg/reverie/recap"
	"github.com/cognicore/reverie/pkg/reverie/search"
	"github.com/cognicore/reverie/pkg/reverie/store"
	"github.com/cognicore/reverie/pkg/reverie/store/memstore"
	"github.com/cognicore/reverie/pkg/reverie/store/sqlite"
)

// app is everything a command needs, built from Settings.
type app struct {
	settings *config.Settings
	engine   *reverie.Reverie
	logger   *zap.Logger
	registry *prometheus.Registry
}

func (a *app) Close() {
	if err := a.engine.Close(); err != nil {
		a.logger.Warn("close store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func buildApp(ctx context.Context, s *config.Settings) (*app, error) {
	logger, err := logging.New(logging.Config{Level: s.Log.Level, Format: s.Log.Format})
	if err != nil {
		return nil, err
	}

	comps, err := (&config.Loader{
		StoplistPath: s.Resources.StoplistPath,
		LexiconPath:  s.Resources.LexiconPath,
	}).Load()
	if err != nil {
		return nil, err
	}

	loc, err := s.Location()
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, s.Store)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ids := cluster.NewIDSource(nil, nil)
	engine := cluster.New(cluster.Options{
		MinClusterSize: s.Cluster.MinSize,
		MaxClusters:    s.Cluster.MaxClusters,
		Threshold:      s.Cluster.Threshold,
		Location:       loc,
		Pipeline:       comps.Pipeline,
		Analyzer:       comps.Analyzer,
		IDs:            ids,
		Logger:         logger.Named("cluster"),
	})

	opts := reverie.Options{
		Store:    st,
		Pipeline: comps.Pipeline,
		Analyzer: comps.Analyzer,
		Engine:   engine,
		Searcher: search.New(search.Options{
			Tokenizer:        comps.Tokenizer,
			Threshold:        s.Search.Threshold,
			RelatedThreshold: s.Search.RelatedThreshold,
			RelatedLimit:     s.Search.RelatedLimit,
		}),
		Recap:           recap.NewGenerator(comps.Analyzer, engine, nil),
		IDs:             ids,
		Metrics:         reverie.NewMetrics(registry),
		Logger:          logger,
		RecapWindowDays: s.Recap.WindowDays,
	}
	if s.LLM.Enabled {
		client := &llm.Client{
			BaseURL:    s.LLM.BaseURL,
			APIKey:     s.LLM.APIKey,
			Model:      s.LLM.Model,
			HTTPClient: &http.Client{Timeout: s.LLM.Timeout},
			Breaker:    llm.NewBreaker("llm", s.LLM.BreakerFailures, s.LLM.BreakerTimeout, logger.Named("llm")),
		}
		opts.Assistant = llm.NewAssistant(client, nil)
		logger.Info("llm assistant enabled", zap.String("model", s.LLM.Model))
	}

	return &app{
		settings: s,
		engine:   reverie.New(opts),
		logger:   logger,
		registry: registry,
	}, nil
}

func openStore(ctx context.Context, s config.StoreSettings) (store.Store, error) {
	switch s.Driver {
	case config.DriverMemory:
		return memstore.New(), nil
	case config.DriverSQLite:
		return sqlite.OpenSQLite(ctx, s.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", s.Driver)
	}
}
