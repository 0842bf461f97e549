package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"jarvis/internal/aggregator"
	"jarvis/internal/config"
	"jarvis/internal/convctx"
	"jarvis/internal/knowledge"
	"jarvis/internal/logging"
	"jarvis/internal/notes"
	"jarvis/internal/places"
	"jarvis/internal/router"
	"jarvis/internal/search"
	"jarvis/internal/transcribe"
	"jarvis/internal/transport"
	"jarvis/internal/usage"
)

// app holds every long-lived collaborator built from the configuration.
type app struct {
	cfg       *config.Config
	notes     notes.Store
	contexts  *convctx.Store
	guard     *usage.BudgetGuard
	answers   *aggregator.Aggregator
	places    *places.Resolver
	knowledge *knowledge.Base
	router    *router.Router
	location  *time.Location
}

// buildApp wires the router and its collaborators.
func buildApp(ctx context.Context, c *config.Config, log *zap.Logger) (*app, error) {
	timer := logging.StartTimer(logging.CategoryBoot, "buildApp")
	defer timer.Stop()

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", c.Timezone, err)
	}

	a := &app{cfg: c, location: loc}

	a.notes, err = openNotes(c)
	if err != nil {
		return nil, err
	}

	a.guard, err = usage.NewBudgetGuard(c.DataDir, c.Budget.MonthlyLimit)
	if err != nil {
		a.notes.Close()
		return nil, fmt.Errorf("failed to open budget guard: %w", err)
	}

	a.contexts = convctx.NewStore(c.Context.Capacity, c.GetContextIdleTTL())
	a.answers = newAggregator(c, a.guard)
	a.places = newResolver(c)

	rcfg := router.Config{
		Notes:     a.notes,
		Contexts:  a.contexts,
		Answers:   a.answers,
		Places:    a.places,
		Location:  loc,
		ListLimit: c.Notes.ListLimit,
		Media:     transport.NewTwilioMedia(c.Server.TwilioAccountSID, c.Server.TwilioAuthToken, c.GetMediaTimeout()),
	}

	if c.Knowledge.Path != "" {
		kb, err := knowledge.Load(c.ResolveDataPath(c.Knowledge.Path))
		if err != nil {
			log.Warn("knowledge file not loaded", zap.String("path", c.Knowledge.Path), zap.Error(err))
		} else {
			a.knowledge = kb
			rcfg.Knowledge = kb
		}
	}

	if c.Transcription.APIKey != "" {
		gem, err := transcribe.NewGemini(ctx, c.Transcription.APIKey, c.Transcription.Model, c.GetTranscriptionTimeout())
		if err != nil {
			log.Warn("transcription disabled", zap.Error(err))
		} else {
			rcfg.Transcriber = &transcribe.Metered{Next: gem, Guard: a.guard, Cost: c.Budget.TranscriptionCost}
		}
	}

	a.router, err = router.New(rcfg)
	if err != nil {
		a.notes.Close()
		return nil, err
	}

	logging.Boot("App ready: %d rules, knowledge=%v, transcription=%v, budget mode=%s",
		len(a.router.Rules()), a.knowledge != nil, rcfg.Transcriber != nil, a.guard.Mode())
	return a, nil
}

// openNotes opens the SQLite store, or an in-memory one when no path is set.
func openNotes(c *config.Config) (notes.Store, error) {
	if c.Notes.DatabasePath == "" {
		return notes.NewMemoryStore(), nil
	}
	store, err := notes.OpenSQLite(c.ResolveDataPath(c.Notes.DatabasePath), c.Notes.Driver)
	if err != nil {
		return nil, fmt.Errorf("failed to open notes: %w", err)
	}
	return store, nil
}

func newAggregator(c *config.Config, guard *usage.BudgetGuard) *aggregator.Aggregator {
	client := search.Client{
		HTTP:      &http.Client{Timeout: c.GetProviderTimeout()},
		UserAgent: c.Search.UserAgent,
	}
	return aggregator.New(aggregator.Config{
		Providers: []search.TextProvider{
			&search.DuckDuckGo{Client: client, BaseURL: c.Search.DuckDuckGoURL},
			&search.Wikipedia{Client: client, Langs: c.Search.WikipediaLangs},
		},
		Images:           &search.Commons{Client: client, BaseURL: c.Search.CommonsURL},
		Trusted:          search.TrustList(c.Search.TrustedDomains),
		ProviderTimeout:  c.GetProviderTimeout(),
		MaxResults:       c.Search.MaxResults,
		ResultLimit:      guard.MaxResults,
		SummarySentences: c.Search.SummarySentences,
		MaxSources:       c.Search.MaxSources,
		MaxImages:        c.Search.MaxImages,
		CacheTTL:         c.GetCacheTTL(),
		CacheSize:        c.Search.CacheSize,
	})
}

func newResolver(c *config.Config) *places.Resolver {
	om := places.NewOpenMeteo(c.GetPlacesTimeout())
	if c.Places.GeocodingURL != "" {
		om.GeocodingURL = c.Places.GeocodingURL
	}
	if c.Places.ForecastURL != "" {
		om.ForecastURL = c.Places.ForecastURL
	}
	if c.Places.Language != "" {
		om.Language = c.Places.Language
	}
	return places.NewResolver(om, om, places.Home{
		City:      c.Home.City,
		Latitude:  c.Home.Latitude,
		Longitude: c.Home.Longitude,
		Timezone:  c.Home.Timezone,
	})
}

// Close releases the note store.
func (a *app) Close() error {
	return a.notes.Close()
}
