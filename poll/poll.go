// Package poll runs the scrape, diff, enrich and notify pipeline.
package poll

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kibsywow/recruit-bot/pkg/lfg"
	"github.com/kibsywow/recruit-bot/storage"
)

// Lister fetches the current roster.
type Lister interface {
	Listings(ctx context.Context) ([]lfg.Listing, error)
}

// Store persists the previous run's ids.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// TokenSource issues API bearer tokens.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Enricher builds a full record for a listing. It never fails; missing data
// is defaulted.
type Enricher interface {
	Enrich(ctx context.Context, token string, l lfg.Listing) *lfg.Record
}

// Notifier announces a record.
type Notifier interface {
	Notify(ctx context.Context, r *lfg.Record) error
}

// Monitor runs the pipeline against a single state key.
type Monitor struct {
	lister   Lister
	store    Store
	tokens   TokenSource
	enricher Enricher
	notifier Notifier
	logger   *slog.Logger
	stateKey string
}

// New creates a new poll monitor.
func New(lister Lister, store Store, tokens TokenSource, enricher Enricher, notifier Notifier, stateKey string, logger *slog.Logger) *Monitor {
	return &Monitor{
		lister:   lister,
		store:    store,
		tokens:   tokens,
		enricher: enricher,
		notifier: notifier,
		logger:   logger,
		stateKey: stateKey,
	}
}

// Run performs one full pass and persists the new state.
//
// The persisted state is every id seen this run except those whose
// notification failed, so failed announcements are retried next run.
// If the roster cannot be fetched, the stored state is left untouched.
func (m *Monitor) Run(ctx context.Context) (*lfg.Report, error) {
	start := time.Now()
	report := &lfg.Report{Failed: []string{}}

	prev, err := m.loadState(ctx)
	if err != nil {
		return report, err
	}

	all, err := m.lister.Listings(ctx)
	if err != nil {
		report.ListingErr = err.Error()
		m.logger.Error("Roster fetch failed, keeping previous state",
			"previous", len(prev),
			"error", err)
		return report, fmt.Errorf("fetch listings: %w", err)
	}
	report.Seen = len(all)

	fresh := NewListings(all, prev)
	report.New = len(fresh)
	m.logger.Info("Roster diffed",
		"seen", len(all),
		"previous", len(prev),
		"new", len(fresh),
		"cold_start", len(prev) == 0)

	failed := make(map[string]bool)
	if len(fresh) > 0 {
		m.process(ctx, fresh, report, failed)
	}

	state := nextState(all, failed)
	data, err := json.Marshal(state)
	if err != nil {
		return report, fmt.Errorf("encode state: %w", err)
	}
	// Written even after cancellation: sent announcements must not repeat.
	if err := m.store.Put(context.WithoutCancel(ctx), m.stateKey, data); err != nil {
		return report, fmt.Errorf("save state: %w", err)
	}
	report.Persisted = len(state)

	m.logger.Info("Run completed",
		"seen", report.Seen,
		"new", report.New,
		"announced", report.Announced,
		"suppressed", report.Suppressed,
		"failed", len(report.Failed),
		"persisted", report.Persisted,
		"duration_ms", time.Since(start).Milliseconds())

	return report, nil
}

func (m *Monitor) process(ctx context.Context, fresh []lfg.Listing, report *lfg.Report, failed map[string]bool) {
	token, err := m.tokens.Token(ctx)
	if err != nil {
		m.logger.Warn("Token request failed, enriching without API data", "error", err)
		token = ""
	}

	done := make(map[string]bool, len(fresh))
	for i, l := range fresh {
		id := l.ID()
		if done[id] {
			m.logger.Debug("Skipping duplicate listing", "listing", id)
			continue
		}

		select {
		case <-ctx.Done():
			m.logger.Info("Context cancelled, deferring remaining listings",
				"remaining", len(fresh)-i,
				"error", ctx.Err())
			for _, rest := range fresh[i:] {
				if !done[rest.ID()] && !failed[rest.ID()] {
					failed[rest.ID()] = true
					report.Failed = append(report.Failed, rest.ID())
				}
			}
			return
		default:
		}
		done[id] = true

		r := m.enricher.Enrich(ctx, token, l)
		if !lfg.Eligible(r) {
			report.Suppressed++
			m.logger.Info("Listing suppressed", "listing", id, "class", r.Class)
			continue
		}

		if err := m.notifier.Notify(ctx, r); err != nil {
			failed[id] = true
			report.Failed = append(report.Failed, id)
			m.logger.Warn("Announcement failed, will retry next run", "listing", id, "error", err)
			continue
		}
		report.Announced++
	}
}

// loadState reads the previous ids. A missing or undecodable value is an
// empty state; any other store error aborts the run.
func (m *Monitor) loadState(ctx context.Context) ([]string, error) {
	data, err := m.store.Get(ctx, m.stateKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			m.logger.Info("No previous state, treating as first run", "key", m.stateKey)
			return nil, nil
		}
		return nil, fmt.Errorf("load state: %w", err)
	}

	var prev []string
	if err := json.Unmarshal(data, &prev); err != nil {
		m.logger.Warn("Previous state is not a JSON id list, treating as empty",
			"key", m.stateKey,
			"bytes", len(data),
			"error", err)
		return nil, nil
	}
	return prev, nil
}
