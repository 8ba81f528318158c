// Package ingest joins the classification core to its collaborators: it
// parses uploaded batches, classifies them, persists and publishes the
// results, and answers time-range queries.
package ingest

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/shortontech/botmeter/internal/advise"
	"github.com/shortontech/botmeter/internal/cost"
	"github.com/shortontech/botmeter/internal/detect"
	"github.com/shortontech/botmeter/internal/logparse"
	"github.com/shortontech/botmeter/internal/metrics"
	"github.com/shortontech/botmeter/internal/publish"
	"github.com/shortontech/botmeter/internal/record"
	"github.com/shortontech/botmeter/internal/store"
)

// DefaultRange is used when a query supplies no (or an unknown) range
// selector.
const DefaultRange = "24h"

// rangeDurations is the enumerated set of query range selectors.
var rangeDurations = map[string]time.Duration{
	"1h":  time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// ResolveRange maps a range selector to its duration, falling back to the
// default for empty or unknown selectors.
func ResolveRange(sel string) (string, time.Duration) {
	if d, ok := rangeDurations[sel]; ok {
		return sel, d
	}
	return DefaultRange, rangeDurations[DefaultRange]
}

// overviewEntryLimit bounds the recent-entry slice served for display.
const overviewEntryLimit = 100

// analysisRecordLimit bounds how many records a costing/recommendation
// query pulls from the store.
const analysisRecordLimit = 10000

// BatchReport summarizes one ingested upload. Malformed lines show up only
// as the difference between LinesSubmitted and EntriesRecognized.
type BatchReport struct {
	logparse.BatchStats
	Summary detect.Summary      `json:"summary"`
	Traffic []detect.BotTraffic `json:"traffic_by_bot"`
}

// Overview is the query-boundary response: aggregate metrics plus a bounded
// slice of most-recent classified entries.
type Overview struct {
	Range   string              `json:"range"`
	Summary detect.Summary      `json:"summary"`
	Traffic []detect.BotTraffic `json:"traffic_by_bot"`
	Entries []record.Record     `json:"entries"`
}

// CostReport joins recommendations with the savings estimate they are
// derived from.
type CostReport struct {
	Provider        string                  `json:"provider"`
	Savings         cost.Savings            `json:"savings"`
	Recommendations []advise.Recommendation `json:"recommendations"`
}

// Service wires the pure core to the store and publishers.
type Service struct {
	detector   *detect.Detector
	calc       *cost.Calculator
	engine     *advise.Engine
	store      store.Store
	publishers []publish.Publisher
	metrics    *metrics.Metrics
	log        *zap.Logger
}

func NewService(
	detector *detect.Detector,
	calc *cost.Calculator,
	st store.Store,
	publishers []publish.Publisher,
	m *metrics.Metrics,
	log *zap.Logger,
) *Service {
	return &Service{
		detector:   detector,
		calc:       calc,
		engine:     advise.NewEngine(calc),
		store:      st,
		publishers: publishers,
		metrics:    m,
		log:        log,
	}
}

// IngestBatch parses one uploaded log blob for a site, classifies every
// recognized entry, persists the classified records and forwards them to
// subscribers. Store failure aborts the ingest with a wrapped error; publish
// failure is counted and logged but does not fail the batch, since the live
// feed is advisory.
func (s *Service) IngestBatch(ctx context.Context, site string, r io.Reader) (BatchReport, error) {
	entries, stats, err := logparse.ParseBatch(r)
	if err != nil {
		return BatchReport{}, fmt.Errorf("read batch: %w", err)
	}
	s.metrics.LinesSubmitted.WithLabelValues(site).Add(float64(stats.LinesSubmitted))
	s.metrics.EntriesRecognized.WithLabelValues(site).Add(float64(stats.EntriesRecognized))

	uas := make([]string, len(entries))
	for i, e := range entries {
		uas[i] = e.UserAgent
	}
	results := s.detector.DetectBatch(uas)

	records := make([]record.Record, len(entries))
	for i := range entries {
		records[i] = record.New(site, entries[i], results[i])
		if results[i].IsBot {
			s.metrics.BotRequests.WithLabelValues(site, string(results[i].Category)).Inc()
		}
	}

	if err := s.store.InsertBatch(ctx, records); err != nil {
		s.metrics.StoreErrors.Inc()
		return BatchReport{}, fmt.Errorf("store batch for site %s: %w", site, err)
	}
	for _, p := range s.publishers {
		for _, rec := range records {
			if err := p.Publish(ctx, rec); err != nil {
				s.metrics.PublishErrors.WithLabelValues(p.Name()).Inc()
				s.log.Warn("publish failed",
					zap.String("publisher", p.Name()),
					zap.String("record", rec.ID),
					zap.Error(err))
			}
		}
	}

	return BatchReport{
		BatchStats: stats,
		Summary:    detect.Aggregate(results),
		Traffic:    detect.TrafficByBot(entries, results),
	}, nil
}

// Overview answers the query boundary: aggregate metrics for the selected
// range plus at most 100 recent classified entries, newest first.
func (s *Service) Overview(ctx context.Context, site, rangeSel string) (Overview, error) {
	sel, dur := ResolveRange(rangeSel)
	since := time.Now().UTC().Add(-dur)

	recs, err := s.store.RecentBySite(ctx, site, since, analysisRecordLimit)
	if err != nil {
		return Overview{}, fmt.Errorf("query site %s: %w", site, err)
	}
	entries, results := split(recs)

	display := recs
	if len(display) > overviewEntryLimit {
		display = display[:overviewEntryLimit]
	}
	return Overview{
		Range:   sel,
		Summary: detect.Aggregate(results),
		Traffic: detect.TrafficByBot(entries, results),
		Entries: display,
	}, nil
}

// CostReport prices the stored bot traffic for a site on the given provider
// and derives recommendations from it.
func (s *Service) CostReport(ctx context.Context, site, rangeSel, providerKey string) (CostReport, error) {
	_, dur := ResolveRange(rangeSel)
	since := time.Now().UTC().Add(-dur)

	recs, err := s.store.RecentBySite(ctx, site, since, analysisRecordLimit)
	if err != nil {
		return CostReport{}, fmt.Errorf("query site %s: %w", site, err)
	}
	entries, results := split(recs)
	traffic := detect.TrafficByBot(entries, results)

	if providerKey == "" {
		providerKey = cost.GenericProviderKey
	}
	return CostReport{
		Provider:        providerKey,
		Savings:         s.calc.SavingsByCategory(traffic, providerKey),
		Recommendations: s.engine.Recommend(traffic, providerKey),
	}, nil
}

// RobotsPolicy renders the site's current block/rate-limit decisions as a
// robots.txt document. Crawl delays come from the matching signature's
// requests-per-minute budget.
func (s *Service) RobotsPolicy(ctx context.Context, site, rangeSel, providerKey, sitemapURL string) (string, error) {
	report, err := s.CostReport(ctx, site, rangeSel, providerKey)
	if err != nil {
		return "", err
	}
	rpmByBot := make(map[string]int)
	for _, sig := range s.detector.Signatures() {
		rpmByBot[sig.Name] = sig.RateLimit
	}
	var (
		blocked []string
		limited []advise.CrawlDelay
	)
	for _, rec := range report.Recommendations {
		switch rec.Action {
		case detect.ActionBlock:
			blocked = append(blocked, rec.Target)
		case detect.ActionRateLimit:
			limited = append(limited, advise.CrawlDelay{
				Bot:          rec.Target,
				DelaySeconds: delayForRPM(rpmByBot[rec.Target]),
			})
		}
	}
	return advise.RenderRobots(blocked, limited, sitemapURL), nil
}

// delayForRPM converts a requests-per-minute budget into a crawl delay.
// Bots without a budget get a conservative 10 seconds.
func delayForRPM(rpm int) int {
	if rpm <= 0 {
		return 10
	}
	return int(math.Ceil(60.0 / float64(rpm)))
}

func split(recs []record.Record) ([]logparse.Entry, []detect.Result) {
	entries := make([]logparse.Entry, len(recs))
	results := make([]detect.Result, len(recs))
	for i, r := range recs {
		entries[i] = r.Entry
		results[i] = r.Result
	}
	return entries, results
}
