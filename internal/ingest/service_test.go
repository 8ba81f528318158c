package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"

	"github.com/shortontech/botmeter/internal/cost"
	"github.com/shortontech/botmeter/internal/detect"
	"github.com/shortontech/botmeter/internal/metrics"
	"github.com/shortontech/botmeter/internal/publish"
	"github.com/shortontech/botmeter/internal/record"
	"github.com/shortontech/botmeter/internal/store"
)

type capturePublisher struct {
	records []record.Record
	fail    bool
}

func (p *capturePublisher) Name() string                    { return "capture" }
func (p *capturePublisher) Start(ctx context.Context) error { return nil }
func (p *capturePublisher) Close() error                    { return nil }
func (p *capturePublisher) Publish(ctx context.Context, r record.Record) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.records = append(p.records, r)
	return nil
}

type failingStore struct {
	store.Store
}

func (failingStore) InsertBatch(ctx context.Context, records []record.Record) error {
	return errors.New("connection refused")
}

func newTestService(t *testing.T, st store.Store, pubs ...publish.Publisher) *Service {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	return NewService(
		detect.NewDefaultDetector(),
		cost.NewDefaultCalculator(),
		st, pubs, m,
		zaptest.NewLogger(t),
	)
}

func combinedLine(ts time.Time, ip, path string, bytes int64, ua string) string {
	return fmt.Sprintf(`%s - - [%s] "GET %s HTTP/1.1" 200 %d "-" "%s"`,
		ip, ts.Format("02/Jan/2006:15:04:05 -0700"), path, bytes, ua)
}

// End-to-end sizing case: 1000 lines, 200 of them GPTBot at 10 MB
// each.
func TestIngestBatchEndToEnd(t *testing.T) {
	now := time.Now().UTC()
	var lines []string
	for i := 0; i < 1000; i++ {
		ua := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/126.0"
		bytes := int64(1234)
		if i%5 == 0 { // 200 of 1000
			ua = "Mozilla/5.0 (compatible; GPTBot/1.0; +https://openai.com/gptbot)"
			bytes = 10_000_000
		}
		lines = append(lines, combinedLine(now, "203.0.113.9", fmt.Sprintf("/p/%d", i), bytes, ua))
	}

	st := store.NewMemStore()
	pub := &capturePublisher{}
	svc := newTestService(t, st, pub)

	report, err := svc.IngestBatch(context.Background(), "example.com", strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatalf("IngestBatch error: %v", err)
	}
	if report.LinesSubmitted != 1000 || report.EntriesRecognized != 1000 {
		t.Errorf("stats = %d/%d, want 1000/1000", report.LinesSubmitted, report.EntriesRecognized)
	}
	if report.Summary.Bots != 200 || report.Summary.Humans != 800 {
		t.Errorf("Bots/Humans = %d/%d, want 200/800", report.Summary.Bots, report.Summary.Humans)
	}
	if len(report.Traffic) != 1 {
		t.Fatalf("len(Traffic) = %d, want 1", len(report.Traffic))
	}
	gpt := report.Traffic[0]
	if gpt.BotName != "GPTBot" || gpt.Requests != 200 || gpt.Bytes != 2_000_000_000 {
		t.Errorf("GPTBot traffic = %+v, want 200 req / 2e9 bytes", gpt)
	}
	if len(pub.records) != 1000 {
		t.Errorf("published %d records, want 1000", len(pub.records))
	}

	// And the costing half of the example, via the query boundary.
	cr, err := svc.CostReport(context.Background(), "example.com", "24h", "generic")
	if err != nil {
		t.Fatalf("CostReport error: %v", err)
	}
	aiTraining := cr.Savings.ByCategory[detect.CategoryAITraining]
	// 2e9 bytes ≈ 1.863 GB, ×1.5 multiplier, ×$0.10/GB ≈ $0.279
	if aiTraining < 0.27 || aiTraining > 0.29 {
		t.Errorf("ai_training savings = %v, want ≈0.279", aiTraining)
	}
}

func TestIngestBatchSkipsMalformed(t *testing.T) {
	now := time.Now().UTC()
	input := strings.Join([]string{
		combinedLine(now, "10.0.0.1", "/a", 100, "curl/8.5.0"),
		"total garbage",
		combinedLine(now, "10.0.0.1", "/b", 100, "curl/8.5.0"),
	}, "\n")

	svc := newTestService(t, store.NewMemStore())
	report, err := svc.IngestBatch(context.Background(), "example.com", strings.NewReader(input))
	if err != nil {
		t.Fatalf("IngestBatch error: %v", err)
	}
	if report.LinesSubmitted != 3 || report.EntriesRecognized != 2 {
		t.Errorf("stats = %d/%d, want 3/2", report.LinesSubmitted, report.EntriesRecognized)
	}
}

func TestIngestBatchStoreFailureSurfaces(t *testing.T) {
	svc := newTestService(t, failingStore{})
	line := combinedLine(time.Now().UTC(), "10.0.0.1", "/", 100, "curl/8.5.0")
	_, err := svc.IngestBatch(context.Background(), "example.com", strings.NewReader(line))
	if err == nil {
		t.Fatal("expected error from failing store")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error should carry the cause, got %v", err)
	}
}

func TestIngestBatchPublishFailureIsNotFatal(t *testing.T) {
	svc := newTestService(t, store.NewMemStore(), &capturePublisher{fail: true})
	line := combinedLine(time.Now().UTC(), "10.0.0.1", "/", 100, "curl/8.5.0")
	report, err := svc.IngestBatch(context.Background(), "example.com", strings.NewReader(line))
	if err != nil {
		t.Fatalf("publish failure must not fail the batch: %v", err)
	}
	if report.EntriesRecognized != 1 {
		t.Errorf("EntriesRecognized = %d, want 1", report.EntriesRecognized)
	}
}

func TestOverviewBoundsEntries(t *testing.T) {
	now := time.Now().UTC()
	var lines []string
	for i := 0; i < 250; i++ {
		lines = append(lines, combinedLine(now.Add(-time.Duration(i)*time.Second),
			"10.0.0.1", fmt.Sprintf("/p/%d", i), 100, "curl/8.5.0"))
	}
	svc := newTestService(t, store.NewMemStore())
	if _, err := svc.IngestBatch(context.Background(), "example.com", strings.NewReader(strings.Join(lines, "\n"))); err != nil {
		t.Fatal(err)
	}

	ov, err := svc.Overview(context.Background(), "example.com", "24h")
	if err != nil {
		t.Fatalf("Overview error: %v", err)
	}
	if len(ov.Entries) != 100 {
		t.Errorf("len(Entries) = %d, want 100 (display cap)", len(ov.Entries))
	}
	if ov.Summary.Total != 250 {
		t.Errorf("Summary.Total = %d, want 250 (aggregates cover the range, not the display slice)", ov.Summary.Total)
	}
	if ov.Range != "24h" {
		t.Errorf("Range = %q, want 24h", ov.Range)
	}
}

func TestResolveRange(t *testing.T) {
	tests := []struct {
		sel     string
		want    string
		wantDur time.Duration
	}{
		{"1h", "1h", time.Hour},
		{"24h", "24h", 24 * time.Hour},
		{"7d", "7d", 7 * 24 * time.Hour},
		{"30d", "30d", 30 * 24 * time.Hour},
		{"", "24h", 24 * time.Hour},
		{"yesterday", "24h", 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run("sel="+tt.sel, func(t *testing.T) {
			sel, dur := ResolveRange(tt.sel)
			if sel != tt.want || dur != tt.wantDur {
				t.Errorf("ResolveRange(%q) = %q/%v, want %q/%v", tt.sel, sel, dur, tt.want, tt.wantDur)
			}
		})
	}
}

func TestRobotsPolicyFromTraffic(t *testing.T) {
	now := time.Now().UTC()
	var lines []string
	// Enough Bytespider traffic to cross the ai_scraper block threshold
	// ($10/month at $0.10/GB needs >3.33 GB) and AhrefsBot to cross the
	// seo_tool rate-limit threshold.
	for i := 0; i < 50; i++ {
		lines = append(lines, combinedLine(now, "10.0.0.2", "/x", 200_000_000,
			"Mozilla/5.0 (compatible; Bytespider; spider-feedback@bytedance.com)"))
		lines = append(lines, combinedLine(now, "10.0.0.3", "/y", 200_000_000,
			"Mozilla/5.0 (compatible; AhrefsBot/7.0; +http://ahrefs.com/robot/)"))
	}
	svc := newTestService(t, store.NewMemStore())
	if _, err := svc.IngestBatch(context.Background(), "example.com", strings.NewReader(strings.Join(lines, "\n"))); err != nil {
		t.Fatal(err)
	}

	doc, err := svc.RobotsPolicy(context.Background(), "example.com", "24h", "generic", "")
	if err != nil {
		t.Fatalf("RobotsPolicy error: %v", err)
	}
	if !strings.Contains(doc, "User-agent: Bytespider\nDisallow: /") {
		t.Errorf("Bytespider not blocked in policy:\n%s", doc)
	}
	// AhrefsBot signature budget is 6 rpm → ceil(60/6) = 10s delay.
	if !strings.Contains(doc, "User-agent: AhrefsBot\nCrawl-delay: 10") {
		t.Errorf("AhrefsBot crawl delay missing:\n%s", doc)
	}
}
