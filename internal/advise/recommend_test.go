package advise

import (
	"strings"
	"testing"

	"github.com/shortontech/botmeter/internal/cost"
	"github.com/shortontech/botmeter/internal/detect"
)

const gib = int64(1 << 30)

func newEngine() *Engine {
	return NewEngine(cost.NewDefaultCalculator())
}

func TestRecommendThresholds(t *testing.T) {
	e := newEngine()

	// generic provider: $0.10/GB, monthly = bytes_gb * 0.10 * 30, so
	// 1 GiB/period ≈ $3/month.
	tests := []struct {
		name       string
		traffic    detect.BotTraffic
		wantAction detect.Action
		wantNone   bool
		wantConf   float64
	}{
		{
			name:       "ai_scraper over $10/month is blocked",
			traffic:    detect.BotTraffic{BotName: "Bytespider", Category: detect.CategoryAIScraper, Bytes: 5 * gib}, // $15/mo
			wantAction: detect.ActionBlock,
			wantConf:   0.95,
		},
		{
			name:     "ai_scraper under $10/month stays silent",
			traffic:  detect.BotTraffic{BotName: "CCBot", Category: detect.CategoryAIScraper, Bytes: 1 * gib}, // $3/mo
			wantNone: true,
		},
		{
			name:       "ai_training over $50/month is rate limited",
			traffic:    detect.BotTraffic{BotName: "GPTBot", Category: detect.CategoryAITraining, Bytes: 20 * gib}, // $60/mo
			wantAction: detect.ActionRateLimit,
			wantConf:   0.85,
		},
		{
			name:     "ai_training under $50/month stays silent",
			traffic:  detect.BotTraffic{BotName: "GPTBot", Category: detect.CategoryAITraining, Bytes: 10 * gib}, // $30/mo
			wantNone: true,
		},
		{
			name:       "search engine always allowed regardless of cost",
			traffic:    detect.BotTraffic{BotName: "Googlebot", Category: detect.CategorySearchEngine, Bytes: 10000 * gib},
			wantAction: detect.ActionAllow,
			wantConf:   1.0,
		},
		{
			name:       "seo_tool over $20/month is rate limited",
			traffic:    detect.BotTraffic{BotName: "AhrefsBot", Category: detect.CategorySEOTool, Bytes: 10 * gib}, // $30/mo
			wantAction: detect.ActionRateLimit,
			wantConf:   0.75,
		},
		{
			name:     "category with no rule stays silent",
			traffic:  detect.BotTraffic{BotName: "UptimeRobot", Category: detect.CategoryMonitoring, Bytes: 10000 * gib},
			wantNone: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := e.Recommend([]detect.BotTraffic{tt.traffic}, "generic")
			if tt.wantNone {
				if len(recs) != 0 {
					t.Fatalf("want no recommendation, got %+v", recs)
				}
				return
			}
			if len(recs) != 1 {
				t.Fatalf("len(recs) = %d, want 1", len(recs))
			}
			r := recs[0]
			if r.Action != tt.wantAction {
				t.Errorf("Action = %q, want %q", r.Action, tt.wantAction)
			}
			if r.Target != tt.traffic.BotName {
				t.Errorf("Target = %q, want %q", r.Target, tt.traffic.BotName)
			}
			if r.Confidence != tt.wantConf {
				t.Errorf("Confidence = %v, want %v", r.Confidence, tt.wantConf)
			}
			if r.Reason == "" {
				t.Error("Reason is empty")
			}
		})
	}
}

func TestRecommendSavingsBasis(t *testing.T) {
	e := newEngine()

	t.Run("block counts full monthly cost", func(t *testing.T) {
		recs := e.Recommend([]detect.BotTraffic{
			{BotName: "Bytespider", Category: detect.CategoryAIScraper, Bytes: 10 * gib},
		}, "generic")
		if len(recs) != 1 {
			t.Fatal("expected one recommendation")
		}
		if got, want := recs[0].SavingsPerMonth, 30.0; !approx(got, want) {
			t.Errorf("SavingsPerMonth = %v, want %v", got, want)
		}
	})

	t.Run("rate limit counts 70% for ai_training", func(t *testing.T) {
		recs := e.Recommend([]detect.BotTraffic{
			{BotName: "GPTBot", Category: detect.CategoryAITraining, Bytes: 20 * gib}, // $60/mo
		}, "generic")
		if len(recs) != 1 {
			t.Fatal("expected one recommendation")
		}
		if got, want := recs[0].SavingsPerMonth, 42.0; !approx(got, want) {
			t.Errorf("SavingsPerMonth = %v, want %v", got, want)
		}
	})

	t.Run("allow counts nothing", func(t *testing.T) {
		recs := e.Recommend([]detect.BotTraffic{
			{BotName: "Googlebot", Category: detect.CategorySearchEngine, Bytes: 100 * gib},
		}, "generic")
		if len(recs) != 1 {
			t.Fatal("expected one recommendation")
		}
		if recs[0].SavingsPerMonth != 0 {
			t.Errorf("SavingsPerMonth = %v, want 0", recs[0].SavingsPerMonth)
		}
	})
}

func TestRecommendSortedBySavingsStable(t *testing.T) {
	e := newEngine()
	traffic := []detect.BotTraffic{
		{BotName: "Googlebot", Category: detect.CategorySearchEngine, Bytes: 500 * gib}, // savings 0
		{BotName: "CCBot", Category: detect.CategoryAIScraper, Bytes: 5 * gib},          // $15/mo
		{BotName: "Bytespider", Category: detect.CategoryAIScraper, Bytes: 40 * gib},    // $120/mo
		{BotName: "Bingbot", Category: detect.CategorySearchEngine, Bytes: 1 * gib},     // savings 0
	}
	recs := e.Recommend(traffic, "generic")
	if len(recs) != 4 {
		t.Fatalf("len(recs) = %d, want 4", len(recs))
	}
	wantOrder := []string{"Bytespider", "CCBot", "Googlebot", "Bingbot"}
	for i, want := range wantOrder {
		if recs[i].Target != want {
			t.Errorf("recs[%d].Target = %q, want %q (sorted desc, ties stable)", i, recs[i].Target, want)
		}
	}
}

func TestSearchEngineNeverBlocked(t *testing.T) {
	e := newEngine()
	for _, bytes := range []int64{0, gib, 100 * gib, 100000 * gib} {
		recs := e.Recommend([]detect.BotTraffic{
			{BotName: "Googlebot", Category: detect.CategorySearchEngine, Bytes: bytes},
		}, "generic")
		if len(recs) != 1 || recs[0].Action != detect.ActionAllow {
			t.Fatalf("bytes=%d: search engine got %+v, want allow", bytes, recs)
		}
	}
}

func approx(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}

func TestReasonMentionsTarget(t *testing.T) {
	e := newEngine()
	recs := e.Recommend([]detect.BotTraffic{
		{BotName: "Bytespider", Category: detect.CategoryAIScraper, Bytes: 40 * gib},
	}, "generic")
	if len(recs) != 1 || !strings.Contains(recs[0].Reason, "Bytespider") {
		t.Errorf("Reason = %q, want it to name the bot", recs[0].Reason)
	}
}
