package detect

import "github.com/shortontech/botmeter/internal/logparse"

// Summary is the reduction of a batch of detection results. The maps carry
// only keys that were actually observed; nothing is pre-seeded at zero.
type Summary struct {
	Total            int                `json:"total"`
	Bots             int                `json:"bots"`
	Humans           int                `json:"humans"`
	ByCategory       map[Category]int   `json:"by_category"`
	BySeverity       map[Severity]int   `json:"by_severity"`
	ByRecommendation map[Action]int     `json:"by_recommendation"`
}

// Aggregate reduces detection results into counts. Category, severity and
// recommendation tallies cover bot results only, and only increment for
// fields the result actually carries.
func Aggregate(results []Result) Summary {
	s := Summary{
		ByCategory:       make(map[Category]int),
		BySeverity:       make(map[Severity]int),
		ByRecommendation: make(map[Action]int),
	}
	for _, r := range results {
		s.Total++
		if !r.IsBot {
			s.Humans++
			continue
		}
		s.Bots++
		if r.Category != "" {
			s.ByCategory[r.Category]++
		}
		if r.Severity != "" {
			s.BySeverity[r.Severity]++
		}
		if r.Recommendation != "" {
			s.ByRecommendation[r.Recommendation]++
		}
	}
	return s
}

// BotTraffic is the per-bot rollup that feeds the cost calculator.
type BotTraffic struct {
	BotName  string   `json:"bot_name"`
	Category Category `json:"category"`
	Requests int64    `json:"requests"`
	Bytes    int64    `json:"bytes"`
}

// TrafficByBot joins entries with their detection results index-for-index
// and rolls up request and byte totals per bot. Bots appear in first-seen
// order, which keeps downstream output deterministic for a given batch.
func TrafficByBot(entries []logparse.Entry, results []Result) []BotTraffic {
	n := len(entries)
	if len(results) < n {
		n = len(results)
	}
	var (
		order []string
		byBot = make(map[string]*BotTraffic)
	)
	for i := 0; i < n; i++ {
		r := results[i]
		if !r.IsBot {
			continue
		}
		t, ok := byBot[r.BotName]
		if !ok {
			t = &BotTraffic{BotName: r.BotName, Category: r.Category}
			byBot[r.BotName] = t
			order = append(order, r.BotName)
		}
		t.Requests++
		t.Bytes += entries[i].Bytes
	}
	out := make([]BotTraffic, 0, len(order))
	for _, name := range order {
		out = append(out, *byBot[name])
	}
	return out
}
