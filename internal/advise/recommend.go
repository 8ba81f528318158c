package advise

import (
	"fmt"
	"sort"

	"github.com/shortontech/botmeter/internal/cost"
	"github.com/shortontech/botmeter/internal/detect"
)

// Recommendation is one suggested policy action for a named bot.
type Recommendation struct {
	Action          detect.Action `json:"action"`
	Target          string        `json:"target"`
	Reason          string        `json:"reason"`
	SavingsPerMonth float64       `json:"savings_per_month"`
	Confidence      float64       `json:"confidence"`
}

// thresholdRule gates a recommendation on category and monthly cost. Rules
// are evaluated in order and the first match wins per bot; a bot matching no
// rule produces nothing at all, not an implicit allow.
type thresholdRule struct {
	category      detect.Category
	minMonthly    float64 // exclusive lower bound; 0 means unconditional
	action        detect.Action
	savingsFactor float64 // share of monthly cost counted as savings
	confidence    float64
}

var thresholdRules = []thresholdRule{
	{detect.CategoryAIScraper, 10, detect.ActionBlock, 1.0, 0.95},
	{detect.CategoryAITraining, 50, detect.ActionRateLimit, 0.7, 0.85},
	{detect.CategorySearchEngine, 0, detect.ActionAllow, 0, 1.0},
	{detect.CategorySEOTool, 20, detect.ActionRateLimit, 0.5, 0.75},
}

// Engine turns per-bot traffic and provider pricing into policy
// recommendations.
type Engine struct {
	calc *cost.Calculator
}

func NewEngine(calc *cost.Calculator) *Engine {
	return &Engine{calc: calc}
}

// Recommend evaluates each bot-traffic record against the threshold rules
// and returns the resulting recommendations sorted by monthly savings,
// descending. The sort is stable, so ties keep input order.
func (e *Engine) Recommend(traffic []detect.BotTraffic, providerKey string) []Recommendation {
	var recs []Recommendation
	for _, t := range traffic {
		monthly := e.calc.BandwidthCost(t.Bytes, providerKey).Monthly
		for _, rule := range thresholdRules {
			if rule.category != t.Category {
				continue
			}
			if rule.minMonthly > 0 && monthly <= rule.minMonthly {
				break // first matching category rule decides; below threshold means silence
			}
			recs = append(recs, Recommendation{
				Action:          rule.action,
				Target:          t.BotName,
				Reason:          reasonFor(rule.action, t.BotName, monthly),
				SavingsPerMonth: monthly * rule.savingsFactor,
				Confidence:      rule.confidence,
			})
			break
		}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].SavingsPerMonth > recs[j].SavingsPerMonth
	})
	return recs
}

func reasonFor(action detect.Action, bot string, monthly float64) string {
	switch action {
	case detect.ActionBlock:
		return fmt.Sprintf("blocking %s saves an estimated $%.2f/month in bandwidth", bot, monthly)
	case detect.ActionRateLimit:
		return fmt.Sprintf("rate-limiting %s reduces its $%.2f/month bandwidth cost without cutting it off", bot, monthly)
	default:
		return fmt.Sprintf("%s drives organic discovery; keep it allowed", bot)
	}
}
