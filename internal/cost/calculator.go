package cost

import (
	"math"

	"github.com/shortontech/botmeter/internal/detect"
)

const bytesPerGB = float64(1 << 30)

// Breakdown prices one traffic volume. Monthly and Yearly scale Total by a
// fixed 30/365 day-count convention; nothing here is calendar-aware.
type Breakdown struct {
	BandwidthGB   float64 `json:"bandwidth_gb"`
	BandwidthCost float64 `json:"bandwidth_cost"`
	Total         float64 `json:"total"`
	Monthly       float64 `json:"monthly"`
	Yearly        float64 `json:"yearly"`
}

// Savings estimates what blocking bot traffic would save, broken down by
// category.
type Savings struct {
	Total      float64                     `json:"total"`
	Monthly    float64                     `json:"monthly"`
	Yearly     float64                     `json:"yearly"`
	ByCategory map[detect.Category]float64 `json:"by_category"`
}

// ROIReport relates savings to the one-off cost of implementing blocking.
// BreakEvenDays and ROIPercent are +Inf sentinels when daily savings are
// zero or the implementation is free, respectively; callers must
// special-case the sentinel rather than treat it as a finite value.
type ROIReport struct {
	BreakEvenDays  float64 `json:"break_even_days"`
	MonthlySavings float64 `json:"monthly_savings"`
	YearlySavings  float64 `json:"yearly_savings"`
	ROIPercent     float64 `json:"roi_percent"`
}

// DefaultCategoryMultipliers weights raw bot bytes by how expensive a
// category tends to be in practice (cache busting, deep crawls) relative to
// its bandwidth alone. These are heuristics, not measurements, and are
// overridable from configuration; unknown categories use 1.0.
func DefaultCategoryMultipliers() map[detect.Category]float64 {
	return map[detect.Category]float64{
		detect.CategoryAIScraper:    1.8,
		detect.CategoryAITraining:   1.5,
		detect.CategorySearchEngine: 0.5,
		detect.CategorySocialMedia:  0.3,
	}
}

// Calculator prices bandwidth against an immutable provider registry and
// category-multiplier table, both fixed at construction.
type Calculator struct {
	providers   map[string]Provider
	multipliers map[detect.Category]float64
}

// NewCalculator builds a calculator over explicit tables. The maps are used
// as-is and must not be mutated afterwards.
func NewCalculator(providers map[string]Provider, multipliers map[detect.Category]float64) *Calculator {
	return &Calculator{providers: providers, multipliers: multipliers}
}

// NewDefaultCalculator builds a calculator over the built-in pricing and
// multiplier tables.
func NewDefaultCalculator() *Calculator {
	return NewCalculator(DefaultProviders(), DefaultCategoryMultipliers())
}

// Provider resolves a provider key, falling back to the generic provider
// for unknown keys.
func (c *Calculator) Provider(key string) Provider {
	if p, ok := c.providers[key]; ok {
		return p
	}
	return c.providers[GenericProviderKey]
}

func (c *Calculator) multiplier(cat detect.Category) float64 {
	if m, ok := c.multipliers[cat]; ok {
		return m
	}
	return 1.0
}

// BandwidthCost prices bytes of transfer on the given provider. Bytes are
// converted to GB (1024^3), the free allowance is subtracted (floored at
// zero), and the billable volume is priced by the provider's tier table or
// flat rate.
func (c *Calculator) BandwidthCost(bytes int64, providerKey string) Breakdown {
	p := c.Provider(providerKey)
	gb := float64(bytes) / bytesPerGB
	total := priceGB(p, gb)
	return Breakdown{
		BandwidthGB:   gb,
		BandwidthCost: total,
		Total:         total,
		Monthly:       total * 30,
		Yearly:        total * 365,
	}
}

func priceGB(p Provider, gb float64) float64 {
	billable := gb - p.FreeGBIncluded
	if billable <= 0 {
		return 0
	}
	if len(p.Tiers) > 0 {
		return TieredCost(billable, p.Tiers)
	}
	return billable * p.CostPerGB
}

// TieredCost prices gb of transfer against an ascending tier table: each
// tier bills min(remaining, tier width) at its rate until nothing remains.
// The table must be valid per ValidateTiers; the walk itself never produces
// a negative cost.
func TieredCost(gb float64, tiers []Tier) float64 {
	var (
		cost      float64
		remaining = gb
		prevBound float64
	)
	for _, t := range tiers {
		if remaining <= 0 {
			break
		}
		width := t.UpToGB - prevBound
		billed := math.Min(remaining, width)
		cost += billed * t.CostPerGB
		remaining -= billed
		prevBound = t.UpToGB
	}
	return cost
}

// SavingsByCategory estimates per-category savings of blocking the given
// bot traffic. Each record's bytes are scaled by its category multiplier
// before pricing.
func (c *Calculator) SavingsByCategory(traffic []detect.BotTraffic, providerKey string) Savings {
	s := Savings{ByCategory: make(map[detect.Category]float64)}
	p := c.Provider(providerKey)
	for _, t := range traffic {
		gb := float64(t.Bytes) / bytesPerGB * c.multiplier(t.Category)
		cost := priceGB(p, gb)
		s.ByCategory[t.Category] += cost
		s.Total += cost
	}
	s.Monthly = s.Total * 30
	s.Yearly = s.Total * 365
	return s
}

// ROI relates what daily bot traffic costs to a one-off implementation cost
// for blocking it. A zero implementation cost yields the +Inf ROI sentinel.
func (c *Calculator) ROI(dailyBotBytes int64, providerKey string, implementationCost float64) ROIReport {
	daily := c.BandwidthCost(dailyBotBytes, providerKey)
	r := ROIReport{
		MonthlySavings: daily.Total * 30,
		YearlySavings:  daily.Total * 365,
	}
	if implementationCost > 0 {
		r.BreakEvenDays = math.Ceil(implementationCost / daily.Total)
		r.ROIPercent = (r.YearlySavings - implementationCost) / implementationCost * 100
	} else {
		r.BreakEvenDays = 0
		r.ROIPercent = math.Inf(1)
	}
	return r
}
