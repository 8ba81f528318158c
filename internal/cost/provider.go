package cost

import (
	"fmt"
	"math"
)

// Tier is one step of a tiered pricing schedule. UpToGB is the cumulative
// upper bound of the tier; the final tier uses +Inf.
type Tier struct {
	UpToGB    float64 `yaml:"up_to_gb" json:"up_to_gb"`
	CostPerGB float64 `yaml:"cost_per_gb" json:"cost_per_gb"`
}

// Provider holds one hosting provider's egress pricing. The two shapes are
// mutually exclusive: when Tiers is non-empty the flat CostPerGB is ignored.
type Provider struct {
	Name           string  `yaml:"name" json:"name"`
	CostPerGB      float64 `yaml:"cost_per_gb" json:"cost_per_gb"`
	FreeGBIncluded float64 `yaml:"free_gb_included" json:"free_gb_included"`
	Tiers          []Tier  `yaml:"tiers,omitempty" json:"tiers,omitempty"`
}

// GenericProviderKey is the fallback used for unknown provider keys: a flat
// $0.10/GB with no free allowance.
const GenericProviderKey = "generic"

// DefaultProviders returns the built-in pricing registry keyed by provider
// key. The figures are list egress prices, not negotiated rates.
func DefaultProviders() map[string]Provider {
	return map[string]Provider{
		GenericProviderKey: {
			Name:      "Generic",
			CostPerGB: 0.10,
		},
		"aws": {
			Name:           "AWS",
			FreeGBIncluded: 100,
			Tiers: []Tier{
				{UpToGB: 10 * 1024, CostPerGB: 0.09},
				{UpToGB: 50 * 1024, CostPerGB: 0.085},
				{UpToGB: 150 * 1024, CostPerGB: 0.07},
				{UpToGB: math.Inf(1), CostPerGB: 0.05},
			},
		},
		"gcp": {
			Name: "Google Cloud",
			Tiers: []Tier{
				{UpToGB: 1 * 1024, CostPerGB: 0.12},
				{UpToGB: 10 * 1024, CostPerGB: 0.11},
				{UpToGB: math.Inf(1), CostPerGB: 0.08},
			},
		},
		"azure": {
			Name:           "Azure",
			CostPerGB:      0.087,
			FreeGBIncluded: 100,
		},
		"cloudflare": {
			Name:      "Cloudflare",
			CostPerGB: 0, // egress not metered
		},
		"hetzner": {
			Name:           "Hetzner",
			CostPerGB:      0.00108,
			FreeGBIncluded: 20 * 1024,
		},
	}
}

// ValidateTiers rejects malformed tier tables: bounds must be strictly
// increasing and the final bound unbounded. Called when loading pricing
// overrides from configuration; the calculator itself assumes a valid table.
func ValidateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return nil
	}
	prev := 0.0
	for i, t := range tiers {
		if t.CostPerGB < 0 {
			return fmt.Errorf("tier %d: negative cost per GB", i)
		}
		if i == len(tiers)-1 {
			if !math.IsInf(t.UpToGB, 1) {
				return fmt.Errorf("tier %d: final tier must be unbounded", i)
			}
			return nil
		}
		if t.UpToGB <= prev {
			return fmt.Errorf("tier %d: bound %.2f not greater than previous %.2f", i, t.UpToGB, prev)
		}
		prev = t.UpToGB
	}
	return nil
}
