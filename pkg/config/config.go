package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shortontech/botmeter/internal/cost"
	"github.com/shortontech/botmeter/internal/detect"
)

// Config is assembled from environment variables, with an optional YAML file
// (BOTMETER_CONFIG) overriding pricing and detection tables.
type Config struct {
	ServerAddr     string
	MetricsEnabled bool
	MetricsAddr    string
	MaxBodyBytes   int64 // upload size cap for log batches

	PGDSN   string
	PGTable string

	KafkaBrokers []string
	KafkaTopic   string

	Publishers []string // enabled publishers: log, kafka

	SitemapURL string

	// Providers and multipliers start from the built-in tables; a YAML
	// override file may replace or extend them. Extra signatures are
	// appended after the built-in registry, so they can never shadow it.
	Providers       map[string]cost.Provider
	Multipliers     map[detect.Category]float64
	ExtraSignatures []detect.Signature
}

func getOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getBool(k string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(k)))
	switch v {
	case "1", "t", "true", "y", "yes":
		return true
	case "0", "f", "false", "n", "no":
		return false
	}
	return def
}

func getInt64(k string, def int64) int64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getStringSlice(k, def string) []string {
	v := os.Getenv(k)
	if v == "" {
		v = def
	}
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Load reads the environment and, when BOTMETER_CONFIG is set, applies the
// YAML override file. Override errors are returned rather than ignored:
// running with a silently half-applied pricing table is worse than failing.
func Load() (Config, error) {
	cfg := Config{
		ServerAddr:     getOr("SERVER_ADDR", ":8080"),
		MetricsEnabled: getBool("METRICS_ENABLED", false),
		MetricsAddr:    getOr("METRICS_ADDR", "127.0.0.1:9090"),
		MaxBodyBytes:   getInt64("MAX_BODY_BYTES", 32<<20), // 32 MiB default
		PGDSN:          getOr("PG_DSN", ""),
		PGTable:        getOr("PG_TABLE", "classified_entries"),
		KafkaBrokers:   getStringSlice("KAFKA_BROKERS", ""),
		KafkaTopic:     getOr("KAFKA_TOPIC", "botmeter.records"),
		Publishers:     getStringSlice("PUBLISHERS", "log"),
		SitemapURL:     getOr("SITEMAP_URL", ""),
		Providers:      cost.DefaultProviders(),
		Multipliers:    cost.DefaultCategoryMultipliers(),
	}
	if path := os.Getenv("BOTMETER_CONFIG"); path != "" {
		if err := applyOverrides(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// overrideFile is the YAML override shape. Tier bounds use -1 (or omission
// on the last tier) to mean "unbounded".
type overrideFile struct {
	Providers map[string]struct {
		Name           string  `yaml:"name"`
		CostPerGB      float64 `yaml:"cost_per_gb"`
		FreeGBIncluded float64 `yaml:"free_gb_included"`
		Tiers          []struct {
			UpToGB    float64 `yaml:"up_to_gb"`
			CostPerGB float64 `yaml:"cost_per_gb"`
		} `yaml:"tiers"`
	} `yaml:"providers"`
	Multipliers map[string]float64 `yaml:"category_multipliers"`
	Signatures  []struct {
		Name           string `yaml:"name"`
		Pattern        string `yaml:"pattern"`
		Category       string `yaml:"category"`
		Severity       string `yaml:"severity"`
		Description    string `yaml:"description"`
		Recommendation string `yaml:"recommendation"`
		RateLimit      int    `yaml:"rate_limit"`
	} `yaml:"signatures"`
}

func applyOverrides(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var of overrideFile
	if err := yaml.Unmarshal(raw, &of); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	for key, p := range of.Providers {
		provider := cost.Provider{
			Name:           p.Name,
			CostPerGB:      p.CostPerGB,
			FreeGBIncluded: p.FreeGBIncluded,
		}
		for i, t := range p.Tiers {
			bound := t.UpToGB
			if bound < 0 || (i == len(p.Tiers)-1 && bound == 0) {
				bound = math.Inf(1)
			}
			provider.Tiers = append(provider.Tiers, cost.Tier{
				UpToGB:    bound,
				CostPerGB: t.CostPerGB,
			})
		}
		// Malformed tier tables are rejected here, at load time, so the
		// calculator never sees one.
		if err := cost.ValidateTiers(provider.Tiers); err != nil {
			return fmt.Errorf("provider %s: %w", key, err)
		}
		cfg.Providers[key] = provider
	}

	for cat, mult := range of.Multipliers {
		if mult < 0 {
			return fmt.Errorf("category %s: negative multiplier", cat)
		}
		cfg.Multipliers[detect.Category(cat)] = mult
	}

	for _, s := range of.Signatures {
		sig, err := detect.CompileSignature(
			s.Name, s.Pattern,
			detect.Category(s.Category), detect.Severity(s.Severity),
			s.Description, detect.Action(s.Recommendation), s.RateLimit)
		if err != nil {
			return fmt.Errorf("signature %s: %w", s.Name, err)
		}
		cfg.ExtraSignatures = append(cfg.ExtraSignatures, sig)
	}
	return nil
}

// Signatures returns the full detection registry: built-ins first, config
// additions after.
func (c Config) Signatures() []detect.Signature {
	return append(detect.DefaultSignatures(), c.ExtraSignatures...)
}
