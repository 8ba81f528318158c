package detect

import (
	"fmt"
	"regexp"
)

// Category is the coarse classification of a bot's purpose.
type Category string

const (
	CategoryAITraining   Category = "ai_training"
	CategoryAIScraper    Category = "ai_scraper"
	CategoryAISearch     Category = "ai_search"
	CategorySearchEngine Category = "search_engine"
	CategorySocialMedia  Category = "social_media"
	CategorySEOTool      Category = "seo_tool"
	CategoryScraper      Category = "scraper"
	CategoryMonitoring   Category = "monitoring"
	CategorySecurity     Category = "security"
)

// Severity is the qualitative cost/risk level assigned to a bot.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Action is the suggested policy action for a bot.
type Action string

const (
	ActionAllow     Action = "allow"
	ActionRateLimit Action = "rate_limit"
	ActionBlock     Action = "block"
)

// Signature maps a User-Agent pattern to a known bot identity. Signatures
// live in an ordered slice, not a map: matching walks the slice front to
// back and the first hit wins, so specific patterns must be declared before
// patterns they would otherwise be shadowed by (Applebot-Extended before
// Applebot, for example).
type Signature struct {
	Name           string
	Pattern        *regexp.Regexp
	Category       Category
	Severity       Severity
	Description    string
	Recommendation Action
	// RateLimit is the suggested requests-per-minute budget when
	// Recommendation is rate_limit; 0 means no limit suggested.
	RateLimit int
}

// CompileSignature builds a signature from configuration, compiling the
// pattern case-insensitively and rejecting patterns that do not compile or
// entries without a name.
func CompileSignature(name, pattern string, cat Category, sev Severity, desc string, rec Action, rpm int) (Signature, error) {
	if name == "" {
		return Signature{}, fmt.Errorf("signature has no name")
	}
	re, err := regexp.Compile(`(?i)` + pattern)
	if err != nil {
		return Signature{}, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return Signature{
		Name:           name,
		Pattern:        re,
		Category:       cat,
		Severity:       sev,
		Description:    desc,
		Recommendation: rec,
		RateLimit:      rpm,
	}, nil
}

func sig(name, pattern string, cat Category, sev Severity, desc string, rec Action, rpm int) Signature {
	return Signature{
		Name:           name,
		Pattern:        regexp.MustCompile(`(?i)` + pattern),
		Category:       cat,
		Severity:       sev,
		Description:    desc,
		Recommendation: rec,
		RateLimit:      rpm,
	}
}

// DefaultSignatures returns the built-in registry in matching order. Callers
// get a fresh slice; the compiled patterns themselves are shared and
// read-only.
func DefaultSignatures() []Signature {
	return []Signature{
		// AI training crawlers
		sig("GPTBot", `GPTBot`, CategoryAITraining, SeverityHigh,
			"OpenAI crawler collecting model training data", ActionBlock, 0),
		sig("ClaudeBot", `ClaudeBot`, CategoryAITraining, SeverityHigh,
			"Anthropic crawler collecting model training data", ActionBlock, 0),
		sig("Google-Extended", `Google-Extended`, CategoryAITraining, SeverityMedium,
			"Google AI training data crawler", ActionBlock, 0),
		// Must precede Applebot: its UA token contains the plain Applebot token.
		sig("Applebot-Extended", `Applebot-Extended`, CategoryAITraining, SeverityMedium,
			"Apple AI training data crawler", ActionBlock, 0),
		sig("Meta-ExternalAgent", `Meta-ExternalAgent`, CategoryAITraining, SeverityHigh,
			"Meta AI training data crawler", ActionBlock, 0),
		sig("cohere-ai", `cohere-ai`, CategoryAITraining, SeverityMedium,
			"Cohere AI training data crawler", ActionBlock, 0),
		sig("AI2Bot", `AI2Bot`, CategoryAITraining, SeverityLow,
			"Allen Institute crawler for open datasets", ActionBlock, 0),

		// AI scrapers
		sig("Bytespider", `Bytespider`, CategoryAIScraper, SeverityCritical,
			"ByteDance crawler, known for aggressive fetch rates", ActionBlock, 0),
		sig("CCBot", `CCBot`, CategoryAIScraper, SeverityHigh,
			"Common Crawl bot feeding many AI training sets", ActionBlock, 0),
		sig("Diffbot", `Diffbot`, CategoryAIScraper, SeverityMedium,
			"Diffbot structured-data extraction crawler", ActionBlock, 0),
		sig("ImagesiftBot", `ImagesiftBot`, CategoryAIScraper, SeverityMedium,
			"Hive image crawler", ActionBlock, 0),
		sig("img2dataset", `img2dataset`, CategoryAIScraper, SeverityHigh,
			"Bulk image dataset downloader", ActionBlock, 0),

		// AI search / retrieval agents
		sig("ChatGPT-User", `ChatGPT-User`, CategoryAISearch, SeverityMedium,
			"ChatGPT live retrieval on behalf of a user", ActionRateLimit, 10),
		sig("OAI-SearchBot", `OAI-SearchBot`, CategoryAISearch, SeverityMedium,
			"OpenAI search indexing crawler", ActionRateLimit, 10),
		sig("Claude-Web", `Claude-Web`, CategoryAISearch, SeverityMedium,
			"Claude live retrieval on behalf of a user", ActionRateLimit, 10),
		sig("PerplexityBot", `PerplexityBot`, CategoryAISearch, SeverityMedium,
			"Perplexity AI search crawler", ActionRateLimit, 10),
		sig("YouBot", `YouBot`, CategoryAISearch, SeverityLow,
			"You.com search crawler", ActionRateLimit, 10),

		// Search engines
		sig("Googlebot", `Googlebot`, CategorySearchEngine, SeverityLow,
			"Google search indexer", ActionAllow, 0),
		sig("Bingbot", `bingbot`, CategorySearchEngine, SeverityLow,
			"Microsoft Bing search indexer", ActionAllow, 0),
		sig("DuckDuckBot", `DuckDuckBot`, CategorySearchEngine, SeverityLow,
			"DuckDuckGo search indexer", ActionAllow, 0),
		sig("Applebot", `Applebot`, CategorySearchEngine, SeverityLow,
			"Apple Siri/Spotlight indexer", ActionAllow, 0),
		sig("Baiduspider", `Baiduspider`, CategorySearchEngine, SeverityLow,
			"Baidu search indexer", ActionAllow, 0),
		sig("YandexBot", `YandexBot`, CategorySearchEngine, SeverityLow,
			"Yandex search indexer", ActionAllow, 0),
		sig("Amazonbot", `Amazonbot`, CategorySearchEngine, SeverityLow,
			"Amazon Alexa answers crawler", ActionRateLimit, 30),
		sig("PetalBot", `PetalBot`, CategorySearchEngine, SeverityLow,
			"Huawei Petal search crawler", ActionRateLimit, 30),

		// Social media preview fetchers
		sig("facebookexternalhit", `facebookexternalhit`, CategorySocialMedia, SeverityLow,
			"Facebook link preview fetcher", ActionAllow, 0),
		sig("Twitterbot", `Twitterbot`, CategorySocialMedia, SeverityLow,
			"X/Twitter card fetcher", ActionAllow, 0),
		sig("LinkedInBot", `LinkedInBot`, CategorySocialMedia, SeverityLow,
			"LinkedIn link preview fetcher", ActionAllow, 0),
		sig("Slackbot", `Slackbot`, CategorySocialMedia, SeverityLow,
			"Slack link unfurler", ActionAllow, 0),
		sig("Discordbot", `Discordbot`, CategorySocialMedia, SeverityLow,
			"Discord link preview fetcher", ActionAllow, 0),

		// SEO tooling
		sig("AhrefsBot", `AhrefsBot`, CategorySEOTool, SeverityMedium,
			"Ahrefs backlink index crawler", ActionRateLimit, 6),
		sig("SemrushBot", `SemrushBot`, CategorySEOTool, SeverityMedium,
			"Semrush SEO crawler", ActionRateLimit, 6),
		sig("MJ12bot", `MJ12bot`, CategorySEOTool, SeverityMedium,
			"Majestic link intelligence crawler", ActionRateLimit, 6),
		sig("DotBot", `DotBot`, CategorySEOTool, SeverityLow,
			"Moz link research crawler", ActionRateLimit, 6),
		sig("BLEXBot", `BLEXBot`, CategorySEOTool, SeverityLow,
			"WebMeUp backlink crawler", ActionRateLimit, 6),
		sig("DataForSeoBot", `DataForSeoBot`, CategorySEOTool, SeverityMedium,
			"DataForSEO crawler", ActionRateLimit, 6),

		// Generic scraping frameworks
		sig("Scrapy", `Scrapy`, CategoryScraper, SeverityHigh,
			"Scrapy scraping framework default UA", ActionBlock, 0),
		sig("HTTrack", `HTTrack`, CategoryScraper, SeverityMedium,
			"HTTrack website copier", ActionBlock, 0),
		sig("magpie-crawler", `magpie-crawler`, CategoryScraper, SeverityMedium,
			"Brandwatch social listening crawler", ActionBlock, 0),

		// Monitoring
		sig("UptimeRobot", `UptimeRobot`, CategoryMonitoring, SeverityLow,
			"UptimeRobot availability checks", ActionAllow, 0),
		sig("Pingdom", `Pingdom`, CategoryMonitoring, SeverityLow,
			"Pingdom availability checks", ActionAllow, 0),
		sig("StatusCake", `StatusCake`, CategoryMonitoring, SeverityLow,
			"StatusCake availability checks", ActionAllow, 0),

		// Security scanners
		sig("CensysInspect", `CensysInspect`, CategorySecurity, SeverityMedium,
			"Censys internet-wide scanner", ActionRateLimit, 2),
		sig("Expanse", `Expanse`, CategorySecurity, SeverityMedium,
			"Palo Alto Expanse attack-surface scanner", ActionRateLimit, 2),
	}
}
