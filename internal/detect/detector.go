package detect

import "regexp"

// Result is the classification of a single User-Agent string. IsBot implies
// a non-empty BotName. Confidence is always in [0,1].
type Result struct {
	IsBot          bool     `json:"is_bot"`
	BotName        string   `json:"bot_name,omitempty"`
	Category       Category `json:"category,omitempty"`
	Severity       Severity `json:"severity,omitempty"`
	Description    string   `json:"description,omitempty"`
	Recommendation Action   `json:"recommendation,omitempty"`
	Confidence     float64  `json:"confidence"`
}

// genericRule is a fallback heuristic applied when no signature matches.
// Rules are checked in declaration order; like the signature registry, the
// first hit wins.
type genericRule struct {
	name       string
	pattern    *regexp.Regexp
	confidence float64
}

var genericRules = []genericRule{
	{
		name: "automation-tool",
		pattern: regexp.MustCompile(
			`(?i)(headless|selenium|webdriver|puppeteer|playwright|phantomjs|jsdom|nightmare)`),
		confidence: 0.9,
	},
	{
		name: "generic-crawler",
		pattern: regexp.MustCompile(
			`(?i)\b(bot|crawler|spider|scraper|fetcher)\b`),
		confidence: 0.85,
	},
	{
		name: "http-client",
		pattern: regexp.MustCompile(
			`(?i)(curl|wget|python-requests|python-urllib|go-http-client|okhttp|axios|aiohttp|libwww-perl|java/|httpclient)`),
		confidence: 0.75,
	},
}

// Detector classifies User-Agent strings against an immutable signature
// registry. It holds no other state and is safe for concurrent use.
type Detector struct {
	sigs []Signature
}

// NewDetector builds a detector over the given registry. The slice is used
// as-is; callers must not mutate it afterwards.
func NewDetector(sigs []Signature) *Detector {
	return &Detector{sigs: sigs}
}

// NewDefaultDetector builds a detector over the built-in registry.
func NewDefaultDetector() *Detector {
	return NewDetector(DefaultSignatures())
}

// Detect classifies one User-Agent string. An empty UA is not a bot
// (confidence 1.0); a registry hit carries that signature's metadata at
// confidence 0.95; otherwise the generic cascade applies at its rule's
// confidence with scraper/medium/rate_limit defaults; no match at all is
// not-a-bot at confidence 1.0.
func (d *Detector) Detect(userAgent string) Result {
	if userAgent == "" {
		return Result{IsBot: false, Confidence: 1.0}
	}
	for _, s := range d.sigs {
		if s.Pattern.MatchString(userAgent) {
			return Result{
				IsBot:          true,
				BotName:        s.Name,
				Category:       s.Category,
				Severity:       s.Severity,
				Description:    s.Description,
				Recommendation: s.Recommendation,
				Confidence:     0.95,
			}
		}
	}
	for _, g := range genericRules {
		if g.pattern.MatchString(userAgent) {
			return Result{
				IsBot:          true,
				BotName:        g.name,
				Category:       CategoryScraper,
				Severity:       SeverityMedium,
				Description:    "unrecognized automated client",
				Recommendation: ActionRateLimit,
				Confidence:     g.confidence,
			}
		}
	}
	return Result{IsBot: false, Confidence: 1.0}
}

// DetectBatch classifies every UA in order. The output always has the same
// length as the input, with index i holding the result for userAgents[i].
func (d *Detector) DetectBatch(userAgents []string) []Result {
	results := make([]Result, len(userAgents))
	for i, ua := range userAgents {
		results[i] = d.Detect(ua)
	}
	return results
}

// Signatures exposes the registry in matching order, for policy rendering
// and enforcement wiring.
func (d *Detector) Signatures() []Signature {
	return d.sigs
}
