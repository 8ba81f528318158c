package advise

import (
	"fmt"
	"strings"
)

// CrawlDelay pairs a bot with its suggested crawl delay. Robots rendering
// takes an ordered slice rather than a map so the output is deterministic
// for a given input order.
type CrawlDelay struct {
	Bot          string `json:"bot"`
	DelaySeconds int    `json:"delay_seconds"`
}

// DefaultSitemapPath is used when no sitemap URL is supplied.
const DefaultSitemapPath = "/sitemap.xml"

// RenderRobots renders block and rate-limit decisions as a robots.txt
// document: explicit allows for the canonical search engines first, then a
// disallow block per blocked bot, crawl-delay directives per limited bot,
// and a closing allow-all with a sitemap pointer.
func RenderRobots(blocked []string, limited []CrawlDelay, sitemapURL string) string {
	if sitemapURL == "" {
		sitemapURL = DefaultSitemapPath
	}
	var b strings.Builder
	b.WriteString("# Crawling policy generated by botmeter\n\n")

	for _, ua := range []string{"Googlebot", "Bingbot"} {
		fmt.Fprintf(&b, "User-agent: %s\nAllow: /\n\n", ua)
	}
	for _, bot := range blocked {
		fmt.Fprintf(&b, "User-agent: %s\nDisallow: /\n\n", bot)
	}
	for _, cd := range limited {
		fmt.Fprintf(&b, "User-agent: %s\nCrawl-delay: %d\n\n", cd.Bot, cd.DelaySeconds)
	}
	b.WriteString("User-agent: *\nAllow: /\n\n")
	fmt.Fprintf(&b, "Sitemap: %s\n", sitemapURL)
	return b.String()
}
