package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sources maps a category key to its ordered list of candidate feed URLs.
type Sources map[string][]string

// sourcesFile is the YAML layout accepted by LoadSources.
//
//	categories:
//	  technology:
//	    - https://example.com/tech.xml
type sourcesFile struct {
	Categories map[string][]string `yaml:"categories"`
}

// DefaultSources returns the built-in category table.
func DefaultSources() Sources {
	return Sources{
		"technology": {
			"https://techcrunch.com/feed/",
			"https://www.theverge.com/rss/index.xml",
			"https://feeds.arstechnica.com/arstechnica/technology-lab",
		},
		"crypto": {
			"https://www.coindesk.com/arc/outboundfeeds/rss/",
			"https://cointelegraph.com/rss",
			"https://decrypt.co/feed",
		},
		"ai": {
			"https://techcrunch.com/category/artificial-intelligence/feed/",
			"https://venturebeat.com/category/ai/feed/",
			"https://www.artificialintelligence-news.com/feed/",
		},
		"entertainment": {
			"https://variety.com/feed/",
			"https://www.hollywoodreporter.com/feed/",
			"https://deadline.com/feed/",
		},
		"science": {
			"https://www.sciencedaily.com/rss/all.xml",
			"https://www.newscientist.com/feed/home/",
			"https://phys.org/rss-feed/",
		},
		"politics": {
			"https://feeds.npr.org/1014/rss.xml",
			"https://www.politico.com/rss/politicopicks.xml",
			"https://thehill.com/homenews/feed/",
		},
		"sports": {
			"https://www.espn.com/espn/rss/news",
			"https://feeds.bbci.co.uk/sport/rss.xml",
			"https://www.cbssports.com/rss/headlines/",
		},
	}
}

// LoadSources reads a YAML sources file. Category keys are lowercased and
// categories without URLs are rejected.
func LoadSources(path string) (Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file %s: %w", path, err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sources file %s: %w", path, err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("sources file %s defines no categories", path)
	}

	sources := make(Sources, len(file.Categories))
	for category, urls := range file.Categories {
		key := strings.ToLower(strings.TrimSpace(category))
		var cleaned []string
		for _, u := range urls {
			if u = strings.TrimSpace(u); u != "" {
				cleaned = append(cleaned, u)
			}
		}
		if len(cleaned) == 0 {
			return nil, fmt.Errorf("category %q has no feed URLs", category)
		}
		sources[key] = cleaned
	}
	return sources, nil
}

// ResolveSources returns the sources file named by the config, or the
// defaults when none is configured.
func (c *Config) ResolveSources() (Sources, error) {
	if c.FeedSourcesFile == "" {
		return DefaultSources(), nil
	}
	return LoadSources(c.FeedSourcesFile)
}

// Candidates returns the configured URLs for category, nil if unknown.
func (s Sources) Candidates(category string) []string {
	return s[category]
}

// Categories returns the configured category keys in sorted order.
func (s Sources) Categories() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
