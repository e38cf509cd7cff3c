// Package fetch provides the connectors that turn external feeds into
// signal events.
//
// Connectors sit outside the analysis core. A failing feed means fewer
// events, never a failed run: per-feed errors are logged and returned
// alongside whatever the other feeds produced.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/abelbrown/narratives/internal/config"
	"github.com/abelbrown/narratives/internal/logging"
	"github.com/abelbrown/narratives/internal/model"
)

const (
	maxConcurrentFetches = 4
	maxSummaryLen        = 500
	maxTextSummaryLen    = 300
	userAgent            = "narratives/0.1 (+https://github.com/abelbrown/narratives)"
)

// Connector produces events published at or after since.
type Connector interface {
	Name() string
	Fetch(ctx context.Context, since time.Time) ([]model.SignalEvent, error)
}

// FeedError records one feed that could not be read.
type FeedError struct {
	Feed string
	Err  error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed %s: %v", e.Feed, e.Err)
}

func (e *FeedError) Unwrap() error { return e.Err }

// RSSConnector reads the configured RSS and Atom feeds.
type RSSConnector struct {
	client   *http.Client
	limiter  *rate.Limiter
	feeds    []config.FeedConfig
	maxItems int
	matcher  *EntityMatcher
}

// NewRSSConnector creates a connector for cfg. All feeds share one rate limiter.
func NewRSSConnector(cfg config.RSSConfig, matcher *EntityMatcher) *RSSConnector {
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if cfg.RateLimitRPS > 0 {
		limit = rate.Limit(cfg.RateLimitRPS)
	}
	return &RSSConnector{
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(limit, burst),
		feeds:    cfg.Feeds,
		maxItems: cfg.MaxItemsPerFeed,
		matcher:  matcher,
	}
}

// Name implements Connector.
func (c *RSSConnector) Name() string { return "rss_blogs" }

// Fetch reads every feed concurrently and returns their events in feed order.
// The error joins one *FeedError per failed feed; events from the feeds that
// succeeded are returned either way.
func (c *RSSConnector) Fetch(ctx context.Context, since time.Time) ([]model.SignalEvent, error) {
	logging.Info("fetching_rss_data", "feed_count", len(c.feeds))

	results := make([][]model.SignalEvent, len(c.feeds))
	errs := make([]error, len(c.feeds))

	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)

	for i, feed := range c.feeds {
		g.Go(func() error {
			events, err := c.fetchFeed(ctx, feed, since)
			if err != nil {
				logging.Warn("rss_feed_error", "feed", feed.Name, "error", err)
				errs[i] = &FeedError{Feed: feed.Name, Err: err}
				return nil // never fail the group - errors reported per-feed
			}
			logging.Debug("rss_feed_parsed", "feed", feed.Name, "events", len(events))
			results[i] = events
			return nil
		})
	}
	_ = g.Wait()

	var events []model.SignalEvent
	for _, r := range results {
		events = append(events, r...)
	}
	logging.Info("rss_fetch_complete", "event_count", len(events))

	return events, errors.Join(errs...)
}

func (c *RSSConnector) fetchFeed(ctx context.Context, feed config.FeedConfig, since time.Time) ([]model.SignalEvent, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := parsed.Items
	if c.maxItems > 0 && len(items) > c.maxItems {
		items = items[:c.maxItems]
	}

	events := make([]model.SignalEvent, 0, len(items))
	for _, item := range items {
		e, ok := c.convertItem(item, feed)
		if !ok || e.Timestamp.Before(since) {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

// convertItem turns a feed item into an rss_blog event. Items without a
// publish or update date are dropped.
func (c *RSSConnector) convertItem(item *gofeed.Item, feed config.FeedConfig) (model.SignalEvent, bool) {
	var published time.Time
	switch {
	case item.PublishedParsed != nil:
		published = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		published = *item.UpdatedParsed
	default:
		return model.SignalEvent{}, false
	}

	summary := item.Description
	if summary == "" {
		summary = item.Content
	}
	summary = truncate(stripHTML(summary), maxSummaryLen)

	name := feed.Name
	if name == "" {
		name = feed.URL
	}
	category := feed.Category
	if category == "" {
		category = "blog"
	}
	author := name
	if item.Author != nil && item.Author.Name != "" {
		author = item.Author.Name
	}

	text := fmt.Sprintf("[%s] %s: %s", name, item.Title, truncate(summary, maxTextSummaryLen))
	e := model.NewSignalEvent(
		published.UTC(),
		model.SubtypeRSSBlog,
		c.matcher.Match(item.Title+" "+summary),
		text,
	)
	e.URL = item.Link
	e.Author = author
	e.RawSource = "rss:" + name
	e.Metrics = map[string]any{"category": category, "feed": name}
	return e, true
}

var (
	tagRegex   = regexp.MustCompile(`<[^>]+>`)
	spaceRegex = regexp.MustCompile(`\s+`)
)

func stripHTML(s string) string {
	s = tagRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
}

// truncate shortens a string to maxLen runes.
// Uses rune-aware slicing to avoid breaking UTF-8 characters.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
