package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/selivandex/supplier-risk/internal/adapters/config"
	"github.com/selivandex/supplier-risk/pkg/logger"
	"github.com/selivandex/supplier-risk/pkg/models"
)

// GoogleNewsProvider searches the Google News RSS endpoint
type GoogleNewsProvider struct {
	parser      *gofeed.Parser
	baseURL     string
	querySuffix string
	language    string
	region      string
}

// NewGoogleNewsProvider creates new Google News provider
func NewGoogleNewsProvider(cfg *config.NewsConfig) *GoogleNewsProvider {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: cfg.Timeout}
	parser.UserAgent = "SupplierRiskMonitor/1.0"

	return &GoogleNewsProvider{
		parser:      parser,
		baseURL:     cfg.BaseURL,
		querySuffix: cfg.QuerySuffix,
		language:    cfg.Language,
		region:      cfg.Region,
	}
}

func (g *GoogleNewsProvider) GetName() string {
	return "google-news"
}

// SearchURL builds the feed URL: the quoted supplier name, the industry
// suffix and a when:<days>d window.
func (g *GoogleNewsProvider) SearchURL(supplier string, days int) string {
	query := fmt.Sprintf("%q", strings.TrimSpace(supplier))
	if g.querySuffix != "" {
		query += " " + g.querySuffix
	}
	query += fmt.Sprintf(" when:%dd", days)

	lang := strings.SplitN(g.language, "-", 2)[0]
	params := url.Values{}
	params.Set("q", query)
	params.Set("hl", g.language)
	params.Set("gl", g.region)
	params.Set("ceid", fmt.Sprintf("%s:%s", g.region, lang))

	return g.baseURL + "?" + params.Encode()
}

func (g *GoogleNewsProvider) FetchHeadlines(ctx context.Context, supplier string, days int) ([]models.Headline, error) {
	feedURL := g.SearchURL(supplier, days)

	startTime := time.Now()
	feed, err := g.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	headlines := make([]models.Headline, 0, len(feed.Items))
	for _, item := range feed.Items {
		headlines = append(headlines, models.Headline{
			Summary:   item.Description,
			Title:     item.Title,
			Published: publishedAt(item),
			Link:      item.Link,
		})
	}

	logger.Debug("fetched supplier headlines",
		zap.String("supplier", supplier),
		zap.Int("count", len(headlines)),
		zap.Duration("latency", time.Since(startTime)),
	)

	return headlines, nil
}

// publishedAt prefers the feed parser's own timestamp and falls back to the raw string
func publishedAt(item *gofeed.Item) string {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC().Format(time.RFC3339)
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC().Format(time.RFC3339)
	case item.Published != "":
		return item.Published
	default:
		return item.Updated
	}
}
