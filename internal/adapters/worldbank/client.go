package worldbank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/supplier-risk/pkg/logger"
	"github.com/selivandex/supplier-risk/pkg/models"
)

// ErrUnexpectedPayload is returned when the response is not a [metadata, rows] array
var ErrUnexpectedPayload = errors.New("unexpected indicator payload")

const indicatorPath = "/country/all/indicator/%s?format=json&mrv=1&per_page=20000"

// Client fetches cross-country indicator tables from the World Bank API
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates new World Bank client with a fixed per-request timeout
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type metadata struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

type row struct {
	CountryISO3 string   `json:"countryiso3code"`
	Date        string   `json:"date"`
	Value       *float64 `json:"value"`
}

// FetchLatest returns the most recent year of the indicator for every country
func (c *Client) FetchLatest(ctx context.Context, code string) ([]models.IndicatorObservation, error) {
	endpoint := c.baseURL + fmt.Sprintf(indicatorPath, url.PathEscape(code))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(envelope) != 2 {
		return nil, fmt.Errorf("%w: expected 2 elements, got %d", ErrUnexpectedPayload, len(envelope))
	}

	var meta metadata
	if err := json.Unmarshal(envelope[0], &meta); err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrUnexpectedPayload, err)
	}

	var rows []row
	if err := json.Unmarshal(envelope[1], &rows); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrUnexpectedPayload, err)
	}

	if meta.Pages > 1 {
		logger.Warn("indicator response is paginated, only the first page is used",
			zap.String("indicator", code),
			zap.Int("pages", meta.Pages),
			zap.Int("total", meta.Total),
		)
	}

	observations := make([]models.IndicatorObservation, 0, len(rows))
	for _, r := range rows {
		year, err := strconv.Atoi(strings.TrimSpace(r.Date))
		if err != nil {
			continue
		}
		observations = append(observations, models.IndicatorObservation{
			Country: strings.ToUpper(strings.TrimSpace(r.CountryISO3)),
			Year:    year,
			Value:   r.Value,
		})
	}

	logger.Debug("fetched indicator table",
		zap.String("indicator", code),
		zap.Int("rows", len(rows)),
		zap.Int("observations", len(observations)),
	)

	return observations, nil
}
