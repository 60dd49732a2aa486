// Package watchlist implements customer screening providers: a client for a
// hosted sanctions/PEP screening API and a local list matcher for development.
package watchlist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/entities"
)

// maxResponseBytes caps what is read and stored as the raw provider answer.
const maxResponseBytes = 64 << 10

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client calls POST {BaseURL}/v1/screenings once per customer and list family.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(config Config, logger *zap.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

func (c *Client) Name() string {
	return "watchlist-api"
}

type screeningRequest struct {
	Reference        string `json:"reference"`
	ScreeningType    string `json:"screening_type"`
	EntityType       string `json:"entity_type"`
	Name             string `json:"name"`
	NationalID       string `json:"national_id,omitempty"`
	Nationality      string `json:"nationality,omitempty"`
	CommercialRecord string `json:"commercial_record,omitempty"`
}

type screeningResponse struct {
	Status       string   `json:"status"`
	MatchedLists []string `json:"matched_lists"`
	MatchScore   float64  `json:"match_score"`
}

func (c *Client) Screen(ctx context.Context, customer *entities.Customer, screeningType entities.ScreeningType) (*entities.ScreeningMatch, error) {
	body := screeningRequest{
		Reference:        customer.ID.String(),
		ScreeningType:    string(screeningType),
		EntityType:       string(customer.CustomerType),
		Name:             customer.DisplayName(),
		NationalID:       customer.NationalID,
		Nationality:      customer.Nationality,
		CommercialRecord: customer.CommercialRecord,
	}

	raw, err := c.doRequest(ctx, http.MethodPost, "/v1/screenings", body)
	if err != nil {
		return nil, err
	}

	var resp screeningResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode screening response: %w", err)
	}
	status := entities.ScreeningStatus(resp.Status)
	switch status {
	case entities.ScreeningStatusClear, entities.ScreeningStatusHit, entities.ScreeningStatusPossibleMatch:
	default:
		return nil, fmt.Errorf("unexpected screening status %q", resp.Status)
	}
	if resp.MatchedLists == nil {
		resp.MatchedLists = []string{}
	}

	return &entities.ScreeningMatch{
		Status:       status,
		MatchedLists: resp.MatchedLists,
		MatchScore:   resp.MatchScore,
		RawResponse:  string(raw),
	}, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.config.APIKey)

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("screening request failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read screening response: %w", err)
	}

	c.logger.Debug("Screening API call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", res.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		apiErr := &ErrorResponse{StatusCode: res.StatusCode}
		if jsonErr := json.Unmarshal(raw, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(res.StatusCode)
		}
		return nil, apiErr
	}
	return raw, nil
}
