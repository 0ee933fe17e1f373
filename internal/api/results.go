package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"rating-ledger/internal/config"
	"rating-ledger/internal/domain"

	"github.com/valyala/fasthttp"
)

var ErrNotConfigured = errors.New("results api is not configured")

// ResultsClient fetches authoritative outcomes from the external match-result
// service.
type ResultsClient struct {
	baseURL string
	apiKey  string
	client  *fasthttp.Client
}

func NewResultsClient(cfg *config.Config) *ResultsClient {
	return &ResultsClient{
		baseURL: strings.TrimRight(cfg.ResultsAPIURL, "/"),
		apiKey:  cfg.ResultsAPIKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

type MatchResult struct {
	MatchID     string `json:"match_id"`
	Winner      string `json:"winner"`
	Loser       string `json:"loser"`
	WinnerScore *int   `json:"winner_score,omitempty"`
	LoserScore  *int   `json:"loser_score,omitempty"`
}

// Margin returns the score detail when the service reported both scores.
func (r MatchResult) Margin() *domain.MarginData {
	if r.WinnerScore == nil || r.LoserScore == nil {
		return nil
	}
	return &domain.MarginData{WinnerScore: *r.WinnerScore, LoserScore: *r.LoserScore}
}

// GetMatchResult looks up the outcome for an external match id. Winner and
// loser are external aliases.
func (c *ResultsClient) GetMatchResult(ctx context.Context, matchID string) (*MatchResult, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	u := fmt.Sprintf("%s/matches/%s", c.baseURL, url.PathEscape(matchID))
	result, err := doRequest[MatchResult](ctx, c, u)
	if err != nil {
		return nil, err
	}
	if result.Winner == "" || result.Loser == "" {
		return nil, fmt.Errorf("match %s has no decided result: %w", matchID, domain.ErrInvalidInput)
	}
	if result.MatchID == "" {
		result.MatchID = matchID
	}
	return result, nil
}

func doRequest[T any](ctx context.Context, client *ResultsClient, url string) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	if client.apiKey != "" {
		req.Header.Set("Authorization", client.apiKey)
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	switch resp.StatusCode() {
	case fasthttp.StatusOK:
	case fasthttp.StatusNotFound:
		return nil, fmt.Errorf("results API: %w", domain.ErrNotFound)
	default:
		return nil, fmt.Errorf("API error: %d", resp.StatusCode())
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
