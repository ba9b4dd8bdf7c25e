// Package ingest talks to the upstream extraction service that turns
// tracker pages and OCR'd scoreboards into structured stat rows. The
// core treats that service as an opaque producer; transient failures
// are retried with backoff, validation failures are not.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"customs-league/internal/config"
	"customs-league/internal/constants"
	"customs-league/internal/domain"

	"github.com/sethvargo/go-retry"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"
)

type Client struct {
	baseURL string
	client  *fasthttp.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.ExtractorBaseURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

// ScoreboardResponse is the extractor's row payload for one map.
type ScoreboardResponse struct {
	MapName string           `json:"map_name"`
	Source  string           `json:"source"`
	Rows    []domain.StatRow `json:"rows"`
}

// MetaResponse carries the extractor's match-level metadata.
type MetaResponse struct {
	Reference  string `json:"reference"`
	MapName    string `json:"map_name"`
	RoundsWon  int    `json:"rounds_won"`
	RoundsLost int    `json:"rounds_lost"`
	PlayedAt   string `json:"played_at"`
}

// Extraction bundles both fetches for one extracted map.
type Extraction struct {
	Scoreboard *ScoreboardResponse
	Meta       *MetaResponse
}

// FetchExtraction pulls scoreboard and metadata for an upstream match
// reference in parallel.
func (c *Client) FetchExtraction(ctx context.Context, reference string) (*Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	var scoreboard *ScoreboardResponse
	var meta *MetaResponse

	g.Go(func() error {
		var err error
		scoreboard, err = c.FetchScoreboard(gCtx, reference)
		return err
	})
	g.Go(func() error {
		var err error
		meta, err = doRequest[MetaResponse](gCtx, c, fmt.Sprintf("%s/v1/matches/%s/meta", c.baseURL, reference))
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch extraction %s: %w", reference, err)
	}
	return &Extraction{Scoreboard: scoreboard, Meta: meta}, nil
}

// FetchScoreboard pulls the structured rows for an upstream match
// reference.
func (c *Client) FetchScoreboard(ctx context.Context, reference string) (*ScoreboardResponse, error) {
	url := fmt.Sprintf("%s/v1/matches/%s/scoreboard", c.baseURL, reference)
	return doRequest[ScoreboardResponse](ctx, c, url)
}

// doRequest retries network errors and upstream 5xx responses with
// fibonacci backoff. Anything else fails immediately.
func doRequest[T any](ctx context.Context, client *Client, url string) (*T, error) {
	var out *T

	backoff := retry.WithMaxRetries(constants.IngestMaxRetries, retry.NewFibonacci(constants.IngestRetryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		req.SetRequestURI(url)
		req.Header.SetMethod(fasthttp.MethodGet)
		req.Header.Set("Accept", "application/json")

		deadline, ok := ctx.Deadline()
		if !ok {
			deadline = time.Now().Add(constants.ExternalAPITimeout)
		}
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return retry.RetryableError(fmt.Errorf("extractor request failed: %w", err))
		}

		status := resp.StatusCode()
		if status >= 500 {
			return retry.RetryableError(fmt.Errorf("extractor returned %d", status))
		}
		if status != fasthttp.StatusOK {
			return fmt.Errorf("extractor returned %d", status)
		}

		var parsed T
		if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
			return fmt.Errorf("failed to decode extractor response: %w", err)
		}
		out = &parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
