package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/saferoute/backend/internal/domain"
)

// Client talks to the external point-risk prediction service through the
// memoizing cache and the circuit breaker. The service is optional
// enrichment: its absence or failure never blocks a response.
type Client struct {
	serviceURL string
	httpClient *http.Client
	breaker    *Breaker
	cache      *Cache

	batchSize  int
	batchDelay time.Duration
}

// ClientConfig carries the resilience knobs for the prediction client
type ClientConfig struct {
	ServiceURL  string
	CallTimeout time.Duration
	Breaker     *Breaker
	Cache       *Cache
	BatchSize   int
	BatchDelay  time.Duration
}

// NewClient creates a prediction client with per-call deadlines
func NewClient(cfg ClientConfig) *Client {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 10
	}
	return &Client{
		serviceURL: cfg.ServiceURL,
		httpClient: &http.Client{
			Timeout: cfg.CallTimeout,
		},
		breaker:    cfg.Breaker,
		cache:      cfg.Cache,
		batchSize:  cfg.BatchSize,
		batchDelay: cfg.BatchDelay,
	}
}

// BreakerState exposes the breaker for health reporting
func (c *Client) BreakerState() State {
	return c.breaker.State()
}

// Predict returns the external risk index for a source/destination pair.
// Cache hits bypass the breaker entirely; misses go through it, and a
// timeout or malformed body counts as a breaker failure. All failure modes
// surface as domain.ErrPredictionUnavailable so callers can fall back to
// local scoring.
func (c *Client) Predict(ctx context.Context, src, dst domain.Point) (float64, error) {
	if !src.Valid() || !dst.Valid() {
		return 0, domain.ErrInvalidLocation
	}

	if v, ok := c.cache.Get(ctx, src, dst); ok {
		return v, nil
	}

	if err := c.breaker.Allow(); err != nil {
		return 0, fmt.Errorf("prediction: circuit open: %w", err)
	}

	v, err := c.fetch(ctx, src, dst)
	if err != nil {
		c.breaker.RecordFailure()
		return 0, fmt.Errorf("prediction: %v: %w", err, domain.ErrPredictionUnavailable)
	}

	c.breaker.RecordSuccess()
	c.cache.Put(ctx, src, dst, v)
	return v, nil
}

func (c *Client) fetch(ctx context.Context, src, dst domain.Point) (float64, error) {
	body, err := json.Marshal(domain.PredictionRequest{Source: src, Destination: dst})
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/predict", c.serviceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("service returned status %d", resp.StatusCode)
	}

	var payload struct {
		Prediction domain.PredictionResponse `json:"prediction"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if payload.Prediction.Prediction < 0 {
		return 0, fmt.Errorf("malformed prediction %f", payload.Prediction.Prediction)
	}

	return payload.Prediction.Prediction, nil
}

// Enrichment is one point's enriched value. Fallback marks values produced
// locally because the external prediction failed for that point.
type Enrichment struct {
	Point    domain.Point `json:"point"`
	Value    float64      `json:"value"`
	Fallback bool         `json:"fallback"`
}

// EnrichBatch predicts a value for every pair, throttled to fixed-size
// concurrent batches with a small delay in between so bulk map loads do not
// overwhelm the external service. A failed prediction for one point falls
// back to local(i); the batch never aborts. Output order matches input.
func (c *Client) EnrichBatch(ctx context.Context, pairs []domain.PredictionRequest, local func(i int) float64) []Enrichment {
	out := make([]Enrichment, len(pairs))

	for start := 0; start < len(pairs); start += c.batchSize {
		end := start + c.batchSize
		if end > len(pairs) {
			end = len(pairs)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				v, err := c.Predict(gctx, pairs[i].Source, pairs[i].Destination)
				if err != nil {
					out[i] = Enrichment{Point: pairs[i].Source, Value: local(i), Fallback: true}
					return nil
				}
				out[i] = Enrichment{Point: pairs[i].Source, Value: v}
				return nil
			})
		}
		_ = g.Wait()

		if end < len(pairs) && c.batchDelay > 0 {
			select {
			case <-ctx.Done():
				for i := end; i < len(pairs); i++ {
					out[i] = Enrichment{Point: pairs[i].Source, Value: local(i), Fallback: true}
				}
				return out
			case <-time.After(c.batchDelay):
			}
		}
	}

	return out
}
