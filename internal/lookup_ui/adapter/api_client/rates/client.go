package rates

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/langowen/feelookup/internal/entities"
	"github.com/langowen/feelookup/internal/lookup_ui/metrics"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxBodySize = 4 << 20

type HTTPClient struct {
	client      *http.Client
	baseURL     string
	limiter     *rate.Limiter
	maxBodySize int64
}

// NewHTTPClient builds a rates API client. rps <= 0 disables throttling.
func NewHTTPClient(baseURL string, timeout time.Duration, rps int) *HTTPClient {
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = rps
	}

	return &HTTPClient{
		client:      &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		limiter:     rate.NewLimiter(limit, burst),
		maxBodySize: maxBodySize,
	}
}

type errorPayload struct {
	Error *string `json:"error"`
}

// GetRates calls GET {base}/api/rates/{state}/{procedureCode} once.
func (c *HTTPClient) GetRates(ctx context.Context, state, procedureCode string) ([]entities.Rate, error) {
	const op = "api_client.rates.GetRates"

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, op)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ratesURL(state, procedureCode), nil)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.UpstreamDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	if int64(len(body)) > c.maxBodySize {
		slog.Warn("rates payload too large", "op", op, "limit_bytes", c.maxBodySize)
		return nil, errors.Wrapf(entities.ErrUnexpectedPayload, "%s: body exceeds %d bytes", op, c.maxBodySize)
	}

	rates, err := decodeRates(body)

	// An error payload is shown as is, whatever the status. Rows are only
	// trusted on a 2xx answer.
	var upstreamErr *entities.UpstreamError
	if errors.As(err, &upstreamErr) {
		return nil, errors.Wrap(err, op)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrap(fmt.Errorf("bad status: %s", resp.Status), op)
	}
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	return rates, nil
}

func (c *HTTPClient) ratesURL(state, procedureCode string) string {
	return c.baseURL + "/api/rates/" + url.PathEscape(state) + "/" + url.PathEscape(procedureCode)
}

// decodeRates accepts either a JSON array of rates or an object whose
// "error" field is set. Anything else is an unexpected payload.
func decodeRates(body []byte) ([]entities.Rate, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, entities.ErrUnexpectedPayload
	}

	switch body[0] {
	case '[':
		var rates []entities.Rate
		if err := json.Unmarshal(body, &rates); err != nil {
			slog.Warn("malformed rates payload", "error", err.Error())
			return nil, errors.Wrapf(entities.ErrUnexpectedPayload, "decode rates: %v", err)
		}
		if rates == nil {
			rates = []entities.Rate{}
		}
		return rates, nil
	case '{':
		var payload errorPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			slog.Warn("malformed error payload", "error", err.Error())
			return nil, errors.Wrapf(entities.ErrUnexpectedPayload, "decode error payload: %v", err)
		}
		if payload.Error != nil && *payload.Error != "" {
			return nil, &entities.UpstreamError{Message: *payload.Error}
		}
		return nil, entities.ErrUnexpectedPayload
	default:
		return nil, entities.ErrUnexpectedPayload
	}
}
