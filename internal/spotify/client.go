package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/yungbote/unwrapped-proof/internal/pkg/faults"
	"github.com/yungbote/unwrapped-proof/internal/pkg/httpx"
	"github.com/yungbote/unwrapped-proof/internal/platform/logger"
)

const (
	defaultMaxAttempts    = 3
	defaultRequestTimeout = 10 * time.Second
	defaultMaxBackoff     = 30 * time.Second
)

// Client talks to the upstream listening-history API. Every request goes
// through one retrying primitive that maps the upstream's failure modes onto
// the faults taxonomy: 401/403 terminal, 429 bounded wait, 5xx exponential
// backoff, undecodable pages treated as request failures.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	log         *logger.Logger
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

func NewClient(baseURL, token string, baseLog *logger.Logger) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: defaultRequestTimeout},
		baseURL:     baseURL,
		token:       token,
		log:         baseLog.With("service", "SpotifyClient"),
		maxAttempts: defaultMaxAttempts,
		baseBackoff: 1 * time.Second,
		maxBackoff:  defaultMaxBackoff,
	}
}

// UserProfile is the subset of the profile payload the pipeline consumes.
// The raw id is hashed immediately by the caller and never persisted.
type UserProfile struct {
	ID      string `json:"id"`
	Country string `json:"country"`
	Product string `json:"product"`
}

// PlayItem is one entry of a recently-played page.
type PlayItem struct {
	Track    TrackObject `json:"track"`
	PlayedAt string      `json:"played_at"`
}

type TrackObject struct {
	ID         string         `json:"id"`
	DurationMS int64          `json:"duration_ms"`
	Artists    []ArtistObject `json:"artists"`
}

type ArtistObject struct {
	ID string `json:"id"`
}

// PlayedAtTime parses the item's played-at timestamp. ok is false for
// entries whose timestamp cannot be parsed; those are malformed items and
// skipped at item granularity.
func (p PlayItem) PlayedAtTime() (time.Time, bool) {
	if p.PlayedAt == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, p.PlayedAt); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func (c *Client) Profile(ctx context.Context) (*UserProfile, error) {
	var out UserProfile
	if err := c.getJSON(ctx, "me", &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, faults.Newf(faults.KindMalformedResponse, "profile payload missing user id")
	}
	return &out, nil
}

func (c *Client) RecentlyPlayed(ctx context.Context, limit int, before *int64) ([]PlayItem, error) {
	endpoint := "me/player/recently-played?limit=" + strconv.Itoa(limit)
	if before != nil {
		endpoint += "&before=" + strconv.FormatInt(*before, 10)
	}
	var out struct {
		Items []PlayItem `json:"items"`
	}
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) TopTracks(ctx context.Context, timeRange string, limit int) ([]TrackObject, error) {
	endpoint := fmt.Sprintf("me/top/tracks?time_range=%s&limit=%d", url.QueryEscape(timeRange), limit)
	var out struct {
		Items []TrackObject `json:"items"`
	}
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) TopArtists(ctx context.Context, timeRange string, limit int) ([]ArtistObject, error) {
	endpoint := fmt.Sprintf("me/top/artists?time_range=%s&limit=%d", url.QueryEscape(timeRange), limit)
	var out struct {
		Items []ArtistObject `json:"items"`
	}
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// getJSON is the shared retrying request path. Backoff sleeps are bounded by
// the context deadline, so a caller-imposed wall-clock budget is honored
// before every wait and never mid-request.
func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	reqURL := c.baseURL + "/" + endpoint

	var lastErr error
	backoff := c.baseBackoff
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return faults.New(faults.KindValidation, 0, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return wrapBudget(lastErr, ctx.Err())
			}
			lastErr = faults.New(faults.KindUpstreamServer, 0, err)
			if err := c.backoffSleep(ctx, &backoff, attempt, lastErr); err != nil {
				return err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return faults.Newf(faults.KindAuth, "token rejected (%d)", resp.StatusCode)
		case resp.StatusCode == http.StatusForbidden:
			return faults.Newf(faults.KindPermission, "scope denied (%d)", resp.StatusCode)
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := httpx.RetryAfterDuration(resp, backoff, c.maxBackoff)
			c.log.Warn("rate limited", "endpoint", endpoint, "retry_after", wait.String())
			lastErr = faults.New(faults.KindRateLimited, resp.StatusCode, fmt.Errorf("rate limited, waited %s", wait))
			if err := httpx.SleepContext(ctx, wait); err != nil {
				return wrapBudget(lastErr, err)
			}
			continue
		case httpx.IsRetryableHTTPStatus(resp.StatusCode):
			lastErr = faults.Newf(faults.KindUpstreamServer, "upstream error (%d)", resp.StatusCode)
			c.log.Warn("upstream server error", "endpoint", endpoint, "status", resp.StatusCode, "attempt", attempt)
			if err := c.backoffSleep(ctx, &backoff, attempt, lastErr); err != nil {
				return err
			}
			continue
		case resp.StatusCode != http.StatusOK:
			return faults.Newf(faults.KindMalformedResponse, "unexpected status %d", resp.StatusCode)
		}

		if readErr != nil {
			lastErr = faults.New(faults.KindMalformedResponse, resp.StatusCode, readErr)
			if err := c.backoffSleep(ctx, &backoff, attempt, lastErr); err != nil {
				return err
			}
			continue
		}
		if err := json.Unmarshal(body, out); err != nil {
			// A page we cannot decode counts as a request failure, not an
			// item-level skip.
			lastErr = faults.New(faults.KindMalformedResponse, resp.StatusCode, err)
			if err := c.backoffSleep(ctx, &backoff, attempt, lastErr); err != nil {
				return err
			}
			continue
		}
		return nil
	}

	if lastErr == nil {
		lastErr = faults.Newf(faults.KindUpstreamServer, "request failed after %d attempts", c.maxAttempts)
	}
	return lastErr
}

// backoffSleep waits before the next attempt, doubling the delay each time.
// The sleep is skipped after the final attempt and cut short if the budget
// carried on ctx expires.
func (c *Client) backoffSleep(ctx context.Context, backoff *time.Duration, attempt int, lastErr error) error {
	if attempt >= c.maxAttempts {
		return nil
	}
	if err := httpx.SleepContext(ctx, httpx.JitterSleep(*backoff)); err != nil {
		return wrapBudget(lastErr, err)
	}
	*backoff *= 2
	return nil
}

// wrapBudget preserves the context error in the chain so callers can tell a
// budget expiry apart from an upstream failure, while keeping the last
// classified error for logging.
func wrapBudget(lastErr, ctxErr error) error {
	if lastErr == nil {
		return fmt.Errorf("fetch budget exhausted: %w", ctxErr)
	}
	return fmt.Errorf("fetch budget exhausted after %v: %w", lastErr, ctxErr)
}

// IsBudgetExhausted reports whether err came from the wall-clock budget
// rather than the upstream.
func IsBudgetExhausted(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
