// Package strava is a typed client for the provider's REST API: OAuth
// token exchange and refresh, activity fetches and stream fetches, with
// rate-limit tracking from response headers.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://www.strava.com/api/v3"

// Client is a provider API client. Construct one per process and inject;
// it holds shared rate-limit state.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewClient creates a provider API client with a bounded request timeout.
func NewClient() *Client {
	return &Client{
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		rateLimiter: NewRateLimiter(),
	}
}

// NewClientWithBaseURL creates a client against a non-default API root.
// Used by tests against httptest servers.
func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// FetchActivitiesSince fetches up to perPage activity summaries that
// started after the given unix timestamp. The raw payload of each summary
// is preserved on Activity.Raw.
func (c *Client) FetchActivitiesSince(ctx context.Context, accessToken string, afterUnix int64, perPage int) ([]Activity, error) {
	params := url.Values{}
	params.Set("after", strconv.FormatInt(afterUnix, 10))
	params.Set("per_page", strconv.Itoa(perPage))

	body, err := c.get(ctx, accessToken, "/athlete/activities", params)
	if err != nil {
		return nil, err
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("decoding activities: %w", err)
	}

	activities := make([]Activity, 0, len(raws))
	for _, raw := range raws {
		var a Activity
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decoding activity summary: %w", err)
		}
		a.Raw = raw
		activities = append(activities, a)
	}
	return activities, nil
}

// FetchActivity fetches one activity's detail record.
func (c *Client) FetchActivity(ctx context.Context, accessToken string, activityID int64) (*Activity, error) {
	body, err := c.get(ctx, accessToken, fmt.Sprintf("/activities/%d", activityID), nil)
	if err != nil {
		return nil, err
	}

	var a Activity
	if err := json.Unmarshal(body, &a); err != nil {
		return nil, fmt.Errorf("decoding activity %d: %w", activityID, err)
	}
	a.Raw = body
	return &a, nil
}

// FetchStreams fetches the requested channels for an activity, keyed by
// type. Channels the provider does not have are simply absent from the
// returned map.
func (c *Client) FetchStreams(ctx context.Context, accessToken string, activityID int64, channels []string) (map[string]json.RawMessage, error) {
	params := url.Values{}
	params.Set("keys", strings.Join(channels, ","))
	params.Set("key_by_type", "true")

	body, err := c.get(ctx, accessToken, fmt.Sprintf("/activities/%d/streams", activityID), params)
	if err != nil {
		return nil, err
	}

	var envelopes map[string]streamEnvelope
	if err := json.Unmarshal(body, &envelopes); err != nil {
		return nil, fmt.Errorf("decoding streams for activity %d: %w", activityID, err)
	}

	out := make(map[string]json.RawMessage, len(envelopes))
	for channel, env := range envelopes {
		if len(env.Data) > 0 {
			out[channel] = env.Data
		}
	}
	return out, nil
}

// RateLimitStatus returns the remaining request budget per window.
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

func (c *Client) get(ctx context.Context, accessToken, path string, params url.Values) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.rateLimiter.UpdateFromHeaders(resp.Header)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), MaxErrorBodySize),
			URL:        reqURL,
		}
	}
	return body, nil
}
