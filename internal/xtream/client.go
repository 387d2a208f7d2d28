// Package xtream implements the Xtream-Codes provider protocol: the
// player_api.php JSON endpoints for channel listings and the xmltv.php
// endpoint for EPG data.
package xtream

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"telecast/models"
)

const (
	defaultHTTPTimeout = 120 * time.Second // XMLTV files can be large
	maxResponseSize    = 100 * 1024 * 1024 // 100 MB max
	retryAttempts      = 3
	retryBaseDelay     = 500 * time.Millisecond
)

// LiveStream is the raw shape of one entry returned by
// player_api.php?action=get_live_streams.
type LiveStream struct {
	Num          json.Number `json:"num"`
	Name         string      `json:"name"`
	StreamType   string      `json:"stream_type"`
	StreamID     json.Number `json:"stream_id"`
	StreamIcon   string      `json:"stream_icon"`
	EPGChannelID string      `json:"epg_channel_id"`
	CategoryID   string      `json:"category_id"`
}

// Category is the raw shape of one entry returned by
// player_api.php?action=get_live_categories.
type Category struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
}

// Client talks to a single Xtream provider account.
type Client struct {
	source models.Source
	client *http.Client
}

// NewClient creates a client for one source. The provided http.Client may
// be nil, in which case a client with a generous timeout is used.
func NewClient(source models.Source, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{source: source, client: httpClient}
}

func (c *Client) apiURL(action string) string {
	host := strings.TrimRight(c.source.Host, "/")
	u := fmt.Sprintf("%s/player_api.php?username=%s&password=%s",
		host, url.QueryEscape(c.source.Username), url.QueryEscape(c.source.Password))
	if action != "" {
		u += "&action=" + action
	}
	return u
}

// LiveCategories fetches the provider's live category list.
func (c *Client) LiveCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.getJSON(ctx, c.apiURL("get_live_categories"), &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// LiveStreams fetches the provider's full live channel list.
func (c *Client) LiveStreams(ctx context.Context) ([]LiveStream, error) {
	var streams []LiveStream
	if err := c.getJSON(ctx, c.apiURL("get_live_streams"), &streams); err != nil {
		return nil, err
	}
	return streams, nil
}

// Guide fetches the provider's XMLTV document. The returned reader is
// already gzip-unwrapped; the caller owns closing it.
func (c *Client) Guide(ctx context.Context) (io.ReadCloser, error) {
	host := strings.TrimRight(c.source.Host, "/")
	guideURL := fmt.Sprintf("%s/xmltv.php?username=%s&password=%s",
		host, url.QueryEscape(c.source.Username), url.QueryEscape(c.source.Password))

	resp, err := c.get(ctx, guideURL)
	if err != nil {
		return nil, err
	}

	var reader io.Reader = io.LimitReader(resp.Body, maxResponseSize)
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(reader)
		if err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("decompress guide: %w", err)
		}
		reader = gz
	}

	return &guideBody{Reader: reader, body: resp.Body}, nil
}

type guideBody struct {
	io.Reader
	body io.ReadCloser
}

func (g *guideBody) Close() error {
	return g.body.Close()
}

// getJSON performs a GET with retry and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxResponseSize)
	dec := json.NewDecoder(limited)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// get issues the request, retrying connection failures and 5xx responses
// with exponential backoff.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	var resp *http.Response

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Accept-Encoding", "gzip")

			r, err := c.client.Do(req)
			if err != nil {
				return err
			}
			if r.StatusCode >= http.StatusInternalServerError {
				r.Body.Close()
				return fmt.Errorf("provider returned status %d", r.StatusCode)
			}
			if r.StatusCode != http.StatusOK {
				r.Body.Close()
				return retry.Unrecoverable(fmt.Errorf("provider returned status %d", r.StatusCode))
			}
			resp = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(retryAttempts),
		retry.Delay(retryBaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, &models.TransportError{Op: "GET " + c.source.Name, Err: err}
	}
	return resp, nil
}
