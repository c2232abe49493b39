package modio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.mod.io/v1"
	defaultTimeout = 5 * time.Minute // downloads share this client
	// DefaultLimit is the page size and the maximum number of ids the API
	// accepts in a single id-in filter.
	DefaultLimit = 50
)

// Client handles communication with the mod.io API. It is stateless; every
// call is an independent request with caller-supplied pagination parameters.
type Client struct {
	BaseURL    string
	APIToken   string
	UserAgent  string
	Limit      int
	HTTPClient *http.Client
}

// NewClient creates a new mod.io API client.
func NewClient(baseURL, apiToken, userAgent string, limit int) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if limit <= 0 {
		limit = DefaultLimit
	}

	return &Client{
		BaseURL:   baseURL,
		APIToken:  apiToken,
		UserAgent: userAgent,
		Limit:     limit,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// HasToken reports whether an API token is configured. Token-gated
// operations check this before issuing any request.
func (c *Client) HasToken() bool {
	return c.APIToken != ""
}

func (c *Client) makeRequest(ctx context.Context, fullURL string, params url.Values, requiresAuth bool) (*http.Response, error) {
	if requiresAuth && !c.HasToken() {
		return nil, ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if params != nil {
		req.URL.RawQuery = params.Encode()
	}

	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "application/json")
	if c.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		// A cancelled context is not a transport failure; callers treat
		// it as "no result".
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{URL: fullURL, Err: err}
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &TransportError{URL: fullURL, StatusCode: resp.StatusCode}
	}

	return resp, nil
}

// getPage fetches a single page of a paginated endpoint. The path is
// relative to the API base URL; filter parameters are merged with the
// pagination parameters computed from page and the client's limit.
func getPage[T any](c *Client, ctx context.Context, path string, page int, filter url.Values, requiresAuth bool) (Page[T], error) {
	params := url.Values{}
	for key, values := range filter {
		params[key] = values
	}
	params.Set("_limit", strconv.Itoa(c.Limit))
	params.Set("_offset", strconv.Itoa(page*c.Limit))

	fullURL := c.BaseURL + path
	resp, err := c.makeRequest(ctx, fullURL, params, requiresAuth)
	if err != nil {
		return Page[T]{}, err
	}
	defer resp.Body.Close()

	var result Page[T]
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Page[T]{}, &DecodeError{URL: fullURL, Err: err}
	}
	return result, nil
}

// GetMod retrieves a single mod. Returns ErrNotFound if the mod does not exist.
func (c *Client) GetMod(ctx context.Context, gameID, modID int) (*Mod, error) {
	fullURL := fmt.Sprintf("%s/games/%d/mods/%d", c.BaseURL, gameID, modID)
	resp, err := c.makeRequest(ctx, fullURL, nil, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var mod Mod
	if err := json.NewDecoder(resp.Body).Decode(&mod); err != nil {
		return nil, &DecodeError{URL: fullURL, Err: err}
	}
	return &mod, nil
}

// GetModsByGame retrieves one page of the full mod list for a game.
func (c *Client) GetModsByGame(ctx context.Context, gameID, page int) (Page[Mod], error) {
	return getPage[Mod](c, ctx, fmt.Sprintf("/games/%d/mods", gameID), page, nil, false)
}

// GetModsByIDs retrieves one page of mods filtered by the given ids. The ids
// are transmitted as a comma-separated id-in query parameter, so callers must
// keep the id count within the client's limit per request.
func (c *Client) GetModsByIDs(ctx context.Context, gameID int, modIDs []int, page int) (Page[Mod], error) {
	ids := make([]string, len(modIDs))
	for i, id := range modIDs {
		ids[i] = strconv.Itoa(id)
	}
	filter := url.Values{"id-in": []string{strings.Join(ids, ",")}}

	return getPage[Mod](c, ctx, fmt.Sprintf("/games/%d/mods", gameID), page, filter, false)
}

// GetDependencies retrieves one page of the transitive dependency list of a mod.
func (c *Client) GetDependencies(ctx context.Context, gameID, modID, page int) (Page[Dependency], error) {
	filter := url.Values{"recursive": []string{"true"}}
	return getPage[Dependency](c, ctx, fmt.Sprintf("/games/%d/mods/%d/dependencies", gameID, modID), page, filter, false)
}

// GetSubscribedMods retrieves one page of the authenticated user's subscribed
// mods for a game. Requires an API token; every returned mod is marked
// subscribed.
func (c *Client) GetSubscribedMods(ctx context.Context, gameID, page int) (Page[Mod], error) {
	filter := url.Values{"game_id": []string{strconv.Itoa(gameID)}}
	result, err := getPage[Mod](c, ctx, "/me/subscribed", page, filter, true)
	if err != nil {
		return result, err
	}

	for i := range result.Data {
		result.Data[i].Subscribed = true
	}
	return result, nil
}

// DownloadFile downloads a binary artifact to the given destination path,
// reporting transferred bytes through onProgress as data arrives. The partial
// file is removed when the download fails or is cancelled.
func (c *Client) DownloadFile(ctx context.Context, downloadURL, destPath string, onProgress func(transferred, total int64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransportError{URL: downloadURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{URL: downloadURL, StatusCode: resp.StatusCode}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create file '%s': %w", destPath, err)
	}
	defer out.Close()

	total := resp.ContentLength
	var transferred int64
	reader := &progressReader{
		reader: resp.Body,
		report: func(n int64) {
			transferred += n
			if onProgress != nil {
				onProgress(transferred, total)
			}
		},
	}

	if _, err := io.Copy(out, reader); err != nil {
		out.Close()
		os.Remove(destPath)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to write download to '%s': %w", destPath, err)
	}

	return nil
}

// progressReader wraps an io.Reader to report read progress.
type progressReader struct {
	reader io.Reader
	report func(n int64)
}

func (pr *progressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	if n > 0 {
		pr.report(int64(n))
	}
	return
}

// IsCancelled reports whether err is a cooperative cancellation rather than
// a real failure.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
