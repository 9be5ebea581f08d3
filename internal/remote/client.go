// Package remote reads records from a PostgREST table, the REST interface
// Supabase exposes under /rest/v1.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/pders01/fbrowse/internal/debuglog"
	"github.com/pders01/fbrowse/internal/storage"
	"github.com/pders01/fbrowse/internal/validation"
)

const (
	restPath      = "/rest/v1/"
	selectColumns = "id,name,content"
	maxErrorBody  = 4096
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Options struct {
	URL       string
	APIKey    string
	Table     string
	UserAgent string

	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// AllowHTTP accepts plain http and local hosts, for a development stack.
	AllowHTTP bool

	// HTTPClient replaces the transport client; mainly for tests.
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// StatusError is a non-2xx response from the store.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote store: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("remote store: HTTP %d: %s", e.StatusCode, e.Message)
}

// retryLogger implements the retryablehttp.LeveledLogger interface
type retryLogger struct {
	log zerolog.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Trace().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}

// Client is a fetch.Source over one PostgREST table.
type Client struct {
	http      *retryablehttp.Client
	endpoint  string
	apiKey    string
	userAgent string
	log       zerolog.Logger
}

func New(opts Options) (*Client, error) {
	validator := validation.NewEndpointURLValidator()
	if opts.AllowHTTP {
		validator = validation.NewDevEndpointURLValidator()
	}
	base, err := validator.ValidateAndNormalize(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("remote url: %w", err)
	}
	if !tableName.MatchString(opts.Table) {
		return nil, fmt.Errorf("invalid table name %q", opts.Table)
	}

	var log zerolog.Logger
	if opts.Logger != nil {
		log = *opts.Logger
	} else {
		log = debuglog.Logger().With().Str("component", "remote").Logger()
	}

	retryClient := retryablehttp.NewClient()
	if opts.HTTPClient != nil {
		retryClient.HTTPClient = opts.HTTPClient
	}
	retryClient.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		retryClient.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		retryClient.RetryWaitMax = opts.RetryWaitMax
	}
	retryClient.Logger = &retryLogger{log: log}
	// Hand the last response back so status errors keep their body.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		http:      retryClient,
		endpoint:  base + restPath + opts.Table,
		apiKey:    opts.APIKey,
		userAgent: opts.UserAgent,
		log:       log,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method string, query url.Values) (*retryablehttp.Request, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func (c *Client) do(req *retryablehttp.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if resp == nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	c.log.Debug().
		Str("method", req.Method).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("store request")
	// After the last retry the response comes back alongside the retry
	// policy's error; the status is the more useful of the two.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Message string `json:"message"`
		Hint    string `json:"hint"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		msg = payload.Message
		if payload.Hint != "" {
			msg += " (" + payload.Hint + ")"
		}
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}

// Count returns the exact number of rows in the table.
func (c *Client) Count(ctx context.Context) (int, error) {
	req, err := c.newRequest(ctx, http.MethodHead, url.Values{"select": {"id"}})
	if err != nil {
		return 0, err
	}
	req.Header.Set("Prefer", "count=exact")

	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return parseContentRange(resp.Header.Get("Content-Range"))
}

// parseContentRange extracts the total from "0-4/12" or "*/0".
func parseContentRange(h string) (int, error) {
	_, total, ok := strings.Cut(strings.TrimSpace(h), "/")
	if !ok || total == "*" || total == "" {
		return 0, fmt.Errorf("no total in Content-Range %q", h)
	}
	n, err := strconv.Atoi(total)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid total in Content-Range %q", h)
	}
	return n, nil
}

// ReadPage returns up to limit rows starting at offset, ordered by name.
func (c *Client) ReadPage(ctx context.Context, offset, limit int) ([]storage.Record, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("invalid range: offset %d, limit %d", offset, limit)
	}
	if limit == 0 {
		return []storage.Record{}, nil
	}

	req, err := c.newRequest(ctx, http.MethodGet, url.Values{
		"select": {selectColumns},
		"order":  {"name.asc,id.asc"},
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(limit)},
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rows []row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decoding rows: %w", err)
	}

	records := make([]storage.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, storage.Record{
			ID:      r.ID.String(),
			Name:    r.Name,
			Content: r.Content,
		})
	}
	return records, nil
}

type row struct {
	ID      rowID  `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// rowID accepts numeric and string primary keys.
type rowID string

func (id *rowID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = rowID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("unsupported id %s", data)
		}
		*id = rowID(n.String())
	}
	return nil
}

func (id rowID) String() string {
	return string(id)
}
