package bib

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultEndpoint is the URL-to-bibliography lookup service. It takes a
// path-escaped URL and returns a BibTeX rendering of the page's metadata.
const DefaultEndpoint = "https://en.wikipedia.org/api/rest_v1/data/citation/bibtex"

// DefaultUserAgent is the default User-Agent header sent with lookup requests.
const DefaultUserAgent = "urlcite/0.1"

// DefaultRequestInterval is the minimum interval between lookup requests.
const DefaultRequestInterval = 1 * time.Second

// ClientConfig holds configuration for a Client.
type ClientConfig struct {
	// Endpoint is the lookup service base URL. Default: DefaultEndpoint.
	Endpoint string

	// RateLimit is the minimum interval between HTTP requests.
	// Default: 1 second.
	RateLimit time.Duration

	// HTTPClient is the underlying HTTP client used for requests.
	// If nil, http.DefaultClient is used (wrapped with rate limiting).
	HTTPClient HTTPClient

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// Converter translates the fetched BibTeX into CSL records.
	// If nil, a converter around DefaultConverterCommand is used.
	Converter *Converter

	// Logger receives fetch diagnostics. If nil, logging is disabled.
	Logger *zap.Logger
}

// DefaultConfig returns a ClientConfig with sensible defaults.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		Endpoint:  DefaultEndpoint,
		RateLimit: DefaultRequestInterval,
		UserAgent: DefaultUserAgent,
	}
}

// Client fetches bibliographic records for URLs from the external lookup
// service, with rate limiting and string-field normalization.
type Client struct {
	httpClient HTTPClient
	endpoint   string
	userAgent  string
	converter  *Converter
	logger     *zap.Logger
}

// NewClient creates a Client with the given configuration.
func NewClient(config ClientConfig) *Client {
	underlyingClient := config.HTTPClient
	if underlyingClient == nil {
		underlyingClient = http.DefaultClient
	}
	rateLimitedClient := NewRateLimitedHTTPClient(underlyingClient, config.RateLimit)

	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	converter := config.Converter
	if converter == nil {
		converter = NewConverter("")
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient: rateLimitedClient,
		endpoint:   strings.TrimRight(endpoint, "/"),
		userAgent:  userAgent,
		converter:  converter,
		logger:     logger,
	}
}

// Converter exposes the client's encoding converter for callers that need
// the raw conversion operations (embedded bibliographies, output files).
func (client *Client) Converter() *Converter {
	return client.converter
}

// FetchRecord looks up bibliographic metadata for the given URL. It
// returns the first parsed record with its string fields normalized, plus
// the raw fetched text split into lines. A failed lookup or an empty
// result is a FetchError.
func (client *Client) FetchRecord(targetURL string) (Record, []string, error) {
	client.logger.Info("fetching bibliography", zap.String("url", targetURL))

	request, err := http.NewRequest(http.MethodGet, client.endpoint+"/"+url.PathEscape(targetURL), nil)
	if err != nil {
		return nil, nil, &FetchError{URL: targetURL, Reason: "failed to create request", Err: err}
	}
	request.Header.Set("User-Agent", client.userAgent)

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, nil, &FetchError{URL: targetURL, Reason: "lookup request failed", Err: err}
	}
	defer response.Body.Close()

	if response.StatusCode >= 400 {
		return nil, nil, &FetchError{URL: targetURL, Reason: fmt.Sprintf("lookup service returned HTTP %d", response.StatusCode)}
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, nil, &FetchError{URL: targetURL, Reason: "failed to read lookup response", Err: err}
	}

	rawText := string(body)
	records, err := client.converter.ParseRecords(rawText)
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, &FetchError{URL: targetURL, Reason: "lookup returned no record"}
	}
	if len(records) > 1 {
		client.logger.Debug("lookup returned multiple records, using the first",
			zap.String("url", targetURL), zap.Int("count", len(records)))
	}

	return UnescapeRecord(records[0]), SplitLines(rawText), nil
}

// SplitLines splits raw fetched text into lines for cache storage,
// normalizing line endings and dropping a single trailing empty line.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
