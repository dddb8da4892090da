package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lepinkainen/stacks/internal/errors"
)

const defaultOpenLibraryBaseURL = "https://openlibrary.org"

// OpenLibraryClient implements Client against the OpenLibrary API.
// It performs plain HTTP calls and surfaces failures with status detail;
// rate limiting, retries and circuit breaking live in the pipeline, not
// here.
type OpenLibraryClient struct {
	httpClient *http.Client
	baseURL    string
}

// Compile-time check that OpenLibraryClient implements Client.
var _ Client = (*OpenLibraryClient)(nil)

// OpenLibraryOption customizes the client.
type OpenLibraryOption func(*OpenLibraryClient)

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(base string) OpenLibraryOption {
	return func(c *OpenLibraryClient) {
		c.baseURL = base
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) OpenLibraryOption {
	return func(c *OpenLibraryClient) {
		c.httpClient = hc
	}
}

// NewOpenLibraryClient creates a client with a 10 second request timeout.
func NewOpenLibraryClient(opts ...OpenLibraryOption) *OpenLibraryClient {
	c := &OpenLibraryClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultOpenLibraryBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the collaborator name used for logging and circuit scoping.
func (c *OpenLibraryClient) Name() string {
	return "openlibrary"
}

// openLibraryBookResponse matches the /api/books jscmd=data response.
type openLibraryBookResponse struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Authors  []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Publishers []struct {
		Name string `json:"name"`
	} `json:"publishers"`
	PublishDate   string `json:"publish_date"`
	NumberOfPages int    `json:"number_of_pages"`
	Subjects      []struct {
		Name string `json:"name"`
	} `json:"subjects"`
	Cover struct {
		Large string `json:"large"`
	} `json:"cover"`
	Description any `json:"description"`
}

// openLibrarySearchResponse matches the /search.json response.
type openLibrarySearchResponse struct {
	NumFound int `json:"numFound"`
	Docs     []struct {
		Key                 string   `json:"key"`
		Title               string   `json:"title"`
		Subtitle            string   `json:"subtitle"`
		AuthorName          []string `json:"author_name"`
		FirstPublishYear    int      `json:"first_publish_year"`
		Publisher           []string `json:"publisher"`
		Language            []string `json:"language"`
		Subject             []string `json:"subject"`
		ISBN                []string `json:"isbn"`
		CoverID             int      `json:"cover_i"`
		NumberOfPagesMedian int      `json:"number_of_pages_median"`
	} `json:"docs"`
}

// LookupISBN fetches metadata for one ISBN. Returns (nil, nil) when the
// catalog has no record for it.
func (c *OpenLibraryClient) LookupISBN(ctx context.Context, isbn string) (*Metadata, error) {
	isbn = NormalizeISBN(isbn)
	if isbn == "" {
		return nil, errors.NewStatusError(http.StatusBadRequest, "empty ISBN")
	}

	reqURL := fmt.Sprintf("%s/api/books?bibkeys=ISBN:%s&format=json&jscmd=data", c.baseURL, url.QueryEscape(isbn))

	var result map[string]openLibraryBookResponse
	if err := c.getJSON(ctx, reqURL, &result); err != nil {
		return nil, err
	}

	book, ok := result["ISBN:"+isbn]
	if !ok {
		return nil, nil
	}

	meta := &Metadata{
		CatalogID:   book.Key,
		Title:       book.Title,
		Subtitle:    book.Subtitle,
		Publisher:   firstName(book.Publishers),
		PublishDate: book.PublishDate,
		PageCount:   book.NumberOfPages,
		Description: descriptionString(book.Description),
		CoverURL:    book.Cover.Large,
		ISBN:        isbn,
	}
	for _, a := range book.Authors {
		meta.Authors = append(meta.Authors, a.Name)
	}
	for _, s := range book.Subjects {
		meta.Genres = append(meta.Genres, s.Name)
	}
	return meta, nil
}

// LookupTitleAuthor searches the catalog by title and author and returns
// the best match, or (nil, nil) when nothing matches.
func (c *OpenLibraryClient) LookupTitleAuthor(ctx context.Context, title, author string) (*Metadata, error) {
	if title == "" {
		return nil, errors.NewStatusError(http.StatusBadRequest, "empty title")
	}

	query := url.Values{}
	query.Set("title", title)
	if author != "" {
		query.Set("author", author)
	}
	query.Set("limit", "5")
	reqURL := fmt.Sprintf("%s/search.json?%s", c.baseURL, query.Encode())

	var result openLibrarySearchResponse
	if err := c.getJSON(ctx, reqURL, &result); err != nil {
		return nil, err
	}

	if len(result.Docs) == 0 {
		return nil, nil
	}

	doc := result.Docs[0]
	meta := &Metadata{
		CatalogID: doc.Key,
		Title:     doc.Title,
		Subtitle:  doc.Subtitle,
		Authors:   doc.AuthorName,
		PageCount: doc.NumberOfPagesMedian,
		Genres:    doc.Subject,
	}
	if doc.FirstPublishYear > 0 {
		meta.PublishDate = strconv.Itoa(doc.FirstPublishYear)
	}
	if len(doc.Publisher) > 0 {
		meta.Publisher = doc.Publisher[0]
	}
	if len(doc.Language) > 0 {
		meta.Language = doc.Language[0]
	}
	if len(doc.ISBN) > 0 {
		meta.ISBN = NormalizeISBN(doc.ISBN[0])
	}
	if doc.CoverID > 0 {
		meta.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-L.jpg", doc.CoverID)
	}
	return meta, nil
}

// LookupBatch resolves keys sequentially. The pipeline provides its own
// concurrency on top, so this stays simple.
func (c *OpenLibraryClient) LookupBatch(ctx context.Context, keys []Key) (map[Key]*Metadata, error) {
	results := make(map[Key]*Metadata, len(keys))
	for _, key := range keys {
		meta, err := Lookup(ctx, c, key)
		if err != nil {
			return nil, fmt.Errorf("batch lookup %s: %w", key, err)
		}
		results[key] = meta
	}
	return results, nil
}

func (c *OpenLibraryClient) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("OpenLibrary request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return errors.NewRateLimitErrorWithRetry("OpenLibrary rate limit", parseRetryAfter(resp))
	case resp.StatusCode == http.StatusNotFound:
		// The books endpoint reports missing ISBNs with an empty body
		// rather than 404, but search shards occasionally 404.
		return errors.NewStatusError(resp.StatusCode, "not found")
	case resp.StatusCode != http.StatusOK:
		return errors.NewStatusError(resp.StatusCode, "OpenLibrary request failed")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode OpenLibrary response: %w", err)
	}
	return nil
}

// parseRetryAfter reads the Retry-After header as delay seconds. HTTP-date
// values and garbage yield zero, leaving the classifier's default.
func parseRetryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func firstName(names []struct {
	Name string `json:"name"`
}) string {
	if len(names) == 0 {
		return ""
	}
	return names[0].Name
}

func descriptionString(desc any) string {
	switch v := desc.(type) {
	case string:
		return v
	case map[string]any:
		if value, ok := v["value"].(string); ok {
			return value
		}
	}
	return ""
}
