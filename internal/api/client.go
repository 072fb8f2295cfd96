package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/IsraelGboluwaga/phosphora/internal/bible"
	"github.com/IsraelGboluwaga/phosphora/internal/logger"
)

const (
	baseURL = "https://bolls.life"

	// DefaultTranslation is used when a caller passes an empty translation.
	DefaultTranslation = "NKJV"

	defaultTimeout = 15 * time.Second
	defaultRPS     = 5.0
	defaultBurst   = 5
)

// Offline is a local source of whole translations consulted before the network.
// GetVerse reports a missing verse with an error wrapping ErrNotFound.
type Offline interface {
	IsCached(translation string) bool
	GetChapter(ctx context.Context, translation string, book, chapter int) ([]Verse, error)
	GetVerse(ctx context.Context, translation string, book, chapter, verse int) (*Verse, error)
}

// Client is a rate-limited bolls.life content provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	offline    Offline
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at another bolls.life compatible host.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit sets the outbound request budget. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithOffline makes the client serve translations found in the offline source.
func WithOffline(o Offline) ClientOption {
	return func(c *Client) { c.offline = o }
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Limit(defaultRPS), defaultBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.OrDiscard(c.logger)
	return c
}

type Translation struct {
	ShortName string `json:"short_name"`
	FullName  string `json:"full_name"`
	Updated   int64  `json:"updated"`
	Dir       string `json:"dir,omitempty"`
}

type LanguageGroup struct {
	Language     string        `json:"language"`
	Translations []Translation `json:"translations"`
}

type Verse struct {
	PK          int    `json:"pk"`
	Verse       int    `json:"verse"`
	Text        string `json:"text"`
	Translation string `json:"translation,omitempty"`
	Book        int    `json:"book,omitempty"`
	Chapter     int    `json:"chapter,omitempty"`
}

// versesRequest is one entry of the bulk get-verses payload.
type versesRequest struct {
	Translation string `json:"translation"`
	Book        int    `json:"book"`
	Chapter     int    `json:"chapter"`
	Verses      []int  `json:"verses"`
}

// GetTranslations lists the English translations offered by the provider.
func (c *Client) GetTranslations(ctx context.Context) ([]Translation, error) {
	var languageGroups []LanguageGroup
	if err := c.do(ctx, http.MethodGet, "/static/bolls/app/views/languages.json", nil, &languageGroups); err != nil {
		return nil, wrapError("getTranslations", "", err)
	}

	// Filter for English translations only
	var englishTranslations []Translation
	for _, group := range languageGroups {
		if group.Language == "English" {
			englishTranslations = group.Translations
			break
		}
	}

	return englishTranslations, nil
}

// FetchVerse returns the text for a single verse, a verse range or a whole
// chapter. Range and chapter texts carry verse numbers.
func (c *Client) FetchVerse(ctx context.Context, ref bible.Reference, translation string) (string, error) {
	translation = orDefault(translation)
	ref = ref.Normalize()
	key := ref.Key().String()

	bookNum, ok := bible.Number(ref.Book)
	if !ok {
		return "", wrapError("fetchVerse", key, fmt.Errorf("%w: %q", bible.ErrUnknownBook, ref.Book))
	}

	if !ref.IsRange() && !ref.IsChapter() {
		if text, ok, err := c.offlineVerse(ctx, translation, bookNum, ref); ok {
			if err != nil {
				return "", wrapError("fetchVerse", key, err)
			}
			return text, nil
		}
	} else if verses, ok := c.offlineChapter(ctx, translation, bookNum, ref.Chapter); ok {
		if content, found := chapterContent(ref, translation, verses).Content(ref); found {
			return content.Text, nil
		}
		return "", wrapError("fetchVerse", key, ErrNotFound)
	}

	switch {
	case ref.IsRange():
		batches, err := c.postVerses(ctx, []versesRequest{newVersesRequest(translation, bookNum, ref)})
		if err != nil {
			return "", wrapError("fetchVerse", key, err)
		}
		return joinText(batches[0], true), nil

	case !ref.IsChapter():
		var v Verse
		path := fmt.Sprintf("/get-verse/%s/%d/%d/%d/", translation, bookNum, ref.Chapter, ref.VerseStart)
		if err := c.do(ctx, http.MethodGet, path, nil, &v); err != nil {
			return "", wrapError("fetchVerse", key, err)
		}
		return stripHTML(v.Text), nil

	default:
		verses, err := c.getChapter(ctx, translation, bookNum, ref.Chapter)
		if err != nil {
			return "", wrapError("fetchVerse", key, err)
		}
		return joinText(verses, true), nil
	}
}

// FetchVerses resolves a batch of references, returning one text per request
// in input order. Verse and range requests share a single bulk call; chapter
// requests are fetched one by one.
func (c *Client) FetchVerses(ctx context.Context, refs []bible.Reference, translation string) ([]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	translation = orDefault(translation)

	results := make([]string, len(refs))
	var payload []versesRequest
	var payloadIndex []int

	for i, ref := range refs {
		ref = ref.Normalize()
		bookNum, ok := bible.Number(ref.Book)
		if !ok {
			return nil, wrapError("fetchVerses", ref.Key().String(), fmt.Errorf("%w: %q", bible.ErrUnknownBook, ref.Book))
		}

		if ref.IsChapter() || c.hasOffline(translation) {
			text, err := c.FetchVerse(ctx, ref, translation)
			if err != nil {
				return nil, err
			}
			results[i] = text
			continue
		}

		payload = append(payload, newVersesRequest(translation, bookNum, ref))
		payloadIndex = append(payloadIndex, i)
	}

	if len(payload) == 0 {
		return results, nil
	}

	batches, err := c.postVerses(ctx, payload)
	if err != nil {
		return nil, wrapError("fetchVerses", "", err)
	}

	for j, i := range payloadIndex {
		var verses []Verse
		if j < len(batches) {
			verses = batches[j]
		}
		results[i] = joinText(verses, refs[i].Normalize().IsRange())
	}
	return results, nil
}

// FetchChapter returns every verse of a chapter in order.
func (c *Client) FetchChapter(ctx context.Context, book string, chapter int, translation string) ([]bible.ChapterVerse, error) {
	translation = orDefault(translation)
	key := fmt.Sprintf("%s %d", book, chapter)

	bookNum, ok := bible.Number(book)
	if !ok {
		return nil, wrapError("fetchChapter", key, fmt.Errorf("%w: %q", bible.ErrUnknownBook, book))
	}

	verses, ok := c.offlineChapter(ctx, translation, bookNum, chapter)
	if !ok {
		var err error
		verses, err = c.getChapter(ctx, translation, bookNum, chapter)
		if err != nil {
			return nil, wrapError("fetchChapter", key, err)
		}
	}
	if len(verses) == 0 {
		return nil, wrapError("fetchChapter", key, ErrNotFound)
	}

	out := make([]bible.ChapterVerse, 0, len(verses))
	for _, v := range verses {
		out = append(out, bible.ChapterVerse{Verse: v.Verse, Text: stripHTML(v.Text)})
	}
	return out, nil
}

func (c *Client) getChapter(ctx context.Context, translation string, book, chapter int) ([]Verse, error) {
	var verses []Verse
	path := fmt.Sprintf("/get-text/%s/%d/%d/", translation, book, chapter)
	if err := c.do(ctx, http.MethodGet, path, nil, &verses); err != nil {
		return nil, err
	}
	return verses, nil
}

func (c *Client) postVerses(ctx context.Context, payload []versesRequest) ([][]Verse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	// Response is a nested array structure, one inner array per request.
	var batches [][]Verse
	if err := c.do(ctx, http.MethodPost, "/get-verses/", body, &batches); err != nil {
		return nil, err
	}
	if len(batches) < len(payload) {
		return nil, fmt.Errorf("%w: got %d results for %d requests", ErrMalformedResponse, len(batches), len(payload))
	}
	return batches, nil
}

// do executes a rate-limited request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("bolls request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode >= 500:
		return ErrServer
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}

func (c *Client) hasOffline(translation string) bool {
	return c.offline != nil && c.offline.IsCached(translation)
}

// offlineVerse serves a single verse from the offline source. ok is false when
// the network should be used instead.
func (c *Client) offlineVerse(ctx context.Context, translation string, book int, ref bible.Reference) (string, bool, error) {
	if !c.hasOffline(translation) {
		return "", false, nil
	}
	v, err := c.offline.GetVerse(ctx, translation, book, ref.Chapter, ref.VerseStart)
	switch {
	case err == nil:
		return stripHTML(v.Text), true, nil
	case errors.Is(err, ErrNotFound):
		return "", true, err
	}
	c.logger.Warn("offline lookup failed, using network",
		"translation", translation, "reference", ref.Key(), "error", err)
	return "", false, nil
}

func (c *Client) offlineChapter(ctx context.Context, translation string, book, chapter int) ([]Verse, bool) {
	if !c.hasOffline(translation) {
		return nil, false
	}
	verses, err := c.offline.GetChapter(ctx, translation, book, chapter)
	if err != nil {
		c.logger.Warn("offline lookup failed, using network",
			"translation", translation, "book", book, "chapter", chapter, "error", err)
		return nil, false
	}
	return verses, true
}

func newVersesRequest(translation string, book int, ref bible.Reference) versesRequest {
	end := ref.LastVerse()
	verses := make([]int, 0, end-ref.VerseStart+1)
	for v := ref.VerseStart; v <= end; v++ {
		verses = append(verses, v)
	}
	return versesRequest{Translation: translation, Book: book, Chapter: ref.Chapter, Verses: verses}
}

func chapterContent(ref bible.Reference, translation string, verses []Verse) bible.ChapterContent {
	c := bible.ChapterContent{Book: ref.Book, Chapter: ref.Chapter, Translation: translation}
	for _, v := range verses {
		c.Verses = append(c.Verses, bible.ChapterVerse{Verse: v.Verse, Text: stripHTML(v.Text)})
	}
	return c
}

func joinText(verses []Verse, numbered bool) string {
	out := make([]bible.ChapterVerse, 0, len(verses))
	for _, v := range verses {
		out = append(out, bible.ChapterVerse{Verse: v.Verse, Text: stripHTML(v.Text)})
	}
	return bible.JoinVerses(out, numbered)
}

func orDefault(translation string) string {
	if translation == "" {
		return DefaultTranslation
	}
	return translation
}
