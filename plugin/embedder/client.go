// Package embedder owns the wire contract to the external embedding
// microservice: single and batch text/image embedding calls, vector
// validation, and the adaptive retry/split dispatch for image batches.
package embedder

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds the transport client tuning.
type Config struct {
	// BaseURL is the root of the embedding service, without trailing slash.
	BaseURL string
	// Timeout bounds every single dispatch call.
	Timeout time.Duration
	// Dimensions is the expected vector dimension. Zero skips the check.
	Dimensions int
	// MaxRetries is the total number of attempts per batch before splitting.
	MaxRetries int
	// BackoffBase scales the linear retry backoff (base * attempt).
	BackoffBase time.Duration
	// SplitThreshold is the minimum batch size still worth halving.
	SplitThreshold int
}

// Client talks to the embedding microservice. All methods validate returned
// vectors and feed the shared health state on every call.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	timeout        time.Duration
	dimensions     int
	maxRetries     int
	backoffBase    time.Duration
	splitThreshold int
	health         *Health
}

// NewClient creates a transport client. health may not be nil.
func NewClient(cfg *Config, health *Health) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	backoffBase := cfg.BackoffBase
	if backoffBase <= 0 {
		backoffBase = 500 * time.Millisecond
	}
	splitThreshold := cfg.SplitThreshold
	if splitThreshold <= 1 {
		splitThreshold = 8
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:     &http.Client{},
		timeout:        timeout,
		dimensions:     cfg.Dimensions,
		maxRetries:     maxRetries,
		backoffBase:    backoffBase,
		splitThreshold: splitThreshold,
		health:         health,
	}
}

// Dimensions returns the expected vector dimension.
func (c *Client) Dimensions() int {
	return c.dimensions
}

type embedTextRequest struct {
	Text string `json:"text"`
}

type embedTextResponse struct {
	Vec []float32 `json:"vec"`
}

type embedTextBatchRequest struct {
	Texts []string `json:"texts"`
}

type embedTextBatchResponse struct {
	Vecs [][]float32 `json:"vecs"`
}

type embedImageRequest struct {
	URI      string `json:"uri,omitempty"`
	BytesB64 string `json:"bytes_b64,omitempty"`
}

type embedImageResponse struct {
	Vec  []float32      `json:"vec"`
	Diag map[string]any `json:"diag,omitempty"`
}

type embedImageBatchRequest struct {
	ImagesB64 []string `json:"images_b64"`
}

type embedImageBatchResponse struct {
	Vecs        [][]float32      `json:"vecs"`
	Errors      []*string        `json:"errors"`
	Diagnostics []map[string]any `json:"diagnostics"`
}

// EmbedText embeds a single text and validates the returned vector.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	var resp embedTextResponse
	if err := c.post(ctx, "/embed/text", &embedTextRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	if err := validateVector(resp.Vec, c.dimensions); err != nil {
		return nil, err
	}
	return resp.Vec, nil
}

// EmbedTextBatch embeds multiple texts in one call. The call fails atomically
// on transport error; per-item vector validation is the caller's
// responsibility.
func (c *Client) EmbedTextBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	var resp embedTextBatchResponse
	if err := c.post(ctx, "/embed/text/batch", &embedTextBatchRequest{Texts: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Vecs) != len(texts) {
		return nil, fmt.Errorf("embed text batch returned %d vectors for %d texts", len(resp.Vecs), len(texts))
	}
	return resp.Vecs, nil
}

// EmbedImage embeds a single image, either inline bytes or by URI reference,
// and validates the returned vector.
func (c *Client) EmbedImage(ctx context.Context, uri string, data []byte) ([]float32, error) {
	req := &embedImageRequest{}
	switch {
	case len(data) > 0:
		req.BytesB64 = base64.StdEncoding.EncodeToString(data)
	case uri != "":
		req.URI = uri
	default:
		return nil, ErrEmptyInput
	}
	var resp embedImageResponse
	if err := c.post(ctx, "/embed/image", req, &resp); err != nil {
		return nil, err
	}
	if err := validateVector(resp.Vec, c.dimensions); err != nil {
		return nil, err
	}
	return resp.Vec, nil
}

// EmbedImageBatch embeds a batch of images with adaptive retry and split.
//
// The batch is dispatched as a whole and retried with linear backoff on
// transport errors. When retries are exhausted and the segment is still at
// least SplitThreshold items, it is halved and each half retried
// independently, so partial success across a split batch is preserved.
//
// The returned slices always have the same length and order as the input.
// A non-empty string in itemErrs marks that item as failed; its vector slot
// is nil. The error is non-nil only when every item failed.
func (c *Client) EmbedImageBatch(ctx context.Context, images [][]byte) (vecs [][]float32, itemErrs []string, err error) {
	if len(images) == 0 {
		return nil, nil, nil
	}
	encoded := make([]string, len(images))
	for i, img := range images {
		encoded[i] = base64.StdEncoding.EncodeToString(img)
	}

	vecs, itemErrs = c.embedSegment(ctx, encoded, 0, maxSplitDepth(len(encoded), c.splitThreshold))

	failed := 0
	for _, e := range itemErrs {
		if e != "" {
			failed++
		}
	}
	if failed == len(images) {
		return vecs, itemErrs, fmt.Errorf("%w: all %d items failed", ErrExhaustedRetries, len(images))
	}
	return vecs, itemErrs, nil
}

// embedSegment dispatches one segment with retries, splitting in half on
// exhaustion. Output slices always match the segment length and order.
func (c *Client) embedSegment(ctx context.Context, imagesB64 []string, depth, maxDepth int) ([][]float32, []string) {
	vecs := make([][]float32, len(imagesB64))
	itemErrs := make([]string, len(imagesB64))

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		var resp embedImageBatchResponse
		err := c.post(ctx, "/embed/image/batch", &embedImageBatchRequest{ImagesB64: imagesB64}, &resp)
		if err == nil {
			c.collectBatch(&resp, vecs, itemErrs)
			return vecs, itemErrs
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < c.maxRetries {
			if !sleepCtx(ctx, c.backoffBase*time.Duration(attempt)) {
				break
			}
		}
	}

	// Retries exhausted. Halve the segment when it is still big enough so
	// one poisoned or oversized half cannot sink the other.
	if len(imagesB64) >= c.splitThreshold && depth < maxDepth && ctx.Err() == nil {
		mid := len(imagesB64) / 2
		leftVecs, leftErrs := c.embedSegment(ctx, imagesB64[:mid], depth+1, maxDepth)
		rightVecs, rightErrs := c.embedSegment(ctx, imagesB64[mid:], depth+1, maxDepth)
		copy(vecs, leftVecs)
		copy(vecs[mid:], rightVecs)
		copy(itemErrs, leftErrs)
		copy(itemErrs[mid:], rightErrs)
		return vecs, itemErrs
	}

	msg := "embedding dispatch failed after retries"
	if lastErr != nil {
		msg = fmt.Sprintf("%s: %v", msg, lastErr)
	}
	for i := range itemErrs {
		itemErrs[i] = msg
	}
	return vecs, itemErrs
}

// collectBatch validates each returned vector independently. A per-item
// failure never invalidates its siblings.
func (c *Client) collectBatch(resp *embedImageBatchResponse, vecs [][]float32, itemErrs []string) {
	for i := range vecs {
		if i < len(resp.Errors) && resp.Errors[i] != nil && *resp.Errors[i] != "" {
			itemErrs[i] = *resp.Errors[i]
			continue
		}
		if i >= len(resp.Vecs) {
			itemErrs[i] = "missing vector in response"
			continue
		}
		if err := validateVector(resp.Vecs[i], c.dimensions); err != nil {
			itemErrs[i] = err.Error()
			continue
		}
		vecs[i] = resp.Vecs[i]
	}
}

// Probe issues a lightweight liveness check against the embedding service.
func (c *Client) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.health.NoteFailure(err)
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("healthz returned status %d", resp.StatusCode)
		c.health.NoteFailure(err)
		return err
	}
	c.health.NoteSuccess()
	return nil
}

// post issues one JSON call with a bounded timeout and feeds health state.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.health.NoteFailure(err)
		return fmt.Errorf("embed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(raw))
		c.health.NoteFailure(err)
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.health.NoteFailure(err)
		return fmt.Errorf("decode embedding response: %w", err)
	}
	c.health.NoteSuccess()
	return nil
}

// maxSplitDepth caps recursion so splitting always terminates.
func maxSplitDepth(n, threshold int) int {
	depth := 0
	for size := n; size >= threshold && size > 1; size /= 2 {
		depth++
	}
	return depth
}

// sleepCtx sleeps for d unless the context is canceled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
