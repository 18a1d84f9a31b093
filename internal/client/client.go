package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/ilkin0/docguard/internal/logger"
	"github.com/ilkin0/docguard/internal/metrics"
	"github.com/ilkin0/docguard/internal/policy"
	"github.com/ilkin0/docguard/internal/verify"
)

// UnverifiableMessage is shown to end users when neither path could judge the file.
const UnverifiableMessage = "We couldn't verify your file. Please try again."

const maxResponseBytes = 64 << 10

// Report is a verification result together with the path that produced it.
type Report struct {
	Result verify.Result
	// Path is metrics.PathService or metrics.PathFallback, or empty when
	// the file could not be verified at all.
	Path string
}

func (r Report) Unverifiable() bool {
	return r.Path == ""
}

type Client struct {
	cfg        Config
	table      *policy.Table
	httpClient *http.Client
	metrics    *metrics.Recorder
}

// New builds a client that shares table with the local fallback. recorder may be nil.
func New(cfg Config, table *policy.Table, recorder *metrics.Recorder) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Mode != verify.ModeMetadata {
		cfg.Mode = verify.ModeContent
	}

	return &Client{
		cfg:        cfg,
		table:      table,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		metrics:    recorder,
	}
}

// Verify returns the verification envelope for f bound for destination.
func (c *Client) Verify(ctx context.Context, f File, destination string) verify.Result {
	return c.Check(ctx, f, destination).Result
}

// Check asks the verification service first. Transport failures, timeouts,
// non-authoritative statuses and unparsable bodies fall through to the local
// checks. Nothing about a failed attempt is remembered. An empty destination
// means the table's default on both paths.
func (c *Client) Check(ctx context.Context, f File, destination string) Report {
	log := logger.FromContext(ctx)

	if destination == "" && c.table != nil {
		destination = c.table.DefaultDestination()
	}

	if c.cfg.ServiceURL != "" {
		res, err := c.remote(ctx, f, destination)
		if err == nil {
			return Report{Result: res, Path: metrics.PathService}
		}
		log.Warn("verification service unavailable, using local checks",
			slog.String("filename", f.Name),
			slog.String("error", err.Error()),
		)
	}

	return c.fallback(ctx, f, destination)
}

func (c *Client) fallback(ctx context.Context, f File, destination string) Report {
	start := time.Now()
	log := logger.FromContext(ctx)

	details, err := fallbackCheck(c.table, f.Name, f.ContentType, f.Size, destination)
	switch {
	case err == nil:
		log.Info("file verified",
			slog.String("filename", details.Filename),
			slog.String("extension", details.Extension),
			slog.String("path", metrics.PathFallback),
		)
		c.metrics.Observe(metrics.PathFallback, metrics.PathFallback, metrics.OutcomeValid, "", time.Since(start))
		return Report{Result: verify.Pass(details), Path: metrics.PathFallback}
	case verify.IsPolicyViolation(err):
		log.Warn("file rejected",
			slog.String("filename", f.Name),
			slog.String("check", verify.RuleOf(err)),
			slog.String("reason", err.Error()),
			slog.String("path", metrics.PathFallback),
		)
		c.metrics.Observe(metrics.PathFallback, metrics.PathFallback, metrics.OutcomePolicy, verify.RuleOf(err), time.Since(start))
		return Report{Result: verify.Reject(err), Path: metrics.PathFallback}
	default:
		log.Error("local verification failed",
			slog.String("filename", f.Name),
			slog.String("error", err.Error()),
		)
		c.metrics.Observe(metrics.PathFallback, metrics.PathFallback, metrics.OutcomeInternal, "", time.Since(start))
		return Report{Result: verify.Result{Valid: false, Error: UnverifiableMessage}}
	}
}

func (c *Client) remote(ctx context.Context, f File, destination string) (verify.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var (
		body        io.Reader
		contentType string
		err         error
	)
	if c.cfg.Mode == verify.ModeMetadata {
		body, contentType, err = c.metadataBody(f, destination)
	} else {
		body, contentType, err = contentBody(f, destination)
	}
	if err != nil {
		return verify.Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ServiceURL, body)
	if err != nil {
		// Unblocks the multipart writer.
		if rc, ok := body.(io.Closer); ok {
			rc.Close()
		}
		return verify.Result{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Client-Info", "docguard-client")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		req.Header.Set("apikey", c.cfg.APIKey)
	}
	if id := logger.RequestIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return verify.Result{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeResult(resp)
}

// decodeResult accepts only answers that judge the file: 200 with details
// or 422 with an error message.
func decodeResult(resp *http.Response) (verify.Result, error) {
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnprocessableEntity {
		return verify.Result{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return verify.Result{}, fmt.Errorf("failed to read response: %w", err)
	}

	var res verify.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return verify.Result{}, fmt.Errorf("unparsable response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK && (!res.Valid || res.Details == nil):
		return verify.Result{}, errors.New("inconsistent success response")
	case resp.StatusCode == http.StatusUnprocessableEntity && (res.Valid || res.Error == ""):
		return verify.Result{}, errors.New("inconsistent rejection response")
	}
	return res, nil
}

// contentBody streams f as a multipart upload.
func contentBody(f File, destination string) (io.Reader, string, error) {
	if f.Open == nil {
		return nil, "", errors.New("file content is not available")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeMultipart(mw, f, destination))
	}()

	return pr, mw.FormDataContentType(), nil
}

func writeMultipart(mw *multipart.Writer, f File, destination string) error {
	if err := mw.WriteField("bucket", destination); err != nil {
		return err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     "file",
		"filename": f.Name,
	}))
	if f.ContentType != "" {
		h.Set("Content-Type", f.ContentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer rc.Close()

	if _, err := io.Copy(part, rc); err != nil {
		return fmt.Errorf("failed to stream file: %w", err)
	}
	return mw.Close()
}

type metadataPayload struct {
	Filename      string `json:"filename"`
	ContentType   string `json:"contentType"`
	Size          int64  `json:"size"`
	Bucket        string `json:"bucket"`
	FileSignature []int  `json:"fileSignature,omitempty"`
}

// metadataBody describes f without sending it. The leading bytes are sent
// as a signature sample when the content can be read.
func (c *Client) metadataBody(f File, destination string) (io.Reader, string, error) {
	payload := metadataPayload{
		Filename:    f.Name,
		ContentType: f.ContentType,
		Size:        f.Size,
		Bucket:      destination,
	}

	if sample := c.sample(f); len(sample) > 0 {
		payload.FileSignature = make([]int, len(sample))
		for i, b := range sample {
			payload.FileSignature[i] = int(b)
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return bytes.NewReader(data), "application/json", nil
}

func (c *Client) sample(f File) []byte {
	if f.Open == nil || c.table == nil {
		return nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil
	}
	defer rc.Close()

	buf := make([]byte, c.table.SignatureWindow())
	n, _ := io.ReadFull(rc, buf)
	return buf[:n]
}
