package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careform/medextract/constants"
)

// Client is the typed boundary to the document-processing backend. It
// carries no business logic; engines above it own all state.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     *zap.SugaredLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithLogger attaches a logger. Nil is replaced with a no-op logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient builds a client rooted at baseURL, e.g.
// "http://localhost:8000/api/v1".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = zap.NewNop().Sugar()
	}
	return c
}

// request performs one HTTP round-trip and returns the raw body and
// status. Non-2xx responses become *APIError with the backend's detail
// string when present, otherwise an HTTP-status fallback.
func (c *Client) request(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, int, error) {
	reqID := uuid.New().String()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.log.Debugw("api.request", "req_id", reqID, "method", method, "path", path)

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Errorw("api.send_error", "req_id", reqID, "method", method, "path", path, "error", err)
		return nil, 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Warnw("api.response_body_close_error", "req_id", reqID, "error", cerr)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)

	c.log.Debugw("api.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(resp.StatusCode, raw)}
	}
	return raw, resp.StatusCode, nil
}

// errorDetail extracts the backend's "detail" field, falling back to a
// status-derived generic message.
func errorDetail(status int, raw []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return fmt.Sprintf("HTTP %d", status)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) (int, error) {
	raw, status, err := c.request(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return status, err
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return status, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return status, nil
}

// Upload submits a document and starts the pipeline asynchronously. The
// returned Job snapshot has status pending.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader, docType constants.DocumentType) (*Job, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("multipart file: %w", err)
	}
	if _, err := io.Copy(fw, content); err != nil {
		return nil, fmt.Errorf("multipart copy: %w", err)
	}
	if docType != "" {
		if err := mw.WriteField("document_type", string(docType)); err != nil {
			return nil, fmt.Errorf("multipart field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("multipart close: %w", err)
	}

	raw, _, err := c.request(ctx, http.MethodPost, "/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	c.log.Infow("api.upload.accepted", "job_id", job.JobID, "filename", job.Filename)
	return &job, nil
}

// GetJob fetches the current Job snapshot.
func (c *Client) GetJob(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	if _, err := c.getJSON(ctx, "/jobs/"+jobID, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs fetches one page of job summaries. Requesting past the last
// page is not an error; the backend returns an empty window with correct
// totals.
func (c *Client) ListJobs(ctx context.Context, params ListParams) (*JobListPage, error) {
	q := url.Values{}
	if params.DocumentType != "" {
		q.Set("document_type", string(params.DocumentType))
	}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(params.PageSize))
	}
	path := "/jobs"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	var page JobListPage
	if _, err := c.getJSON(ctx, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// DeleteJob permanently removes a job. 404/409 come back verbatim as
// *APIError.
func (c *Client) DeleteJob(ctx context.Context, jobID string) error {
	_, _, err := c.request(ctx, http.MethodDelete, "/jobs/"+jobID, "", nil)
	if err != nil {
		return err
	}
	c.log.Infow("api.job.deleted", "job_id", jobID)
	return nil
}

// JobText fetches the raw pipeline text for a job.
func (c *Client) JobText(ctx context.Context, jobID string) (*JobText, error) {
	var jt JobText
	if _, err := c.getJSON(ctx, "/jobs/"+jobID+"/text", &jt); err != nil {
		return nil, err
	}
	return &jt, nil
}

// GetExtracted fetches the current extracted document. Before the
// pipeline reaches the extraction stage the backend answers 202, which
// surfaces as ErrNotReady.
func (c *Client) GetExtracted(ctx context.Context, jobID string) (*ExtractedDocument, error) {
	raw, status, err := c.request(ctx, http.MethodGet, "/jobs/"+jobID+"/extracted", "", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusAccepted {
		return nil, fmt.Errorf("extracted document for job %s: %w", jobID, ErrNotReady)
	}
	var doc ExtractedDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode extracted document: %w", err)
	}
	return &doc, nil
}

// UpdateExtracted sends the named sections for a server-side merge into
// the job's extracted document and returns the complete refreshed
// document, which callers must treat as the new source of truth.
func (c *Client) UpdateExtracted(ctx context.Context, jobID string, sections map[string]json.RawMessage) (*ExtractedDocument, error) {
	body, err := json.Marshal(map[string]any{"extracted_data": sections})
	if err != nil {
		return nil, fmt.Errorf("encode update: %w", err)
	}
	raw, _, err := c.request(ctx, http.MethodPut, "/jobs/"+jobID+"/extracted", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var doc ExtractedDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode updated document: %w", err)
	}
	return &doc, nil
}

// GenerateFHIR (re)builds the FHIR bundle from the current extracted
// document. Any prior validation report is stale afterwards.
func (c *Client) GenerateFHIR(ctx context.Context, jobID string) (*FHIRBundle, error) {
	raw, _, err := c.request(ctx, http.MethodPost, "/jobs/"+jobID+"/generate-fhir", "", nil)
	if err != nil {
		return nil, err
	}
	var bundle FHIRBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	c.log.Infow("api.fhir.generated", "job_id", jobID)
	return &bundle, nil
}

// GetFHIR fetches the latest bundle. 404 means none has been generated
// yet and surfaces as ErrNotReady.
func (c *Client) GetFHIR(ctx context.Context, jobID string) (*FHIRBundle, error) {
	raw, _, err := c.request(ctx, http.MethodGet, "/jobs/"+jobID+"/fhir", "", nil)
	if err != nil {
		return nil, notReadyOn404(err, "fhir bundle", jobID)
	}
	var bundle FHIRBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return &bundle, nil
}

// GetValidation fetches the validation report for the latest bundle.
// 404 before first generation surfaces as ErrNotReady.
func (c *Client) GetValidation(ctx context.Context, jobID string) (*ValidationReport, error) {
	raw, _, err := c.request(ctx, http.MethodGet, "/jobs/"+jobID+"/validation", "", nil)
	if err != nil {
		return nil, notReadyOn404(err, "validation report", jobID)
	}
	var report ValidationReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decode validation report: %w", err)
	}
	return &report, nil
}

// DownloadExcel fetches the verification workbook bytes. 404 before the
// export exists surfaces as ErrNotReady.
func (c *Client) DownloadExcel(ctx context.Context, jobID string) ([]byte, error) {
	raw, _, err := c.request(ctx, http.MethodGet, "/jobs/"+jobID+"/excel", "", nil)
	if err != nil {
		return nil, notReadyOn404(err, "excel export", jobID)
	}
	return raw, nil
}

func notReadyOn404(err error, what, jobID string) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s for job %s: %w", what, jobID, ErrNotReady)
	}
	return err
}
