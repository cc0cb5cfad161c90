package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// StatusStream is one job's push subscription. The backend emits a frame
// only when the status changes and closes the stream itself once the job
// reaches a terminal status, so Updates() yields a finite sequence.
//
// A transport failure mid-stream closes Updates() and is reported once
// via Err(). The stream is never reopened automatically; callers decide
// whether to resubscribe.
type StatusStream struct {
	jobID   string
	updates chan Job
	cancel  context.CancelFunc
	log     *zap.SugaredLogger

	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

// SubscribeJobStatus opens the server-push status stream for a job. The
// returned stream must be closed by the caller; Close is idempotent.
func (c *Client) SubscribeJobStatus(ctx context.Context, jobID string) (*StatusStream, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+jobID+"/stream", nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	// The shared client enforces a request timeout that would sever a
	// healthy long-lived stream, so the subscription uses its transport
	// without the deadline.
	streamClient := &http.Client{Transport: c.httpc.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, &StreamError{JobID: jobID, Cause: err}
	}
	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		cancel()
		return nil, &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(resp.StatusCode, raw)}
	}

	s := &StatusStream{
		jobID:   jobID,
		updates: make(chan Job, 1),
		cancel:  cancel,
		log:     c.log,
	}
	go s.readLoop(ctx, resp.Body)

	c.log.Infow("api.stream.open", "job_id", jobID)
	return s, nil
}

// Updates returns the snapshot sequence. The channel closes when the
// server ends the stream, the connection drops, or Close is called.
func (s *StatusStream) Updates() <-chan Job {
	return s.updates
}

// Err reports the stream failure, if any, once Updates has closed. A nil
// result means the stream ended normally.
func (s *StatusStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close tears the subscription down. Safe to call multiple times and
// after the stream has already ended on its own.
func (s *StatusStream) Close() {
	s.closeOnce.Do(s.cancel)
}

func (s *StatusStream) readLoop(ctx context.Context, body io.ReadCloser) {
	defer close(s.updates)
	defer func() {
		if err := body.Close(); err != nil {
			s.log.Debugw("api.stream.body_close_error", "job_id", s.jobID, "error", err)
		}
	}()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()

		// Blank line terminates one event; everything else accumulates.
		if line != "" {
			if after, ok := strings.CutPrefix(line, "data:"); ok {
				data.WriteString(strings.TrimPrefix(after, " "))
			}
			continue
		}
		if data.Len() == 0 {
			continue
		}
		frame := data.String()
		data.Reset()

		var job Job
		if err := json.Unmarshal([]byte(frame), &job); err != nil {
			// Malformed frames are dropped, never fatal.
			s.log.Debugw("api.stream.malformed_frame", "job_id", s.jobID, "error", err)
			continue
		}
		select {
		case s.updates <- job:
		case <-ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
		s.mu.Lock()
		s.err = &StreamError{JobID: s.jobID, Cause: err}
		s.mu.Unlock()
		s.log.Warnw("api.stream.lost", "job_id", s.jobID, "error", err)
		return
	}
	s.log.Infow("api.stream.closed", "job_id", s.jobID)
}
