package joblist

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/careform/medextract/constants"
	"github.com/careform/medextract/internal/api"
)

const defaultPageSize = 20

// SortKey selects the column jobs are ordered by.
type SortKey string

const (
	SortByCreatedAt SortKey = "created_at" // ISO-8601 text, sorts correctly lexically
	SortByStatus    SortKey = "status"     // severity rank, not lexical
	SortByFilename  SortKey = "filename"
)

// SortDir is the sort direction.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// Engine is one session's view over the job listing: a server-fetched
// page plus client-side ordering, filtering state, and deletion with
// page rebalancing. It is explicitly lifetime-scoped; create one per
// session instead of sharing a cache.
type Engine struct {
	client   *api.Client
	pageSize int
	log      *zap.SugaredLogger

	mu      sync.Mutex
	filter  constants.DocumentType
	sortKey SortKey
	sortDir SortDir
	pageNum int
	page    *api.JobListPage
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a logger. Nil is replaced with a no-op logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(e *Engine) { e.log = log }
}

// WithPageSize sets the window size for list requests.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// New builds a list engine with default ordering (newest first).
func New(client *api.Client, opts ...Option) *Engine {
	e := &Engine{
		client:   client,
		pageSize: defaultPageSize,
		sortKey:  SortByCreatedAt,
		sortDir:  SortDesc,
		pageNum:  1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = zap.NewNop().Sugar()
	}
	return e
}

// Load fetches the current page from the backend. On failure the
// previously held page stays intact and the error is surfaced.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	params := api.ListParams{
		DocumentType: e.filter,
		Page:         e.pageNum,
		PageSize:     e.pageSize,
	}
	e.mu.Unlock()

	page, err := e.client.ListJobs(ctx, params)
	if err != nil {
		e.log.Warnw("joblist.load_failed", "page", params.Page, "error", err)
		return err
	}

	e.mu.Lock()
	e.page = page
	e.mu.Unlock()
	return nil
}

// Jobs returns the held page's jobs under the current sort. The slice is
// a copy; mutating it does not affect the engine.
func (e *Engine) Jobs() []api.Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.page == nil {
		return nil
	}
	jobs := make([]api.Job, len(e.page.Jobs))
	copy(jobs, e.page.Jobs)
	sortJobs(jobs, e.sortKey, e.sortDir)
	return jobs
}

// Page returns the held page metadata (totals and window position).
func (e *Engine) Page() *api.JobListPage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page
}

// SetFilter narrows the listing to one document type (empty means all),
// resets to page 1, and refetches.
func (e *Engine) SetFilter(ctx context.Context, dt constants.DocumentType) error {
	e.mu.Lock()
	e.filter = dt
	e.pageNum = 1
	e.mu.Unlock()
	return e.Load(ctx)
}

// SortBy selects the sort column. Selecting the active key toggles
// direction; selecting a new key resets direction to descending and the
// window to page 1 (refetching when the page actually moved).
func (e *Engine) SortBy(ctx context.Context, key SortKey) error {
	e.mu.Lock()
	if e.sortKey == key {
		if e.sortDir == SortAsc {
			e.sortDir = SortDesc
		} else {
			e.sortDir = SortAsc
		}
		e.mu.Unlock()
		return nil
	}
	e.sortKey = key
	e.sortDir = SortDesc
	moved := e.pageNum != 1
	e.pageNum = 1
	e.mu.Unlock()

	if moved {
		return e.Load(ctx)
	}
	return nil
}

// SetPage jumps to a 1-based page and refetches. Pages past the end are
// legal; the backend answers with an empty window and correct totals.
func (e *Engine) SetPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	e.mu.Lock()
	e.pageNum = page
	e.mu.Unlock()
	return e.Load(ctx)
}

// NextPage advances one page and refetches.
func (e *Engine) NextPage(ctx context.Context) error {
	e.mu.Lock()
	e.pageNum++
	e.mu.Unlock()
	return e.Load(ctx)
}

// PrevPage steps back one page (not below 1) and refetches.
func (e *Engine) PrevPage(ctx context.Context) error {
	e.mu.Lock()
	if e.pageNum > 1 {
		e.pageNum--
	}
	e.mu.Unlock()
	return e.Load(ctx)
}

// Delete removes a job on the server, then from the held page. No
// optimistic removal happens before server confirmation. If the deleted
// job was the last item on a page beyond page 1, the engine steps back
// one page and refetches so the view never shows an empty page while
// earlier pages still have content.
func (e *Engine) Delete(ctx context.Context, jobID string) error {
	if err := e.client.DeleteJob(ctx, jobID); err != nil {
		return err
	}

	e.mu.Lock()
	if e.page != nil {
		kept := e.page.Jobs[:0]
		for _, j := range e.page.Jobs {
			if j.JobID != jobID {
				kept = append(kept, j)
			}
		}
		e.page.Jobs = kept
		if e.page.Total > 0 {
			e.page.Total--
		}
	}
	rebalance := e.page != nil && len(e.page.Jobs) == 0 && e.pageNum > 1
	if rebalance {
		e.pageNum--
	}
	e.mu.Unlock()

	e.log.Infow("joblist.deleted", "job_id", jobID, "rebalanced", rebalance)
	if rebalance {
		return e.Load(ctx)
	}
	return nil
}

// sortJobs orders jobs in place with a stable sort: equal keys keep the
// backend's order. Status sorts by operational severity so active and
// attention-needing jobs float to the top; the other keys compare as
// text (valid for ISO-8601 timestamps).
func sortJobs(jobs []api.Job, key SortKey, dir SortDir) {
	less := func(a, b api.Job) bool {
		switch key {
		case SortByStatus:
			return a.Status.SeverityRank() < b.Status.SeverityRank()
		case SortByFilename:
			return strings.Compare(a.Filename, b.Filename) < 0
		default:
			return strings.Compare(a.CreatedAt, b.CreatedAt) < 0
		}
	}
	sort.SliceStable(jobs, func(i, j int) bool {
		if dir == SortAsc {
			return less(jobs[i], jobs[j])
		}
		return less(jobs[j], jobs[i])
	})
}
