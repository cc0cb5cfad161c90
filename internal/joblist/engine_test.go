package joblist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/careform/medextract/constants"
	"github.com/careform/medextract/internal/api"
)

// listBackend serves a paginated job listing out of an in-memory slice,
// honoring the document_type filter and page window the way the real
// backend does.
type listBackend struct {
	mu           sync.Mutex
	jobs         []api.Job
	listRequests int
	failList     bool
	failDelete   int
}

func (b *listBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.listRequests++
		if b.failList {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		if page < 1 {
			page = 1
		}
		pageSize, _ := strconv.Atoi(q.Get("page_size"))
		if pageSize < 1 {
			pageSize = 20
		}
		filter := q.Get("document_type")

		var matched []api.Job
		for _, j := range b.jobs {
			if filter != "" && (j.DocumentType == nil || string(*j.DocumentType) != filter) {
				continue
			}
			matched = append(matched, j)
		}

		totalPages := (len(matched) + pageSize - 1) / pageSize
		start := (page - 1) * pageSize
		end := start + pageSize
		if start > len(matched) {
			start, end = len(matched), len(matched)
		} else if end > len(matched) {
			end = len(matched)
		}

		_ = json.NewEncoder(w).Encode(api.JobListPage{
			Jobs:       matched[start:end],
			Total:      len(matched),
			Page:       page,
			PageSize:   pageSize,
			TotalPages: totalPages,
		})
	})
	mux.HandleFunc("/jobs/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failDelete != 0 {
			w.WriteHeader(b.failDelete)
			_, _ = w.Write([]byte(`{"detail":"job is still processing"}`))
			return
		}
		id := r.URL.Path[len("/jobs/"):]
		kept := b.jobs[:0]
		for _, j := range b.jobs {
			if j.JobID != id {
				kept = append(kept, j)
			}
		}
		b.jobs = kept
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func (b *listBackend) listCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listRequests
}

func docType(dt constants.DocumentType) *constants.DocumentType {
	return &dt
}

func seedJobs() []api.Job {
	return []api.Job{
		{JobID: "a", Status: constants.JobStatusCompleted, Filename: "alpha.pdf", CreatedAt: "2026-08-01T10:00:00Z", DocumentType: docType(constants.DocTypeDischargeSummary)},
		{JobID: "b", Status: constants.JobStatusProcessing, Filename: "bravo.pdf", CreatedAt: "2026-08-02T10:00:00Z", DocumentType: docType(constants.DocTypeDiagnosticReport)},
		{JobID: "c", Status: constants.JobStatusFailed, Filename: "charlie.pdf", CreatedAt: "2026-08-03T10:00:00Z", DocumentType: docType(constants.DocTypeDischargeSummary)},
		{JobID: "d", Status: constants.JobStatusAwaitingVerification, Filename: "delta.pdf", CreatedAt: "2026-08-04T10:00:00Z", DocumentType: docType(constants.DocTypeDiagnosticReport)},
	}
}

func newListEngine(t *testing.T, backend *listBackend, opts ...Option) *Engine {
	t.Helper()
	server := httptest.NewServer(backend.handler(t))
	t.Cleanup(server.Close)
	client := api.NewClient(server.URL, api.WithLogger(zaptest.NewLogger(t).Sugar()))
	opts = append([]Option{WithLogger(zaptest.NewLogger(t).Sugar())}, opts...)
	return New(client, opts...)
}

func jobIDs(jobs []api.Job) []string {
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.JobID
	}
	return ids
}

func TestDefaultOrderIsNewestFirst(t *testing.T) {
	engine := newListEngine(t, &listBackend{jobs: seedJobs()})
	require.NoError(t, engine.Load(context.Background()))
	assert.Equal(t, []string{"d", "c", "b", "a"}, jobIDs(engine.Jobs()))
}

func TestStatusSortUsesSeverityNotAlphabet(t *testing.T) {
	engine := newListEngine(t, &listBackend{jobs: seedJobs()})
	require.NoError(t, engine.Load(context.Background()))
	require.NoError(t, engine.SortBy(context.Background(), SortByStatus))
	require.NoError(t, engine.SortBy(context.Background(), SortByStatus)) // toggle to asc

	// Ascending severity: active work first, settled jobs last. An
	// alphabetical sort would put awaiting_verification first.
	assert.Equal(t, []string{"b", "d", "c", "a"}, jobIDs(engine.Jobs()))
}

func TestToggleTwiceRestoresOrder(t *testing.T) {
	engine := newListEngine(t, &listBackend{jobs: seedJobs()})
	require.NoError(t, engine.Load(context.Background()))
	before := jobIDs(engine.Jobs())

	require.NoError(t, engine.SortBy(context.Background(), SortByCreatedAt))
	assert.NotEqual(t, before, jobIDs(engine.Jobs()))
	require.NoError(t, engine.SortBy(context.Background(), SortByCreatedAt))
	assert.Equal(t, before, jobIDs(engine.Jobs()))
}

func TestNewSortKeyResetsDirectionAndPage(t *testing.T) {
	jobs := make([]api.Job, 0, 25)
	for i := 0; i < 25; i++ {
		jobs = append(jobs, api.Job{
			JobID:     "j" + strconv.Itoa(i),
			Status:    constants.JobStatusCompleted,
			Filename:  "f" + strconv.Itoa(i) + ".pdf",
			CreatedAt: "2026-08-01T10:00:" + strconv.Itoa(10+i) + "Z",
		})
	}
	backend := &listBackend{jobs: jobs}
	engine := newListEngine(t, backend)
	require.NoError(t, engine.Load(context.Background()))
	require.NoError(t, engine.SetPage(context.Background(), 2))
	require.Equal(t, 2, engine.Page().Page)

	// New key from a moved window: back to page 1, descending, refetched.
	fetches := backend.listCount()
	require.NoError(t, engine.SortBy(context.Background(), SortByFilename))
	assert.Equal(t, 1, engine.Page().Page)
	assert.Equal(t, fetches+1, backend.listCount())
}

func TestFilterResetsToFirstPage(t *testing.T) {
	engine := newListEngine(t, &listBackend{jobs: seedJobs()})
	require.NoError(t, engine.Load(context.Background()))
	require.NoError(t, engine.SetPage(context.Background(), 3))

	require.NoError(t, engine.SetFilter(context.Background(), constants.DocTypeDischargeSummary))
	page := engine.Page()
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, []string{"c", "a"}, jobIDs(engine.Jobs()))
}

func TestPagePastEndIsEmptyNotError(t *testing.T) {
	engine := newListEngine(t, &listBackend{jobs: seedJobs()})
	require.NoError(t, engine.SetPage(context.Background(), 5))
	assert.Empty(t, engine.Jobs())
	assert.Equal(t, 4, engine.Page().Total)
}

func TestLoadFailureKeepsPreviousPage(t *testing.T) {
	backend := &listBackend{jobs: seedJobs()}
	engine := newListEngine(t, backend)
	require.NoError(t, engine.Load(context.Background()))
	require.Len(t, engine.Jobs(), 4)

	backend.mu.Lock()
	backend.failList = true
	backend.mu.Unlock()

	require.Error(t, engine.NextPage(context.Background()))
	assert.Len(t, engine.Jobs(), 4, "stale page is better than no page")
}

func TestDeleteRemovesFromViewAfterServerConfirms(t *testing.T) {
	backend := &listBackend{jobs: seedJobs()}
	engine := newListEngine(t, backend)
	require.NoError(t, engine.Load(context.Background()))

	require.NoError(t, engine.Delete(context.Background(), "b"))
	assert.Equal(t, []string{"d", "c", "a"}, jobIDs(engine.Jobs()))
	assert.Equal(t, 3, engine.Page().Total)
}

func TestDeleteFailureLeavesViewIntact(t *testing.T) {
	backend := &listBackend{jobs: seedJobs(), failDelete: http.StatusConflict}
	engine := newListEngine(t, backend)
	require.NoError(t, engine.Load(context.Background()))

	err := engine.Delete(context.Background(), "b")
	require.Error(t, err)
	assert.Equal(t, "job is still processing", err.Error())
	assert.Len(t, engine.Jobs(), 4)
	assert.Equal(t, 4, engine.Page().Total)
}

func TestDeleteLastItemOnLaterPageStepsBack(t *testing.T) {
	backend := &listBackend{jobs: seedJobs()}
	engine := newListEngine(t, backend, WithPageSize(3))
	require.NoError(t, engine.SetPage(context.Background(), 2))
	require.Equal(t, []string{"d"}, jobIDs(engine.Jobs()))

	require.NoError(t, engine.Delete(context.Background(), "d"))
	page := engine.Page()
	assert.Equal(t, 1, page.Page)
	assert.Len(t, engine.Jobs(), 3)
	assert.Equal(t, 3, page.Total)
}
