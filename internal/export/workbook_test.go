package export

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"

	"github.com/careform/medextract/internal/api"
)

// buildWorkbook assembles an xlsx fixture in memory so the tests do not
// depend on checked-in binary files.
func buildWorkbook(t *testing.T, sheets map[string][][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func serveWorkbook(t *testing.T, data []byte, status int) *Service {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		_, _ = w.Write(data)
	}))
	t.Cleanup(server.Close)
	client := api.NewClient(server.URL, api.WithLogger(zaptest.NewLogger(t).Sugar()))
	return NewService(client, zaptest.NewLogger(t).Sugar())
}

func TestFetchAndInspect(t *testing.T) {
	data := buildWorkbook(t, map[string][][]any{
		"Medications": {
			{"name", "dose", "confidence"},
			{"aspirin", "75mg", 0.91},
			{"clopidogrel", "75mg", 0.88},
		},
	})
	svc := serveWorkbook(t, data, http.StatusOK)

	fetched, err := svc.Fetch(context.Background(), "j1")
	require.NoError(t, err)

	summary, err := Inspect(fetched)
	require.NoError(t, err)
	require.Len(t, summary.Sheets, 1)
	assert.Equal(t, "Medications", summary.Sheets[0].Name)
	assert.Equal(t, 3, summary.Sheets[0].Rows)
	assert.Equal(t, 3, summary.Sheets[0].Columns)
	assert.False(t, summary.Empty())
}

func TestHeaderOnlyWorkbookIsEmpty(t *testing.T) {
	data := buildWorkbook(t, map[string][][]any{
		"Vitals": {
			{"type", "value"},
		},
	})
	summary, err := Inspect(data)
	require.NoError(t, err)
	assert.True(t, summary.Empty())
}

func TestFetchNotReadyPassesThrough(t *testing.T) {
	svc := serveWorkbook(t, nil, http.StatusNotFound)
	_, err := svc.Fetch(context.Background(), "j1")
	assert.ErrorIs(t, err, api.ErrNotReady)
}

func TestInspectRejectsNonWorkbookBytes(t *testing.T) {
	_, err := Inspect([]byte("this is not a zip archive"))
	assert.Error(t, err)
}

func TestSaveWritesBytes(t *testing.T) {
	data := buildWorkbook(t, map[string][][]any{
		"Summary": {{"ok"}},
	})
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, Save(path, data))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, written)
}
