package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/eshaffer321/preorder-gather/internal/application/report"
)

var _ report.Sink = (*Client)(nil)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := gsheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewWithService(svc, "SHEET123", nil)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "'Summary'", quote("Summary"))
	assert.Equal(t, "'O''Brien'", quote("O'Brien"))
}

func TestReadRows(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v4/spreadsheets/SHEET123/values/'Designers'", r.URL.Path)
		_, _ = io.WriteString(w, `{"range":"Designers!A1:C3","values":[["Name","Room"],["Anna",12],["Bea"]]}`)
	})

	rows, err := c.ReadRows(context.Background(), "Designers")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Name", "Room"}, {"Anna", "12"}, {"Bea"}}, rows)
}

func TestEnsureSheet_Existing(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/v4/spreadsheets/SHEET123", r.URL.Path)
		_, _ = io.WriteString(w, `{"sheets":[{"properties":{"sheetId":7,"title":"Summary"}}]}`)
	})

	id, err := c.EnsureSheet(context.Background(), "Summary")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	// Cached after the first lookup.
	id, err = c.EnsureSheet(context.Background(), "Summary")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, 1, calls)
}

func TestEnsureSheet_Creates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			_, _ = io.WriteString(w, `{"sheets":[]}`)
		case strings.HasSuffix(r.URL.Path, ":batchUpdate"):
			var req gsheets.BatchUpdateSpreadsheetRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Requests, 1)
			assert.Equal(t, "Jane Doe", req.Requests[0].AddSheet.Properties.Title)
			_, _ = io.WriteString(w, `{"replies":[{"addSheet":{"properties":{"sheetId":99,"title":"Jane Doe"}}}]}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	id, err := c.EnsureSheet(context.Background(), "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, int64(99), id)
}

func TestWriteRows(t *testing.T) {
	var body gsheets.ValueRange
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v4/spreadsheets/SHEET123/values/'Summary'!A1", r.URL.Path)
		assert.Equal(t, "RAW", r.URL.Query().Get("valueInputOption"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = io.WriteString(w, `{}`)
	})

	require.NoError(t, c.WriteRows(context.Background(), "Summary", [][]string{{"a", "b"}, {}}))
	require.Len(t, body.Values, 2)
	assert.Equal(t, []interface{}{"a", "b"}, body.Values[0])
}

func TestWriteRows_FormulaLikeTextStaysRaw(t *testing.T) {
	var body gsheets.ValueRange
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "RAW", r.URL.Query().Get("valueInputOption"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = io.WriteString(w, `{}`)
	})

	rows := [][]string{{"", "", "=SUM(1,2)", "1"}, {"", "", "+1 Lamp", "2"}}
	require.NoError(t, c.WriteRows(context.Background(), "Jane Doe", rows))
	require.Len(t, body.Values, 2)
	assert.Equal(t, "=SUM(1,2)", body.Values[0][2])
}

func TestWriteFormulas(t *testing.T) {
	var body gsheets.ValueRange
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v4/spreadsheets/SHEET123/values/'Customers'!A1", r.URL.Path)
		assert.Equal(t, "USER_ENTERED", r.URL.Query().Get("valueInputOption"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = io.WriteString(w, `{}`)
	})

	link := `=HYPERLINK("#gid=7", "Open")`
	require.NoError(t, c.WriteFormulas(context.Background(), "Customers", [][]string{{"Jane Doe", "1", link}}))
	require.Len(t, body.Values, 1)
	assert.Equal(t, link, body.Values[0][2])
}

func TestAppendRows(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v4/spreadsheets/SHEET123/values/'Designers':append", r.URL.Path)
		assert.Equal(t, "INSERT_ROWS", r.URL.Query().Get("insertDataOption"))
		assert.Equal(t, "RAW", r.URL.Query().Get("valueInputOption"))
		_, _ = io.WriteString(w, `{}`)
	})

	require.NoError(t, c.AppendRows(context.Background(), "Designers", [][]string{{"Bea", "", ""}}))
}

func TestClearSheet_Error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"code":429,"message":"Quota exceeded"}}`)
	})

	err := c.ClearSheet(context.Background(), "Summary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Quota exceeded")
}
