package census

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"census/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeAPI answers every request with one column per requested code plus the
// state and county key columns, over two rows.
func fakeAPI(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		q := r.URL.Query()
		if q.Get("key") != "test-key" {
			t.Errorf("missing api key, got %q", q.Get("key"))
		}
		codes := strings.Split(q.Get("get"), ",")
		header := append(append([]string{}, codes...), "state", "county")
		body := [][]string{header}
		for row := 0; row < 2; row++ {
			cells := make([]string, 0, len(header))
			for _, c := range codes {
				cells = append(cells, fmt.Sprintf("%s-%d", c, row))
			}
			cells = append(cells, "06", fmt.Sprintf("00%d", row+1))
			body = append(body, cells)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	}))
}

func newTestClient(t *testing.T, ts *httptest.Server, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithBaseURL(ts.URL),
		WithHTTPClient(ts.Client()),
		WithLogger(zaptest.NewLogger(t)),
	}
	c, err := NewClient("test-key", append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func codes(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("V%03d", i)
	}
	return out
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewClient("k", WithBatchSize(50))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewClient("k", WithTimeout(0))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	c, err := NewClient("k")
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, c.BatchSize())
}

func TestChunkVariables(t *testing.T) {
	assert.Len(t, chunkVariables(codes(45), 45), 1)
	assert.Len(t, chunkVariables(codes(46), 45), 2)
	assert.Len(t, chunkVariables(codes(100), 45), 3)
	assert.Empty(t, chunkVariables(nil, 45))

	batches := chunkVariables(codes(5), 2)
	assert.Equal(t, [][]string{{"V000", "V001"}, {"V002", "V003"}, {"V004"}}, batches)
}

func TestFetchTable_Chunking(t *testing.T) {
	for _, concurrency := range []int{1, 4} {
		t.Run(fmt.Sprintf("concurrency=%d", concurrency), func(t *testing.T) {
			var calls int32
			ts := fakeAPI(t, &calls)
			defer ts.Close()

			c := newTestClient(t, ts, WithConcurrency(concurrency))
			vars := codes(100)
			table, err := c.FetchTable(context.Background(), models.TableRequest{
				Variables:   vars,
				Year:        2020,
				For:         "county:*",
				In:          []string{"state:06"},
				DatasetPath: "dec/pl",
			})
			require.NoError(t, err)

			assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
			want := append(append([]string{}, vars[:45]...), "state", "county")
			want = append(want, vars[45:]...)
			if diff := cmp.Diff(want, table.Names()); diff != "" {
				t.Errorf("columns mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, 2, table.NumRows())

			last, ok := table.Column("V099")
			require.True(t, ok)
			assert.Equal(t, []string{"V099-0", "V099-1"}, last.Strings())
		})
	}
}

func TestFetchTable_QueryParameters(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2020/dec/pl", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "GEO_ID,NAME", q.Get("get"))
		assert.Equal(t, "tract:*", q.Get("for"))
		assert.Equal(t, []string{"state:06", "county:001,013"}, q["in"])
		assert.Equal(t, "test-key", q.Get("key"))
		w.Write([]byte(`[["GEO_ID","NAME"]]`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	table, err := c.FetchTable(context.Background(), models.TableRequest{
		Variables:   []string{"GEO_ID", "NAME"},
		Year:        2020,
		For:         "tract:*",
		In:          []string{"state:06", "county:001,013"},
		DatasetPath: "/dec/pl/",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, table.NumRows())
}

func TestFetchTable_NoInPredicate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.URL.Query()["in"]
		assert.False(t, ok)
		w.Write([]byte(`[["NAME","state"],["California","06"]]`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	_, err := c.FetchTable(context.Background(), models.TableRequest{
		Variables: []string{"NAME"}, Year: 2020, For: "state:*", DatasetPath: "dec/pl",
	})
	require.NoError(t, err)
}

func TestFetchTable_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "error: unknown variable 'BOGUS'", http.StatusBadRequest)
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	_, err := c.FetchTable(context.Background(), models.TableRequest{
		Variables: []string{"BOGUS"}, Year: 2020, For: "state:*", DatasetPath: "dec/pl",
	})
	require.ErrorIs(t, err, ErrAPI)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "unknown variable")
	assert.NotContains(t, apiErr.URL, "test-key")
}

func TestFetchTable_Malformed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[["GEO_ID","NAME","P1_001N"],["0500000US06037","Los Angeles County, California"]]`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	table, err := c.FetchTable(context.Background(), models.TableRequest{
		Variables: []string{"GEO_ID", "NAME", "P1_001N"}, Year: 2020, For: "county:*", DatasetPath: "dec/pl",
	})
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Nil(t, table)
}

func TestFetchTable_RowCountMismatchAcrossBatches(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Write([]byte(`[["A","state"],["1","06"],["2","06"]]`))
			return
		}
		w.Write([]byte(`[["B","state"],["1","06"]]`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts, WithBatchSize(1))
	_, err := c.FetchTable(context.Background(), models.TableRequest{
		Variables: []string{"A", "B"}, Year: 2020, For: "state:*", DatasetPath: "dec/pl",
	})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestFetchTable_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	c := newTestClient(t, ts, WithTimeout(50*time.Millisecond))
	_, err := c.FetchTable(context.Background(), models.TableRequest{
		Variables: []string{"NAME"}, Year: 2020, For: "state:*", DatasetPath: "dec/pl",
	})
	require.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotContains(t, err.Error(), "test-key")
}

func TestFetchTable_InvalidRequest(t *testing.T) {
	c, err := NewClient("test-key")
	require.NoError(t, err)

	_, err = c.FetchTable(context.Background(), models.TableRequest{Year: 2020, For: "state:*", DatasetPath: "dec/pl"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
