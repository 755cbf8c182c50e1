package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGraph serves the site and drive lookup endpoints, counting hits.
type fakeGraph struct {
	siteHits  atomic.Int64
	driveHits atomic.Int64
}

func (f *fakeGraph) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/sites/atiscodesa.sharepoint.com:/sites/Loyalty2021", func(w http.ResponseWriter, _ *http.Request) {
		f.siteHits.Add(1)
		fmt.Fprint(w, `{"id": "site-1"}`)
	})

	mux.HandleFunc("/sites/site-1/drive", func(w http.ResponseWriter, _ *http.Request) {
		f.driveHits.Add(1)
		fmt.Fprint(w, `{"id": "drive-1"}`)
	})

	return mux
}

func TestSiteID_Resolution(t *testing.T) {
	fake := &fakeGraph{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	id, err := client.SiteID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "site-1", id)
}

func TestDriveID_ResolvesSiteFirst(t *testing.T) {
	fake := &fakeGraph{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	id, err := client.DriveID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "drive-1", id)
	assert.Equal(t, int64(1), fake.siteHits.Load())
	assert.Equal(t, int64(1), fake.driveHits.Load())
}

func TestSiteID_MemoizedAcrossCalls(t *testing.T) {
	fake := &fakeGraph{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	for i := 0; i < 5; i++ {
		_, err := client.SiteID(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1), fake.siteHits.Load())
}

// Concurrent resolution on a shared client yields one upstream lookup and
// identical cached values for every caller.
func TestSiteID_ConcurrentResolution(t *testing.T) {
	fake := &fakeGraph{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	const callers = 16

	var wg sync.WaitGroup

	results := make([]string, callers)

	for i := 0; i < callers; i++ {
		i := i

		wg.Add(1)

		go func() {
			defer wg.Done()

			id, err := client.DriveID(context.Background())
			assert.NoError(t, err)

			results[i] = id
		}()
	}

	wg.Wait()

	for _, id := range results {
		assert.Equal(t, "drive-1", id)
	}

	assert.Equal(t, int64(1), fake.siteHits.Load())
	assert.Equal(t, int64(1), fake.driveHits.Load())
}

func TestSiteID_RemoteErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("request-id", "req-site")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":"accessDenied"}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.SiteID(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForbidden)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusForbidden, remoteErr.StatusCode)
	assert.Equal(t, "req-site", remoteErr.RequestID)
	assert.Contains(t, remoteErr.Message, "accessDenied")
}

// A failed resolution is not cached: the next call retries the lookup.
func TestSiteID_ErrorNotMemoized(t *testing.T) {
	var calls atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		fmt.Fprint(w, `{"id": "site-1"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.SiteID(context.Background())
	require.Error(t, err)

	id, err := client.SiteID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "site-1", id)
}
