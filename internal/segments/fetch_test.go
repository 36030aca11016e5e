package segments

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipnoise/shipnoise-go/internal/timeindex"
)

const testBaseURL = "https://audio-test.s3.amazonaws.com/rpi_test/hls"

func newTestFetcher(t *testing.T) (*Fetcher, *time.Duration) {
	t.Helper()
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)

	f := NewFetcher(client, testBaseURL, RetryPolicy{MaxAttempts: 3, Backoff: time.Second}, nil)
	var slept time.Duration
	f.sleep = func(d time.Duration) { slept += d }
	return f, &slept
}

func TestFetchUnpaddedName(t *testing.T) {
	f, _ := newTestFetcher(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/1731196800/live7.ts",
		httpmock.NewBytesResponder(http.StatusOK, []byte("ts-data")))

	dir := t.TempDir()
	path, err := f.Fetch(context.Background(), timeindex.Ref{Session: "1731196800", Seq: 7}, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "1731196800_live7.ts"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("ts-data"), data)
}

func TestFetchFallsBackToPaddedName(t *testing.T) {
	f, slept := newTestFetcher(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/1731196800/live7.ts",
		httpmock.NewStringResponder(http.StatusNotFound, ""))
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/1731196800/live007.ts",
		httpmock.NewBytesResponder(http.StatusOK, []byte("padded")))

	path, err := f.Fetch(context.Background(), timeindex.Ref{Session: "1731196800", Seq: 7}, t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("padded"), data)
	// Three attempts on the unpadded form with a pause between each.
	assert.Equal(t, 2*time.Second, *slept)
}

func TestFetchExhaustedMissIsMemoized(t *testing.T) {
	f, _ := newTestFetcher(t)
	httpmock.RegisterNoResponder(httpmock.NewStringResponder(http.StatusNotFound, ""))

	ref := timeindex.Ref{Session: "1731196800", Seq: 9}
	_, err := f.Fetch(context.Background(), ref, t.TempDir())
	assert.ErrorIs(t, err, ErrSegmentNotFound)
	calls := httpmock.GetTotalCallCount()
	assert.Equal(t, 6, calls) // 3 attempts x 2 naming conventions

	_, err = f.Fetch(context.Background(), ref, t.TempDir())
	assert.ErrorIs(t, err, ErrSegmentNotFound)
	assert.Equal(t, calls, httpmock.GetTotalCallCount(), "memoized miss must not refetch")
}

func TestFetchUsesLocalCopy(t *testing.T) {
	f, _ := newTestFetcher(t)
	dir := t.TempDir()
	ref := timeindex.Ref{Session: "1731196800", Seq: 3}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1731196800_live3.ts"), []byte("cached"), 0o644))

	path, err := f.Fetch(context.Background(), ref, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "1731196800_live3.ts"), path)
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestFetchHonorsCancellation(t *testing.T) {
	f, _ := newTestFetcher(t)
	httpmock.RegisterNoResponder(httpmock.NewStringResponder(http.StatusNotFound, ""))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Fetch(ctx, timeindex.Ref{Session: "1731196800", Seq: 1}, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}
