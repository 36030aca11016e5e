package segments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/shipnoise/shipnoise-go/internal/timeindex"
)

// ErrSegmentNotFound reports a definitive miss: both naming conventions were
// exhausted with retries and the segment does not exist. Callers treat this
// as a soft miss, never a fatal error for the run.
var ErrSegmentNotFound = errors.New("audio segment not found")

// RetryPolicy bounds segment acquisition. Each candidate URL is attempted up
// to MaxAttempts times with a fixed Backoff between attempts.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy mirrors the production tuning: three attempts, one
// second apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: time.Second}
}

// Fetcher downloads HLS audio segments for one station. Definitive misses
// are memoized for the duration of a run so neighbor probing does not
// re-fetch known-absent segments.
type Fetcher struct {
	client  *http.Client
	baseURL string // e.g. https://audio-orcasound-net.s3.amazonaws.com/rpi_bush_point/hls
	policy  RetryPolicy
	misses  *gocache.Cache
	log     *slog.Logger
	sleep   func(time.Duration)
}

// NewFetcher builds a fetcher. A nil client uses http.DefaultClient with a
// 10 second timeout.
func NewFetcher(client *http.Client, baseURL string, policy RetryPolicy, log *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		client:  client,
		baseURL: baseURL,
		policy:  policy,
		misses:  gocache.New(gocache.NoExpiration, 0),
		log:     log,
		sleep:   time.Sleep,
	}
}

// CandidateURLs returns the URL forms tried for a segment, unpadded first
// then the zero-padded convention.
func (f *Fetcher) CandidateURLs(ref timeindex.Ref) []string {
	return []string{
		fmt.Sprintf("%s/%s/live%d.ts", f.baseURL, ref.Session, ref.Seq),
		fmt.Sprintf("%s/%s/live%03d.ts", f.baseURL, ref.Session, ref.Seq),
	}
}

// localName is the on-disk name for a fetched segment.
func localName(ref timeindex.Ref) string {
	return fmt.Sprintf("%s_live%d.ts", ref.Session, ref.Seq)
}

// Fetch downloads one segment into destDir and returns the local path. A
// segment already present in destDir is returned without a network round
// trip. Exhausting retries on both naming conventions returns
// ErrSegmentNotFound wrapped with the segment reference.
func (f *Fetcher) Fetch(ctx context.Context, ref timeindex.Ref, destDir string) (string, error) {
	local := filepath.Join(destDir, localName(ref))
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}

	key := timeindex.FormatRef(ref)
	if _, known := f.misses.Get(key); known {
		return "", fmt.Errorf("%w: %s", ErrSegmentNotFound, key)
	}

	for _, url := range f.CandidateURLs(ref) {
		for attempt := 1; attempt <= f.policy.MaxAttempts; attempt++ {
			data, status, err := f.get(ctx, url)
			switch {
			case err == nil && status == http.StatusOK && len(data) > 0:
				if err := os.WriteFile(local, data, 0o644); err != nil {
					return "", fmt.Errorf("writing segment %s: %w", key, err)
				}
				return local, nil
			case ctx.Err() != nil:
				return "", ctx.Err()
			case status == http.StatusNotFound:
				// The segment may simply not be uploaded yet; wait once per
				// attempt before giving up on this naming convention.
				f.log.Debug("segment not found", "url", url, "attempt", attempt)
			default:
				f.log.Debug("segment fetch failed", "url", url, "attempt", attempt,
					"status", status, "error", err)
			}
			if attempt < f.policy.MaxAttempts {
				f.sleep(f.policy.Backoff)
			}
		}
	}

	f.misses.Set(key, true, gocache.NoExpiration)
	return "", fmt.Errorf("%w: %s", ErrSegmentNotFound, key)
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return data, resp.StatusCode, nil
}
