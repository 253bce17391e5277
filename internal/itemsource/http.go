package itemsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/wondersell/wildsearch-indexer/internal/types"
)

// HTTPItemSource talks to the crawler export service over HTTP. Transient
// failures (timeouts, 5xx, connection errors) are retried with exponential
// backoff up to maxRetries retries, matching the Celery task policy
// spec.md §5 describes ("retry up to 10x with exponential-style fixed
// delays"); anything past that surfaces as *types.ErrTransientNetwork for
// the scheduler layer to decide what to do with.
type HTTPItemSource struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	MaxRetries int
	BaseDelay  time.Duration
}

// NewHTTPItemSource builds a source with the given base URL and API key,
// using sane defaults for the client and retry policy.
func NewHTTPItemSource(baseURL, apiKey string, maxRetries int, baseDelay time.Duration) *HTTPItemSource {
	return &HTTPItemSource{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
	}
}

func (s *HTTPItemSource) Metadata(ctx context.Context, job string) (types.JobMetadata, error) {
	var meta types.JobMetadata

	err := s.withRetry(ctx, func() error {
		u := fmt.Sprintf("%s/jobs/%s/metadata", s.BaseURL, url.PathEscape(job))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		s.authorize(req)

		resp, err := s.HTTPClient.Do(req)
		if err != nil {
			return err // network error: retryable
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("itemsource: metadata %s: status %d", job, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("itemsource: metadata %s: status %d", job, resp.StatusCode))
		}

		var wire struct {
			RunningTimeMS  int64 `json:"running_time_ms"`
			FinishedTimeMS int64 `json:"finished_time_ms"`
			ScrapyStats    struct {
				ItemScrapedCount int `json:"item_scraped_count"`
			} `json:"scrapystats"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
			return backoff.Permanent(err)
		}

		meta = types.JobMetadata{
			RunningTimeMS:  wire.RunningTimeMS,
			FinishedTimeMS: wire.FinishedTimeMS,
			ItemsCrawled:   wire.ScrapyStats.ItemScrapedCount,
		}
		return nil
	})
	if err != nil {
		return meta, &types.ErrTransientNetwork{Cause: err}
	}

	return meta, nil
}

func (s *HTTPItemSource) Fetch(ctx context.Context, job string, start, count, chunkSize int) (<-chan Chunk, <-chan error) {
	chunks := make(chan Chunk)
	errc := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errc)

		for offset := start; offset < start+count; offset += chunkSize {
			n := chunkSize
			if remaining := start + count - offset; remaining < n {
				n = remaining
			}

			var chunk Chunk
			err := s.withRetry(ctx, func() error {
				c, fetchErr := s.fetchOne(ctx, job, offset, n)
				if fetchErr != nil {
					return fetchErr
				}
				chunk = c
				return nil
			})
			if err != nil {
				errc <- &types.ErrTransientNetwork{Cause: err}
				return
			}

			select {
			case chunks <- chunk:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()

	return chunks, errc
}

func (s *HTTPItemSource) fetchOne(ctx context.Context, job string, offset, count int) (Chunk, error) {
	u := fmt.Sprintf("%s/jobs/%s/items?offset=%s&count=%s",
		s.BaseURL, url.PathEscape(job), strconv.Itoa(offset), strconv.Itoa(count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Chunk{}, backoff.Permanent(err)
	}
	s.authorize(req)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return Chunk{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Chunk{}, fmt.Errorf("itemsource: fetch %s offset %d: status %d", job, offset, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return Chunk{}, backoff.Permanent(fmt.Errorf("itemsource: fetch %s offset %d: status %d", job, offset, resp.StatusCode))
	}

	var wire []wireItem
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return Chunk{}, backoff.Permanent(err)
	}

	return Chunk{Items: translateItems(wire)}, nil
}

func (s *HTTPItemSource) authorize(req *http.Request) {
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
}

func (s *HTTPItemSource) withRetry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.BaseDelay
	bo.MaxElapsedTime = 0

	maxRetries := s.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 10
	}

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(maxRetries)), ctx))
}
