package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clipforge/api/internal/model"
	"github.com/clipforge/api/pkg/response"
)

// Fetcher downloads a job's remote assets into its working directory.
// Scenes are fetched concurrently up to ParallelScenes, with a shared
// semaphore bounding total in-flight downloads to ParallelDownloads.
// The first failure cancels everything still in flight.
type Fetcher struct {
	client            *http.Client
	parallelScenes    int
	parallelDownloads int
}

// NewFetcher builds a fetcher with its own timeout-bound client.
func NewFetcher(timeout time.Duration, parallelScenes, parallelDownloads int) *Fetcher {
	return NewFetcherWithClient(&http.Client{Timeout: timeout}, parallelScenes, parallelDownloads)
}

// NewFetcherWithClient is the injectable constructor used by tests.
func NewFetcherWithClient(client *http.Client, parallelScenes, parallelDownloads int) *Fetcher {
	if parallelScenes <= 0 {
		parallelScenes = 1
	}
	if parallelDownloads <= 0 {
		parallelDownloads = 1
	}
	return &Fetcher{
		client:            client,
		parallelScenes:    parallelScenes,
		parallelDownloads: parallelDownloads,
	}
}

// FetchImages downloads every image in the map into dir and returns a
// parallel map of local file paths. report, if non-nil, receives the
// count of finished downloads.
func (f *Fetcher) FetchImages(ctx context.Context, images model.AssetMap, dir string, report func(done, total int)) (model.AssetMap, error) {
	total := 0
	for _, segs := range images {
		total += len(segs)
	}

	var mu sync.Mutex
	local := make(model.AssetMap, len(images))
	done := 0

	sem := make(chan struct{}, f.parallelDownloads)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.parallelScenes)

	for sceneKey, segs := range images {
		sceneKey, segs := sceneKey, segs
		g.Go(func() error {
			for segType, rawURL := range segs {
				select {
				case sem <- struct{}{}:
				case <-gctx.Done():
					return gctx.Err()
				}

				name := fmt.Sprintf("%s_%s%s", sceneKey, segType, extFromURL(rawURL, ".jpg"))
				path := filepath.Join(dir, name)
				err := f.download(gctx, rawURL, path, "image/")
				<-sem
				if err != nil {
					return Wrap(response.CodeImageDownloadFailed, err,
						"failed to download %s.%s: %v", sceneKey, segType, err)
				}

				mu.Lock()
				if local[sceneKey] == nil {
					local[sceneKey] = make(map[string]string, len(segs))
				}
				local[sceneKey][segType] = path
				done++
				d := done
				mu.Unlock()
				if report != nil {
					report(d, total)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return local, nil
}

// FetchAudio downloads the audio track into dir and returns its path.
func (f *Fetcher) FetchAudio(ctx context.Context, rawURL, dir string) (string, error) {
	path := filepath.Join(dir, "audio"+extFromURL(rawURL, ".mp3"))
	if err := f.download(ctx, rawURL, path, ""); err != nil {
		return "", Wrap(response.CodeInvalidAudio, err, "failed to download audio: %v", err)
	}
	return path, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL, path, wantTypePrefix string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if wantTypePrefix != "" {
		ct := resp.Header.Get("Content-Type")
		if ct != "" && !strings.HasPrefix(ct, wantTypePrefix) {
			return fmt.Errorf("unexpected content type %q", ct)
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	return out.Close()
}

// extFromURL pulls a plausible file extension from the URL path.
func extFromURL(rawURL, fallback string) string {
	trimmed := rawURL
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	ext := strings.ToLower(filepath.Ext(trimmed))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif", ".mp3", ".m4a", ".aac", ".wav", ".ogg":
		return ext
	}
	return fallback
}
