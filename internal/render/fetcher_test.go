package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/clipforge/api/internal/model"
	"github.com/clipforge/api/pkg/response"
)

func assetServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, ".png"):
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("png bytes"))
		case strings.HasSuffix(r.URL.Path, ".mp3"):
			w.Header().Set("Content-Type", "audio/mpeg")
			w.Write([]byte("mp3 bytes"))
		case strings.HasSuffix(r.URL.Path, ".html"):
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html>not an image</html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchImages(t *testing.T) {
	srv := assetServer(t)
	f := NewFetcherWithClient(srv.Client(), 2, 4)
	dir := t.TempDir()

	images := model.AssetMap{
		"scene_1": {
			"split_top":    srv.URL + "/s1t.png",
			"split_bottom": srv.URL + "/s1b.png",
			"full_winner":  srv.URL + "/s1w.png",
		},
		"scene_2": {
			"full_winner": srv.URL + "/s2w.png",
		},
	}

	var mu sync.Mutex
	var lastDone, total int
	local, err := f.FetchImages(context.Background(), images, dir, func(done, tot int) {
		mu.Lock()
		lastDone, total = done, tot
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("FetchImages: %v", err)
	}

	for sceneKey, segs := range images {
		for segType := range segs {
			path, ok := local[sceneKey][segType]
			if !ok {
				t.Fatalf("no local path for %s.%s", sceneKey, segType)
			}
			data, err := os.ReadFile(path)
			if err != nil || string(data) != "png bytes" {
				t.Errorf("bad file for %s.%s: %v", sceneKey, segType, err)
			}
		}
	}
	if lastDone != 4 || total != 4 {
		t.Errorf("progress reported %d/%d, want 4/4", lastDone, total)
	}
}

func TestFetchImages_FailureFailsJob(t *testing.T) {
	srv := assetServer(t)
	f := NewFetcherWithClient(srv.Client(), 2, 4)

	images := model.AssetMap{
		"scene_1": {"full_winner": srv.URL + "/missing.png.gone"},
	}
	_, err := f.FetchImages(context.Background(), images, t.TempDir(), nil)
	if err == nil || CodeOf(err) != response.CodeImageDownloadFailed {
		t.Fatalf("err = %v, want IMAGE_DOWNLOAD_FAILED", err)
	}
}

func TestFetchImages_RejectsNonImageContent(t *testing.T) {
	srv := assetServer(t)
	f := NewFetcherWithClient(srv.Client(), 1, 1)

	images := model.AssetMap{
		"scene_1": {"full_winner": srv.URL + "/page.html"},
	}
	_, err := f.FetchImages(context.Background(), images, t.TempDir(), nil)
	if err == nil || CodeOf(err) != response.CodeImageDownloadFailed {
		t.Fatalf("err = %v, want IMAGE_DOWNLOAD_FAILED for text/html", err)
	}
}

func TestFetchAudio(t *testing.T) {
	srv := assetServer(t)
	f := NewFetcherWithClient(srv.Client(), 1, 1)

	path, err := f.FetchAudio(context.Background(), srv.URL+"/track.mp3", t.TempDir())
	if err != nil {
		t.Fatalf("FetchAudio: %v", err)
	}
	if !strings.HasSuffix(path, "audio.mp3") {
		t.Errorf("audio path = %q", path)
	}
	if data, _ := os.ReadFile(path); string(data) != "mp3 bytes" {
		t.Errorf("audio bytes wrong: %q", data)
	}
}

func TestExtFromURL(t *testing.T) {
	cases := map[string]string{
		"https://cdn.example.com/a.PNG?sig=abc": ".png",
		"https://cdn.example.com/a.jpeg":        ".jpeg",
		"https://cdn.example.com/a":             ".jpg",
		"https://cdn.example.com/a.exe":         ".jpg",
	}
	for raw, want := range cases {
		if got := extFromURL(raw, ".jpg"); got != want {
			t.Errorf("extFromURL(%q) = %q, want %q", raw, got, want)
		}
	}
}
