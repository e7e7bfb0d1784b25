package imagegen

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/agentcrew/internal/fetch"
)

type stubImages struct {
	got  openai.ImageRequest
	resp openai.ImageResponse
}

func (s *stubImages) CreateImage(ctx context.Context, req openai.ImageRequest) (openai.ImageResponse, error) {
	s.got = req
	return s.resp, nil
}

func TestGenerate_DownloadsAndSaves(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken.png" {
			http.Error(w, "gone", http.StatusGone)
			return
		}
		_, _ = w.Write(png)
	}))
	defer srv.Close()

	images := &stubImages{resp: openai.ImageResponse{Data: []openai.ImageResponseDataInner{
		{URL: srv.URL + "/a.png"},
		{URL: srv.URL + "/broken.png"},
		{B64JSON: base64.StdEncoding.EncodeToString(png)},
	}}}
	dir := filepath.Join(t.TempDir(), "images")
	g := &Generator{Images: images, Fetcher: &fetch.Client{HTTPClient: srv.Client()}, Dir: dir}

	files, err := g.Generate(context.Background(), "a red fox", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if images.got.Model != openai.CreateImageModelDallE3 || images.got.N != 1 || images.got.Size != DefaultSize {
		t.Fatalf("unexpected request: %+v", images.got)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 saved files (one download failed), got %v", files)
	}
	for _, f := range files {
		if !strings.HasSuffix(f, ".png") || filepath.Dir(f) != dir {
			t.Fatalf("unexpected path %q", f)
		}
		b, err := os.ReadFile(f)
		if err != nil || string(b) != string(png) {
			t.Fatalf("file %s content mismatch: %v", f, err)
		}
	}
	if files[0] == files[1] {
		t.Fatalf("file names must be unique")
	}
}

func TestGenerate_RejectsBadInput(t *testing.T) {
	g := &Generator{Images: &stubImages{}}
	if _, err := g.Generate(context.Background(), "  ", ""); err == nil {
		t.Fatalf("expected error for empty query")
	}
	if _, err := g.Generate(context.Background(), "fox", "3x3"); err == nil || !strings.Contains(err.Error(), "invalid args") {
		t.Fatalf("expected invalid size error, got %v", err)
	}
}
