package planet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spatialops/planet-extractor/common"
)

func TestDownloadResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "asset %s", filepath.Base(r.URL.Path))
	}))
	defer srv.Close()

	downloadDir := t.TempDir()
	c := NewClient(srv.URL, srv.URL, "key")
	order := Order{
		ID:    "order-1",
		Name:  "extract_1",
		State: common.StatusSuccess,
		Links: OrderLinks{Results: []OrderResult{
			{Name: "files/scene_clip.tif", Location: srv.URL + "/scene_clip.tif"},
			{Name: "files/metadata.json", Location: srv.URL + "/metadata.json"},
		}},
	}
	zipPath, err := c.DownloadResults(context.Background(), order, downloadDir)
	if err != nil {
		t.Fatalf("%v", err)
	}
	if zipPath != filepath.Join(downloadDir, "extract_1_bundle.zip") {
		t.Errorf("unexpected archive path %s", zipPath)
	}
	if fi, err := os.Stat(zipPath); err != nil || fi.Size() == 0 {
		t.Fatalf("archive missing or empty: %v", err)
	}

	// scratch dirs and loose assets must not outlive the call
	entries, err := os.ReadDir(downloadDir)
	if err != nil {
		t.Fatalf("%v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the archive in %s, got %v", downloadDir, entries)
	}
}

func TestDownloadResultsNotSuccessful(t *testing.T) {
	c := NewClient("", "", "key")
	_, err := c.DownloadResults(context.Background(), Order{ID: "order-1", State: common.StatusFailed}, t.TempDir())
	var dlErr DownloadError
	if !errors.As(err, &dlErr) || dlErr.OrderID != "order-1" {
		t.Fatalf("expected DownloadError, got %v", err)
	}
}

func TestDownloadResultsNoArchiveOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	downloadDir := t.TempDir()
	c := NewClient(srv.URL, srv.URL, "key")
	order := Order{
		ID:    "order-1",
		Name:  "extract_1",
		State: common.StatusSuccess,
		Links: OrderLinks{Results: []OrderResult{{Name: "scene.tif", Location: srv.URL + "/scene.tif"}}},
	}
	if _, err := c.DownloadResults(context.Background(), order, downloadDir); err == nil {
		t.Fatal("expected an error")
	}
	entries, err := os.ReadDir(downloadDir)
	if err != nil {
		t.Fatalf("%v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no partial output in %s, got %v", downloadDir, entries)
	}
}
