package planet

import (
	"compress/flate"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cavaliercoder/grab"
	"github.com/google/uuid"
	"github.com/mholt/archiver"
	"github.com/spatialops/planet-extractor/common"
	"github.com/spatialops/planet-extractor/service"
	"github.com/spatialops/planet-extractor/service/log"
)

// DownloadError is a partial or corrupt result transfer. No partial archive
// is left behind when it is returned.
type DownloadError struct {
	OrderID string
	Err     error
}

func (e DownloadError) Error() string {
	return fmt.Sprintf("download of order %s failed: %v", e.OrderID, e.Err)
}

func (e DownloadError) Unwrap() error { return e.Err }

// DownloadResults downloads every result asset of a successful order into a
// scratch dir and bundles them into <downloadDir>/<order-name>_bundle.zip.
// The archive is written atomically (temp file then rename).
func (c *Client) DownloadResults(ctx context.Context, order Order, downloadDir string) (string, error) {
	if order.State != common.StatusSuccess {
		return "", DownloadError{order.ID, fmt.Errorf("order is %s, not %s", order.State, common.StatusSuccess)}
	}
	if len(order.Links.Results) == 0 {
		return "", DownloadError{order.ID, fmt.Errorf("no results links present in completed order")}
	}
	if err := os.MkdirAll(downloadDir, 0766); err != nil {
		return "", DownloadError{order.ID, fmt.Errorf("make directory %s: %w", downloadDir, err)}
	}

	// Scratch dir, removed with any partial transfer on every exit path
	workdir := filepath.Join(downloadDir, "."+uuid.New().String())
	if err := os.MkdirAll(workdir, 0766); err != nil {
		return "", DownloadError{order.ID, fmt.Errorf("make directory %s: %w", workdir, err)}
	}
	defer os.RemoveAll(workdir)

	files := make([]string, 0, len(order.Links.Results))
	for i, result := range order.Links.Results {
		name := filepath.Base(result.Name)
		if name == "" || name == "." || name == "/" {
			name = fmt.Sprintf("result_%d", i+1)
		}
		local := filepath.Join(workdir, name)
		if err := service.Retriable(ctx, func() error {
			return c.downloadAsset(ctx, result.Location, local, order.ID+":"+name)
		}, 2*time.Second, c.RetryCount); err != nil {
			return "", DownloadError{order.ID, err}
		}
		files = append(files, local)
	}

	zipPath := filepath.Join(downloadDir, order.Name+"_bundle.zip")
	tmpPath := filepath.Join(workdir, order.Name+"_bundle.zip")
	zipper := archiver.NewZip()
	zipper.CompressionLevel = flate.BestSpeed
	if err := zipper.Archive(files, tmpPath); err != nil {
		return "", DownloadError{order.ID, fmt.Errorf("archive: %w", err)}
	}
	if err := os.Rename(tmpPath, zipPath); err != nil {
		return "", DownloadError{order.ID, fmt.Errorf("rename: %w", err)}
	}
	log.Logger(ctx).Sugar().Infof("saved %s", zipPath)
	return zipPath, nil
}

// downloadAsset fetches one asset with progress displayed every 5%
func (c *Client) downloadAsset(ctx context.Context, url, local, displayPrefix string) error {
	req, err := grab.NewRequest(local, url)
	if err != nil {
		return service.MakeFatal(fmt.Errorf("downloadAsset.NewRequest: %w", err))
	}
	req = req.WithContext(ctx)
	req.HTTPRequest.SetBasicAuth(c.apikey, "")

	client := grab.NewClient()
	resp := client.Do(req)

	displayProgress(ctx, displayPrefix, resp, 0.05)

	if err := resp.Err(); err != nil {
		err = fmt.Errorf("downloadAsset[%s]: %w", url, err)
		if resp.HTTPResponse == nil {
			return service.MakeTemporary(err)
		}
		switch resp.HTTPResponse.StatusCode {
		case 408, 429, 500, 501, 502, 503, 504:
			return service.MakeTemporary(err)
		default:
			return service.MakeFatal(err)
		}
	}
	return nil
}

func displayProgress(ctx context.Context, prefix string, resp *grab.Response, progressPeriod float64) {
	t := time.NewTicker(time.Second)
	defer t.Stop()

	progress, lastBytes, seconds := 0.0, int64(0), int64(0)
	for {
		select {
		case <-t.C:
			seconds++
			if resp.Progress() > progress {
				log.Logger(ctx).Sugar().Debugf("%s: %.2f%% %s/%s (%s/s)", prefix, 100*resp.Progress(), fmtBytes(resp.BytesComplete()), fmtBytes(resp.Size), fmtBytes((resp.BytesComplete()-lastBytes)/seconds))
				seconds = 0
				progress += progressPeriod
				lastBytes = resp.BytesComplete()
			}

		case <-resp.Done:
			return
		}
	}
}

func fmtBytes(bytes int64) string {
	v := float64(bytes)
	switch {
	case v > 1<<30:
		return fmt.Sprintf("%.2fGo", v/(1<<30))
	case v > 1<<20:
		return fmt.Sprintf("%.2fMo", v/(1<<20))
	case v > 1<<10:
		return fmt.Sprintf("%.2fko", v/(1<<10))
	default:
		return fmt.Sprintf("%.2fo", v)
	}
}
