// Package extraction runs the pipeline: load the AOI, search the catalog,
// preview, select one scene, place the clip order, poll it and download the
// result. Strictly sequential, one AOI, one scene, one order per run.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-spatial/geom"
	"github.com/google/uuid"
	"github.com/spatialops/planet-extractor/aoi"
	"github.com/spatialops/planet-extractor/common"
	"github.com/spatialops/planet-extractor/interface/planet"
	"github.com/spatialops/planet-extractor/orderlog"
	"github.com/spatialops/planet-extractor/preview"
	"github.com/spatialops/planet-extractor/service"
	"github.com/spatialops/planet-extractor/service/log"
	"go.uber.org/zap"
)

// Config drives one extraction run.
type Config struct {
	AOIPath string
	AOIEpsg int // 0: use the CRS declared in the file

	Search planet.SearchParams

	Preview bool
	OpenMap bool
	MapPath string

	Prompt bool
	ItemID string

	Order        bool
	Bundle       common.Bundle
	DownloadDir  string
	PollInterval time.Duration
	MaxPolls     int

	// Input/Output of the interactive selector (defaults to the terminal)
	Input  io.Reader
	Output io.Writer
}

// Process runs the pipeline once.
func Process(ctx context.Context, client *planet.Client, recorder *orderlog.Recorder, cfg Config) error {
	area, err := aoi.Load(ctx, cfg.AOIPath, cfg.AOIEpsg)
	if err != nil {
		return fmt.Errorf("Process.%w", err)
	}

	scenes, err := client.QuickSearch(ctx, area, cfg.Search)
	if err != nil {
		return fmt.Errorf("Process.%w", err)
	}

	// Side effect only: a preview failure never aborts the run
	if cfg.Preview {
		if err := preview.RenderMap(ctx, area, scenes, cfg.MapPath); err != nil {
			log.Logger(ctx).Warn("preview failed", zap.Error(err))
		} else if cfg.OpenMap {
			if err := preview.OpenInBrowser(ctx, cfg.MapPath); err != nil {
				log.Logger(ctx).Warn("open map failed", zap.Error(err))
			}
		}
	}

	in, out := cfg.Input, cfg.Output
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	scene, err := SelectScene(scenes, cfg.ItemID, cfg.Prompt, in, out)
	if errors.Is(err, ErrSkipped) {
		log.Logger(ctx).Info("selection skipped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("Process.SelectScene: %w", err)
	}
	ctx = log.With(ctx, "scene", scene.ID)
	log.Logger(ctx).Sugar().Infof("selected scene %s (%s)", scene.ID, scene.ItemType)

	if !cfg.Order {
		return nil
	}
	return processOrder(ctx, client, recorder, scene, area, cfg)
}

// processOrder submits the clip order, waits for a terminal state, downloads
// the result bundle and records the outcome in the order log.
func processOrder(ctx context.Context, client *planet.Client, recorder *orderlog.Recorder, scene common.Scene, area geom.Geometry, cfg Config) error {
	name := fmt.Sprintf("%s_%s", scene.ID, uuid.New().String()[:8])
	request, err := planet.NewClipOrder(name, scene, cfg.Bundle, area)
	if err != nil {
		return fmt.Errorf("processOrder.%w", err)
	}

	order, err := client.CreateOrder(ctx, request)
	if err != nil {
		return fmt.Errorf("processOrder.%w", err)
	}
	ctx = log.With(ctx, "order", order.ID)

	entry := common.OrderLogEntry{
		OrderID:  order.ID,
		SceneID:  scene.ID,
		ItemType: scene.ItemType,
		Bundle:   cfg.Bundle,
	}
	record := func() {
		entry.Time = time.Now().UTC()
		entry.Status = order.State
		// Best-effort: sink failures are warned inside Append
		recorder.Append(ctx, entry)
	}

	if order, err = client.WaitForOrder(ctx, order, cfg.PollInterval, cfg.MaxPolls); err != nil {
		entry.Message = err.Error()
		record()
		return fmt.Errorf("processOrder.%w", err)
	}
	if order.State != common.StatusSuccess {
		entry.Message = fmt.Sprintf("order reached terminal state %s", order.State)
		record()
		return fmt.Errorf("processOrder: order %s %s", order.ID, order.State)
	}

	zipPath, err := client.DownloadResults(ctx, order, cfg.DownloadDir)
	if err != nil {
		entry.Message = err.Error()
		record()
		return fmt.Errorf("processOrder.%w", err)
	}
	entry.OutputPath = zipPath
	record()
	// Manifest of the provider's order next to the archive
	if err := service.ToJSON(order, cfg.DownloadDir, order.Name+"_order.json"); err != nil {
		log.Logger(ctx).Warn("write order manifest", zap.Error(err))
	}
	log.Logger(ctx).Sugar().Infof("downloaded order %s to %s", order.ID, zipPath)
	return nil
}
