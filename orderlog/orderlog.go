// Package orderlog appends order outcomes to three parallel sinks: a human
// readable text file, a CSV file and a JSON-lines file.
package orderlog

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spatialops/planet-extractor/common"
	"github.com/spatialops/planet-extractor/service"
	"github.com/spatialops/planet-extractor/service/log"
	"go.uber.org/zap"
)

var csvHeader = []string{"time", "order_id", "scene_id", "item_type", "bundle", "status", "output_path", "message"}

// Recorder writes one record per order outcome to each configured sink.
// Sinks fail independently: a write error on one sink never blocks the
// others and never aborts the run.
type Recorder struct {
	TextPath  string
	CSVPath   string
	JSONLPath string
}

// Append writes the entry to every sink, best-effort. The returned error
// merges the per-sink failures and is informational only.
func (r *Recorder) Append(ctx context.Context, entry common.OrderLogEntry) error {
	var err error
	for _, sink := range []struct {
		name  string
		path  string
		write func(*os.File, common.OrderLogEntry) error
	}{
		{"text", r.TextPath, appendText},
		{"csv", r.CSVPath, appendCSV},
		{"jsonl", r.JSONLPath, appendJSONL},
	} {
		if sink.path == "" {
			continue
		}
		if e := appendTo(sink.path, entry, sink.write); e != nil {
			e = fmt.Errorf("orderlog[%s]: %w", sink.name, e)
			log.Logger(ctx).Warn("order log sink failed", zap.Error(e))
			err = service.MergeErrors(true, err, e)
		}
	}
	return err
}

// appendTo opens the sink, appends one record and closes it. The handle is
// scoped to the append so a crash never leaves it open.
func appendTo(path string, entry common.OrderLogEntry, write func(*os.File, common.OrderLogEntry) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0766); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	if err := write(f, entry); err != nil {
		return err
	}
	return f.Sync()
}

func appendText(f *os.File, entry common.OrderLogEntry) error {
	_, err := fmt.Fprintf(f, "%s | order=%s scene=%s item_type=%s bundle=%s status=%s output=%s %s\n",
		entry.Time.Format(time.RFC3339), entry.OrderID, entry.SceneID, entry.ItemType,
		entry.Bundle, entry.Status, entry.OutputPath, entry.Message)
	return err
}

func appendCSV(f *os.File, entry common.OrderLogEntry) error {
	w := csv.NewWriter(f)
	if fi, err := f.Stat(); err != nil {
		return err
	} else if fi.Size() == 0 {
		// header only when the file did not previously exist
		if err := w.Write(csvHeader); err != nil {
			return err
		}
	}
	if err := w.Write([]string{
		entry.Time.Format(time.RFC3339),
		entry.OrderID,
		entry.SceneID,
		entry.ItemType,
		entry.Bundle.String(),
		entry.Status.String(),
		entry.OutputPath,
		entry.Message,
	}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func appendJSONL(f *os.File, entry common.OrderLogEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = f.Write(append(b, '\n'))
	return err
}
