// Package preview renders the AOI and the scene footprints into a static
// HTML map artifact. The map deliberately carries no provider tile layers,
// only outlines, so opening it issues no request against the imagery API.
package preview

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/go-spatial/geom"
	"github.com/spatialops/planet-extractor/common"
	"github.com/spatialops/planet-extractor/service"
	"github.com/spatialops/planet-extractor/service/log"
)

type footprint struct {
	ID         string
	Acquired   string
	CloudCover float64
	ItemType   string
	GeoJSON    template.JS
}

type mapData struct {
	AOI        template.JS
	Footprints []footprint
}

var mapTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8"/>
<title>scene footprints</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"/>
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html,body,#map{height:100%;margin:0}</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map');
var aoi = L.geoJSON({{.AOI}}, {style: {fillOpacity: 0, color: 'blue', weight: 3, dashArray: '5, 5'}}).addTo(map);
var overlays = {"AOI": aoi};
{{range .Footprints}}
overlays["{{.ID}}"] = L.geoJSON({{.GeoJSON}}, {style: {fillOpacity: 0, color: 'red', weight: 1}})
  .bindPopup("{{.ID}}<br/>{{.Acquired}}<br/>CC={{.CloudCover}}<br/>{{.ItemType}}")
  .addTo(map);
{{end}}
L.control.layers(null, overlays).addTo(map);
map.fitBounds(aoi.getBounds());
</script>
</body>
</html>
`))

// RenderMap writes the preview artifact to outHTML.
func RenderMap(ctx context.Context, aoi geom.Geometry, scenes []common.Scene, outHTML string) error {
	aoiJSON, err := service.MarshalGeometry(aoi)
	if err != nil {
		return fmt.Errorf("RenderMap.%w", err)
	}
	data := mapData{AOI: template.JS(aoiJSON)}
	for _, scene := range scenes {
		if scene.Footprint == nil {
			continue
		}
		fpJSON, err := service.MarshalGeometry(scene.Footprint)
		if err != nil {
			return fmt.Errorf("RenderMap[%s].%w", scene.ID, err)
		}
		data.Footprints = append(data.Footprints, footprint{
			ID:         scene.ID,
			Acquired:   scene.Acquired.Format("2006-01-02 15:04:05"),
			CloudCover: scene.CloudCover,
			ItemType:   scene.ItemType,
			GeoJSON:    template.JS(fpJSON),
		})
	}

	if err := os.MkdirAll(filepath.Dir(outHTML), 0766); err != nil {
		return fmt.Errorf("RenderMap.MkdirAll: %w", err)
	}
	f, err := os.Create(outHTML)
	if err != nil {
		return fmt.Errorf("RenderMap.Create: %w", err)
	}
	defer f.Close()
	if err := mapTemplate.Execute(f, data); err != nil {
		return fmt.Errorf("RenderMap.Execute: %w", err)
	}
	log.Logger(ctx).Sugar().Infof("saved preview map to %s", outHTML)
	return nil
}

// OpenInBrowser opens the artifact with the platform's default browser.
func OpenInBrowser(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("OpenInBrowser.Abs: %w", err)
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", abs)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", abs)
	default:
		cmd = exec.Command("xdg-open", abs)
	}
	if err := log.Exec(ctx, cmd); err != nil {
		return fmt.Errorf("OpenInBrowser: %w", err)
	}
	return nil
}
