package aoi

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-spatial/geom"
)

const aoi3857 = `{
  "type": "FeatureCollection",
  "crs": {"type": "name", "properties": {"name": "urn:ogc:def:crs:EPSG::3857"}},
  "features": [{
    "type": "Feature",
    "properties": {},
    "geometry": {"type": "Polygon", "coordinates": [[
      [1113194.9079327357, 5621521.486192066],
      [1224514.3987260093, 5621521.486192066],
      [1224514.3987260093, 5780349.220256319],
      [1113194.9079327357, 5780349.220256319],
      [1113194.9079327357, 5621521.486192066]
    ]]}
  }]
}`

func writeAOI(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("%v", err)
	}
	return path
}

func TestLoadReprojects(t *testing.T) {
	g, err := Load(context.Background(), writeAOI(t, "aoi.geojson", aoi3857), 0)
	if err != nil {
		t.Fatalf("%v", err)
	}
	ext, err := geom.NewExtentFromGeometry(g)
	if err != nil {
		t.Fatalf("%v", err)
	}
	for expected, got := range map[float64]float64{10: ext.MinX(), 45: ext.MinY(), 11: ext.MaxX(), 46: ext.MaxY()} {
		if math.Abs(expected-got) > 1e-6 {
			t.Errorf("expected bound %g, got %g", expected, got)
		}
	}
}

func TestLoadWKT(t *testing.T) {
	g, err := Load(context.Background(), writeAOI(t, "aoi.wkt", "POLYGON((10 45,11 45,11 46,10 46,10 45))"), 0)
	if err != nil {
		t.Fatalf("%v", err)
	}
	ext, err := geom.NewExtentFromGeometry(g)
	if err != nil {
		t.Fatalf("%v", err)
	}
	if math.Abs(ext.MinX()-10) > 1e-9 || math.Abs(ext.MaxY()-46) > 1e-9 {
		t.Errorf("unexpected extent %v", ext)
	}
}

func TestLoadUnionsFeatures(t *testing.T) {
	const twoFeatures = `{
	  "type": "FeatureCollection",
	  "features": [
	    {"type": "Feature", "properties": {}, "geometry": {"type": "Polygon",
	      "coordinates": [[[10,45],[10.6,45],[10.6,46],[10,46],[10,45]]]}},
	    {"type": "Feature", "properties": {}, "geometry": {"type": "Polygon",
	      "coordinates": [[[10.4,45],[11,45],[11,46],[10.4,46],[10.4,45]]]}}
	  ]
	}`
	g, err := Load(context.Background(), writeAOI(t, "two.geojson", twoFeatures), 0)
	if err != nil {
		t.Fatalf("%v", err)
	}
	// overlapping features merge into one polygon covering both
	if _, ok := g.(geom.Polygon); !ok {
		t.Errorf("expected a single polygon, got %T", g)
	}
	ext, err := geom.NewExtentFromGeometry(g)
	if err != nil {
		t.Fatalf("%v", err)
	}
	for expected, got := range map[float64]float64{10: ext.MinX(), 45: ext.MinY(), 11: ext.MaxX(), 46: ext.MaxY()} {
		if math.Abs(expected-got) > 1e-6 {
			t.Errorf("expected bound %g, got %g", expected, got)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	var ffe ErrFileFormat
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.geojson"), 0)
	if !errors.As(err, &ffe) {
		t.Fatalf("expected ErrFileFormat, got %v", err)
	}
}

func TestLoadEmptyGeometry(t *testing.T) {
	var ffe ErrFileFormat
	_, err := Load(context.Background(), writeAOI(t, "empty.geojson", `{"type": "FeatureCollection", "features": []}`), 0)
	if !errors.As(err, &ffe) {
		t.Fatalf("expected ErrFileFormat, got %v", err)
	}
}

func TestLoadGarbage(t *testing.T) {
	var ffe ErrFileFormat
	_, err := Load(context.Background(), writeAOI(t, "garbage.geojson", "not a geometry"), 0)
	if !errors.As(err, &ffe) {
		t.Fatalf("expected ErrFileFormat, got %v", err)
	}
}
