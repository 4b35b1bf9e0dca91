// Package aoi loads the area of interest from a vector file and normalizes
// it to a single EPSG:4326 geometry.
package aoi

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-spatial/geom"
	geomwkt "github.com/go-spatial/geom/encoding/wkt"
	"github.com/paulsmith/gogeos/geos"
	"github.com/spatialops/planet-extractor/service"
	"github.com/spatialops/planet-extractor/service/geometry"
	"github.com/spatialops/planet-extractor/service/log"
)

// ErrFileFormat is returned when the AOI file cannot be read as a supported
// vector format (GeoJSON or WKT) or contains no usable geometry.
type ErrFileFormat struct {
	Path   string
	Reason string
}

func (e ErrFileFormat) Error() string {
	return fmt.Sprintf("unreadable AOI %s: %s", e.Path, e.Reason)
}

// Load reads the vector file, merges all features into one geometry and
// reprojects it to EPSG:4326. epsgOverride, when non-zero, takes precedence
// over the CRS declared in the file (WKT files have none and default to 4326).
func Load(ctx context.Context, path string, epsgOverride int) (geom.Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrFileFormat{path, err.Error()}
	}

	var g geom.Geometry
	epsg := 4326
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wkt", ".txt":
		if g, err = geomwkt.DecodeString(strings.TrimSpace(string(data))); err != nil {
			return nil, ErrFileFormat{path, fmt.Sprintf("decode WKT: %v", err)}
		}
	default:
		if g, err = service.UnmarshalGeometry(data); err != nil {
			return nil, ErrFileFormat{path, fmt.Sprintf("decode GeoJSON: %v", err)}
		}
		if epsg, err = crsOf(data); err != nil {
			return nil, ErrFileFormat{path, err.Error()}
		}
	}
	if epsgOverride != 0 {
		epsg = epsgOverride
	}

	if g, err = validate(g); err != nil {
		return nil, ErrFileFormat{path, err.Error()}
	}

	if epsg != 4326 {
		log.Logger(ctx).Sugar().Debugf("reprojecting AOI from EPSG:%d to EPSG:4326", epsg)
		if g, err = geometry.ToWGS84(g, epsg); err != nil {
			return nil, ErrFileFormat{path, err.Error()}
		}
	}
	return g, nil
}

// validate merges the features into one geometry and fixes minor invalidities.
func validate(g geom.Geometry) (geom.Geometry, error) {
	if g == nil {
		return nil, fmt.Errorf("empty geometry")
	}
	if mp, ok := g.(geom.MultiPolygon); ok && len(mp) == 0 {
		return nil, fmt.Errorf("empty geometry")
	}

	var geoms []*geos.Geometry
	if mp, ok := g.(geom.MultiPolygon); ok {
		for _, p := range mp {
			gp, err := geometry.GeomToGeos(geom.Polygon(p))
			if err != nil {
				return nil, err
			}
			geoms = append(geoms, gp)
		}
	} else {
		gg, err := geometry.GeomToGeos(g)
		if err != nil {
			return nil, err
		}
		geoms = append(geoms, gg)
	}
	gg, err := geometry.Union(geoms, geometry.TOLERANCE_GEOG)
	if err != nil {
		return nil, fmt.Errorf("union: %w", err)
	}
	if valid, err := gg.IsValid(); err != nil {
		return nil, err
	} else if !valid {
		if gg, err = gg.Buffer(0); err != nil {
			return nil, fmt.Errorf("geometry is invalid and could not be fixed: %w", err)
		}
		if valid, err := gg.IsValid(); err != nil || !valid {
			return nil, fmt.Errorf("geometry is invalid and could not be fixed")
		}
	}
	if empty, err := gg.IsEmpty(); err != nil {
		return nil, err
	} else if empty {
		return nil, fmt.Errorf("empty geometry")
	}
	return geometry.GeosToGeom(gg)
}

// crsOf extracts the EPSG code of the legacy GeoJSON crs member
// ("urn:ogc:def:crs:EPSG::n" or "EPSG:n"). GeoJSON without one is 4326.
func crsOf(data []byte) (int, error) {
	var doc struct {
		CRS *struct {
			Properties struct {
				Name string `json:"name"`
			} `json:"properties"`
		} `json:"crs"`
	}
	if err := json.Unmarshal(data, &doc); err != nil || doc.CRS == nil {
		return 4326, nil
	}
	name := doc.CRS.Properties.Name
	if strings.EqualFold(name, "urn:ogc:def:crs:OGC:1.3:CRS84") {
		return 4326, nil
	}
	code := name[strings.LastIndex(name, ":")+1:]
	epsg, err := strconv.Atoi(code)
	if err != nil {
		return 0, fmt.Errorf("unsupported CRS %q", name)
	}
	return epsg, nil
}
