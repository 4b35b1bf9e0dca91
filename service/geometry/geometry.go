package geometry

import (
	"fmt"

	"github.com/go-spatial/geom"
	geomwkt "github.com/go-spatial/geom/encoding/wkt"
	"github.com/paulsmith/gogeos/geos"
	"github.com/wroge/wgs84"
)

var TOLERANCE_GEOG = 0.000001

// Generates a geom.Geometry from a geos.Geometry
func GeosToGeom(g *geos.Geometry) (geom.Geometry, error) {
	wkt, err := g.ToWKT()
	if err != nil {
		return nil, fmt.Errorf("GeosToGeom.ToWKT: %w", err)
	}
	geometry, err := geomwkt.DecodeString(wkt)
	if err != nil {
		return nil, fmt.Errorf("GeosToGeom.DecodeString: %w", err)
	}

	return geometry, nil
}

// Generates a geos.Geometry from a geom.Geometry
func GeomToGeos(g geom.Geometry) (*geos.Geometry, error) {
	geometry, err := geos.FromWKT(geomwkt.MustEncode(g))
	if err != nil {
		return nil, fmt.Errorf("GeomToGeos.FromWKT: %w", err)
	}
	return geometry, nil
}

func Union(geoms []*geos.Geometry, tolerance float64) (*geos.Geometry, error) {
	aoi, err := UnaryUnion(geoms)
	if err == nil {
		if aoi, err = aoi.Simplify(tolerance); err != nil {
			return nil, fmt.Errorf("Union.Simplify: %w", err)
		}
		return aoi, nil
	}
	// Union all failed, retry one by one with simplify
	for _, geom := range geoms {
		if geom, err = geom.Simplify(tolerance); err != nil {
			return nil, fmt.Errorf("Union.Simplify: %w", err)
		}
		if aoi, err = geom.Union(aoi); err != nil {
			return nil, fmt.Errorf("Union: %w", err)
		}
	}
	return aoi, nil
}

func UnaryUnion(geoms []*geos.Geometry) (*geos.Geometry, error) {
	aoi, err := geos.NewCollection(geos.MULTIPOLYGON, geoms...)
	if err != nil {
		return nil, fmt.Errorf("UnaryUnion.NewCollection: %w", err)
	}
	if aoi, err = aoi.UnaryUnion(); err != nil {
		return nil, fmt.Errorf("UnaryUnion.UnaryUnion: %w", err)
	}
	return aoi, nil
}

// ToWGS84 reprojects the geometry from the given EPSG code to EPSG:4326.
// The geometry is returned unchanged if it is already in 4326.
func ToWGS84(g geom.Geometry, epsg int) (geom.Geometry, error) {
	if epsg == 4326 {
		return g, nil
	}
	from := wgs84.EPSG().Code(epsg)
	if from == nil {
		return nil, fmt.Errorf("ToWGS84: unsupported CRS EPSG:%d", epsg)
	}
	transform := wgs84.Transform(from, wgs84.LonLat())
	pt := func(p [2]float64) [2]float64 {
		lon, lat, _ := transform(p[0], p[1], 0)
		return [2]float64{lon, lat}
	}
	return mapPoints(g, pt)
}

func mapPoints(g geom.Geometry, pt func([2]float64) [2]float64) (geom.Geometry, error) {
	switch g := g.(type) {
	case geom.Point:
		return geom.Point(pt(g)), nil
	case geom.MultiPoint:
		return geom.MultiPoint(mapRing(g, pt)), nil
	case geom.LineString:
		return geom.LineString(mapRing(g, pt)), nil
	case geom.MultiLineString:
		return geom.MultiLineString(mapRings(g, pt)), nil
	case geom.Polygon:
		return geom.Polygon(mapRings(g, pt)), nil
	case geom.MultiPolygon:
		mp := make(geom.MultiPolygon, len(g))
		for i, p := range g {
			mp[i] = mapRings(p, pt)
		}
		return mp, nil
	case geom.Collection:
		c := make(geom.Collection, len(g))
		for i, sub := range g {
			sg, err := mapPoints(sub, pt)
			if err != nil {
				return nil, err
			}
			c[i] = sg
		}
		return c, nil
	default:
		return nil, fmt.Errorf("mapPoints: unsupported geometry type %T", g)
	}
}

func mapRing(ring [][2]float64, pt func([2]float64) [2]float64) [][2]float64 {
	out := make([][2]float64, len(ring))
	for i, p := range ring {
		out[i] = pt(p)
	}
	return out
}

func mapRings(rings [][][2]float64, pt func([2]float64) [2]float64) [][][2]float64 {
	out := make([][][2]float64, len(rings))
	for i, r := range rings {
		out[i] = mapRing(r, pt)
	}
	return out
}
