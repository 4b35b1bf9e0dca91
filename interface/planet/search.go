package planet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-spatial/geom"
	"github.com/spatialops/planet-extractor/common"
	"github.com/spatialops/planet-extractor/service"
	"github.com/spatialops/planet-extractor/service/log"
)

// SearchParams narrows a quick-search.
type SearchParams struct {
	StartDate     time.Time
	EndDate       time.Time
	MaxCloudCover float64 // 0..1
	MinViewAngle  float64 // degrees
	MaxViewAngle  float64 // degrees
	Instruments   []string
	ItemTypes     []string
	ResultLimit   int // cap on returned scenes, 0 for no cap
}

type filter struct {
	Type      string      `json:"type"`
	FieldName string      `json:"field_name,omitempty"`
	Config    interface{} `json:"config"`
}

func buildFilters(aoi json.RawMessage, params SearchParams) filter {
	return filter{
		Type: "AndFilter",
		Config: []filter{
			{Type: "GeometryFilter", FieldName: "geometry", Config: aoi},
			{Type: "DateRangeFilter", FieldName: "acquired", Config: map[string]string{
				"gt": params.StartDate.UTC().Format("2006-01-02") + "T00:00:00Z",
				"lt": params.EndDate.UTC().Format("2006-01-02") + "T00:00:00Z",
			}},
			{Type: "RangeFilter", FieldName: "cloud_cover", Config: map[string]float64{
				"lt": params.MaxCloudCover,
			}},
			{Type: "RangeFilter", FieldName: "view_angle", Config: map[string]float64{
				"gt":  params.MinViewAngle,
				"lte": params.MaxViewAngle,
			}},
			{Type: "StringInFilter", FieldName: "instrument", Config: params.Instruments},
		},
	}
}

type searchResponse struct {
	Features []struct {
		ID         string          `json:"id"`
		Geometry   json.RawMessage `json:"geometry"`
		Properties struct {
			Acquired   string  `json:"acquired"`
			CloudCover float64 `json:"cloud_cover"`
			ViewAngle  float64 `json:"view_angle"`
			Instrument string  `json:"instrument"`
			ItemType   string  `json:"item_type"`
		} `json:"properties"`
	} `json:"features"`
}

// QuickSearch issues one search request over the AOI and returns the scenes
// in the provider's order. 4xx responses are surfaced as APIError without
// retry, transient errors are retried up to the client's budget.
func (c *Client) QuickSearch(ctx context.Context, aoi geom.Geometry, params SearchParams) ([]common.Scene, error) {
	aoiJSON, err := service.MarshalGeometry(aoi)
	if err != nil {
		return nil, fmt.Errorf("QuickSearch.%w", err)
	}
	payload, err := json.Marshal(map[string]interface{}{
		"item_types": params.ItemTypes,
		"filter":     buildFilters(aoiJSON, params),
	})
	if err != nil {
		return nil, fmt.Errorf("QuickSearch.Marshal: %w", err)
	}

	log.Logger(ctx).Sugar().Infof("searching %v items acquired %s..%s",
		params.ItemTypes, params.StartDate.Format("2006-01-02"), params.EndDate.Format("2006-01-02"))

	var body []byte
	if err := service.Retriable(ctx, func() error {
		req, err := c.newRequest(http.MethodPost, c.DataEndpoint+"/quick-search", bytes.NewReader(payload))
		if err != nil {
			return service.MakeFatal(err)
		}
		body, err = c.doOnce(req.WithContext(ctx), http.StatusOK)
		return err
	}, time.Second, c.RetryCount); err != nil {
		return nil, fmt.Errorf("QuickSearch: %w", err)
	}

	var results searchResponse
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("QuickSearch.Unmarshal: %w", err)
	}

	scenes := make([]common.Scene, 0, len(results.Features))
	for _, feature := range results.Features {
		if params.ResultLimit > 0 && len(scenes) >= params.ResultLimit {
			break
		}
		acquired, err := dateparse.ParseAny(feature.Properties.Acquired)
		if err != nil {
			return nil, fmt.Errorf("QuickSearch: failed to parse acquired date of %s: %w", feature.ID, err)
		}
		footprint, err := service.UnmarshalGeometry(feature.Geometry)
		if err != nil {
			return nil, fmt.Errorf("QuickSearch: failed to parse footprint of %s: %w", feature.ID, err)
		}
		scenes = append(scenes, common.Scene{
			ID:         feature.ID,
			ItemType:   feature.Properties.ItemType,
			Instrument: feature.Properties.Instrument,
			Acquired:   acquired,
			CloudCover: feature.Properties.CloudCover,
			ViewAngle:  feature.Properties.ViewAngle,
			Footprint:  footprint,
		})
	}
	log.Logger(ctx).Sugar().Infof("found %d scenes", len(scenes))
	return scenes, nil
}

// doOnce executes the request and returns the body on the expected status.
// 5xx and connection errors are temporary, other statuses fatal APIErrors.
func (c *Client) doOnce(req *http.Request, expected int) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, service.MakeTemporary(fmt.Errorf("failed to execute http request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, service.MakeTemporary(fmt.Errorf("failed to read body response: %w", err))
	}
	if resp.StatusCode != expected {
		apiErr := APIError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
		if resp.StatusCode >= 500 {
			return nil, service.MakeTemporary(apiErr)
		}
		return nil, service.MakeFatal(apiErr)
	}
	return body, nil
}
