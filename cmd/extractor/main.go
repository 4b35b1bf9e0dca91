package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spatialops/planet-extractor/common"
	"github.com/spatialops/planet-extractor/extraction"
	"github.com/spatialops/planet-extractor/interface/planet"
	"github.com/spatialops/planet-extractor/orderlog"
	"github.com/spatialops/planet-extractor/service"
	"github.com/spatialops/planet-extractor/service/log"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type config struct {
	AOIPath string
	AOIEpsg int

	StartDate   time.Time
	EndDate     time.Time
	MaxCloud    float64
	MinNadir    float64
	MaxNadir    float64
	Instruments []string
	ItemTypes   []string

	Bundle      common.Bundle
	DownloadDir string
	OrdersText  string
	OrdersCSV   string
	OrdersJSONL string
	MapOut      string

	Preview bool
	OpenMap bool
	Prompt  bool
	Order   bool
	ItemID  string

	Verbosity int

	File fileConfig
}

// fileConfig holds the operational parameters that are only settable through
// the optional -config YAML file.
type fileConfig struct {
	DataEndpoint   string `yaml:"data_endpoint"`
	OrdersEndpoint string `yaml:"orders_endpoint"`
	PollIntervalS  int    `yaml:"poll_interval_s"`
	MaxPolls       int    `yaml:"max_polls"`
	RetryCount     int    `yaml:"retry_count"`
	ResultLimit    int    `yaml:"result_limit"`
}

// sliceFlag collects the values of a repeatable flag, unique, in order.
type sliceFlag struct {
	values []string
	seen   service.StringSet
}

func (f *sliceFlag) String() string { return strings.Join(f.values, ",") }

func (f *sliceFlag) Set(v string) error {
	if f.seen == nil {
		f.seen = service.StringSet{}
	}
	if v = strings.TrimSpace(v); v != "" && !f.seen.Exists(v) {
		f.seen.Push(v)
		f.values = append(f.values, v)
	}
	return nil
}

func newAppConfig() (*config, error) {
	config := config{File: fileConfig{
		DataEndpoint:   planet.DefaultDataEndpoint,
		OrdersEndpoint: planet.DefaultOrdersEndpoint,
		PollIntervalS:  30,
		MaxPolls:       20,
		RetryCount:     5,
		ResultLimit:    100,
	}}

	var instruments, itemTypes sliceFlag
	startDate := flag.String("start-date", "2020-09-01", "start of the acquisition date range (YYYY-MM-DD)")
	endDate := flag.String("end-date", "2020-12-31", "end of the acquisition date range (YYYY-MM-DD)")
	flag.Float64Var(&config.MaxCloud, "max-cloud", 0.10, "maximum cloud cover (0..1)")
	flag.Float64Var(&config.MinNadir, "min-nadir", -1.0, "minimum view angle (deg)")
	flag.Float64Var(&config.MaxNadir, "max-nadir", 1.0, "maximum view angle (deg)")
	flag.Var(&instruments, "instrument", "instrument code (repeatable, default PSB.SD)")
	flag.Var(&itemTypes, "item-type", "item type (repeatable, default PSScene)")
	bundle := flag.String("bundle", common.BundleVisual.String(), "product bundle, one of "+strings.Join(common.BundleStrings(), "|"))
	flag.StringVar(&config.DownloadDir, "download-dir", "./downloads", "directory for result archives")
	flag.StringVar(&config.OrdersText, "orders-text", "./orders/orders.log", "path of the text order log")
	flag.StringVar(&config.OrdersCSV, "orders-csv", "./orders/orders.csv", "path of the CSV order log")
	flag.StringVar(&config.OrdersJSONL, "orders-jsonl", "./orders/orders.jsonl", "path of the JSON-lines order log")
	flag.StringVar(&config.MapOut, "map-out", "./preview/search_preview_map.html", "path of the preview map artifact")
	flag.BoolVar(&config.Preview, "preview", false, "generate a footprint preview map")
	flag.BoolVar(&config.OpenMap, "open-map", false, "open the preview map in the default browser")
	flag.BoolVar(&config.Prompt, "prompt", false, "interactively pick the scene to order")
	flag.BoolVar(&config.Order, "order", false, "place a clip order for the selected scene")
	flag.StringVar(&config.ItemID, "item-id", "", "order this scene id instead of the first search result")
	flag.IntVar(&config.AOIEpsg, "aoi-epsg", 0, "EPSG code of the AOI file (overrides the CRS declared in the file)")
	flag.IntVar(&config.Verbosity, "v", 0, "verbosity level (0: warn, 1: info, 2: debug)")
	configFile := flag.String("config", "", "optional YAML file with endpoints/backoff settings")
	flag.Parse()

	if flag.NArg() != 1 {
		return nil, fmt.Errorf("expecting exactly one positional argument: the AOI file (GeoJSON or WKT)")
	}
	config.AOIPath = flag.Arg(0)

	if *configFile != "" {
		b, err := os.ReadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &config.File); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
	}

	var err error
	if config.StartDate, err = dateparse.ParseAny(*startDate); err != nil {
		return nil, fmt.Errorf("invalid start-date %q: %w", *startDate, err)
	}
	if config.EndDate, err = dateparse.ParseAny(*endDate); err != nil {
		return nil, fmt.Errorf("invalid end-date %q: %w", *endDate, err)
	}
	if !config.EndDate.After(config.StartDate) {
		return nil, fmt.Errorf("end-date must be after start-date")
	}
	if config.Bundle, err = common.BundleString(*bundle); err != nil {
		return nil, err
	}
	if config.Instruments = instruments.values; len(config.Instruments) == 0 {
		config.Instruments = []string{"PSB.SD"}
	}
	if config.ItemTypes = itemTypes.values; len(config.ItemTypes) == 0 {
		config.ItemTypes = []string{"PSScene"}
	}
	return &config, nil
}

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		log.Fatal("error", zap.Error(err))
	}
	log.Sync()
}

func run(ctx context.Context) error {
	config, err := newAppConfig()
	if err != nil {
		return err
	}
	log.Init(config.Verbosity)

	apikey := strings.TrimSpace(os.Getenv("PL_API_KEY"))
	if apikey == "" {
		return fmt.Errorf("environment variable PL_API_KEY is not set")
	}

	client := planet.NewClient(config.File.DataEndpoint, config.File.OrdersEndpoint, apikey)
	client.RetryCount = config.File.RetryCount
	recorder := &orderlog.Recorder{
		TextPath:  config.OrdersText,
		CSVPath:   config.OrdersCSV,
		JSONLPath: config.OrdersJSONL,
	}

	return extraction.Process(ctx, client, recorder, extraction.Config{
		AOIPath: config.AOIPath,
		AOIEpsg: config.AOIEpsg,
		Search: planet.SearchParams{
			StartDate:     config.StartDate,
			EndDate:       config.EndDate,
			MaxCloudCover: config.MaxCloud,
			MinViewAngle:  config.MinNadir,
			MaxViewAngle:  config.MaxNadir,
			Instruments:   config.Instruments,
			ItemTypes:     config.ItemTypes,
			ResultLimit:   config.File.ResultLimit,
		},
		Preview:      config.Preview,
		OpenMap:      config.OpenMap,
		MapPath:      config.MapOut,
		Prompt:       config.Prompt,
		ItemID:       config.ItemID,
		Order:        config.Order,
		Bundle:       config.Bundle,
		DownloadDir:  config.DownloadDir,
		PollInterval: time.Duration(config.File.PollIntervalS) * time.Second,
		MaxPolls:     config.File.MaxPolls,
	})
}
