package extraction_test

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/spatialops/planet-extractor/common"
	"github.com/spatialops/planet-extractor/extraction"
	"github.com/spatialops/planet-extractor/interface/planet"
	"github.com/spatialops/planet-extractor/orderlog"
)

// fakeProvider mimics the Data and Orders APIs for one clip order.
type fakeProvider struct {
	srv *httptest.Server

	features   string
	pollStates []common.Status

	searchCalls int
	orderCalls  int
	polls       int
	downloads   int
}

func (p *fakeProvider) handler(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/data/quick-search":
		p.searchCalls++
		fmt.Fprintf(w, `{"features": [%s]}`, p.features)

	case r.Method == http.MethodPost && r.URL.Path == "/orders":
		p.orderCalls++
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprintf(w, `{"id": "order-1", "name": "extract", "state": "queued",
			"_links": {"_self": %q}}`, p.srv.URL+"/orders/order-1")

	case r.Method == http.MethodGet && r.URL.Path == "/orders/order-1":
		state := p.pollStates[p.polls]
		if p.polls < len(p.pollStates)-1 {
			p.polls++
		}
		results := ""
		if state == common.StatusSuccess {
			results = fmt.Sprintf(`, "results": [{"name": "files/scene_clip.tif", "location": %q}]`,
				p.srv.URL+"/assets/scene_clip.tif")
		}
		fmt.Fprintf(w, `{"id": "order-1", "name": "extract", "state": %q,
			"_links": {"_self": %q%s}}`, state, p.srv.URL+"/orders/order-1", results)

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/assets/"):
		p.downloads++
		fmt.Fprint(w, "clipped raster bytes")

	default:
		http.NotFound(w, r)
	}
}

var _ = Describe("Process", func() {
	var (
		ctx      context.Context
		provider *fakeProvider
		client   *planet.Client
		recorder *orderlog.Recorder
		workdir  string
		cfg      extraction.Config
	)

	scene := `{"id": "scene-1",
		"geometry": {"type": "Polygon", "coordinates": [[[10,45],[11,45],[11,46],[10,46],[10,45]]]},
		"properties": {"acquired": "2020-10-01T10:00:00Z", "cloud_cover": 0.03, "view_angle": 0.2,
			"instrument": "PSB.SD", "item_type": "PSScene"}}`

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		workdir, err = os.MkdirTemp("", "extraction")
		Expect(err).NotTo(HaveOccurred())

		aoiPath := filepath.Join(workdir, "aoi.wkt")
		Expect(os.WriteFile(aoiPath, []byte("POLYGON((10 45,11 45,11 46,10 46,10 45))"), 0644)).To(Succeed())

		provider = &fakeProvider{
			features:   scene,
			pollStates: []common.Status{common.StatusQueued, common.StatusRunning, common.StatusSuccess},
		}
		provider.srv = httptest.NewServer(http.HandlerFunc(provider.handler))

		client = planet.NewClient(provider.srv.URL+"/data", provider.srv.URL+"/orders", "key")
		recorder = &orderlog.Recorder{
			TextPath:  filepath.Join(workdir, "orders", "orders.log"),
			CSVPath:   filepath.Join(workdir, "orders", "orders.csv"),
			JSONLPath: filepath.Join(workdir, "orders", "orders.jsonl"),
		}
		cfg = extraction.Config{
			AOIPath: aoiPath,
			Search: planet.SearchParams{
				StartDate:     time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC),
				EndDate:       time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
				MaxCloudCover: 0.1,
				MinViewAngle:  -1,
				MaxViewAngle:  1,
				Instruments:   []string{"PSB.SD"},
				ItemTypes:     []string{"PSScene"},
			},
			Order:        true,
			Bundle:       common.BundleVisual,
			DownloadDir:  filepath.Join(workdir, "downloads"),
			PollInterval: time.Millisecond,
			MaxPolls:     10,
		}
	})

	AfterEach(func() {
		provider.srv.Close()
		os.RemoveAll(workdir)
	})

	readCSV := func() [][]string {
		f, err := os.Open(recorder.CSVPath)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()
		rows, err := csv.NewReader(f).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		return rows
	}

	Context("with one matching scene", func() {
		It("orders, downloads and records exactly once", func() {
			Expect(extraction.Process(ctx, client, recorder, cfg)).To(Succeed())

			Expect(provider.searchCalls).To(Equal(1))
			Expect(provider.orderCalls).To(Equal(1))
			Expect(provider.polls).To(Equal(2))
			Expect(provider.downloads).To(Equal(1))

			entries, err := os.ReadDir(cfg.DownloadDir)
			Expect(err).NotTo(HaveOccurred())
			// the archive and the order manifest
			Expect(entries).To(HaveLen(2))
			names := []string{entries[0].Name(), entries[1].Name()}
			Expect(names).To(ContainElement(SatisfyAll(HavePrefix("scene-1_"), HaveSuffix("_bundle.zip"))))
			Expect(names).To(ContainElement(HaveSuffix("_order.json")))

			rows := readCSV()
			Expect(rows).To(HaveLen(2))
			Expect(rows[1][1]).To(Equal("order-1"))
			Expect(rows[1][2]).To(Equal("scene-1"))
			Expect(rows[1][5]).To(Equal("success"))
			Expect(rows[1][6]).To(HaveSuffix("_bundle.zip"))

			text, err := os.ReadFile(recorder.TextPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.Count(string(text), "order=order-1")).To(Equal(1))

			jsonl, err := os.ReadFile(recorder.JSONLPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.Count(strings.TrimSpace(string(jsonl)), "\n")).To(Equal(0))
			Expect(string(jsonl)).To(ContainSubstring(`"order_id":"order-1"`))
		})

		It("stops after the selection when ordering is disabled", func() {
			cfg.Order = false
			Expect(extraction.Process(ctx, client, recorder, cfg)).To(Succeed())
			Expect(provider.orderCalls).To(BeZero())
			_, err := os.Stat(recorder.CSVPath)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("does not order when the user skips", func() {
			cfg.Prompt = true
			cfg.Input = strings.NewReader("s\n")
			cfg.Output = GinkgoWriter
			Expect(extraction.Process(ctx, client, recorder, cfg)).To(Succeed())
			Expect(provider.orderCalls).To(BeZero())
		})

		It("renders the preview map as a side effect", func() {
			cfg.Preview = true
			cfg.MapPath = filepath.Join(workdir, "preview", "map.html")
			Expect(extraction.Process(ctx, client, recorder, cfg)).To(Succeed())
			html, err := os.ReadFile(cfg.MapPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(html)).To(ContainSubstring("scene-1"))
		})
	})

	Context("with no matching scene", func() {
		BeforeEach(func() {
			provider.features = ""
		})

		It("fails without placing an order", func() {
			err := extraction.Process(ctx, client, recorder, cfg)
			Expect(err).To(MatchError(extraction.ErrEmptyResult))
			Expect(provider.orderCalls).To(BeZero())
			_, err = os.Stat(recorder.CSVPath)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})

	Context("with a failing order", func() {
		BeforeEach(func() {
			provider.pollStates = []common.Status{common.StatusQueued, common.StatusFailed}
		})

		It("records the failure and downloads nothing", func() {
			err := extraction.Process(ctx, client, recorder, cfg)
			Expect(err).To(HaveOccurred())
			Expect(provider.downloads).To(BeZero())

			rows := readCSV()
			Expect(rows).To(HaveLen(2))
			Expect(rows[1][5]).To(Equal("failed"))
			Expect(rows[1][6]).To(BeEmpty())

			_, err = os.Stat(cfg.DownloadDir)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})

	Context("with an order stuck in a non terminal state", func() {
		BeforeEach(func() {
			provider.pollStates = []common.Status{common.StatusRunning}
			cfg.MaxPolls = 3
		})

		It("gives up after the poll budget and records the last state", func() {
			err := extraction.Process(ctx, client, recorder, cfg)
			var budgetErr planet.ErrPollBudget
			Expect(errors.As(err, &budgetErr)).To(BeTrue(), "expected ErrPollBudget, got %v", err)
			Expect(budgetErr.Attempts).To(Equal(3))
			Expect(provider.downloads).To(BeZero())

			rows := readCSV()
			Expect(rows).To(HaveLen(2))
			Expect(rows[1][5]).To(Equal("running"))
		})
	})
})
