package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/somacore/soma/internal/domain/model"
	"github.com/somacore/soma/internal/domain/types"
	logging "github.com/somacore/soma/pkg/logger"
)

// fakeDeps is a canned Dependencies implementation for handler tests.
type fakeDeps struct {
	ingested   []model.Sample
	ingestErr  error
	score      types.ScoreView
	scoreFound bool
	scoreErr   error
	history    []types.ScoreView
	historyErr error
	freshness  types.FreshnessView
	baseline   types.BaselineView
	badKindErr error
}

func (f *fakeDeps) Ingest(_ context.Context, batch []model.Sample) (int, int, error) {
	if f.ingestErr != nil {
		return 0, 0, f.ingestErr
	}
	f.ingested = append(f.ingested, batch...)
	return len(batch), 0, nil
}

func (f *fakeDeps) Score(_ context.Context, kind, _ string) (types.ScoreView, bool, error) {
	if f.scoreErr != nil {
		return types.ScoreView{}, false, f.scoreErr
	}
	if !model.ScoreKind(kind).Valid() {
		return types.ScoreView{}, false, f.unknownKind(kind)
	}
	return f.score, f.scoreFound, nil
}

func (f *fakeDeps) History(_ context.Context, kind string, _, _ int) ([]types.ScoreView, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	if !model.ScoreKind(kind).Valid() {
		return nil, f.unknownKind(kind)
	}
	return f.history, nil
}

func (f *fakeDeps) Freshness(_ context.Context, kind, _ string) (types.FreshnessView, error) {
	if !model.ScoreKind(kind).Valid() {
		return types.FreshnessView{}, f.unknownKind(kind)
	}
	return f.freshness, nil
}

func (f *fakeDeps) Baseline(_ context.Context, metric, _ string) (types.BaselineView, error) {
	if !model.MetricKind(metric).Valid() {
		return types.BaselineView{}, f.unknownKind(metric)
	}
	return f.baseline, nil
}

func (f *fakeDeps) unknownKind(kind string) error {
	if f.badKindErr != nil {
		return f.badKindErr
	}
	return errors.New("unknown kind: " + kind)
}

// fakeStats satisfies StatsProvider.
type fakeStats struct{}

func (fakeStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "sampleCount": 3}
}

func newTestServer(deps *fakeDeps) *httptest.Server {
	mux := http.NewServeMux()
	NewServer(deps, fakeStats{}).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func getURL(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestPostSamples(t *testing.T) {
	_ = logging.Init()

	Convey("Given a running API server", t, func() {
		deps := &fakeDeps{}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When posting a valid batch", func() {
			body := `{"samples":[
				{"kind":"hrv","ts":"2026-03-11T06:30:00Z","value":55},
				{"kind":"rhr","ts":"2026-03-11T06:30:00Z","value":48}
			]}`
			resp := postJSON(t, srv.URL+"/v1/samples", body)

			Convey("Then the batch is accepted", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
				var out ingestResponse
				decodeBody(t, resp, &out)
				So(out.Status, ShouldEqual, "accepted")
				So(out.Accepted, ShouldEqual, 2)
				So(out.Duplicates, ShouldEqual, 0)
				So(len(deps.ingested), ShouldEqual, 2)
				So(deps.ingested[0].Kind, ShouldEqual, model.MetricHRV)
			})
		})

		Convey("When posting an empty batch", func() {
			resp := postJSON(t, srv.URL+"/v1/samples", `{"samples":[]}`)

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				var out errorResponse
				decodeBody(t, resp, &out)
				So(out.Code, ShouldEqual, "bad_request")
			})
		})

		Convey("When posting malformed JSON", func() {
			resp := postJSON(t, srv.URL+"/v1/samples", `{"samples":[`)

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				_ = resp.Body.Close()
			})
		})

		Convey("When a sample has an unknown kind", func() {
			body := `{"samples":[{"kind":"blood_glucose","ts":"2026-03-11T06:30:00Z","value":5}]}`
			resp := postJSON(t, srv.URL+"/v1/samples", body)

			Convey("Then the batch is rejected with the offending index", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				var out errorResponse
				decodeBody(t, resp, &out)
				So(out.Message, ShouldContainSubstring, "sample 0")
				So(out.Message, ShouldContainSubstring, "unknown kind")
			})
		})

		Convey("When a sample has a malformed timestamp", func() {
			body := `{"samples":[{"kind":"hrv","ts":"yesterday","value":5}]}`
			resp := postJSON(t, srv.URL+"/v1/samples", body)

			Convey("Then the batch is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				var out errorResponse
				decodeBody(t, resp, &out)
				So(out.Message, ShouldContainSubstring, "RFC3339")
			})
		})

		Convey("When ingestion fails internally", func() {
			deps.ingestErr = errors.New("store unavailable")
			body := `{"samples":[{"kind":"hrv","ts":"2026-03-11T06:30:00Z","value":55}]}`
			resp := postJSON(t, srv.URL+"/v1/samples", body)

			Convey("Then a server error is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusInternalServerError)
				_ = resp.Body.Close()
			})
		})

		Convey("When using GET on the samples endpoint", func() {
			resp := getURL(t, srv.URL+"/v1/samples")

			Convey("Then the method is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
				_ = resp.Body.Close()
			})
		})
	})
}

func TestGetScore(t *testing.T) {
	_ = logging.Init()

	Convey("Given a server with a cached recovery score", t, func() {
		deps := &fakeDeps{
			score: types.ScoreView{
				Kind:    "recovery",
				Day:     "2026-03-11",
				Overall: 82,
				Components: []types.ComponentView{
					{Name: "hrv", Weight: 0.50, Normalized: 90, Contribution: 45, Raw: 62, Complete: true},
				},
				ComputedAt:   time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC),
				DataComplete: true,
			},
			scoreFound: true,
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When fetching the score", func() {
			resp := getURL(t, srv.URL+"/v1/scores/recovery")

			Convey("Then the view is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var out types.ScoreView
				decodeBody(t, resp, &out)
				So(out.Kind, ShouldEqual, "recovery")
				So(out.Overall, ShouldEqual, 82)
				So(len(out.Components), ShouldEqual, 1)
				So(out.Components[0].Name, ShouldEqual, "hrv")
			})
		})

		Convey("When no score has been published for the day", func() {
			deps.scoreFound = false
			resp := getURL(t, srv.URL+"/v1/scores/sleep")

			Convey("Then not found is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
				var out errorResponse
				decodeBody(t, resp, &out)
				So(out.Code, ShouldEqual, "not_found")
			})
		})

		Convey("When the kind is unknown", func() {
			resp := getURL(t, srv.URL+"/v1/scores/karma")

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				_ = resp.Body.Close()
			})
		})

		Convey("When the path has extra segments", func() {
			resp := getURL(t, srv.URL+"/v1/scores/recovery/history/extra")

			Convey("Then not found is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
				_ = resp.Body.Close()
			})
		})
	})
}

func TestGetHistory(t *testing.T) {
	_ = logging.Init()

	Convey("Given a server with score history", t, func() {
		deps := &fakeDeps{
			history: []types.ScoreView{
				{Kind: "recovery", Day: "2026-03-11", Overall: 82},
				{Kind: "recovery", Day: "2026-03-10", Overall: 75},
			},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When fetching history", func() {
			resp := getURL(t, srv.URL+"/v1/scores/recovery/history?limit=2")

			Convey("Then scores are returned newest first", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var out struct {
					Kind   string            `json:"kind"`
					Scores []types.ScoreView `json:"scores"`
				}
				decodeBody(t, resp, &out)
				So(out.Kind, ShouldEqual, "recovery")
				So(len(out.Scores), ShouldEqual, 2)
				So(out.Scores[0].Day, ShouldEqual, "2026-03-11")
			})
		})

		Convey("When no history exists", func() {
			deps.history = nil
			resp := getURL(t, srv.URL+"/v1/scores/recovery/history")

			Convey("Then an empty list is returned, not null", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var raw map[string]json.RawMessage
				decodeBody(t, resp, &raw)
				So(string(raw["scores"]), ShouldEqual, "[]")
			})
		})
	})
}

func TestGetFreshness(t *testing.T) {
	_ = logging.Init()

	Convey("Given a server reporting freshness", t, func() {
		deps := &fakeDeps{
			freshness: types.FreshnessView{
				Kind:              "sleep",
				Day:               "2026-03-11",
				Status:            "waiting_for_data",
				MorningSyncWindow: true,
			},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When fetching freshness", func() {
			resp := getURL(t, srv.URL+"/v1/scores/sleep/freshness")

			Convey("Then the hint is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var out types.FreshnessView
				decodeBody(t, resp, &out)
				So(out.Status, ShouldEqual, "waiting_for_data")
				So(out.MorningSyncWindow, ShouldBeTrue)
			})
		})

		Convey("When the kind is unknown", func() {
			resp := getURL(t, srv.URL+"/v1/scores/karma/freshness")

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				_ = resp.Body.Close()
			})
		})
	})
}

func TestGetBaseline(t *testing.T) {
	_ = logging.Init()

	Convey("Given a server with baseline diagnostics", t, func() {
		deps := &fakeDeps{
			baseline: types.BaselineView{
				Kind:        "hrv",
				Day:         "2026-03-11",
				WindowDays:  14,
				Mean:        52.4,
				SampleCount: 12,
				Available:   true,
				Unit:        "ms",
			},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When fetching a baseline", func() {
			resp := getURL(t, srv.URL+"/v1/baselines/hrv")

			Convey("Then the view is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var out types.BaselineView
				decodeBody(t, resp, &out)
				So(out.Kind, ShouldEqual, "hrv")
				So(out.Mean, ShouldAlmostEqual, 52.4, 0.001)
				So(out.Available, ShouldBeTrue)
			})
		})

		Convey("When the metric is unknown", func() {
			resp := getURL(t, srv.URL+"/v1/baselines/mood")

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				_ = resp.Body.Close()
			})
		})

		Convey("When the metric is missing", func() {
			resp := getURL(t, srv.URL+"/v1/baselines/")

			Convey("Then not found is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
				_ = resp.Body.Close()
			})
		})
	})
}

func TestStatsAndHealth(t *testing.T) {
	_ = logging.Init()

	Convey("Given a running API server", t, func() {
		srv := newTestServer(&fakeDeps{})
		defer srv.Close()

		Convey("When fetching stats", func() {
			resp := getURL(t, srv.URL+"/stats")

			Convey("Then the snapshot is returned with its capture time", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var out struct {
					GeneratedAt time.Time              `json:"generated_at"`
					Stats       map[string]interface{} `json:"stats"`
				}
				decodeBody(t, resp, &out)
				So(out.GeneratedAt.IsZero(), ShouldBeFalse)
				So(out.Stats["started"], ShouldEqual, true)
			})
		})

		Convey("When fetching health", func() {
			resp := getURL(t, srv.URL+"/healthz")

			Convey("Then the metrics exposition is served", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				_ = resp.Body.Close()
			})
		})
	})
}
