package predictions

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/api/predictions" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestFetchPredictions_Success(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, `{
		"success": true,
		"predictions": [
			{"Date": "2024-01-01", "Predicted_Price": 42000.5},
			{"Date": "2024-01-02", "Predicted_Price": 42100.123456}
		],
		"plot_url": "/api/plot/predictions_plot_20240101.png",
		"last_updated": "2024-01-01T10:30:00.123456"
	}`)

	c := NewClientWithHTTP(srv.URL+"/", "/api/predictions", srv.Client())
	res, err := c.FetchPredictions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := atomic.LoadInt32(calls); n != 1 {
		t.Errorf("expected exactly one request, got %d", n)
	}
	if res.Series.Len() != 2 {
		t.Fatalf("expected 2 points, got %d", res.Series.Len())
	}
	if p := res.Series.At(1); p.Date != "2024-01-02" || p.Price != 42100.123456 {
		t.Errorf("unexpected point: %+v", p)
	}
	if want := srv.URL + "/api/plot/predictions_plot_20240101.png"; res.ChartSourceURL != want {
		t.Errorf("expected chart url %s, got %s", want, res.ChartSourceURL)
	}
	if res.LastUpdated.IsZero() || res.LastUpdated.Hour() != 10 {
		t.Errorf("unexpected last_updated: %v", res.LastUpdated)
	}
}

func TestFetchPredictions_Errors(t *testing.T) {
	cases := []struct {
		name       string
		status     int
		body       string
		wantKind   Kind
		wantDetail string
	}{
		{"server reported", http.StatusOK, `{"success": false, "message": "model not trained"}`, ServerReported, "model not trained"},
		{"server reported without message", http.StatusOK, `{"success": false}`, ServerReported, DefaultServerMessage},
		{"500 with message", http.StatusInternalServerError, `{"success": false, "message": "Error: boom"}`, ServerReported, "Error: boom"},
		{"500 with html", http.StatusInternalServerError, `<html>oops</html>`, Transport, ""},
		{"404", http.StatusNotFound, ``, Transport, ""},
		{"malformed json", http.StatusOK, `{"success": tru`, Transport, ""},
		{"missing success flag", http.StatusOK, `{"predictions": []}`, Transport, ""},
		{"incomplete point", http.StatusOK, `{"success": true, "predictions": [{"Date": "2024-01-01"}]}`, Transport, ""},
		{"wrong types", http.StatusOK, `{"success": true, "predictions": [{"Date": 1, "Predicted_Price": "x"}]}`, Transport, ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv, _ := newTestServer(t, c.status, c.body)
			client := NewClientWithHTTP(srv.URL, "/api/predictions", srv.Client())

			res, err := client.FetchPredictions(context.Background())
			if res != nil {
				t.Fatalf("expected no result, got %+v", res)
			}
			fe, ok := AsFetchError(err)
			if !ok {
				t.Fatalf("expected *FetchError, got %T (%v)", err, err)
			}
			if fe.Kind != c.wantKind {
				t.Errorf("expected kind %s, got %s", c.wantKind, fe.Kind)
			}
			if c.wantDetail != "" && fe.Detail != c.wantDetail {
				t.Errorf("expected detail %q, got %q", c.wantDetail, fe.Detail)
			}
		})
	}
}

func TestFetchPredictions_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClientWithHTTP(url, "/api/predictions", &http.Client{Timeout: time.Second})
	_, err := c.FetchPredictions(context.Background())
	fe, ok := AsFetchError(err)
	if !ok || fe.Kind != Transport {
		t.Fatalf("expected transport error, got %v", err)
	}
	if fe.Unwrap() == nil {
		t.Error("expected wrapped cause")
	}
}

func TestFetchPredictions_ContextCanceled(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"success": true, "predictions": []}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClientWithHTTP(srv.URL, "/api/predictions", srv.Client()).FetchPredictions(ctx)
	if fe, ok := AsFetchError(err); !ok || fe.Kind != Transport {
		t.Fatalf("expected transport error for canceled context, got %v", err)
	}
}

func TestFetchPredictions_EmptySeries(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"success": true, "predictions": [], "plot_url": ""}`)

	res, err := NewClientWithHTTP(srv.URL, "/api/predictions", srv.Client()).FetchPredictions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Series.Len() != 0 || res.ChartSourceURL != "" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestResolvePlotURL(t *testing.T) {
	c := NewClientWithHTTP("http://localhost:5000/", "/api/predictions", nil)

	cases := map[string]string{
		"/api/plot/a.png":               "http://localhost:5000/api/plot/a.png",
		"api/plot/a.png":                "http://localhost:5000/api/plot/a.png",
		"https://cdn.example.com/a.png": "https://cdn.example.com/a.png",
		"":                              "",
	}
	for in, want := range cases {
		got, err := c.resolvePlotURL(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got != want {
			t.Errorf("%q: expected %q, got %q", in, want, got)
		}
	}
}

func TestFetchPlot(t *testing.T) {
	png := []byte("\x89PNG fake")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/plot/ok.png" {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(png)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success": false, "message": "Error loading plot"}`))
	}))
	defer srv.Close()

	c := NewClientWithHTTP(srv.URL, "/api/predictions", srv.Client())

	var buf bytes.Buffer
	if err := c.FetchPlot(context.Background(), srv.URL+"/api/plot/ok.png", &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), png) {
		t.Errorf("unexpected body: %q", buf.Bytes())
	}

	err := c.FetchPlot(context.Background(), srv.URL+"/api/plot/missing.png", &buf)
	if fe, ok := AsFetchError(err); !ok || fe.Kind != ServerReported || fe.Detail != "Error loading plot" {
		t.Fatalf("expected server reported error, got %v", err)
	}
}
