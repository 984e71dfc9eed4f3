package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adshao/go-binance/v2"
	"github.com/skalibog/bfpv/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *BinanceClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	spot := binance.NewClient("", "")
	spot.BaseURL = srv.URL
	spot.HTTPClient = srv.Client()
	return newBinanceClient(spot, "BTCUSDT")
}

func TestGetSpotPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/price" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("unexpected symbol query: %s", got)
		}
		_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","price":"42123.45000000"}`))
	})

	price, err := c.GetSpotPrice(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price.Symbol != "BTCUSDT" || price.Price != 42123.45 {
		t.Errorf("unexpected price: %+v", price)
	}
}

func TestGetSpotPrice_Errors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"api error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
		},
		"bad price": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","price":"n/a"}`))
		},
		"other symbol": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"symbol":"ETHUSDT","price":"1.0"}`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := newTestClient(t, handler).GetSpotPrice(context.Background()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewBinanceClient_Testnet(t *testing.T) {
	live := NewBinanceClient(config.ExchangeConfig{Symbol: "BTCUSDT"})
	if live.spot.BaseURL == TestnetBaseURL {
		t.Error("live client must not use testnet")
	}

	testnet := NewBinanceClient(config.ExchangeConfig{Symbol: "ETHUSDT", Testnet: true})
	if testnet.spot.BaseURL != TestnetBaseURL {
		t.Errorf("unexpected testnet base url: %s", testnet.spot.BaseURL)
	}
	if testnet.Symbol() != "ETHUSDT" {
		t.Errorf("unexpected symbol: %s", testnet.Symbol())
	}
}
