package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartPayload = `{
	"chart": {
		"result": [{
			"meta": {
				"currency": "USD",
				"symbol": "AAPL",
				"regularMarketPrice": 172.5,
				"chartPreviousClose": 170.0,
				"regularMarketTime": 1717171717
			},
			"indicators": {
				"quote": [{
					"open": [171.0],
					"high": [173.2],
					"low": [169.8]
				}]
			}
		}],
		"error": null
	}
}`

const searchPayload = `{
	"quotes": [
		{"symbol": "AAPL", "exchange": "NMS", "shortname": "Apple Inc.", "quoteType": "EQUITY", "currency": "USD"},
		{"symbol": "", "exchange": "NMS", "shortname": "junk row"},
		{"symbol": "APLE", "exchange": "NYQ", "shortname": "Apple Hospitality", "quoteType": "EQUITY", "currency": "USD"}
	]
}`

func newQuoteBackend(t *testing.T, chartStatus int, chartBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/v1/test/getcrumb", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("test-crumb"))
	})
	mux.HandleFunc("/v8/finance/chart/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(chartStatus)
		w.Write([]byte(chartBody))
	})
	mux.HandleFunc("/v1/finance/search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchPayload))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetQuoteParsesChartResponse(t *testing.T) {
	srv := newQuoteBackend(t, http.StatusOK, chartPayload)
	svc := NewQuoteService(srv.URL, 5*time.Second, time.Minute)

	quote, err := svc.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", quote.Symbol)
	assert.Equal(t, 172.5, quote.CurrentPrice)
	assert.Equal(t, 170.0, quote.PreviousClose)
	assert.InDelta(t, 1.4705, quote.PercentChange, 0.001)
	assert.Equal(t, 171.0, quote.DayOpen)
	assert.Equal(t, 173.2, quote.DayHigh)
	assert.Equal(t, 169.8, quote.DayLow)
	assert.Equal(t, time.Unix(1717171717, 0).UTC(), quote.Timestamp)
}

func TestGetQuoteCachesResults(t *testing.T) {
	hits := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/v1/test/getcrumb", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("crumb"))
	})
	mux.HandleFunc("/v8/finance/chart/", func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(chartPayload))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	svc := NewQuoteService(srv.URL, 5*time.Second, time.Minute)

	_, err := svc.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	_, err = svc.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, 1, hits, "second lookup should come from cache")
}

func TestGetQuoteUnavailableOnBackendError(t *testing.T) {
	srv := newQuoteBackend(t, http.StatusNotFound, `{}`)
	svc := NewQuoteService(srv.URL, 5*time.Second, time.Minute)

	_, err := svc.GetQuote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

func TestGetQuoteUnavailableOnZeroPrice(t *testing.T) {
	// A zero market price is "no data", never a usable quote.
	body := `{"chart": {"result": [{"meta": {"symbol": "DEAD", "regularMarketPrice": 0}}], "error": null}}`
	srv := newQuoteBackend(t, http.StatusOK, body)
	svc := NewQuoteService(srv.URL, 5*time.Second, time.Minute)

	_, err := svc.GetQuote(context.Background(), "DEAD")
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

func TestGetQuoteUnavailableOnEmptyResult(t *testing.T) {
	body := `{"chart": {"result": [], "error": {"code": "Not Found"}}}`
	srv := newQuoteBackend(t, http.StatusOK, body)
	svc := NewQuoteService(srv.URL, 5*time.Second, time.Minute)

	_, err := svc.GetQuote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

func TestSearchSymbolsSkipsEmptyRows(t *testing.T) {
	srv := newQuoteBackend(t, http.StatusOK, chartPayload)
	svc := NewQuoteService(srv.URL, 5*time.Second, time.Minute)

	matches, err := svc.SearchSymbols(context.Background(), "apple")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "AAPL", matches[0].Symbol)
	assert.Equal(t, "Apple Inc.", matches[0].Shortname)
	assert.Equal(t, "APLE", matches[1].Symbol)
}
