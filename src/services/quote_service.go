// backend/src/services/quote_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/JaimeLaraC/SimulacionExpo/backend/src/logger"
	"github.com/JaimeLaraC/SimulacionExpo/backend/src/models"
	"github.com/patrickmn/go-cache"
	"golang.org/x/net/publicsuffix"
)

const quoteUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// --- API Response Structs ---

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Open []float64 `json:"open"`
					High []float64 `json:"high"`
					Low  []float64 `json:"low"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

type searchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		Exchange  string `json:"exchange"`
		Shortname string `json:"shortname"`
		QuoteType string `json:"quoteType"`
		Currency  string `json:"currency"`
	} `json:"quotes"`
}

// --- Service Implementation ---

type quoteServiceImpl struct {
	httpClient    http.Client
	baseURL       string
	quoteCache    *cache.Cache
	isInitialized bool
	crumb         string
	mu            sync.Mutex
}

func NewQuoteService(baseURL string, timeout, cacheTTL time.Duration) QuoteService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}

	client := http.Client{
		Jar:     jar,
		Timeout: timeout,
	}

	return &quoteServiceImpl{
		httpClient: client,
		baseURL:    baseURL,
		quoteCache: cache.New(cacheTTL, 2*cacheTTL),
	}
}

func (s *quoteServiceImpl) initializeSession() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isInitialized && s.crumb != "" {
		return
	}

	logger.L.Info("Initializing market data session and fetching crumb...")

	// First request seeds the session cookies the crumb endpoint expects.
	req1, _ := http.NewRequest("GET", s.baseURL, nil)
	req1.Header.Set("User-Agent", quoteUserAgent)
	resp1, err := s.httpClient.Do(req1)
	if err == nil {
		io.Copy(io.Discard, resp1.Body)
		resp1.Body.Close()
	}

	req2, _ := http.NewRequest("GET", s.baseURL+"/v1/test/getcrumb", nil)
	req2.Header.Set("User-Agent", quoteUserAgent)
	resp2, err := s.httpClient.Do(req2)
	if err != nil {
		logger.L.Error("Failed to fetch crumb", "error", err)
		return
	}
	defer resp2.Body.Close()

	if resp2.StatusCode == http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp2.Body)
		s.crumb = string(bodyBytes)
		s.isInitialized = true
		logger.L.Info("Market data session initialized successfully")
	} else {
		logger.L.Warn("Failed to fetch crumb", "status", resp2.Status)
	}
}

func (s *quoteServiceImpl) ensureSession() {
	s.mu.Lock()
	needsInit := !s.isInitialized || s.crumb == ""
	s.mu.Unlock()

	if needsInit {
		s.initializeSession()
	}
}

// GetQuote returns the current day statistics for a symbol. Results are held
// in a short-TTL cache so repeated display refreshes do not hammer the
// backend; the TTL is short enough that a trade screen always prices from a
// near-live quote.
func (s *quoteServiceImpl) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	if cached, found := s.quoteCache.Get(symbol); found {
		return cached.(models.Quote), nil
	}

	s.ensureSession()

	chartURL := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1d", s.baseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, "GET", chartURL, nil)
	if err != nil {
		return models.Quote{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	req.Header.Set("User-Agent", quoteUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.L.Warn("Quote request failed", "symbol", symbol, "error", err)
		return models.Quote{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.L.Warn("Quote backend returned non-OK status", "symbol", symbol, "status", resp.Status)
		return models.Quote{}, fmt.Errorf("%w: status %d", ErrQuoteUnavailable, resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Quote{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}

	var chartData chartResponse
	if err := json.Unmarshal(bodyBytes, &chartData); err != nil {
		return models.Quote{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	if chartData.Chart.Error != nil || len(chartData.Chart.Result) == 0 {
		return models.Quote{}, fmt.Errorf("%w: no chart data for %s", ErrQuoteUnavailable, symbol)
	}

	result := chartData.Chart.Result[0]
	meta := result.Meta
	if meta.RegularMarketPrice == 0 {
		// A literal zero price means the backend has no data for the symbol;
		// it is never handed to callers as a usable quote.
		return models.Quote{}, fmt.Errorf("%w: no price for %s", ErrQuoteUnavailable, symbol)
	}

	quote := models.Quote{
		Symbol:        meta.Symbol,
		CurrentPrice:  meta.RegularMarketPrice,
		PreviousClose: meta.ChartPreviousClose,
		Timestamp:     time.Unix(meta.RegularMarketTime, 0).UTC(),
	}
	if meta.ChartPreviousClose > 0 {
		quote.PercentChange = (meta.RegularMarketPrice - meta.ChartPreviousClose) / meta.ChartPreviousClose * 100
	}
	if len(result.Indicators.Quote) > 0 {
		day := result.Indicators.Quote[0]
		if len(day.Open) > 0 {
			quote.DayOpen = day.Open[0]
		}
		if len(day.High) > 0 {
			quote.DayHigh = day.High[0]
		}
		if len(day.Low) > 0 {
			quote.DayLow = day.Low[0]
		}
	}

	s.quoteCache.Set(symbol, quote, cache.DefaultExpiration)
	return quote, nil
}

// SearchSymbols looks up tradable symbols matching the query string.
func (s *quoteServiceImpl) SearchSymbols(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	s.ensureSession()

	searchURL := fmt.Sprintf("%s/v1/finance/search?q=%s&quotesCount=10&lang=en-US", s.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("User-Agent", quoteUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call symbol search API: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("symbol search API returned non-OK status %d", resp.StatusCode)
	}

	var searchData searchResponse
	if err := json.Unmarshal(bodyBytes, &searchData); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	matches := make([]models.SymbolMatch, 0, len(searchData.Quotes))
	for _, q := range searchData.Quotes {
		if q.Symbol == "" {
			continue
		}
		matches = append(matches, models.SymbolMatch{
			Symbol:    q.Symbol,
			Shortname: q.Shortname,
			Exchange:  q.Exchange,
			QuoteType: q.QuoteType,
			Currency:  q.Currency,
		})
	}
	return matches, nil
}
