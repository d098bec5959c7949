package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"time"

	"github.com/JaimeLaraC/SimulacionExpo/backend/src/config"
	"github.com/JaimeLaraC/SimulacionExpo/backend/src/database"
	"github.com/JaimeLaraC/SimulacionExpo/backend/src/handlers"
	"github.com/JaimeLaraC/SimulacionExpo/backend/src/logger"
	"github.com/JaimeLaraC/SimulacionExpo/backend/src/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000":    true,
			config.Cfg.FrontendBaseURL: true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("SimulacionExpo backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	snapshotStore := database.NewBlobStore(database.DB)

	ledgerService := services.NewLedgerService(snapshotStore, config.Cfg.SnapshotKey, config.Cfg.StartingCash)
	quoteService := services.NewQuoteService(config.Cfg.QuoteAPIBaseURL, config.Cfg.QuoteTimeout, config.Cfg.QuoteCacheTTL)

	ledgerHandler := handlers.NewLedgerHandler(ledgerService, quoteService)
	quoteHandler := handlers.NewQuoteHandler(quoteService)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "SimulacionExpo Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/ledger", ledgerHandler.HandleGetLedger)
		r.Get("/ledger/value", ledgerHandler.HandleGetPortfolioValue)
		r.Post("/ledger/buy", ledgerHandler.HandleBuy)
		r.Post("/ledger/sell", ledgerHandler.HandleSell)
		r.Delete("/ledger", ledgerHandler.HandleReset)

		r.Get("/quotes/search", quoteHandler.HandleSearchSymbols)
		r.Get("/quotes/{symbol}", quoteHandler.HandleGetQuote)
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
