package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ringfi/ringstake/internal/ledger"
	"github.com/ringfi/ringstake/internal/logger"
	"github.com/ringfi/ringstake/internal/state"
	"github.com/ringfi/ringstake/internal/types"
	"github.com/ringfi/ringstake/internal/utils"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes the read-only snapshot views and the transaction
// surface over HTTP.
type WebServer struct {
	router *mux.Router
	core   *ledger.Ledger
	port   string
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, core *ledger.Ledger) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		core:   core,
		port:   port,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// Read-only snapshot views
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/pools", ws.handleGetPools).Methods("GET")
	api.HandleFunc("/pools/{id}", ws.handleGetPool).Methods("GET")
	api.HandleFunc("/pools/{id}/positions/{account}", ws.handleGetPosition).Methods("GET")
	api.HandleFunc("/events", ws.handleGetEvents).Methods("GET")
	api.HandleFunc("/snapshots", ws.handleGetSnapshots).Methods("GET")

	// Transaction surface
	api.HandleFunc("/pools/{id}/deposit", ws.handleDeposit).Methods("POST")
	api.HandleFunc("/pools/{id}/withdraw", ws.handleWithdraw).Methods("POST")
	api.HandleFunc("/pools/{id}/harvest", ws.handleHarvest).Methods("POST")
	api.HandleFunc("/pools/{id}/orbit", ws.handleOrbit).Methods("POST")
	api.HandleFunc("/migrate", ws.handleMigrate).Methods("POST")
	api.HandleFunc("/admin/pause", ws.handlePause).Methods("POST")
	api.HandleFunc("/admin/sweep", ws.handleSweep).Methods("POST")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "ringstake-staking-ledger",
			"version": "1.0.0",
		},
		"ledger_status": map[string]interface{}{
			"database_healthy": dbHealthy,
			"paused":           ws.core.Paused(),
			"vault_balance":    ws.core.VaultBalance().String(),
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetPools returns all ring snapshots
func (ws *WebServer) handleGetPools(w http.ResponseWriter, r *http.Request) {
	snapshots := ws.core.Snapshots()
	response := map[string]interface{}{
		"pools":  snapshots,
		"count":  len(snapshots),
		"paused": ws.core.Paused(),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPool returns a single ring snapshot
func (ws *WebServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	pool, ok := ws.poolIDFromRequest(w, r)
	if !ok {
		return
	}

	snapshot, err := ws.core.PoolSnapshot(pool)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, err.Error())
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, snapshot)
}

// handleGetPosition returns one account's position in a ring
func (ws *WebServer) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	pool, ok := ws.poolIDFromRequest(w, r)
	if !ok {
		return
	}
	account := mux.Vars(r)["account"]

	view, err := ws.core.PositionView(pool, account)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, err.Error())
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, view)
}

// handleGetEvents returns the newest journaled events
func (ws *WebServer) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	limit := ws.limitFromQuery(r, 50)

	events, err := state.GetRecentEvents(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent events")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve events")
		return
	}

	response := map[string]interface{}{
		"events": events,
		"count":  len(events),
		"limit":  limit,
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetSnapshots returns the newest persisted ring snapshots
func (ws *WebServer) handleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := ws.limitFromQuery(r, types.NumPools)

	snapshots, err := state.GetRecentSnapshots(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent snapshots")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve snapshots")
		return
	}

	response := map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
		"limit":     limit,
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// transactionRequest is the JSON body shared by the POST endpoints;
// unused fields are ignored per endpoint.
type transactionRequest struct {
	Account  string `json:"account"`
	Amount   string `json:"amount,omitempty"`
	Shares   string `json:"shares,omitempty"`
	FromPool *int   `json:"from_pool,omitempty"`
	ToPool   *int   `json:"to_pool,omitempty"`
	Paused   *bool  `json:"paused,omitempty"`
}

// handleDeposit executes a deposit into a ring
func (ws *WebServer) handleDeposit(w http.ResponseWriter, r *http.Request) {
	pool, ok := ws.poolIDFromRequest(w, r)
	if !ok {
		return
	}
	req, ok := ws.decodeRequest(w, r)
	if !ok {
		return
	}
	amount, err := utils.ParseAmount(req.Amount)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	minted, err := ws.core.Deposit(req.Account, pool, amount)
	if err != nil {
		ws.writeLedgerError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"pool_id": pool,
		"account": req.Account,
		"amount":  amount.String(),
		"shares":  minted.String(),
	})
}

// handleWithdraw executes a share redemption from a ring
func (ws *WebServer) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	pool, ok := ws.poolIDFromRequest(w, r)
	if !ok {
		return
	}
	req, ok := ws.decodeRequest(w, r)
	if !ok {
		return
	}
	shares, err := utils.ParseAmount(req.Shares)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	assets, err := ws.core.Withdraw(req.Account, pool, shares)
	if err != nil {
		ws.writeLedgerError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"pool_id": pool,
		"account": req.Account,
		"shares":  shares.String(),
		"assets":  assets.String(),
	})
}

// handleHarvest settles an account's pending yield in a ring
func (ws *WebServer) handleHarvest(w http.ResponseWriter, r *http.Request) {
	pool, ok := ws.poolIDFromRequest(w, r)
	if !ok {
		return
	}
	req, ok := ws.decodeRequest(w, r)
	if !ok {
		return
	}

	paid, err := ws.core.Harvest(req.Account, pool)
	if err != nil {
		ws.writeLedgerError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"pool_id":    pool,
		"account":    req.Account,
		"yield_paid": paid.String(),
	})
}

// handleOrbit injects yield into a ring
func (ws *WebServer) handleOrbit(w http.ResponseWriter, r *http.Request) {
	pool, ok := ws.poolIDFromRequest(w, r)
	if !ok {
		return
	}
	req, ok := ws.decodeRequest(w, r)
	if !ok {
		return
	}
	gross, err := utils.ParseAmount(req.Amount)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := ws.core.InjectYield(req.Account, pool, gross)
	if err != nil {
		ws.writeLedgerError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"pool_id": pool,
		"account": req.Account,
		"result":  result,
	})
}

// handleMigrate relocates shares between rings
func (ws *WebServer) handleMigrate(w http.ResponseWriter, r *http.Request) {
	req, ok := ws.decodeRequest(w, r)
	if !ok {
		return
	}
	if req.FromPool == nil || req.ToPool == nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "from_pool and to_pool are required")
		return
	}
	shares, err := utils.ParseAmount(req.Shares)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	minted, err := ws.core.MigrateRing(req.Account, types.PoolID(*req.FromPool), types.PoolID(*req.ToPool), shares)
	if err != nil {
		ws.writeLedgerError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"account":       req.Account,
		"from_pool":     *req.FromPool,
		"to_pool":       *req.ToPool,
		"shares_burned": shares.String(),
		"shares_minted": minted.String(),
	})
}

// handlePause toggles the pause flag
func (ws *WebServer) handlePause(w http.ResponseWriter, r *http.Request) {
	req, ok := ws.decodeRequest(w, r)
	if !ok {
		return
	}
	if req.Paused == nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "paused is required")
		return
	}

	if err := ws.core.SetPaused(req.Account, *req.Paused); err != nil {
		ws.writeLedgerError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"paused": *req.Paused,
	})
}

// handleSweep recovers surplus balance to the fee recipient
func (ws *WebServer) handleSweep(w http.ResponseWriter, r *http.Request) {
	req, ok := ws.decodeRequest(w, r)
	if !ok {
		return
	}

	swept, err := ws.core.SweepFees(req.Account)
	if err != nil {
		ws.writeLedgerError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"swept": swept.String(),
	})
}

// poolIDFromRequest parses the {id} path variable
func (ws *WebServer) poolIDFromRequest(w http.ResponseWriter, r *http.Request) (types.PoolID, bool) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idStr)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid ring ID")
		return 0, false
	}
	return types.PoolID(id), true
}

// decodeRequest parses a transaction request body
func (ws *WebServer) decodeRequest(w http.ResponseWriter, r *http.Request) (transactionRequest, bool) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return req, false
	}
	if req.Account == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "account is required")
		return req, false
	}
	return req, true
}

// limitFromQuery parses an optional ?limit= query parameter
func (ws *WebServer) limitFromQuery(r *http.Request, fallback int) int {
	limit := fallback
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 500 {
			limit = parsedLimit
		}
	}
	return limit
}

// writeLedgerError maps ledger failures onto HTTP status codes
func (ws *WebServer) writeLedgerError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest

	var (
		invalidPool  ledger.InvalidPoolError
		locked       ledger.PositionLockedError
		transferFail ledger.TransferError
	)
	switch {
	case errors.As(err, &invalidPool):
		status = http.StatusNotFound
	case errors.As(err, &locked):
		status = http.StatusConflict
	case errors.As(err, &transferFail):
		status = http.StatusBadGateway
	case errors.Is(err, ledger.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrPaused), errors.Is(err, ledger.ErrReentrantCall):
		status = http.StatusConflict
	}

	ws.writeErrorResponse(w, status, err.Error())
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
