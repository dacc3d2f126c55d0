// Package gateway exposes the exchange over HTTP: health and
// diagnostic endpoints on a chi router, and a websocket feed that
// streams packets and accepts order and cancel frames from remote
// traders.
package gateway

import (
	"bufio"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/openoutcry/botrunner/internal/domain"
	"github.com/openoutcry/botrunner/internal/exchange"
	"github.com/openoutcry/botrunner/internal/runtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server serves the gateway routes for one exchange and runtime pair.
type Server struct {
	exch   *exchange.Exchange
	rt     *runtime.Runtime
	hub    *hub
	logger *slog.Logger
}

// New creates a Server and subscribes its websocket hub to the
// exchange's packet stream.
func New(exch *exchange.Exchange, rt *runtime.Runtime, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		exch:   exch,
		rt:     rt,
		hub:    newHub(logger),
		logger: logger,
	}
	exch.Subscribe(s.hub)
	return s
}

// Router creates a chi router with all routes registered and request
// logging.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(requestLogging(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/instruments/{instrument}/book", s.handleBook)
	r.Get("/instruments/{instrument}/trades", s.handleTrades)
	r.Get("/ws", s.handleWebsocket)

	return r
}

// handleBook writes the instrument's book in the diagnostic text
// format. An optional trader_id query parameter annotates that
// trader's resting orders.
func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	instrument, ok := parseInstrument(w, r)
	if !ok {
		return
	}

	var trader domain.TraderID
	if raw := r.URL.Query().Get("trader_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "trader_id must be a number")
			return
		}
		trader = domain.TraderID(id)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.exch.WriteBookSnapshot(w, instrument, trader); err != nil {
		s.logger.Error("write book snapshot", slog.Any("error", err))
	}
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	instrument, ok := parseInstrument(w, r)
	if !ok {
		return
	}
	trades := s.exch.Trades(instrument)
	if trades == nil {
		trades = []exchange.TradeRecord{}
	}
	writeJSON(w, http.StatusOK, trades)
}

// handleWebsocket upgrades the connection and runs the client pumps.
// The trader_id query parameter binds the connection to one trader;
// every frame on the connection acts as that trader.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("trader_id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "trader_id query parameter is required")
		return
	}
	traderID := domain.TraderID(id)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", slog.Any("error", err))
		return
	}

	s.exch.RegisterTrader(traderID)

	c := &client{
		id:       uuid.New().String(),
		traderID: traderID,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		srv:      s,
	}
	s.hub.add(c)

	go c.writePump()
	go c.readPump()
}

func parseInstrument(w http.ResponseWriter, r *http.Request) (domain.InstrumentID, bool) {
	raw := chi.URLParam(r, "instrument")
	n, err := strconv.ParseUint(raw, 10, 8)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "instrument must be 0-255")
		return 0, false
	}
	return domain.InstrumentID(n), true
}

// requestLogging returns middleware that logs each request's method,
// path, status code, and duration.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Hijack passes through to the underlying writer so websocket upgrades
// work behind the logging middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}
