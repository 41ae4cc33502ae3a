// Package main provides an HTTP API server over a single zdb database.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/oda/zdb/internal/logging"
	"github.com/oda/zdb/internal/metrics"
	"github.com/oda/zdb/pkg/zdb"
)

// Response is a generic JSON response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Server holds the open tree and serves HTTP handlers over it.
type Server struct {
	tree *zdb.Tree[uint64, uint64]
	path string
	mu   sync.RWMutex
}

func main() {
	dbPath := flag.String("db", "", "path to the database file (required)")
	port := flag.String("port", "", "HTTP port (overrides PORT env var, default 8080)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	prettyLog := flag.Bool("pretty-log", false, "pretty-print logs for a terminal instead of JSON")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal().Msg("-db is required")
	}

	addr := os.Getenv("PORT")
	if *port != "" {
		addr = *port
	}
	if addr == "" {
		addr = "8080"
	}

	logger := logging.New(logging.Config{Level: *logLevel, Pretty: *prettyLog}, *dbPath)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	tree, err := zdb.Open[uint64, uint64](*dbPath, zdb.Options[uint64, uint64]{
		KeyCodec:   zdb.Uint64Codec{},
		ValueCodec: zdb.Uint64Codec{},
		Compare:    zdb.CompareUint64,
		Logger:     logger,
		Metrics:    m,
	})
	if err != nil {
		logger.Error("failed to open database", err)
		os.Exit(1)
	}
	defer tree.Close()

	srv := &Server{tree: tree, path: *dbPath}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/get", srv.handleGet)
	mux.HandleFunc("/api/put", srv.handlePut)
	mux.HandleFunc("/api/range", srv.handleRange)
	mux.HandleFunc("/health", srv.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	log.Info().Str("addr", ":"+addr).Str("db", *dbPath).Msg("zdbdemo starting")
	log.Fatal().Err(http.ListenAndServe(":"+addr, mux)).Msg("server stopped")
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]string{"path": s.path}})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}

	key, err := strconv.ParseUint(r.URL.Query().Get("key"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "invalid or missing key"})
		return
	}

	s.mu.RLock()
	value, ok := s.tree.Get(key)
	s.mu.RUnlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, Response{Error: "key not found"})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]uint64{"key": key, "value": value}})
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}

	var req struct {
		Key   uint64 `json:"key"`
		Value uint64 `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tree.BeginTx(); err != nil {
		writeJSON(w, http.StatusConflict, Response{Error: err.Error()})
		return
	}
	if err := s.tree.Put(req.Key, req.Value); err != nil {
		s.tree.RollbackTx()
		writeJSON(w, http.StatusInternalServerError, Response{Error: fmt.Sprintf("put failed: %v", err)})
		return
	}
	if err := s.tree.CommitTx(); err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Error: fmt.Sprintf("commit failed: %v", err)})
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true})
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}

	start, err := strconv.ParseUint(r.URL.Query().Get("start"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "invalid or missing start"})
		return
	}
	end, err := strconv.ParseUint(r.URL.Query().Get("end"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "invalid or missing end"})
		return
	}

	s.mu.RLock()
	results, err := s.tree.Range(start, end)
	s.mu.RUnlock()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Error: fmt.Sprintf("range failed: %v", err)})
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: results})
}
