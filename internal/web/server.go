// Package web exposes the operator HTTP surface: a status snapshot,
// liveness checks for the load balancer and the Prometheus scrape
// endpoint. Enforcement never depends on this server being up.
package web

import (
	"context"
	"net/http"
	"time"

	"discord-security-bot/internal/cache"
	"discord-security-bot/internal/database"
	"discord-security-bot/internal/engine"
	"discord-security-bot/internal/redis"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	db     *database.Database
	redis  *redis.Client
	engine *engine.Engine
	cache  *cache.Cache
	logger *zap.Logger

	startTime time.Time
	srv       *http.Server
}

func NewServer(addr string, db *database.Database, rdb *redis.Client, eng *engine.Engine, pc *cache.Cache, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		db:        db,
		redis:     rdb,
		engine:    eng,
		cache:     pc,
		logger:    logger,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleStatus)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("web server listening", zap.String("addr", s.srv.Addr))
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type statusResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	Windows       int     `json:"tracked_windows"`
	WindowEvents  int     `json:"tracked_events"`
	DroppedTasks  uint64  `json:"dropped_tasks"`
	CacheL1Hits   uint64  `json:"cache_l1_hits"`
	CacheL1Rate   float64 `json:"cache_l1_hit_rate"`
	CacheL2Hits   uint64  `json:"cache_l2_hits"`
	CacheL2Rate   float64 `json:"cache_l2_hit_rate"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	windows, events := s.engine.Windows.Stats()
	resp := statusResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Windows:       windows,
		WindowEvents:  events,
		DroppedTasks:  s.engine.Queue.Dropped(),
	}
	if s.cache != nil {
		cm := s.cache.GetMetrics()
		resp.CacheL1Hits = cm.L1Hits
		resp.CacheL1Rate = cm.L1HitRate
		resp.CacheL2Hits = cm.L2Hits
		resp.CacheL2Rate = cm.L2HitRate
	}
	writeJSON(w, http.StatusOK, resp)
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "ok", Redis: "ok"}
	code := http.StatusOK

	if err := s.db.PingCached(); err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
		code = http.StatusServiceUnavailable
	}
	if err := s.redis.Ping(); err != nil {
		resp.Status = "degraded"
		resp.Redis = err.Error()
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
