package dashboard

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/phoe8lin/hugeorders/gateway"
	"github.com/phoe8lin/hugeorders/infrastructure/logger"
	"github.com/phoe8lin/hugeorders/scanner"
)

//go:embed web/index.html
var indexHTML []byte

// CatalogSource 提供交易所支持的交易对目录。
type CatalogSource interface {
	Catalog() gateway.Catalog
}

// SettingsController 运行中的扫描循环，面板通过它读取和修改设置。
type SettingsController interface {
	Settings() scanner.Settings
	UpdateSettings(scanner.Settings)
}

// Server 浏览器面板：实现 scanner.Sink，保存最新快照并经 WebSocket 推送。
type Server struct {
	catalog  CatalogSource
	settings SettingsController
	loc      *time.Location
	log      *logger.Logger
	hub      *hub
	router   chi.Router

	mu       sync.RWMutex
	snapshot Snapshot
}

type Option func(*Server)

func WithLocation(loc *time.Location) Option { return func(s *Server) { s.loc = loc } }
func WithLogger(l *logger.Logger) Option     { return func(s *Server) { s.log = l } }

func New(catalog CatalogSource, opts ...Option) *Server {
	s := &Server{
		catalog: catalog,
		loc:     time.FixedZone("UTC+8", 8*3600),
		log:     logger.NewNop(),
		snapshot: Snapshot{
			State:    StateStarting,
			Rows:     []Row{},
			Warnings: []scanner.Warning{},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = newHub(s.log)
	s.routes()
	return s
}

// Bind 关联扫描循环；需在 Handler 对外服务前调用。
func (s *Server) Bind(ctrl SettingsController) {
	s.mu.Lock()
	s.settings = ctrl
	s.snapshot.Settings = settingsView(ctrl.Settings())
	s.mu.Unlock()
}

// Run 驱动 WebSocket hub，直到 ctx 取消。
func (s *Server) Run(ctx context.Context) { s.hub.run(ctx) }

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) clientCount() int { return int(s.hub.count.Load()) }

// Snapshot 当前展示状态的副本。
func (s *Server) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// --------- scanner.Sink ----------

func (s *Server) Scanning(_ time.Time, settings scanner.Settings) {
	s.update(func(snap *Snapshot) {
		snap.State = StateScanning
		snap.Message = msgScanning
		snap.Settings = settingsView(settings)
	})
}

func (s *Server) Publish(cycle scanner.Cycle) {
	rows := rowsFromCycle(cycle)
	s.update(func(snap *Snapshot) {
		snap.State = StateReady
		snap.LastScan = formatScanTime(cycle.FinishedAt, s.loc)
		snap.Message = "Last scan: " + snap.LastScan
		if len(rows) == 0 {
			snap.Message += ". " + msgNoDetection
		}
		snap.Rows = rows
		snap.Warnings = cycle.Warnings
		if snap.Warnings == nil {
			snap.Warnings = []scanner.Warning{}
		}
	})
}

func (s *Server) Waiting(time.Time) {
	interval := s.currentInterval()
	s.update(func(snap *Snapshot) {
		snap.State = StateWaiting
		snap.Message = msgWaiting
		snap.Rows = []Row{}
		snap.Warnings = []scanner.Warning{}
		snap.Settings = settingsView(scanner.Settings{Interval: interval})
	})
}

func (s *Server) currentInterval() time.Duration {
	ctrl := s.controller()
	if ctrl == nil {
		return scanner.DefaultInterval
	}
	return ctrl.Settings().Interval
}

func (s *Server) update(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snapshot)
	msg := marshalWS("snapshot", s.snapshot)
	s.mu.Unlock()
	s.hub.publish(msg)
}

func (s *Server) snapshotMessage() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return marshalWS("snapshot", s.snapshot)
}

// --------- Routes ----------

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.serveIndex)
	r.Get("/ws", s.hub.serveWS(s.snapshotMessage))
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.apiHealth)
		r.Get("/cycle", s.apiCycle)
		r.Get("/instruments", s.apiInstruments)
		r.Get("/settings", s.apiGetSettings)
		r.Post("/settings", s.apiPostSettings)
	})
	s.router = r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) serveIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) apiHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"state":       snap.State,
		"instruments": s.catalog.Catalog().Len(),
		"clients":     s.clientCount(),
	})
}

func (s *Server) apiCycle(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (s *Server) apiInstruments(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"instruments": s.catalog.Catalog().Instruments(),
	})
}

func (s *Server) apiGetSettings(w http.ResponseWriter, _ *http.Request) {
	ctrl := s.controller()
	if ctrl == nil {
		writeError(w, http.StatusServiceUnavailable, "scanner not running")
		return
	}
	writeJSON(w, http.StatusOK, settingsView(ctrl.Settings()))
}

type settingsRequest struct {
	Instruments     []string `json:"instruments"`
	IntervalMinutes int      `json:"intervalMinutes"`
}

func (s *Server) apiPostSettings(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller()
	if ctrl == nil {
		writeError(w, http.StatusServiceUnavailable, "scanner not running")
		return
	}
	var req settingsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	settings, err := s.resolveSettings(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctrl.UpdateSettings(settings)
	s.log.Info("settings changed via dashboard",
		zap.Strings("instruments", settings.Instruments),
		zap.Int("interval_minutes", req.IntervalMinutes),
	)
	writeJSON(w, http.StatusOK, settingsView(ctrl.Settings()))
}

// resolveSettings 校验区间并把标的解析为目录中的标准名称；目录为空时不做校验。
func (s *Server) resolveSettings(req settingsRequest) (scanner.Settings, error) {
	if req.IntervalMinutes < scanner.MinIntervalMinutes || req.IntervalMinutes > scanner.MaxIntervalMinutes {
		return scanner.Settings{}, fmt.Errorf("intervalMinutes must be within [%d, %d]",
			scanner.MinIntervalMinutes, scanner.MaxIntervalMinutes)
	}
	cat := s.catalog.Catalog()
	names := make([]string, 0, len(req.Instruments))
	var unknown []string
	for _, raw := range scanner.NormalizeInstruments(req.Instruments) {
		if cat.Len() == 0 {
			names = append(names, raw)
			continue
		}
		in, ok := cat.Resolve(raw)
		if !ok {
			unknown = append(unknown, raw)
			continue
		}
		names = append(names, in.Name)
	}
	if len(unknown) > 0 {
		return scanner.Settings{}, fmt.Errorf("unsupported instruments: %s", strings.Join(unknown, ", "))
	}
	return scanner.Settings{
		Instruments: scanner.NormalizeInstruments(names),
		Interval:    time.Duration(req.IntervalMinutes) * time.Minute,
	}, nil
}

func (s *Server) controller() SettingsController {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
