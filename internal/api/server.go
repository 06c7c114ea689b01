// Package api serves the local control and inspection HTTP API.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/Memati8383/AI-Triggerbot/internal/config"
	"github.com/Memati8383/AI-Triggerbot/internal/db"
	"github.com/Memati8383/AI-Triggerbot/internal/engine"
	"github.com/Memati8383/AI-Triggerbot/internal/heatmap"
	"github.com/Memati8383/AI-Triggerbot/internal/httputil"
	"github.com/Memati8383/AI-Triggerbot/internal/monitoring"
	"github.com/Memati8383/AI-Triggerbot/internal/version"
)

const (
	DefaultListenAddr = "localhost:8088"
	defaultListLimit  = 50
)

// Server exposes an engine over HTTP. The heatmap and database are optional.
type Server struct {
	engine *engine.Engine
	heat   *heatmap.Tracker
	db     *db.DB

	srv *http.Server
}

func NewServer(e *engine.Engine, heat *heatmap.Tracker, database *db.DB) *Server {
	return &Server{engine: e, heat: heat, db: database}
}

// Router builds the route table. Admin routes from the database are mounted
// under /debug/ when a database is configured.
func (s *Server) Router() (http.Handler, error) {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware)

	// Routes sit on the root router so a method mismatch answers 405;
	// a PathPrefix subrouter reports it as 404.
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	a := func(path string, h http.HandlerFunc, method string) {
		r.HandleFunc("/api"+path, h).Methods(method)
	}
	a("/version", s.showVersion, http.MethodGet)
	a("/stats", s.showStats, http.MethodGet)
	a("/snapshot", s.showSnapshot, http.MethodGet)
	a("/tracks", s.listTracks, http.MethodGet)

	a("/config", s.showConfig, http.MethodGet)
	a("/config", s.updateConfig, http.MethodPut)
	a("/config/save", s.saveConfig, http.MethodPost)
	a("/config/load", s.loadConfig, http.MethodPost)
	a("/config/{key}", s.setConfigKey, http.MethodPut)

	a("/profiles", s.listProfiles, http.MethodGet)
	a("/profiles/{name}", s.applyProfile, http.MethodPost)

	a("/control/{action}", s.control, http.MethodPost)

	a("/heatmap.png", s.heatmapPNG, http.MethodGet)
	a("/heatmap.html", s.heatmapHTML, http.MethodGet)
	a("/heatmap", s.resetHeatmap, http.MethodDelete)

	a("/sessions", s.listSessions, http.MethodGet)
	a("/sessions/totals", s.sessionTotals, http.MethodGet)
	a("/sessions/{id}", s.showSession, http.MethodGet)

	if s.db != nil {
		admin := http.NewServeMux()
		if err := s.db.AttachAdminRoutes(admin); err != nil {
			return nil, fmt.Errorf("attach admin routes: %w", err)
		}
		r.PathPrefix("/debug/").Handler(admin)
	}
	return r, nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONError(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path))
}

// Start listens on addr and serves until Shutdown.
func (s *Server) Start(addr string) (net.Addr, error) {
	h, err := s.Router()
	if err != nil {
		return nil, err
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	s.srv = &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			monitoring.Logf("[api] server error: %v", err)
		}
	}()
	monitoring.Logf("[api] listening on http://%s", lis.Addr())
	return lis.Addr(), nil
}

// Shutdown stops a server started with Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, version.Current())
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.engine.Stats())
}

func (s *Server) showSnapshot(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.engine.Session().Snapshot())
}

func (s *Server) listTracks(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.engine.Registry().Tracks())
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.engine.Store().Snapshot())
}

// updateConfig merges a partial configuration; keys left out keep their value.
func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	overlay := config.EmptyConfig()
	if err := httputil.DecodeJSON(r, overlay); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := s.engine.Store().Replace(overlay); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, s.engine.Store().Snapshot())
}

type setValueRequest struct {
	Value interface{} `json:"value"`
}

func (s *Server) setConfigKey(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var req setValueRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := s.engine.Store().Set(key, req.Value); err != nil {
		if errors.Is(err, config.ErrUnknownKey) {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{key: s.engine.Store().Get(key, nil)})
}

func (s *Server) saveConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.SaveConfig(); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"path": s.engine.Store().Path()})
}

func (s *Server) loadConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.LoadConfig(); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, s.engine.Store().Snapshot())
}

func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]interface{}{
		"active":   s.engine.Store().Snapshot().GetProfile(),
		"profiles": config.ProfileNames(),
	})
}

func (s *Server) applyProfile(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.engine.ApplyProfile(name); err != nil {
		if errors.Is(err, config.ErrUnknownProfile) {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"profile": name})
}

// control runs one of the hotkey actions remotely.
func (s *Server) control(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	resp := map[string]interface{}{"action": action}
	switch action {
	case "toggle":
		resp["active"] = s.engine.Toggle()
	case "activate":
		s.engine.SetActive(true)
		resp["active"] = true
	case "deactivate":
		s.engine.SetActive(false)
		resp["active"] = false
	case "panic":
		s.engine.Panic()
		resp["active"] = false
	case "reset":
		s.engine.Reset()
		if s.heat != nil {
			s.heat.Reset()
		}
	case "cycle-profile":
		name, err := s.engine.CycleProfile()
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		resp["profile"] = name
	case "cycle-priority":
		mode, err := s.engine.CyclePriority()
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		resp["priority"] = mode.String()
	case "confidence-up", "confidence-down":
		delta := 0.05
		if action == "confidence-down" {
			delta = -delta
		}
		v, err := s.engine.AdjustConfidence(delta)
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		resp["confidence"] = v
	default:
		httputil.NotFound(w, fmt.Sprintf("unknown action %q", action))
		return
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) heatmapPNG(w http.ResponseWriter, r *http.Request) {
	if s.heat == nil {
		httputil.NotFound(w, "heatmap disabled")
		return
	}
	var buf bytes.Buffer
	if err := s.heat.WritePNG(&buf); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) heatmapHTML(w http.ResponseWriter, r *http.Request) {
	if s.heat == nil {
		httputil.NotFound(w, "heatmap disabled")
		return
	}
	var buf bytes.Buffer
	if err := s.heat.WriteHTML(&buf, r.URL.Query().Get("assets")); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) resetHeatmap(w http.ResponseWriter, r *http.Request) {
	if s.heat == nil {
		httputil.NotFound(w, "heatmap disabled")
		return
	}
	s.heat.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		httputil.NotFound(w, "session history disabled")
		return
	}
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = n
	}
	sessions, err := s.db.ListSessions(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list sessions: %v", err))
		return
	}
	httputil.WriteJSONOK(w, sessions)
}

func (s *Server) sessionTotals(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		httputil.NotFound(w, "session history disabled")
		return
	}
	totals, err := s.db.SessionTotals(r.Context())
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, totals)
}

func (s *Server) showSession(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		httputil.NotFound(w, "session history disabled")
		return
	}
	rec, err := s.db.Session(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, db.ErrSessionNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, rec)
}
