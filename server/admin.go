package server

import (
	"encoding/json"
	"net/http"

	"voxelarena/logging"
)

// HandleAdminConfig 提供世界同步策略的读取与更新（热更新）
// GET /admin/config?world=world-1  返回当前配置
// POST /admin/config?world=world-1 以 JSON 载荷更新部分字段
func (s *Server) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	name := s.worldName(r)
	world, ok := s.worlds.Lookup(name)
	if !ok {
		http.Error(w, "unknown world", http.StatusNotFound)
		return
	}

	type cfg struct {
		DeparturePolicy *string `json:"departurePolicy,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		policy := world.DeparturePolicy()
		writeJSON(w, http.StatusOK, cfg{DeparturePolicy: &policy})
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.DeparturePolicy != nil {
			if err := world.SetDeparturePolicy(*body.DeparturePolicy); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		logging.Log.Infof("config updated: world=%s departurePolicy=%s", name, world.DeparturePolicy())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleStats 输出指定世界的运行指标
// GET /admin/stats?world=world-1
func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	name := s.worldName(r)
	world, ok := s.worlds.Lookup(name)
	if !ok {
		http.Error(w, "unknown world", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"world":       name,
		"players":     len(world.Snapshot()),
		"terrain":     len(world.terrain),
		"connections": world.Connections(),
		"metrics":     world.Metrics().Snapshot(),
	})
}

// HandleWorlds 列出已创建的世界
func (s *Server) HandleWorlds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"worlds": s.worlds.Names()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
