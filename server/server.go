package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voxelarena/config"
)

// Server 协调端 HTTP 入口：世界 WebSocket、图演示、管理与监控接口
type Server struct {
	cfg    *config.Config
	worlds *WorldManager
	graph  *GraphBoard
}

// New 创建协调端，并预创建默认世界
func New(cfg *config.Config) *Server {
	s := &Server{
		cfg:    cfg,
		worlds: NewWorldManager(cfg),
		graph:  NewGraphBoard(cfg.Graph, cfg.Sync.EventQueue),
	}
	s.graph.Start()
	_ = s.worlds.GetOrCreateWorld(cfg.Server.DefaultWorld)
	return s
}

// Worlds 世界管理器
func (s *Server) Worlds() *WorldManager { return s.worlds }

// Graph 图演示
func (s *Server) Graph() *GraphBoard { return s.graph }

// Router 注册全部路由
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.HandleWS)
	r.HandleFunc("/graph/ws", s.HandleGraphWS)
	r.HandleFunc("/admin/config", s.HandleAdminConfig).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/admin/stats", s.HandleStats).Methods(http.MethodGet)
	r.HandleFunc("/admin/worlds", s.HandleWorlds).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if s.cfg.Server.StaticDir != "" {
		// 前后端分离：将 / 映射到静态资源目录
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.cfg.Server.StaticDir)))
	}
	return r
}

// Close 停止全部世界与图演示
func (s *Server) Close() {
	s.worlds.StopAll()
	s.graph.Stop()
}

func (s *Server) worldName(r *http.Request) string {
	if name := r.URL.Query().Get("world"); name != "" {
		return name
	}
	return s.cfg.Server.DefaultWorld
}
