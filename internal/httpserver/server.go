package httpserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	cfgpkg "github.com/taoyao-code/heliotherm-exporter/internal/config"
	"github.com/taoyao-code/heliotherm-exporter/internal/health"
)

// Server HTTP 服务封装
type Server struct {
	srv *http.Server
}

// New 创建并配置 Gin + HTTP Server，注册健康检查与指标路由
// agg 为 nil 时 /readyz 恒为就绪，且不注册 /health 系列路由
func New(cfg cfgpkg.HTTPConfig, metricsPath string, metricsHandler http.Handler, agg *health.Aggregator) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if agg == nil || agg.Ready(c.Request.Context()) {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})
	if agg != nil {
		health.RegisterHTTPRoutes(r, agg)
	}

	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	if metricsHandler != nil {
		r.GET(metricsPath, gin.WrapH(metricsHandler))
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Server{srv: srv}
}

// Addr 监听地址
func (s *Server) Addr() string { return s.srv.Addr }

// Start 启动 HTTP 服务（阻塞）
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler 路由处理器
func (s *Server) Handler() http.Handler { return s.srv.Handler }
