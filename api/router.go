package api

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitchell6/trello-weekly-report/internal/config"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires the canonical route set plus the static Power-Up assets.
func NewRouter(cfg *config.Config, logger *zap.Logger, h *Handler) *gin.Engine {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))

	if len(cfg.CORSOrigins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = cfg.CORSOrigins
		router.Use(cors.New(corsCfg))
	}

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/lists", h.ListsHandler)
		apiGroup.GET("/cards", h.CardsHandler)
		apiGroup.GET("/report", h.ReportHandler)
		apiGroup.GET("/reports", h.HistoryHandler)
		apiGroup.GET("/health", h.HealthCheckHandler)
	}

	// Everything else is a static asset, with index.html as the SPA-style
	// fallback so deep links into the Power-Up resolve.
	router.NoRoute(staticHandler(cfg.StaticDir))

	return router
}

func staticHandler(dir string) gin.HandlerFunc {
	index := filepath.Join(dir, "index.html")
	return func(c *gin.Context) {
		rel := filepath.Clean(strings.TrimPrefix(c.Request.URL.Path, "/"))
		if rel == "." || strings.HasPrefix(rel, "..") {
			c.File(index)
			return
		}
		path := filepath.Join(dir, rel)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			c.File(path)
			return
		}
		c.File(index)
	}
}
