package http

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ninegrid/server/internal/adapters/ws"
	"github.com/ninegrid/server/internal/config"
)

func SetupRouter(cfg *config.Config, ctl *ws.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/ws", ctl.HandleWS)

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	// Built SPA assets with index fallback for client-side routes.
	// Unknown /ws-prefixed paths stay 404 instead of serving HTML.
	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/ws") {
			c.Status(404)
			return
		}
		serveStatic(c, cfg.StaticPath)
	})

	return r
}

func serveStatic(c *gin.Context, root string) {
	reqPath := filepath.Clean("/" + c.Request.URL.Path)
	full := filepath.Join(root, reqPath)
	// filepath.Join cleans "..", but keep the prefix guard anyway.
	if !strings.HasPrefix(full, filepath.Clean(root)) {
		c.Status(403)
		return
	}
	if st, err := os.Stat(full); err == nil && !st.IsDir() {
		c.File(full)
		return
	}
	index := filepath.Join(root, "index.html")
	if _, err := os.Stat(index); err != nil {
		c.String(404, "404 Not Found")
		return
	}
	c.File(index)
}
