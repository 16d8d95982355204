// Package http assembles the gin router for the chat API and the bundled
// single-page client.
package http

import (
	"context"
	"embed"
	"net/http"

	"github.com/gin-gonic/gin"

	"ipc-assist/internal/interface/http/handler"
	"ipc-assist/internal/platform/container"
)

//go:embed web/index.html
var webFS embed.FS

// NewRouter builds the HTTP routes on top of the wired services.
func NewRouter(c *container.ServiceContainer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	healthHandler := handler.NewHealthHandler(&indexInspector{container: c})
	chatHandler := handler.NewChatHandler(c.ChatService)

	router.GET("/", serveIndex)
	router.GET("/healthz", healthHandler.Check)

	v1 := router.Group("/api/v1")
	chatGroup := v1.Group("/chat")
	chatGroup.POST("/sessions", chatHandler.CreateSession)
	chatGroup.GET("/sessions/:id/history", chatHandler.GetHistory)
	chatGroup.POST("/messages", chatHandler.SendMessage)

	return router
}

func serveIndex(c *gin.Context) {
	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		c.String(http.StatusInternalServerError, "client page unavailable")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// indexInspector adapts the container status to the health handler.
type indexInspector struct {
	container *container.ServiceContainer
}

func (i *indexInspector) Status(ctx context.Context) (bool, int, error) {
	status, err := i.container.Status(ctx)
	if err != nil {
		return false, 0, err
	}
	return status.Ready, status.Count, nil
}
