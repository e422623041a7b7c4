package api

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
)

// streamChanges pushes change announcements to the client over SSE. Each
// event names the collection that changed; the client re-reads it. EventSource
// cannot set headers, so a token query param stands in for Authorization.
func (h *handlers) streamChanges(c echo.Context) error {
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); auth == "" {
		if token := c.QueryParam("token"); token != "" {
			c.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		}
	}
	if _, err := h.actor(c); err != nil {
		return unauthorized(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().WriteHeader(http.StatusOK)
	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.String(http.StatusInternalServerError, "stream unsupported")
	}
	// Write an initial comment to ensure headers are flushed to the client.
	if _, err := c.Response().Write([]byte(":ok\n\n")); err != nil {
		return nil
	}
	flusher.Flush()

	ch := h.Broker.Subscribe()
	defer h.Broker.Unsubscribe(ch)
	ctx := c.Request().Context()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case ev := <-ch:
			data, err := sonic.ConfigStd.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := c.Response().Write([]byte("data: ")); err != nil {
				return nil
			}
			if _, err := c.Response().Write(data); err != nil {
				return nil
			}
			if _, err := c.Response().Write([]byte("\n\n")); err != nil {
				return nil
			}
			flusher.Flush()
		case <-ticker.C:
			// Send a comment as a heartbeat to keep the connection alive.
			if _, err := c.Response().Write([]byte(":keepalive\n\n")); err != nil {
				return nil
			}
			flusher.Flush()
		case <-ctx.Done():
			return nil
		}
	}
}
