package api

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type sessionGreeting struct {
	SessionID string `json:"sessionId"`
}

// streamEvents serves the SSE feed. Each connection gets a fresh session
// ID, announced first as a `session` event, then receives broadcast events
// until the client goes away.
func streamEvents(streams Streams, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}

		sessionID := uuid.NewString()
		ch := streams.Attach(sessionID)
		defer streams.Detach(sessionID)

		greeting, err := sonic.Marshal(sessionGreeting{SessionID: sessionID})
		if err != nil {
			return err
		}
		if err := writeSSE(c, "session", greeting); err != nil {
			return err
		}
		flusher.Flush()

		if logger != nil {
			logger.WithField("session", sessionID).Debug("stream connected")
		}

		ctx := c.Request().Context()
		for {
			select {
			case <-ctx.Done():
				if logger != nil {
					logger.WithField("session", sessionID).Debug("stream disconnected")
				}
				return nil
			case ev := <-ch:
				if err := writeSSE(c, ev.Type, ev.Data); err != nil {
					c.Logger().Error(err)
					return err
				}
				flusher.Flush()
			}
		}
	}
}

func writeSSE(c echo.Context, event string, data []byte) error {
	w := c.Response()
	if _, err := w.Write([]byte("event: " + event + "\n")); err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := w.Write([]byte("\n\n"))
	return err
}
