package api

import (
	"context"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"boardsync/gateway"
)

// HeaderSessionID binds an intent batch to the sender's stream session so
// room operations and private error events reach the right connection.
const HeaderSessionID = "X-Session-ID"

// postIntents accepts a batch of intent envelopes and acknowledges before
// processing. Outcomes surface as broadcasts, or as private error events to
// the sending session; the response body only confirms how many were taken.
func postIntents(board Board, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		lr := io.LimitReader(c.Request().Body, intentsBodyMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		intents := make([]gateway.Intent, 0, 4)
		if err := dec.Decode(&intents); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}

		sessionID := c.Request().Header.Get(HeaderSessionID)
		for i := range intents {
			intents[i].SessionID = sessionID
		}

		// Detached from the request context: the 202 must not cancel
		// the mutations behind it.
		go func() {
			ctx := context.Background()
			for _, intent := range intents {
				board.Dispatch(ctx, intent)
			}
		}()

		if logger != nil {
			logger.WithFields(log.Fields{"count": len(intents), "session": sessionID}).Debug("intents accepted")
		}
		return c.JSON(http.StatusAccepted, intentsResponse{Accepted: len(intents)})
	}
}
