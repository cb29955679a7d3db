package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/restoplan/planner-backend/internal/store"
)

const keepAliveInterval = 15 * time.Second

// StreamState pushes the session state using Server-Sent Events: one
// "initial" event, then an "update" after every change. Bursts of changes
// are coalesced into the latest state.
func (h *Handler) StreamState(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	changed := make(chan struct{}, 1)
	unsubscribe := sess.Store.Subscribe(func(store.State) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	writeEvent(c, flusher, "initial", sess.Store.State(), sess.Store.Version())
	h.logger.WithRequest(c.Request.Context()).LogDebugf("stream", "state stream opened for uid=%s", sess.UID())

	ctx := c.Request.Context()
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case <-changed:
			writeEvent(c, flusher, "update", sess.Store.State(), sess.Store.Version())
		}
	}
}

func writeEvent(c *gin.Context, flusher http.Flusher, event string, st store.State, version uint64) {
	data, _ := json.Marshal(gin.H{"state": st, "version": version})
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(data))
	flusher.Flush()
}
