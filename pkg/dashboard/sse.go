package dashboard

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// tasksSSE streams task summaries via Server-Sent Events
func (d *Dashboard) tasksSSE(c *gin.Context) {
	d.stream(c, "tasks", d.taskSummaries)
}

// workersSSE streams worker updates via Server-Sent Events
func (d *Dashboard) workersSSE(c *gin.Context) {
	d.stream(c, "workers", d.workers)
}

// statusSSE streams coordinator counts via Server-Sent Events
func (d *Dashboard) statusSSE(c *gin.Context) {
	d.stream(c, "status", d.status)
}

// stream writes one snapshot immediately, then one per interval until the
// client goes away.
func (d *Dashboard) stream(c *gin.Context, event string, snapshot func() any) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	clientGone := c.Request.Context().Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		data, err := json.Marshal(snapshot())
		if err != nil {
			d.logger.Error("encode event", slog.String("event", event), slog.String("error", err.Error()))
			return
		}

		fmt.Fprintf(c.Writer, "event: %s\n", event)
		fmt.Fprintf(c.Writer, "data: %s\n\n", data)
		c.Writer.Flush()

		select {
		case <-clientGone:
			return
		case <-ticker.C:
		}
	}
}
