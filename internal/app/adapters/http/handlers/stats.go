package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/process"
	"net/http"
	"os"
)

func (h *Handlers) Stats(c *gin.Context) {
	st := h.channel.Stats()

	var cpuPercent float64
	if percent, err := cpu.Percent(0, false); err == nil && len(percent) > 0 {
		cpuPercent = percent[0]
	}

	var rss uint64
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfo(); err == nil {
			rss = mem.RSS
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions":    st.Sessions,
		"waits":       st.Waits,
		"backlog":     st.Backlog,
		"appended":    st.Appended,
		"timed_out":   st.TimedOut,
		"expired":     st.Expired,
		"cpu_percent": cpuPercent,
		"rss":         rss,
	})
}
