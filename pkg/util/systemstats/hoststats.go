// Package systemstats reports resource usage of the bot and the host it runs on
package systemstats

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"

	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/version"
)

var startTime = time.Now()

func getSystemUsageStats() string {
	out := strings.Builder{}
	out.WriteString("CPU Load: ")
	if h, err := cpu.Percent(time.Millisecond*50, false); err != nil || len(h) == 0 {
		out.WriteString("Error ")
	} else {
		out.WriteString(fmt.Sprintf("%.2f%% ", h[0]))
	}
	out.WriteString("Memory Usage: ")
	if m, err := mem.VirtualMemory(); err != nil {
		out.WriteString("Error")
	} else {
		out.WriteString(fmt.Sprintf("%s/%s (%.2f%%)", humanize.IBytes(m.Used), humanize.IBytes(m.Total), m.UsedPercent))
	}
	return out.String()
}

func getBotUsageStats() string {
	memstats := new(runtime.MemStats)
	runtime.ReadMemStats(memstats)
	return fmt.Sprintf(
		"Version: %s Started: %s Memory Usage: %s",
		version.Version,
		humanize.Time(startTime),
		humanize.IBytes(memstats.Sys),
	)
}

func getGoStats() string {
	return fmt.Sprintf("Goroutines: %s Version: %s", humanize.Comma(int64(runtime.NumGoroutine())), runtime.Version())
}

// GetStats returns a string containing statistics of the currently running bot, and the system as a whole
func GetStats() string {
	return fmt.Sprintf("Bot: %s System: %s Go: %s", getBotUsageStats(), getSystemUsageStats(), getGoStats())
}
