package system

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Stats collects phase timings for one run
type Stats struct {
	Build  string
	start  time.Time
	phases []phase
}

type phase struct {
	name string
	took time.Duration
}

func NewStats(build string) *Stats {
	return &Stats{Build: build, start: time.Now()}
}

// Track times fn as a named phase.
func (s *Stats) Track(name string, fn func() error) error {
	began := time.Now()
	err := fn()
	s.phases = append(s.phases, phase{name: name, took: time.Since(began)})
	return err
}

// Usage is the process resource snapshot included in the report
type Usage struct {
	RSSBytes    uint64
	CPUSeconds  float64
	SystemTotal uint64
	SystemUsed  float64
}

// CurrentUsage reads process and host memory figures.
func CurrentUsage() (Usage, error) {
	var u Usage
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return u, err
	}
	if mi, err := p.MemoryInfo(); err == nil {
		u.RSSBytes = mi.RSS
	}
	if t, err := p.Times(); err == nil {
		u.CPUSeconds = t.User + t.System
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		u.SystemTotal = vm.Total
		u.SystemUsed = vm.UsedPercent
	}
	return u, nil
}

// Report renders the performance report.
func (s *Stats) Report(u Usage) string {
	var b strings.Builder
	b.WriteString("--- [PERFORMANCE REPORT] ---\n")
	fmt.Fprintf(&b, "Build: %s\n", s.Build)
	fmt.Fprintf(&b, "Total Time: %.2fs\n", time.Since(s.start).Seconds())
	for _, ph := range s.phases {
		fmt.Fprintf(&b, "%s: %.2fs\n", ph.name, ph.took.Seconds())
	}
	fmt.Fprintf(&b, "Peak RSS: %.1f MiB\n", float64(u.RSSBytes)/(1<<20))
	fmt.Fprintf(&b, "CPU Time: %.2fs\n", u.CPUSeconds)
	if u.SystemTotal > 0 {
		fmt.Fprintf(&b, "Host Memory: %.1f GiB (%.0f%% used)\n", float64(u.SystemTotal)/(1<<30), u.SystemUsed)
	}
	b.WriteString("----------------------------\n")
	return b.String()
}

// Print writes the report to w and appends a one-line summary to logPath when set.
func (s *Stats) Print(w io.Writer, logPath string) error {
	u, err := CurrentUsage()
	if err != nil {
		fmt.Fprintf(w, "[!] resource usage unavailable: %v\n", err)
	}
	fmt.Fprint(w, s.Report(u))

	if logPath == "" {
		return nil
	}
	var parts []string
	for _, ph := range s.phases {
		parts = append(parts, fmt.Sprintf("%s: %.2fs", ph.name, ph.took.Seconds()))
	}
	entry := fmt.Sprintf("[%s] Build: %s | Total: %.2fs | %s | RSS: %d\n",
		time.Now().Format("2006-01-02 15:04:05"), s.Build, time.Since(s.start).Seconds(), strings.Join(parts, " | "), u.RSSBytes)

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(entry)
	return err
}
