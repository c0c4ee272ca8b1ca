package demo

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/timefmt"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/shirou/gopsutil/v4/sensors"
)

// Source produces metrics for one demo agent.
type Source interface {
	Sample(ctx context.Context, now time.Time) (api.MetricSample, error)
	Processes(ctx context.Context) ([]api.Process, error)
}

// Synthetic is a random-walk source. The same seed always produces the same
// sequence, which keeps tests stable.
type Synthetic struct {
	mu  sync.Mutex
	rng *rand.Rand
	gpu bool

	cpu, ram, gpuLoad float64
	netIn, netOut     float64
	diskUsed          float64
}

// NewSynthetic creates a synthetic source. withGPU adds GPU load and temperature.
func NewSynthetic(seed uint64, withGPU bool) *Synthetic {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return &Synthetic{
		rng:      rng,
		gpu:      withGPU,
		cpu:      20 + rng.Float64()*40,
		ram:      30 + rng.Float64()*30,
		gpuLoad:  rng.Float64() * 50,
		netIn:    200_000 + rng.Float64()*800_000,
		netOut:   50_000 + rng.Float64()*200_000,
		diskUsed: 40 + rng.Float64()*40,
	}
}

// walk moves v by up to step in either direction, kept inside [lo, hi].
func (s *Synthetic) walk(v, step, lo, hi float64) float64 {
	v += (s.rng.Float64()*2 - 1) * step
	return math.Max(lo, math.Min(hi, v))
}

func (s *Synthetic) Sample(_ context.Context, now time.Time) (api.MetricSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cpu = s.walk(s.cpu, 12, 1, 100)
	s.ram = s.walk(s.ram, 3, 5, 98)
	s.netIn = s.walk(s.netIn, 150_000, 0, 5_000_000)
	s.netOut = s.walk(s.netOut, 60_000, 0, 2_000_000)
	s.diskUsed = s.walk(s.diskUsed, 0.05, 1, 99)

	cpuTemp := round1(35 + s.cpu*0.45 + s.rng.Float64()*3)
	sample := api.MetricSample{
		Timestamp:            timefmt.Time{Time: now.UTC()},
		CPUPercent:           round1(s.cpu),
		RAMPercent:           round1(s.ram),
		CPUTemp:              &cpuTemp,
		NetInBytesPerSec:     math.Round(s.netIn),
		NetOutBytesPerSec:    math.Round(s.netOut),
		DiskReadBytesPerSec:  math.Round(s.rng.Float64() * 4_000_000),
		DiskWriteBytesPerSec: math.Round(s.rng.Float64() * 2_000_000),
		Disks: []api.DiskUsage{{
			Mount:      "/",
			Device:     "/dev/nvme0n1p2",
			TotalBytes: 512 << 30,
			UsedBytes:  uint64(s.diskUsed / 100 * float64(512<<30)),
			Percent:    round1(s.diskUsed),
		}},
	}

	if s.gpu {
		s.gpuLoad = s.walk(s.gpuLoad, 15, 0, 100)
		load := round1(s.gpuLoad)
		temp := round1(30 + s.gpuLoad*0.5)
		sample.GPUPercent = &load
		sample.GPUTemp = &temp
	}
	return sample, nil
}

var syntheticProcs = []struct{ name, user, cmd string }{
	{"postgres", "postgres", "postgres: checkpointer"},
	{"nginx", "www-data", "nginx: worker process"},
	{"node", "app", "node server.js"},
	{"python3", "app", "python3 -m worker --queue default"},
	{"containerd", "root", "/usr/bin/containerd"},
	{"sshd", "root", "sshd: /usr/sbin/sshd -D"},
	{"fleet-agent", "root", "/opt/fleet/agent --config /etc/fleet/agent.yaml"},
	{"redis-server", "redis", "redis-server *:6379"},
}

func (s *Synthetic) Processes(context.Context) ([]api.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	procs := make([]api.Process, 0, len(syntheticProcs))
	for i, p := range syntheticProcs {
		procs = append(procs, api.Process{
			PID:        1000 + i*137,
			Name:       p.name,
			User:       p.user,
			CPUPercent: round1(s.rng.Float64() * s.cpu / 2),
			MemPercent: round1(s.rng.Float64() * 8),
			Command:    p.cmd,
		})
	}
	sortProcesses(procs)
	return procs, nil
}

// maxHostProcesses bounds how many processes HostSource reports.
const maxHostProcesses = 15

// HostSource reports the machine fleetwatch is running on.
type HostSource struct {
	mu   sync.Mutex
	prev *counters
}

type counters struct {
	at                  time.Time
	netIn, netOut       uint64
	diskRead, diskWrite uint64
}

// NewHostSource creates a source backed by this machine's metrics.
func NewHostSource() *HostSource {
	return &HostSource{}
}

// HostAgent describes this machine as an agent.
func HostAgent(ctx context.Context, id string) api.Agent {
	agent := api.Agent{ID: id, Name: "this machine", Status: "online", Tags: []string{"local"}}
	if info, err := host.InfoWithContext(ctx); err == nil {
		agent.Hostname = info.Hostname
		agent.Platform = strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
	}
	return agent
}

func (h *HostSource) Sample(ctx context.Context, now time.Time) (api.MetricSample, error) {
	sample := api.MetricSample{Timestamp: timefmt.Time{Time: now.UTC()}}

	// Zero interval compares against the previous call.
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		sample.CPUPercent = round1(pct[0])
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		sample.RAMPercent = round1(vm.UsedPercent)
	}
	if usage, err := disk.UsageWithContext(ctx, "/"); err == nil {
		sample.Disks = []api.DiskUsage{{
			Mount:      usage.Path,
			TotalBytes: usage.Total,
			UsedBytes:  usage.Used,
			Percent:    round1(usage.UsedPercent),
		}}
	}
	if temps, err := sensors.TemperaturesWithContext(ctx); err == nil {
		if t, ok := hottest(temps); ok {
			sample.CPUTemp = &t
		}
	}

	cur := counters{at: now}
	if io, err := net.IOCountersWithContext(ctx, false); err == nil && len(io) > 0 {
		cur.netIn, cur.netOut = io[0].BytesRecv, io[0].BytesSent
	}
	if io, err := disk.IOCountersWithContext(ctx); err == nil {
		for _, d := range io {
			cur.diskRead += d.ReadBytes
			cur.diskWrite += d.WriteBytes
		}
	}

	h.mu.Lock()
	prev := h.prev
	h.prev = &cur
	h.mu.Unlock()

	if prev != nil {
		secs := cur.at.Sub(prev.at).Seconds()
		sample.NetInBytesPerSec = rate(prev.netIn, cur.netIn, secs)
		sample.NetOutBytesPerSec = rate(prev.netOut, cur.netOut, secs)
		sample.DiskReadBytesPerSec = rate(prev.diskRead, cur.diskRead, secs)
		sample.DiskWriteBytesPerSec = rate(prev.diskWrite, cur.diskWrite, secs)
	}
	return sample, nil
}

func (h *HostSource) Processes(ctx context.Context) ([]api.Process, error) {
	all, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	type entry struct {
		api.Process
		handle *process.Process
	}
	entries := make([]entry, 0, len(all))
	for _, p := range all {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		cpuPct, _ := p.CPUPercentWithContext(ctx)
		memPct, _ := p.MemoryPercentWithContext(ctx)
		user, _ := p.UsernameWithContext(ctx)
		entries = append(entries, entry{
			Process: api.Process{
				PID:        int(p.Pid),
				Name:       name,
				User:       user,
				CPUPercent: round1(cpuPct),
				MemPercent: round1(float64(memPct)),
			},
			handle: p,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CPUPercent > entries[j].CPUPercent
	})
	if len(entries) > maxHostProcesses {
		entries = entries[:maxHostProcesses]
	}

	procs := make([]api.Process, len(entries))
	for i, e := range entries {
		procs[i] = e.Process
		// Command lines are only read for the rows that are kept.
		if cmd, err := e.handle.CmdlineWithContext(ctx); err == nil {
			procs[i].Command = cmd
		}
	}
	return procs, nil
}

func hottest(temps []sensors.TemperatureStat) (float64, bool) {
	best, ok := 0.0, false
	for _, t := range temps {
		if t.Temperature > best && t.Temperature < 150 {
			best, ok = t.Temperature, true
		}
	}
	return round1(best), ok
}

// rate converts two counter readings into bytes per second. Counter resets
// read as zero.
func rate(prev, cur uint64, secs float64) float64 {
	if secs <= 0 || cur < prev {
		return 0
	}
	return math.Round(float64(cur-prev) / secs)
}

func sortProcesses(procs []api.Process) {
	sort.SliceStable(procs, func(i, j int) bool {
		return procs[i].CPUPercent > procs[j].CPUPercent
	})
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
