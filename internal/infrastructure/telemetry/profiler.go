package telemetry

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// contentionRate is the sampling rate set for mutex and block profiles
const contentionRate = 5

var profileTypesByName = map[string][]pyroscope.ProfileType{
	"cpu":           {pyroscope.ProfileCPU},
	"alloc_objects": {pyroscope.ProfileAllocObjects},
	"alloc_space":   {pyroscope.ProfileAllocSpace},
	"inuse_objects": {pyroscope.ProfileInuseObjects},
	"inuse_space":   {pyroscope.ProfileInuseSpace},
	"goroutines":    {pyroscope.ProfileGoroutines},
	"mutex":         {pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration},
	"block":         {pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration},
}

// ProfilerConfig points the Pyroscope agent at its server
type ProfilerConfig struct {
	ServerAddress   string // e.g. "http://pyroscope:4040"
	ApplicationName string
	// ProfileTypes names the profiles to collect: cpu, alloc_space, mutex, ...
	ProfileTypes []string
}

// Profiler is a running Pyroscope agent. A nil *Profiler is a no-op.
type Profiler struct {
	agent   *pyroscope.Profiler
	logger  *zap.Logger
	stop    sync.Once
	stopErr error
}

// StartProfiler starts continuous profiling. Mutex and block profiles also
// switch on the runtime sampling they depend on.
func StartProfiler(cfg ProfilerConfig, logger *zap.Logger) (*Profiler, error) {
	if cfg.ServerAddress == "" {
		return nil, errors.New("profiler server address is required")
	}
	if cfg.ApplicationName == "" {
		cfg.ApplicationName = DefaultServiceName
	}
	types, err := resolveProfileTypes(cfg.ProfileTypes)
	if err != nil {
		return nil, err
	}

	tags := map[string]string{}
	if host, err := os.Hostname(); err == nil {
		tags["hostname"] = host
	}
	if pod := os.Getenv("POD_NAME"); pod != "" {
		tags["pod"] = pod
	}

	agent, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ApplicationName,
		ServerAddress:   cfg.ServerAddress,
		Logger:          logger.Named("pyroscope").Sugar(),
		Tags:            tags,
		ProfileTypes:    types,
	})
	if err != nil {
		return nil, fmt.Errorf("start pyroscope: %w", err)
	}
	logger.Info("Pyroscope profiler started",
		zap.String("server_address", cfg.ServerAddress),
		zap.Strings("profile_types", cfg.ProfileTypes),
	)
	return &Profiler{agent: agent, logger: logger}, nil
}

func resolveProfileTypes(names []string) ([]pyroscope.ProfileType, error) {
	var types []pyroscope.ProfileType
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		t, ok := profileTypesByName[name]
		if !ok {
			return nil, fmt.Errorf("unknown profile type %q", name)
		}
		switch name {
		case "mutex":
			runtime.SetMutexProfileFraction(contentionRate)
		case "block":
			runtime.SetBlockProfileRate(contentionRate)
		}
		types = append(types, t...)
	}
	return types, nil
}

// Stop flushes pending profiles; later calls return the first result
func (p *Profiler) Stop() error {
	if p == nil {
		return nil
	}
	p.stop.Do(func() {
		if p.stopErr = p.agent.Stop(); p.stopErr == nil {
			p.logger.Info("Pyroscope profiler stopped")
		}
	})
	return p.stopErr
}
