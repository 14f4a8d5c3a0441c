// Package process looks up running processes with gopsutil.
package process

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fgeck/timetracker-installer/internal/models"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"
)

// Service defines the interface for process lookups.
type Service interface {
	FindByCommand(ctx context.Context, needle string) ([]models.ProcessInfo, error)
}

// Lister lists running processes.
type Lister interface {
	List(ctx context.Context) ([]models.ProcessInfo, error)
}

// DefaultLister lists processes through gopsutil.
type DefaultLister struct{}

// List returns every process whose command line can be read.
func (DefaultLister) List(ctx context.Context) ([]models.ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	result := make([]models.ProcessInfo, 0, len(procs))
	for _, p := range procs {
		cmdline, err := p.CmdlineWithContext(ctx)
		if err != nil {
			// Process exited or is not ours to inspect.
			continue
		}
		name, _ := p.NameWithContext(ctx)
		result = append(result, models.ProcessInfo{
			PID:     p.Pid,
			Name:    name,
			Cmdline: cmdline,
		})
	}
	return result, nil
}

// Impl implements the Service interface.
type Impl struct {
	lister Lister
	logger zerolog.Logger
}

// New creates a new process service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		lister: DefaultLister{},
		logger: logger,
	}
}

// NewWithLister creates a new process service with a custom lister (for testing).
func NewWithLister(logger zerolog.Logger, lister Lister) *Impl {
	return &Impl{
		lister: lister,
		logger: logger,
	}
}

// FindByCommand returns the processes whose command line contains needle, ordered by PID.
func (s *Impl) FindByCommand(ctx context.Context, needle string) ([]models.ProcessInfo, error) {
	if needle == "" {
		return nil, fmt.Errorf("empty search term")
	}

	all, err := s.lister.List(ctx)
	if err != nil {
		return nil, err
	}

	var found []models.ProcessInfo
	for _, p := range all {
		if strings.Contains(p.Cmdline, needle) {
			found = append(found, p)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].PID < found[j].PID })

	s.logger.Debug().Str("needle", needle).Int("count", len(found)).Msg("process lookup")
	return found, nil
}
