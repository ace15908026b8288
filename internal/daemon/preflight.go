package daemon

import (
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"reelsmith/internal/config"
)

// Requirement defines an external dependency the pipeline relies on.
type Requirement struct {
	Name     string
	Command  string
	Optional bool
}

// DependencyStatus reports the availability of a dependency.
type DependencyStatus struct {
	Name      string
	Command   string
	Optional  bool
	Available bool
	Detail    string
}

// requirements lists the binaries the pipeline shells out to.
func requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{Name: "ffmpeg", Command: cfg.Video.FFmpegBinary},
		{Name: "ffprobe", Command: cfg.Video.FFprobeBinary},
	}
	if cfg.Captions.Enabled {
		reqs = append(reqs, Requirement{Name: "transcriber", Command: cfg.Captions.TranscriberBinary, Optional: true})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(reqs []Requirement) []DependencyStatus {
	results := make([]DependencyStatus, 0, len(reqs))
	for _, req := range reqs {
		cmd := strings.TrimSpace(req.Command)
		status := DependencyStatus{
			Name:     req.Name,
			Command:  cmd,
			Optional: req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Preflight verifies the external tools and directory access the daemon
// needs before accepting work. Optional dependencies degrade features and do
// not fail preflight.
func Preflight(cfg *config.Config) ([]DependencyStatus, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.OutputDir, cfg.Paths.LogDir} {
		if err := unix.Access(dir, unix.W_OK); err != nil {
			return nil, fmt.Errorf("directory %s is not writable: %w", dir, err)
		}
	}

	statuses := CheckBinaries(requirements(cfg))
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			return statuses, fmt.Errorf("required dependency %s unavailable: %s", status.Name, status.Detail)
		}
	}
	return statuses, nil
}
