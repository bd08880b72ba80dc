package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"tripfarm/internal/config"
)

// Requirement defines an external binary TripFarm can use.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// ClientRequirements lists the binaries used by `tripfarm submit --record`.
// Both are optional: the server and plain submissions work without them.
func ClientRequirements(cfg *config.Config) []Requirement {
	ffmpeg, ffplay := "ffmpeg", "ffplay"
	if cfg != nil {
		ffmpeg, ffplay = cfg.Client.FFmpegBinary, cfg.Client.FFplayBinary
	}
	return []Requirement{
		{Name: "FFmpeg", Command: ffmpeg, Description: "Captures microphone answers", Optional: true},
		{Name: "FFplay", Command: ffplay, Description: "Plays recorded answers back", Optional: true},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		case !Available(cmd):
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
		default:
			status.Available = true
		}
		results = append(results, status)
	}
	return results
}

// Available reports whether name resolves to an executable on PATH.
func Available(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
