package deps

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external binary mpvkit relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// Resolve overrides the PATH lookup, for binaries with their own search
	// order such as mpv.
	Resolve func(command string) (string, error)
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	// Path is the resolved executable when Available.
	Path   string
	Detail string
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
		resolve := req.Resolve
		if resolve == nil {
			if cmd == "" {
				status.Detail = "command not configured"
				results = append(results, status)
				continue
			}
			resolve = exec.LookPath
		}
		path, err := resolve(cmd)
		if err != nil {
			status.Detail = describeMissing(cmd, err)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = path
		results = append(results, status)
	}
	return results
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}

func describeMissing(cmd string, err error) string {
	if cmd == "" {
		return err.Error()
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return fmt.Sprintf("binary %q not found", cmd)
	}
	return err.Error()
}
