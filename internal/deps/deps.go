package deps

import (
	"os/exec"
	"strings"
)

// Status represents the installation status of an external binary
type Status struct {
	Installed bool
	Path      string
	Version   string
}

// CheckSox checks if the sox converter is installed and returns its status
func CheckSox(path string) Status {
	if path == "" {
		path = "sox"
	}
	return check(path, "--version")
}

// CheckDecoder checks if the configured decoder command is installed
func CheckDecoder(command string) Status {
	if command == "" {
		return Status{Installed: false}
	}
	return check(command, "--version")
}

func check(binary, versionFlag string) Status {
	path, err := exec.LookPath(binary)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{
		Installed: true,
		Path:      path,
	}

	// first line of --version output, best effort
	output, err := exec.Command(path, versionFlag).Output()
	if err == nil {
		lines := strings.Split(string(output), "\n")
		if len(lines) > 0 {
			status.Version = strings.TrimSpace(lines[0])
		}
	}

	return status
}
