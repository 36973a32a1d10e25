package procmap

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// LsofLookup returns a PortLookupFunc that shells out to lsof, the
// reliable source on macOS when the connection table misses a socket.
// The command is killed when it exceeds timeout.
func LsofLookup(timeout time.Duration) PortLookupFunc {
	return func(ctx context.Context, port uint16) (Owner, bool) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		// -n and -P skip name resolution, -F pcn emits one tagged field
		// per line: p<pid>, c<command>, n<address>.
		cmd := exec.CommandContext(ctx, "lsof", "-i", fmt.Sprintf(":%d", port), "-n", "-P", "-F", "pcn")
		out, err := cmd.Output()
		if err != nil {
			return Owner{}, false
		}
		return parseLsofOutput(out)
	}
}

// parseLsofOutput extracts the first process from lsof -F pcn output.
func parseLsofOutput(out []byte) (Owner, bool) {
	var pid int64
	var name string
	for _, line := range strings.Split(string(out), "\n") {
		if len(line) < 2 {
			continue
		}
		switch line[0] {
		case 'p':
			v, err := strconv.ParseInt(line[1:], 10, 64)
			if err != nil {
				return Owner{}, false
			}
			pid = v
		case 'c':
			name = line[1:]
		}
		if pid != 0 && name != "" {
			break
		}
	}
	if pid == 0 || name == "" {
		return Owner{}, false
	}
	return Owner{PID: pid, Name: name}, true
}
