package probe

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
)

// ProcScan walks the process-information pseudo-filesystem directly
// and matches the service token against each process's command line.
//
// It deliberately avoids shelling out to pgrep/ps: target hosts are
// minimal containers that may not carry those utilities, and a missing
// tool must never turn into a DEAD verdict.
type ProcScan struct {
	root string
}

func NewProcScan(root string) *ProcScan {
	if root == "" {
		root = "/proc"
	}
	return &ProcScan{root: root}
}

func (s *ProcScan) Name() string { return "procscan" }

func (s *ProcScan) Probe(ctx context.Context, service string) (bool, error) {
	// An empty token must never match every process.
	if strings.TrimSpace(service) == "" {
		return false, nil
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return false, err
	}

	for _, ent := range entries {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if !ent.IsDir() || !isNumeric(ent.Name()) {
			continue
		}
		// /proc/<pid>/cmdline is NUL-separated argv.
		data, err := os.ReadFile(filepath.Join(s.root, ent.Name(), "cmdline"))
		if err != nil {
			// Process exited between enumeration and read; skip silently.
			continue
		}
		cmdline := string(bytes.ReplaceAll(data, []byte{0}, []byte{' '}))
		if strings.Contains(cmdline, service) {
			return true, nil
		}
	}
	return false, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
