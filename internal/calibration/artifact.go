// Package calibration reads the artifact produced by the nightly
// calibration job. The artifact is opaque beyond its three top-level
// fields; this package projects them and never interprets the nested
// payloads.
package calibration

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// DefaultPath is where the calibration job writes its artifact,
// relative to the fleet working directory.
const DefaultPath = "backtests/calibration.json"

// ErrNoArtifact marks the reportable "no calibration found" state.
// An absent artifact is not a failure: the job may simply not have
// run yet on this host.
var ErrNoArtifact = errors.New("no calibration found")

// Artifact is the top-level projection of the calibration JSON.
// Global and GlobalParams stay raw: downstream services own their
// schema.
type Artifact struct {
	GeneratedAt  string          `json:"generated_at"`
	Global       json.RawMessage `json:"global"`
	GlobalParams json.RawMessage `json:"global_params"`
}

// Load reads and projects the artifact at path.
func Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoArtifact
		}
		return nil, fmt.Errorf("read calibration artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse calibration artifact: %w", err)
	}
	return &a, nil
}

// WriteSummary prints the three projected fields verbatim.
func (a *Artifact) WriteSummary(w io.Writer) {
	fmt.Fprintf(w, "generated_at: %s\n", a.GeneratedAt)
	fmt.Fprintf(w, "global: %s\n", rawOrNull(a.Global))
	fmt.Fprintf(w, "global_params: %s\n", rawOrNull(a.GlobalParams))
}

// Report writes the status for an already-loaded artifact: either the
// three fields or the literal absent state. Absence is reported, not
// raised. Callers that also record history pass the same artifact to
// both so one read backs both views.
func Report(w io.Writer, a *Artifact, err error) error {
	if errors.Is(err, ErrNoArtifact) {
		fmt.Fprintln(w, ErrNoArtifact.Error())
		return nil
	}
	if err != nil {
		return err
	}
	a.WriteSummary(w)
	return nil
}

// PrintStatus is the one-shot consumer-facing status read.
func PrintStatus(w io.Writer, path string) error {
	a, err := Load(path)
	return Report(w, a, err)
}

func rawOrNull(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}
