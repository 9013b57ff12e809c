// Package provision installs the nightly calibration job as a host
// systemd timer: secret file, one-shot service unit, recurring timer
// unit, activation.
//
// All OS-boundary effects (privilege, filesystem, systemd) sit behind
// the Host interface so the step logic and idempotence rules are
// testable without a privileged environment.
package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	systemdctl "dreamops/pkg/systemdctl"
)

// ErrNotRoot is returned before any filesystem mutation when the
// caller lacks administrative rights.
var ErrNotRoot = errors.New("provision: must run as root")

// Host abstracts the privileged host surface the installer touches.
type Host interface {
	// CheckPrivilege fails when the caller cannot perform system-level
	// installation. Called before any mutation.
	CheckPrivilege() error

	// WriteSecret writes a single KEY=value line to path with
	// owner-only permissions, overwriting any previous secret.
	WriteSecret(path, key, value string) error

	// WriteUnit writes a rendered unit descriptor to path.
	WriteUnit(path string, contents []byte) error

	// Activate reloads the unit index, then enables and starts the
	// given timer unit. Idempotent on an already-configured host.
	Activate(ctx context.Context, timer string) error
}

// OSHost is the real implementation: euid check, /etc writes, systemd
// over D-Bus.
type OSHost struct{}

func (OSHost) CheckPrivilege() error {
	if os.Geteuid() != 0 {
		return ErrNotRoot
	}
	return nil
}

func (OSHost) WriteSecret(path, key, value string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create secret dir: %w", err)
	}
	line := key + "=" + value + "\n"
	if err := os.WriteFile(path, []byte(line), 0o600); err != nil {
		return fmt.Errorf("write secret: %w", err)
	}
	// WriteFile does not change the mode of an existing file; secret
	// rotation must also re-tighten permissions.
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("chmod secret: %w", err)
	}
	return nil
}

func (OSHost) WriteUnit(path string, contents []byte) error {
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		return fmt.Errorf("write unit %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (OSHost) Activate(ctx context.Context, timer string) error {
	cl, err := systemdctl.New(ctx)
	if err != nil {
		return err
	}
	defer cl.Close()

	if err := cl.DaemonReload(ctx); err != nil {
		return err
	}
	if err := cl.Enable(ctx, timer); err != nil {
		return err
	}
	return cl.Start(ctx, timer)
}
