package provision

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	logx "dreamops/pkg/logx"
)

type secretWrite struct {
	path, key, value string
}

type fakeHost struct {
	privErr  error
	writeErr error

	secrets   []secretWrite
	units     map[string][]byte
	activated []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{units: map[string][]byte{}}
}

func (h *fakeHost) CheckPrivilege() error { return h.privErr }

func (h *fakeHost) WriteSecret(path, key, value string) error {
	if h.writeErr != nil {
		return h.writeErr
	}
	h.secrets = append(h.secrets, secretWrite{path, key, value})
	return nil
}

func (h *fakeHost) WriteUnit(path string, contents []byte) error {
	if h.writeErr != nil {
		return h.writeErr
	}
	h.units[path] = append([]byte(nil), contents...)
	return nil
}

func (h *fakeHost) Activate(ctx context.Context, timer string) error {
	h.activated = append(h.activated, timer)
	return nil
}

func newTestInstaller(h Host, in string, out *bytes.Buffer) *Installer {
	return NewInstaller(h, logx.Nop(), strings.NewReader(in), out)
}

func TestInstallerHappyPath(t *testing.T) {
	t.Parallel()
	h := newFakeHost()
	var out bytes.Buffer
	ins := newTestInstaller(h, "pk_test_123\n", &out)

	if err := ins.Run(context.Background(), DefaultJobSpec("/srv/dreambot")); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(h.secrets) != 1 {
		t.Fatalf("secret writes = %d, want 1", len(h.secrets))
	}
	got := h.secrets[0]
	if got.path != DefaultSecretPath || got.key != SecretKey || got.value != "pk_test_123" {
		t.Fatalf("unexpected secret write: %+v", got)
	}

	if _, ok := h.units[DefaultServicePath]; !ok {
		t.Fatal("service unit not written")
	}
	if _, ok := h.units[DefaultTimerPath]; !ok {
		t.Fatal("timer unit not written")
	}
	if len(h.activated) != 1 || h.activated[0] != TimerUnit {
		t.Fatalf("activated = %v, want [%s]", h.activated, TimerUnit)
	}

	report := out.String()
	for _, want := range []string{
		"installed " + DefaultServicePath,
		"installed " + DefaultTimerPath,
		"systemctl status " + TimerUnit,
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestInstallerWithoutPrivilegeWritesNothing(t *testing.T) {
	t.Parallel()
	h := newFakeHost()
	h.privErr = ErrNotRoot
	var out bytes.Buffer
	ins := newTestInstaller(h, "pk_test_123\n", &out)

	err := ins.Run(context.Background(), DefaultJobSpec("/srv/dreambot"))
	if !errors.Is(err, ErrNotRoot) {
		t.Fatalf("err = %v, want ErrNotRoot", err)
	}
	if len(h.secrets) != 0 || len(h.units) != 0 || len(h.activated) != 0 {
		t.Fatal("no side effects allowed before the privilege check passes")
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected output before privilege check: %q", out.String())
	}
}

func TestInstallerRerunIsIdempotent(t *testing.T) {
	t.Parallel()
	spec := DefaultJobSpec("/srv/dreambot")

	h1 := newFakeHost()
	var out1 bytes.Buffer
	if err := newTestInstaller(h1, "key-one\n", &out1).Run(context.Background(), spec); err != nil {
		t.Fatalf("first run: %v", err)
	}

	h2 := newFakeHost()
	var out2 bytes.Buffer
	if err := newTestInstaller(h2, "key-two\n", &out2).Run(context.Background(), spec); err != nil {
		t.Fatalf("second run: %v", err)
	}

	for _, path := range []string{DefaultServicePath, DefaultTimerPath} {
		if !bytes.Equal(h1.units[path], h2.units[path]) {
			t.Fatalf("descriptor %s differs across identical installs", path)
		}
	}
	// The secret is always rotated.
	if h2.secrets[0].value != "key-two" {
		t.Fatalf("secret not rotated: %+v", h2.secrets[0])
	}
	// Exactly one enable+start per install.
	if len(h2.activated) != 1 {
		t.Fatalf("activations = %d, want 1", len(h2.activated))
	}
}

func TestInstallerRejectsEmptyKey(t *testing.T) {
	t.Parallel()
	h := newFakeHost()
	var out bytes.Buffer
	ins := newTestInstaller(h, "\n", &out)

	if err := ins.Run(context.Background(), DefaultJobSpec("/srv/dreambot")); err == nil {
		t.Fatal("expected error for empty API key")
	}
	if len(h.secrets) != 0 {
		t.Fatal("secret must not be written for an empty key")
	}
}

func TestInstallerRequiresWorkingDir(t *testing.T) {
	t.Parallel()
	h := newFakeHost()
	var out bytes.Buffer
	ins := newTestInstaller(h, "pk\n", &out)

	spec := DefaultJobSpec("")
	if err := ins.Run(context.Background(), spec); err == nil {
		t.Fatal("expected error for missing working directory")
	}
}

func TestInstallerHaltsOnWriteFailure(t *testing.T) {
	t.Parallel()
	h := newFakeHost()
	h.writeErr = errors.New("disk full")
	var out bytes.Buffer
	ins := newTestInstaller(h, "pk\n", &out)

	if err := ins.Run(context.Background(), DefaultJobSpec("/srv/dreambot")); err == nil {
		t.Fatal("expected error when writes fail")
	}
	if len(h.activated) != 0 {
		t.Fatal("activation must not happen after a failed write")
	}
}
