package provision

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	logx "dreamops/pkg/logx"
)

// Installer provisions the nightly calibration timer on a host.
//
// Re-running with identical arguments converges: descriptors are
// overwritten with identical bytes, the secret is rotated, and
// enable/start are no-ops for an already-active timer. There is no
// rollback; the operator re-runs after fixing the underlying cause.
type Installer struct {
	Host Host
	Log  logx.Logger

	// Stdin/Stdout carry the interactive secret prompt and the
	// completion report.
	Stdin  io.Reader
	Stdout io.Writer

	SecretPath  string
	ServicePath string
	TimerPath   string

	// now is a test seam for the next-run preview.
	now func() time.Time
}

func NewInstaller(host Host, log logx.Logger, stdin io.Reader, stdout io.Writer) *Installer {
	return &Installer{
		Host:        host,
		Log:         log,
		Stdin:       stdin,
		Stdout:      stdout,
		SecretPath:  DefaultSecretPath,
		ServicePath: DefaultServicePath,
		TimerPath:   DefaultTimerPath,
		now:         time.Now,
	}
}

// Run executes the installation steps in order, halting on the first
// failure. The privilege check runs before any filesystem mutation.
func (ins *Installer) Run(ctx context.Context, spec JobSpec) error {
	if err := ins.Host.CheckPrivilege(); err != nil {
		return err
	}
	if spec.WorkingDir == "" {
		return errors.New("provision: working directory is required")
	}
	// The rendered EnvironmentFile must point at the secret this
	// installer actually writes.
	spec.SecretPath = ins.SecretPath

	key, err := ins.promptSecret()
	if err != nil {
		return err
	}
	if err := ins.Host.WriteSecret(ins.SecretPath, SecretKey, key); err != nil {
		return err
	}
	ins.Log.Info("secret provisioned", logx.String("path", ins.SecretPath))

	svc, err := RenderService(spec)
	if err != nil {
		return err
	}
	if err := ins.Host.WriteUnit(ins.ServicePath, svc); err != nil {
		return err
	}

	tmr, err := RenderTimer()
	if err != nil {
		return err
	}
	if err := ins.Host.WriteUnit(ins.TimerPath, tmr); err != nil {
		return err
	}
	ins.Log.Info("unit descriptors rendered",
		logx.String("service", ins.ServicePath),
		logx.String("timer", ins.TimerPath),
	)

	if err := ins.Host.Activate(ctx, TimerUnit); err != nil {
		return err
	}

	ins.report()
	return nil
}

func (ins *Installer) promptSecret() (string, error) {
	fmt.Fprintf(ins.Stdout, "%s: ", SecretKey)
	line, err := bufio.NewReader(ins.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read secret: %w", err)
	}
	key := strings.TrimSpace(line)
	if key == "" {
		return "", errors.New("provision: empty API key")
	}
	return key, nil
}

func (ins *Installer) report() {
	fmt.Fprintf(ins.Stdout, "installed %s\n", ins.ServicePath)
	fmt.Fprintf(ins.Stdout, "installed %s\n", ins.TimerPath)
	if next, err := NextRun(ins.now()); err == nil {
		fmt.Fprintf(ins.Stdout, "next run %s\n", next.Format(time.RFC3339))
	}
	fmt.Fprintf(ins.Stdout, "check with: systemctl status %s\n", TimerUnit)
}
