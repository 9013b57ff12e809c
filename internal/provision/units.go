package provision

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/coreos/go-systemd/v22/unit"
)

const (
	UnitName    = "dreambot-calibration"
	ServiceUnit = UnitName + ".service"
	TimerUnit   = UnitName + ".timer"

	DefaultSecretPath  = "/etc/dreambot/polygon.env"
	DefaultServicePath = "/etc/systemd/system/" + ServiceUnit
	DefaultTimerPath   = "/etc/systemd/system/" + TimerUnit

	SecretKey = "POLYGON_API_KEY"

	// Nightly run, after US market close and Polygon flat-file
	// publication. Persistent=true catches up after host downtime.
	calendarExpr = "*-*-* 03:15:00 UTC"
)

// Grid-search parameter sets are part of the job definition, not of
// the installer's own argument surface.
const (
	potGrid = "0.54,0.56,0.58,0.60,0.62"
	adxGrid = "15,18,20,22,25"
)

// JobSpec parameterizes the rendered calibration job.
type JobSpec struct {
	WorkingDir   string
	Symbols      []string
	LookbackDays int
	MinWinRate   float64
	MinTrades    int
	SecretPath   string
}

// DefaultJobSpec returns the production defaults: the four-symbol
// index universe, 60 trailing days, 0.4 win-rate floor, 400 trades.
func DefaultJobSpec(workingDir string) JobSpec {
	return JobSpec{
		WorkingDir:   workingDir,
		Symbols:      []string{"SPY", "QQQ", "I:SPX", "I:NDX"},
		LookbackDays: 60,
		MinWinRate:   0.4,
		MinTrades:    400,
		SecretPath:   DefaultSecretPath,
	}
}

// calibrationCommand builds the containerized launch command: install
// the calibration package inside the backtest container, then run the
// entry point with the fully expanded argument list.
func calibrationCommand(spec JobSpec) string {
	args := []string{
		"python", "-m", "ops.nightly_calibration",
		"--symbols",
	}
	args = append(args, spec.Symbols...)
	args = append(args,
		"--days", strconv.Itoa(spec.LookbackDays),
		"--sync-method", "rest",
		"--calibration-output", "backtests/calibration.json",
		"--trades-output", "backtests/trades.json",
		"--min-win-rate", strconv.FormatFloat(spec.MinWinRate, 'g', -1, 64),
		"--min-trades", strconv.Itoa(spec.MinTrades),
		"--pot-grid", potGrid,
		"--adx-grid", adxGrid,
	)
	inner := "pip install -e . && " + strings.Join(args, " ")
	return fmt.Sprintf("/usr/bin/docker compose run --rm backtest sh -c %q", inner)
}

// RenderService renders the one-shot service descriptor. Rendering is
// deterministic: identical specs produce byte-identical files.
func RenderService(spec JobSpec) ([]byte, error) {
	opts := []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", "dreambot nightly Polygon sync and calibration"),
		unit.NewUnitOption("Unit", "After", "network-online.target docker.service"),
		unit.NewUnitOption("Unit", "Wants", "network-online.target"),
		unit.NewUnitOption("Unit", "Requires", "docker.service"),
		unit.NewUnitOption("Service", "Type", "oneshot"),
		unit.NewUnitOption("Service", "RemainAfterExit", "no"),
		unit.NewUnitOption("Service", "WorkingDirectory", spec.WorkingDir),
		unit.NewUnitOption("Service", "EnvironmentFile", spec.SecretPath),
		unit.NewUnitOption("Service", "ExecStart", calibrationCommand(spec)),
	}
	return serialize(opts)
}

// RenderTimer renders the recurring trigger bound to the service.
func RenderTimer() ([]byte, error) {
	opts := []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", "nightly trigger for "+ServiceUnit),
		unit.NewUnitOption("Timer", "OnCalendar", calendarExpr),
		unit.NewUnitOption("Timer", "Persistent", "true"),
		unit.NewUnitOption("Timer", "Unit", ServiceUnit),
		unit.NewUnitOption("Install", "WantedBy", "timers.target"),
	}
	return serialize(opts)
}

func serialize(opts []*unit.UnitOption) ([]byte, error) {
	b, err := io.ReadAll(unit.Serialize(opts))
	if err != nil {
		return nil, fmt.Errorf("serialize unit: %w", err)
	}
	return b, nil
}
