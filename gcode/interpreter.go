package gcode

import (
	"context"
	"fmt"
	"time"

	"github.com/devadigapratham/printd/axis"
	"github.com/hashicorp/go-hclog"
)

// Machine is the motion side the interpreter drives
type Machine interface {
	Position(id axis.ID) (float64, error)
	SetPosition(id axis.ID, position float64) error
	Move(ctx context.Context, targets map[axis.ID]float64, feedrate float64) error
	Wait(ctx context.Context, d time.Duration) error
}

const mmPerInch = 25.4

var axisLetters = []struct {
	letter string
	id     axis.ID
}{
	{"X", axis.X},
	{"Y", axis.Y},
	{"Z", axis.Z},
}

// interpreter holds the modal state of one job
type interpreter struct {
	machine  Machine
	logger   hclog.Logger
	relative bool
	inches   bool
	// feedrate in mm/s, 0 until the first F word
	feedrate float64
}

func newInterpreter(machine Machine, logger hclog.Logger) *interpreter {
	return &interpreter{
		machine: machine,
		logger:  logger,
	}
}

// execLine parses and executes a single line. Comments, blank lines and
// codes without an effect on the axes are accepted and do nothing.
func (in *interpreter) execLine(ctx context.Context, line string) error {
	cmd := ParseLine(line)
	if cmd == nil {
		return nil
	}

	switch cmd.Name {
	case "G0", "G1":
		return in.move(ctx, cmd)
	case "G4":
		return in.dwell(ctx, cmd)
	case "G20":
		in.inches = true
	case "G21":
		in.inches = false
	case "G28":
		return in.home(ctx, cmd)
	case "G90":
		in.relative = false
	case "G91":
		in.relative = true
	case "G92":
		return in.setPosition(cmd)
	case "M82", "M83", "M84", "M104", "M106", "M107", "M109", "M140", "M190", "M114":
		// extruder, heater, fan and motor power codes have no effect on axis state
	default:
		in.logger.Trace("skipping unsupported code", "code", cmd.Name)
	}
	return nil
}

func (in *interpreter) toMM(v float64) float64 {
	if in.inches {
		return v * mmPerInch
	}
	return v
}

func (in *interpreter) move(ctx context.Context, cmd *Command) error {
	if f, ok, err := cmd.Float("F"); err != nil {
		return err
	} else if ok {
		if f <= 0 {
			return fmt.Errorf("%w: feedrate must be positive in %q", ErrInvalidArgument, cmd.Raw)
		}
		// F is given per minute
		in.feedrate = in.toMM(f) / 60
	}

	targets := make(map[axis.ID]float64, len(axisLetters))
	for _, al := range axisLetters {
		v, ok, err := cmd.Float(al.letter)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		v = in.toMM(v)
		if in.relative {
			pos, err := in.machine.Position(al.id)
			if err != nil {
				return err
			}
			v += pos
		}
		targets[al.id] = v
	}
	if len(targets) == 0 {
		return nil
	}
	return in.machine.Move(ctx, targets, in.feedrate)
}

func (in *interpreter) dwell(ctx context.Context, cmd *Command) error {
	var d time.Duration
	if p, ok, err := cmd.Float("P"); err != nil {
		return err
	} else if ok {
		d = time.Duration(p * float64(time.Millisecond))
	}
	if s, ok, err := cmd.Float("S"); err != nil {
		return err
	} else if ok {
		d = time.Duration(s * float64(time.Second))
	}
	if d < 0 {
		return fmt.Errorf("%w: negative dwell in %q", ErrInvalidArgument, cmd.Raw)
	}
	return in.machine.Wait(ctx, d)
}

// home drives the named axes, or all of them, back to the origin.
func (in *interpreter) home(ctx context.Context, cmd *Command) error {
	targets := make(map[axis.ID]float64, len(axisLetters))
	for _, al := range axisLetters {
		if cmd.Has(al.letter) {
			targets[al.id] = 0
		}
	}
	if len(targets) == 0 {
		for _, al := range axisLetters {
			targets[al.id] = 0
		}
	}
	return in.machine.Move(ctx, targets, 0)
}

func (in *interpreter) setPosition(cmd *Command) error {
	named := false
	for _, al := range axisLetters {
		v, ok, err := cmd.Float(al.letter)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		named = true
		if err := in.machine.SetPosition(al.id, in.toMM(v)); err != nil {
			return err
		}
	}
	if named || cmd.Has("E") {
		return nil
	}

	for _, al := range axisLetters {
		if err := in.machine.SetPosition(al.id, 0); err != nil {
			return err
		}
	}
	return nil
}
