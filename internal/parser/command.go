package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/QwerMotion/the-Azathoth-project/internal/supervisor"
	"github.com/QwerMotion/the-Azathoth-project/internal/world"
)

// ErrUnknownCommand means the line did not start with a known verb. Callers
// may hand such lines to InterpretGoal.
var ErrUnknownCommand = errors.New("unknown command")

type Verb string

const (
	VerbMine     Verb = "mine"
	VerbGoto     Verb = "goto"
	VerbWander   Verb = "wander"
	VerbRun      Verb = "run"
	VerbLocate   Verb = "locate"
	VerbStatus   Verb = "status"
	VerbMissions Verb = "missions"
	VerbCancel   Verb = "cancel"
	VerbHelp     Verb = "help"
	VerbExit     Verb = "exit"
)

var aliases = map[string]Verb{
	"mine":     VerbMine,
	"dig":      VerbMine,
	"goto":     VerbGoto,
	"go":       VerbGoto,
	"wander":   VerbWander,
	"run":      VerbRun,
	"locate":   VerbLocate,
	"find":     VerbLocate,
	"status":   VerbStatus,
	"pos":      VerbStatus,
	"missions": VerbMissions,
	"cancel":   VerbCancel,
	"stop":     VerbCancel,
	"help":     VerbHelp,
	"?":        VerbHelp,
	"exit":     VerbExit,
	"quit":     VerbExit,
}

// Command is one parsed console line. Zero numeric fields mean "use the
// tuning default".
type Command struct {
	Verb      Verb              `json:"verb"`
	Material  world.BlockStatus `json:"material,omitempty"`
	Target    *world.Cell       `json:"target,omitempty"`
	Tries     int               `json:"tries,omitempty"`
	Range     int               `json:"range,omitempty"`
	Rounds    int               `json:"rounds,omitempty"`
	Radius    int               `json:"radius,omitempty"`
	Count     int               `json:"count,omitempty"`
	Path      string            `json:"path,omitempty"`
	Names     []string          `json:"names,omitempty"`
	MissionID string            `json:"mission_id,omitempty"`
	Previous  bool              `json:"previous,omitempty"`
	Confirm   bool              `json:"confirm,omitempty"`
}

const Usage = `commands:
  mine <material> [tries]          walk to and break the nearest block of material
  goto <x> <y> <z> [radius]        path to a cell and follow it
  wander [range] [tries]           walk to a random reachable cell nearby
  run <material> [rounds] [tries]  mine repeatedly, wandering after failures (0 rounds = endless)
  locate <material> [n] [radius]   list the nearest blocks of material
  status                           show position and the block underfoot
  missions <file.json> [name...]   queue missions from a file
  cancel [id|last]                 cancel a running mission
  help | exit`

// ParseCommand parses one console line.
func ParseCommand(line string) (Command, error) {
	fields := splitFields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty line", ErrUnknownCommand)
	}
	verb, ok := aliases[strings.ToLower(fields[0])]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}
	args := fields[1:]
	cmd := Command{Verb: verb}

	var err error
	switch verb {
	case VerbMine:
		if len(args) < 1 || len(args) > 2 {
			return Command{}, usageErr(verb, "<material> [tries]")
		}
		cmd.Material = world.BlockStatus(args[0]).Qualified()
		cmd.Tries, err = optInt(args, 1, "tries")
	case VerbGoto:
		if len(args) < 3 || len(args) > 4 {
			return Command{}, usageErr(verb, "<x> <y> <z> [radius]")
		}
		var c world.Cell
		if c, err = parseCell(args[:3]); err != nil {
			return Command{}, err
		}
		cmd.Target = &c
		cmd.Radius, err = optInt(args, 3, "radius")
	case VerbWander:
		if len(args) > 2 {
			return Command{}, usageErr(verb, "[range] [tries]")
		}
		if cmd.Range, err = optInt(args, 0, "range"); err == nil {
			cmd.Tries, err = optInt(args, 1, "tries")
		}
	case VerbRun:
		if len(args) < 1 || len(args) > 3 {
			return Command{}, usageErr(verb, "<material> [rounds] [tries]")
		}
		cmd.Material = world.BlockStatus(args[0]).Qualified()
		if cmd.Rounds, err = optInt(args, 1, "rounds"); err == nil {
			cmd.Tries, err = optInt(args, 2, "tries")
		}
	case VerbLocate:
		if len(args) < 1 || len(args) > 3 {
			return Command{}, usageErr(verb, "<material> [n] [radius]")
		}
		cmd.Material = world.BlockStatus(args[0]).Qualified()
		if cmd.Count, err = optInt(args, 1, "n"); err == nil {
			cmd.Radius, err = optInt(args, 2, "radius")
		}
	case VerbMissions:
		if len(args) < 1 {
			return Command{}, usageErr(verb, "<file.json> [name...]")
		}
		cmd.Path = args[0]
		if len(args) > 1 {
			cmd.Names = append([]string(nil), args[1:]...)
		}
	case VerbCancel:
		switch {
		case len(args) == 0:
		case len(args) == 1 && isPrevious(args[0]):
			cmd.Previous = true
		case len(args) == 1:
			cmd.MissionID = args[0]
		default:
			return Command{}, usageErr(verb, "[id|last]")
		}
	case VerbStatus, VerbHelp, VerbExit:
		if len(args) > 0 {
			return Command{}, usageErr(verb, "")
		}
	}
	if err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// Mission converts a mission-producing command. ok is false for verbs that
// do not queue work.
func (c Command) Mission() (m supervisor.Mission, ok bool) {
	switch c.Verb {
	case VerbMine:
		m = supervisor.Mission{Kind: supervisor.KindMine, Material: c.Material, Tries: c.Tries}
	case VerbGoto:
		if c.Target == nil {
			return supervisor.Mission{}, false
		}
		m = supervisor.Mission{Kind: supervisor.KindGoto, Target: *c.Target, Radius: c.Radius}
	case VerbWander:
		m = supervisor.Mission{Kind: supervisor.KindWander, Range: c.Range, Tries: c.Tries}
	case VerbRun:
		m = supervisor.Mission{Kind: supervisor.KindRun, Material: c.Material, Rounds: c.Rounds, Tries: c.Tries}
	default:
		return supervisor.Mission{}, false
	}
	m.Name = m.Describe()
	return m, true
}

// splitFields splits on whitespace but keeps double-quoted runs together so
// mission names with spaces survive.
func splitFields(line string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote bool
		seen  bool
	)
	flush := func() {
		if seen {
			out = append(out, cur.String())
		}
		cur.Reset()
		seen = false
	}
	for _, r := range strings.TrimSpace(line) {
		switch {
		case r == '"':
			quote = !quote
			seen = true
		case !quote && (r == ' ' || r == '\t'):
			flush()
		default:
			cur.WriteRune(r)
			seen = true
		}
	}
	flush()
	return out
}

func parseCell(args []string) (world.Cell, error) {
	var v [3]int
	for i, a := range args {
		n, err := strconv.Atoi(strings.TrimSuffix(a, ","))
		if err != nil {
			return world.Cell{}, fmt.Errorf("bad coordinate %q: %w", a, err)
		}
		v[i] = n
	}
	return world.Cell{X: v[0], Y: v[1], Z: v[2]}, nil
}

func optInt(args []string, i int, name string) (int, error) {
	if i >= len(args) {
		return 0, nil
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad %s %q: want a non-negative integer", name, args[i])
	}
	return n, nil
}

func isPrevious(s string) bool {
	switch strings.ToLower(s) {
	case "last", "previous", "prev":
		return true
	}
	return false
}

func usageErr(v Verb, args string) error {
	return fmt.Errorf("usage: %s", strings.TrimSpace(string(v)+" "+args))
}
