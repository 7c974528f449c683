package supervisor

import (
	"fmt"
	"strings"

	"github.com/QwerMotion/the-Azathoth-project/internal/world"
)

const (
	StatusPending   = "PENDING"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

type Kind string

const (
	KindMine   Kind = "mine"
	KindGoto   Kind = "goto"
	KindWander Kind = "wander"
	KindRun    Kind = "run"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindMine, KindGoto, KindWander, KindRun:
		return k, nil
	default:
		return "", fmt.Errorf("unknown mission kind %q", s)
	}
}

// Mission is one unit of work for the agent. Zero numeric fields fall back
// to the tuning defaults.
type Mission struct {
	ID       string
	Name     string
	Kind     Kind
	Material world.BlockStatus
	Target   world.Cell
	Tries    int
	Range    int
	Rounds   int
	Radius   int

	State          string
	CurrentAttempt int
	MaxRetries     int
}

func (m Mission) Describe() string {
	switch m.Kind {
	case KindMine:
		return fmt.Sprintf("mine %s", m.Material)
	case KindGoto:
		return fmt.Sprintf("goto %s", m.Target)
	case KindWander:
		return fmt.Sprintf("wander ±%d", m.Range)
	case KindRun:
		if m.Rounds <= 0 {
			return fmt.Sprintf("run %s (endless)", m.Material)
		}
		return fmt.Sprintf("run %s x%d", m.Material, m.Rounds)
	default:
		return string(m.Kind)
	}
}

func (m Mission) Validate() error {
	switch m.Kind {
	case KindMine, KindRun:
		if strings.TrimSpace(string(m.Material)) == "" {
			return fmt.Errorf("%s mission needs a material", m.Kind)
		}
	case KindGoto, KindWander:
	default:
		return fmt.Errorf("unknown mission kind %q", m.Kind)
	}
	if m.Tries < 0 || m.Range < 0 || m.Rounds < 0 || m.Radius < 0 || m.MaxRetries < 0 {
		return fmt.Errorf("mission %q has negative limits", m.Describe())
	}
	return nil
}

// IsMissionRisky reports missions that never end on their own and should be
// confirmed before they are queued.
func IsMissionRisky(m Mission) bool {
	return m.Kind == KindRun && m.Rounds <= 0
}
