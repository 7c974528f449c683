package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/QwerMotion/the-Azathoth-project/internal/supervisor"
	"github.com/QwerMotion/the-Azathoth-project/internal/world"
)

// missionEntry is the on-disk form of one mission.
type missionEntry struct {
	Name     string          `json:"name"`
	Kind     string          `json:"kind"`
	Material string          `json:"material"`
	Target   json.RawMessage `json:"target"`
	Tries    int             `json:"tries"`
	Range    int             `json:"range"`
	Rounds   int             `json:"rounds"`
	Radius   int             `json:"radius"`
	Retries  int             `json:"retries"`
}

/*
LoadMissionsFromFile loads one or many missions from a JSON file and always
returns a slice. Accepted shapes:

 1. {"missions": [ {..mission..}, ... ]}
 2. [ {..mission..}, ... ]
 3. {..mission..}

A target is either [x, y, z] or {"x":..,"y":..,"z":..}. Unnamed missions are
named "manual:<base>#<index>".
*/
func LoadMissionsFromFile(path string) ([]supervisor.Mission, error) {
	clean := filepath.Clean(path)
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("read missions file: %w", err)
	}
	return ParseMissions(data, filepath.Base(clean))
}

// ParseMissions decodes a missions document. base names unnamed entries.
func ParseMissions(data []byte, base string) ([]supervisor.Mission, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%s: empty missions file", base)
	}

	var raws []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, fmt.Errorf("%s: %w", base, err)
		}
	case '{':
		var obj struct {
			Missions []json.RawMessage `json:"missions"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("%s: %w", base, err)
		}
		if obj.Missions != nil {
			raws = obj.Missions
		} else {
			raws = []json.RawMessage{trimmed}
		}
	default:
		return nil, fmt.Errorf("unrecognized missions format in %s", base)
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("%s: no missions", base)
	}

	out := make([]supervisor.Mission, 0, len(raws))
	for i, raw := range raws {
		m, err := parseMission(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: mission #%d: %w", base, i+1, err)
		}
		if m.Name == "" {
			m.Name = fmt.Sprintf("manual:%s#%d", base, i+1)
		}
		out = append(out, m)
	}
	return out, nil
}

func parseMission(raw json.RawMessage) (supervisor.Mission, error) {
	var e missionEntry
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&e); err != nil {
		return supervisor.Mission{}, err
	}
	kind, err := supervisor.ParseKind(e.Kind)
	if err != nil {
		return supervisor.Mission{}, err
	}
	m := supervisor.Mission{
		Name:       strings.TrimSpace(e.Name),
		Kind:       kind,
		Material:   world.BlockStatus(e.Material).Qualified(),
		Tries:      e.Tries,
		Range:      e.Range,
		Rounds:     e.Rounds,
		Radius:     e.Radius,
		MaxRetries: e.Retries,
	}
	if kind == supervisor.KindGoto {
		if len(e.Target) == 0 {
			return supervisor.Mission{}, fmt.Errorf("goto mission needs a target")
		}
		if m.Target, err = parseTarget(e.Target); err != nil {
			return supervisor.Mission{}, err
		}
	}
	if err := m.Validate(); err != nil {
		return supervisor.Mission{}, err
	}
	return m, nil
}

func parseTarget(raw json.RawMessage) (world.Cell, error) {
	var arr []int
	if err := json.Unmarshal(raw, &arr); err == nil {
		if len(arr) != 3 {
			return world.Cell{}, fmt.Errorf("target needs 3 coordinates, got %d", len(arr))
		}
		return world.Cell{X: arr[0], Y: arr[1], Z: arr[2]}, nil
	}
	var obj struct {
		X *int `json:"x"`
		Y *int `json:"y"`
		Z *int `json:"z"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return world.Cell{}, fmt.Errorf("bad target %s", string(raw))
	}
	if obj.X == nil || obj.Y == nil || obj.Z == nil {
		return world.Cell{}, fmt.Errorf("target needs x, y and z")
	}
	return world.Cell{X: *obj.X, Y: *obj.Y, Z: *obj.Z}, nil
}

// SelectMissionsByNames returns missions matching names (case-insensitive)
// in the order asked for, plus the names that matched nothing. No names
// selects everything.
func SelectMissionsByNames(missions []supervisor.Mission, names []string) ([]supervisor.Mission, []string) {
	if len(names) == 0 {
		return missions, nil
	}
	var (
		selected []supervisor.Mission
		missing  []string
	)
	for _, want := range names {
		w := strings.TrimSpace(want)
		if w == "" {
			continue
		}
		found := false
		for i := range missions {
			if strings.EqualFold(missions[i].Name, w) {
				selected = append(selected, missions[i])
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	return selected, missing
}
