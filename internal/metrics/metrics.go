package metrics

import "time"

type WaypointMetrics struct {
	Cell               string    `json:"cell"`
	Start              time.Time `json:"start"`
	End                time.Time `json:"end"`
	DurationMs         int64     `json:"duration_ms"`
	Reached            bool      `json:"reached"`
	Cleared            int       `json:"cleared"`
	Placed             int       `json:"placed"`
	VerticalTimedOut   bool      `json:"vertical_timed_out,omitempty"`
	HorizontalTimedOut bool      `json:"horizontal_timed_out,omitempty"`
}

type GotoMetrics struct {
	Goal          string            `json:"goal"`
	Start         time.Time         `json:"start"`
	End           time.Time         `json:"end"`
	DurationMs    int64             `json:"duration_ms"`
	Replans       int               `json:"replans"`
	FailedReplans int               `json:"failed_replans"`
	Succeeded     bool              `json:"succeeded"`
	Waypoints     []WaypointMetrics `json:"waypoints"`
}

type MissionMetrics struct {
	MissionID  string        `json:"mission_id"`
	Kind       string        `json:"kind"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	DurationMs int64         `json:"duration_ms"`
	Tries      int           `json:"tries"`
	Succeeded  bool          `json:"succeeded"`
	Gotos      []GotoMetrics `json:"gotos"`
}

// Compute derived fields for a waypoint.
func (w *WaypointMetrics) Finalize() {
	w.DurationMs = w.End.Sub(w.Start).Milliseconds()
}

func (g *GotoMetrics) Finalize() {
	g.DurationMs = g.End.Sub(g.Start).Milliseconds()
}

func (m *MissionMetrics) Finalize() {
	m.DurationMs = m.End.Sub(m.Start).Milliseconds()
}

// Steps counts waypoints across all Goto runs of the mission.
func (m *MissionMetrics) Steps() int {
	n := 0
	for _, g := range m.Gotos {
		n += len(g.Waypoints)
	}
	return n
}
