package supervisor

import "github.com/QwerMotion/the-Azathoth-project/internal/metrics"

type MissionResult struct {
	MissionID string                  `json:"mission_id"`
	Name      string                  `json:"name,omitempty"`
	Kind      Kind                    `json:"kind"`
	Goal      string                  `json:"goal"`
	State     string                  `json:"state"`
	Summary   string                  `json:"summary,omitempty"`
	Error     string                  `json:"error,omitempty"`
	Metrics   *metrics.MissionMetrics `json:"metrics,omitempty"`
}
