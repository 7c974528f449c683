package display

import (
	"fmt"
	"strings"

	"github.com/QwerMotion/the-Azathoth-project/internal/supervisor"
)

func FormatMissionsCatalog(file string, missions []supervisor.Mission) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d mission(s) in %s:\n", len(missions), file))
	for i, m := range missions {
		sb.WriteString(fmt.Sprintf("  %2d. %s  (%s, risky=%v)\n",
			i+1, m.Name, m.Describe(), supervisor.IsMissionRisky(m)))
	}
	return sb.String()
}

func FormatMissionResult(r supervisor.MissionResult) string {
	var sb strings.Builder
	sb.WriteString(rule + "\n")
	sb.WriteString(fmt.Sprintf("Mission %s [%s] %s\n", r.MissionID, r.State, r.Name))
	if r.Summary != "" {
		sb.WriteString("  " + r.Summary + "\n")
	}
	if r.Error != "" {
		sb.WriteString("  error: " + r.Error + "\n")
	}
	if r.Metrics != nil {
		sb.WriteString(FormatMissionMetrics(r.Metrics))
	}
	sb.WriteString(rule)
	return sb.String()
}
