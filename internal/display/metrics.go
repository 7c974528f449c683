package display

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/QwerMotion/the-Azathoth-project/internal/executor"
	"github.com/QwerMotion/the-Azathoth-project/internal/metrics"
	"github.com/QwerMotion/the-Azathoth-project/internal/trace"
)

func FormatMissionMetrics(mm *metrics.MissionMetrics) string {
	if mm == nil {
		return "No metrics available."
	}
	var sb strings.Builder
	sb.WriteString("Execution metrics:\n")
	sb.WriteString(fmt.Sprintf("- Total: %d ms  (success=%v, tries=%d, steps=%d)\n",
		mm.DurationMs, mm.Succeeded, mm.Tries, mm.Steps()))
	for i := range mm.Gotos {
		writeGoto(&sb, &mm.Gotos[i], "  ")
	}
	return sb.String()
}

func FormatReport(rep executor.Report) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Goto %s: %d step(s), %d replan(s), %d failed, %s\n",
		rep.Goal, rep.Steps, rep.Replans, rep.FailedReplans, rep.Elapsed.Round(time.Millisecond)))
	for _, o := range rep.Outcomes {
		status := "ok"
		if !o.Reached {
			status = "miss"
		}
		sb.WriteString(fmt.Sprintf("  • %-18s %6d ms  cleared=%d placed=%d  [%s]\n",
			o.Target.String(), o.Elapsed.Milliseconds(), o.Cleared, o.Placed, status))
		for _, f := range o.Failures {
			sb.WriteString(fmt.Sprintf("      ! %s\n", f))
		}
	}
	return sb.String()
}

func writeGoto(sb *strings.Builder, g *metrics.GotoMetrics, indent string) {
	sb.WriteString(fmt.Sprintf("%sGoto %s: %d ms  (replans=%d, failed=%d, success=%v)\n",
		indent, g.Goal, g.DurationMs, g.Replans, g.FailedReplans, g.Succeeded))
	for _, w := range g.Waypoints {
		status := "ok"
		if !w.Reached {
			status = "miss"
		}
		var flags []string
		if w.VerticalTimedOut {
			flags = append(flags, "v-timeout")
		}
		if w.HorizontalTimedOut {
			flags = append(flags, "h-timeout")
		}
		extra := ""
		if len(flags) > 0 {
			extra = " " + strings.Join(flags, ",")
		}
		sb.WriteString(fmt.Sprintf("%s  • %-18s %6d ms  [%s]%s\n", indent, w.Cell, w.DurationMs, status, extra))
	}
}

func FormatTraceSummary(path string, s trace.Summary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Trace %s: %d sample(s)\n", path, s.Samples))
	if s.Samples == 0 {
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("  span: %s .. %s (%s)\n",
		s.First.Format(time.RFC3339), s.Last.Format(time.RFC3339), s.Last.Sub(s.First).Round(time.Millisecond)))
	phases := make([]string, 0, len(s.Phases))
	for p := range s.Phases {
		phases = append(phases, p)
	}
	sort.Strings(phases)
	for _, p := range phases {
		sb.WriteString(fmt.Sprintf("  %-10s %d\n", p, s.Phases[p]))
	}
	return sb.String()
}
