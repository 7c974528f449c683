package display

import (
	"fmt"
	"strings"

	"github.com/QwerMotion/the-Azathoth-project/internal/world"
)

const maxPathCells = 12

const rule = "--------------------------------------------------"

func FormatStatus(pos world.Position, underfoot world.BlockStatus) string {
	var sb strings.Builder
	sb.WriteString("Agent status:\n")
	sb.WriteString(fmt.Sprintf("  position:  %.3f, %.3f, %.3f\n", pos.X, pos.Y, pos.Z))
	sb.WriteString(fmt.Sprintf("  look:      yaw=%.1f pitch=%.1f\n", pos.Yaw, pos.Pitch))
	sb.WriteString(fmt.Sprintf("  cell:      %s\n", pos.Cell()))
	if underfoot != "" {
		sb.WriteString(fmt.Sprintf("  underfoot: %s\n", underfoot))
	}
	return sb.String()
}

// FormatPath prints a path on one line, eliding the middle of long ones.
func FormatPath(path world.Path) string {
	return formatPath(path, maxPathCells)
}

// FormatPathFull never elides; used for logs.
func FormatPathFull(path world.Path) string {
	return formatPath(path, -1)
}

func formatPath(path world.Path, limit int) string {
	if len(path) == 0 {
		return "(empty path)"
	}
	cells := make([]string, 0, len(path))
	for _, c := range path {
		cells = append(cells, c.String())
	}
	if limit >= 0 && len(cells) > limit {
		head := cells[:limit/2]
		tail := cells[len(cells)-limit/2:]
		elided := len(cells) - len(head) - len(tail)
		cells = append(append(append([]string{}, head...), fmt.Sprintf("... %d more ...", elided)), tail...)
	}
	return fmt.Sprintf("%d cells: %s", len(path), strings.Join(cells, " -> "))
}

func FormatCandidates(material world.BlockStatus, origin world.Cell, cells []world.Cell) string {
	if len(cells) == 0 {
		return fmt.Sprintf("No %s found near %s.", material, origin)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d %s near %s:\n", len(cells), material, origin))
	for i, c := range cells {
		sb.WriteString(fmt.Sprintf("  %2d. %-18s dist²=%d\n", i+1, c.String(), c.DistanceSq(origin)))
	}
	return sb.String()
}
