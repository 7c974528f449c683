package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/QwerMotion/the-Azathoth-project/internal/world"
)

// Generator produces a JSON document for a prompt.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string, schema any) (string, error)
}

var commandSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"verb": map[string]any{
			"type": "string",
			"enum": []string{"mine", "goto", "wander", "run", "locate", "status", "missions", "cancel", "help", "unknown"},
		},
		"material":   map[string]any{"type": "string"},
		"target":     map[string]any{"type": "object", "properties": map[string]any{"x": map[string]any{"type": "integer"}, "y": map[string]any{"type": "integer"}, "z": map[string]any{"type": "integer"}}},
		"tries":      map[string]any{"type": "integer"},
		"range":      map[string]any{"type": "integer"},
		"rounds":     map[string]any{"type": "integer"},
		"radius":     map[string]any{"type": "integer"},
		"count":      map[string]any{"type": "integer"},
		"path":       map[string]any{"type": "string"},
		"names":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"mission_id": map[string]any{"type": "string"},
		"previous":   map[string]any{"type": "boolean"},
		"confirm":    map[string]any{"type": "boolean"},
	},
	"required": []string{"verb"},
}

func buildIntentPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString("You translate requests for a block-world agent into ONE console command. Respond ONLY with this JSON (no extra text):\n")
	sb.WriteString("{\"verb\": \"<mine|goto|wander|run|locate|status|missions|cancel|help|unknown>\", \"material\": \"<block id or empty>\", \"target\": {\"x\": <int>, \"y\": <int>, \"z\": <int>}, \"tries\": <int>, \"range\": <int>, \"rounds\": <int>, \"radius\": <int>, \"count\": <int>, \"path\": \"<string>\", \"names\": [<strings>], \"mission_id\": \"<string>\", \"previous\": <bool>, \"confirm\": <bool>}\n\n")

	sb.WriteString("Rules:\n")
	sb.WriteString("- mine: walk to the nearest block of 'material' and break it. 'tries' caps attempts.\n")
	sb.WriteString("- goto: walk to 'target'. Omit target for any other verb.\n")
	sb.WriteString("- wander: walk to a random nearby spot; 'range' is the horizontal reach.\n")
	sb.WriteString("- run: keep mining 'material' for 'rounds' rounds (0 = until stopped).\n")
	sb.WriteString("- locate: list up to 'count' blocks of 'material' without moving.\n")
	sb.WriteString("- missions: queue missions from the local .json file in 'path'; 'names' picks specific ones in order.\n")
	sb.WriteString("- cancel: stop a mission. Put an explicit id in 'mission_id'; set 'previous' for 'last'/'previous'/'most recent'.\n")
	sb.WriteString("- confirm: true ONLY if the user asks to review or preview before anything runs.\n")
	sb.WriteString("- Block ids look like 'minecraft:diamond_ore'. Use 0 or empty for anything not mentioned.\n")
	sb.WriteString("- If the request fits none of these, answer {\"verb\": \"unknown\"}.\n\n")

	sb.WriteString("Examples:\n")
	sb.WriteString("User: \"go dig up some coal, give it five attempts\"\n")
	sb.WriteString("Assistant: {\"verb\": \"mine\", \"material\": \"minecraft:coal_ore\", \"tries\": 5}\n\n")
	sb.WriteString("User: \"walk over to 10 64 -3\"\n")
	sb.WriteString("Assistant: {\"verb\": \"goto\", \"target\": {\"x\": 10, \"y\": 64, \"z\": -3}}\n\n")
	sb.WriteString("User: \"stop the last mission\"\n")
	sb.WriteString("Assistant: {\"verb\": \"cancel\", \"previous\": true}\n\n")

	sb.WriteString("User: \"")
	sb.WriteString(text)
	sb.WriteString("\"\nAssistant JSON response: ")
	return sb.String()
}

// InterpretGoal asks gen to map free text onto a Command. The result is
// checked as strictly as a typed command.
func InterpretGoal(ctx context.Context, gen Generator, text string) (Command, error) {
	if strings.TrimSpace(text) == "" {
		return Command{}, fmt.Errorf("%w: empty line", ErrUnknownCommand)
	}
	raw, err := gen.GenerateJSON(ctx, buildIntentPrompt(text), commandSchema)
	if err != nil {
		return Command{}, fmt.Errorf("failed to interpret command: %w", err)
	}

	var cmd Command
	if err := json.Unmarshal([]byte(raw), &cmd); err != nil {
		return Command{}, fmt.Errorf("error parsing interpreted command JSON: %v\nRaw Response: %s", err, raw)
	}
	return normalize(cmd, text)
}

func normalize(cmd Command, text string) (Command, error) {
	verb, ok := aliases[strings.ToLower(strings.TrimSpace(string(cmd.Verb)))]
	if !ok || verb == VerbExit {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, text)
	}
	cmd.Verb = verb
	if cmd.Tries < 0 || cmd.Range < 0 || cmd.Rounds < 0 || cmd.Radius < 0 || cmd.Count < 0 {
		return Command{}, fmt.Errorf("interpreted %s command has negative limits", cmd.Verb)
	}
	cmd.Material = world.BlockStatus(cmd.Material).Qualified()

	switch cmd.Verb {
	case VerbMine, VerbRun, VerbLocate:
		if cmd.Material == "" {
			return Command{}, fmt.Errorf("interpreted %s command has no material", cmd.Verb)
		}
	case VerbGoto:
		if cmd.Target == nil {
			return Command{}, fmt.Errorf("interpreted goto command has no target")
		}
	case VerbMissions:
		if strings.TrimSpace(cmd.Path) == "" {
			return Command{}, fmt.Errorf("interpreted missions command has no path")
		}
	}
	if cmd.Verb != VerbGoto {
		cmd.Target = nil
	}
	if cmd.Verb != VerbCancel {
		cmd.MissionID, cmd.Previous = "", false
	}
	return cmd, nil
}
