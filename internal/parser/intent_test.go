package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/QwerMotion/the-Azathoth-project/internal/world"
)

type fakeGenerator struct {
	out    string
	err    error
	prompt string
	schema any
}

func (f *fakeGenerator) GenerateJSON(_ context.Context, prompt string, schema any) (string, error) {
	f.prompt = prompt
	f.schema = schema
	return f.out, f.err
}

func TestInterpretGoal(t *testing.T) {
	testCases := []struct {
		name        string
		out         string
		genErr      error
		want        Command
		expectError bool
		unknown     bool
	}{
		{
			name: "mine",
			out:  `{"verb":"mine","material":"coal_ore","tries":5}`,
			want: Command{Verb: VerbMine, Material: "minecraft:coal_ore", Tries: 5},
		},
		{
			name: "goto",
			out:  `{"verb":"goto","target":{"x":10,"y":64,"z":-3}}`,
			want: Command{Verb: VerbGoto, Target: &world.Cell{X: 10, Y: 64, Z: -3}},
		},
		{
			name: "alias verb and stray fields dropped",
			out:  `{"verb":"Stop","previous":true,"target":{"x":1,"y":2,"z":3}}`,
			want: Command{Verb: VerbCancel, Previous: true},
		},
		{
			name: "stray cancel fields dropped",
			out:  `{"verb":"wander","range":4,"mission_id":"x"}`,
			want: Command{Verb: VerbWander, Range: 4},
		},
		{name: "unknown verb", out: `{"verb":"unknown"}`, expectError: true, unknown: true},
		{name: "exit is not interpretable", out: `{"verb":"exit"}`, expectError: true, unknown: true},
		{name: "mine without material", out: `{"verb":"mine"}`, expectError: true},
		{name: "goto without target", out: `{"verb":"goto"}`, expectError: true},
		{name: "missions without path", out: `{"verb":"missions"}`, expectError: true},
		{name: "negative rounds", out: `{"verb":"run","material":"stone","rounds":-1}`, expectError: true},
		{name: "garbage", out: `not json`, expectError: true},
		{name: "generator failure", genErr: errors.New("quota"), expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &fakeGenerator{out: tc.out, err: tc.genErr}
			got, err := InterpretGoal(context.Background(), gen, "do the thing")
			if tc.expectError {
				if err == nil {
					t.Fatalf("expected an error, got %+v", got)
				}
				if tc.unknown != errors.Is(err, ErrUnknownCommand) {
					t.Fatalf("errors.Is(ErrUnknownCommand) = %v for %v", !tc.unknown, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("InterpretGoal: %v", err)
			}
			if got.Verb != tc.want.Verb || got.Material != tc.want.Material || got.Tries != tc.want.Tries ||
				got.Range != tc.want.Range || got.Previous != tc.want.Previous || got.MissionID != tc.want.MissionID {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
			if (got.Target == nil) != (tc.want.Target == nil) || (got.Target != nil && *got.Target != *tc.want.Target) {
				t.Fatalf("target = %v, want %v", got.Target, tc.want.Target)
			}
		})
	}
}

func TestInterpretGoal_Prompt(t *testing.T) {
	gen := &fakeGenerator{out: `{"verb":"status"}`}
	if _, err := InterpretGoal(context.Background(), gen, "where am I"); err != nil {
		t.Fatalf("InterpretGoal: %v", err)
	}
	if !strings.Contains(gen.prompt, `User: "where am I"`) {
		t.Fatalf("prompt does not quote the request:\n%s", gen.prompt)
	}
	if gen.schema == nil {
		t.Fatal("no response schema passed")
	}

	if _, err := InterpretGoal(context.Background(), gen, "  "); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("blank line err = %v", err)
	}
}
