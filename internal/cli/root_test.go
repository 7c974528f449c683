package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/QwerMotion/the-Azathoth-project/internal/config"
	"github.com/QwerMotion/the-Azathoth-project/internal/trace"
	"github.com/QwerMotion/the-Azathoth-project/internal/world"
)

func runRoot(t *testing.T, s config.Settings, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd(&s)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append(args, "--log-file", ""))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStatusCommand(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/position", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"x":4.5,"y":70,"z":-1.5,"look_x":0,"look_y":0}`))
	})
	mux.HandleFunc("/block_status", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"block":"minecraft:sand"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := config.DefaultSettings()
	s.BaseURL = "http://127.0.0.1:1"
	out, err := runRoot(t, s, "status", "--base-url", srv.URL)
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	if !strings.Contains(out, "underfoot: minecraft:sand") || !strings.Contains(out, "[4, 70, -2]") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if gotQuery != "x=4&y=69&z=-2" {
		t.Fatalf("block_status query = %q", gotQuery)
	}
}

func TestStatusCommand_Unreachable(t *testing.T) {
	s := config.DefaultSettings()
	s.HTTPTimeout = 200 * time.Millisecond
	if _, err := runRoot(t, s, "status", "--base-url", "http://127.0.0.1:1"); err == nil {
		t.Fatal("expected an error from an unreachable agent")
	}
}

func TestMissionsListCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	doc := `[{"name":"coal","kind":"mine","material":"coal_ore"},{"name":"forever","kind":"run","material":"stone"}]`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runRoot(t, config.DefaultSettings(), "missions", path, "--list")
	if err != nil {
		t.Fatalf("missions --list: %v", err)
	}
	if !strings.Contains(out, "Found 2 mission(s)") || !strings.Contains(out, "forever  (run minecraft:stone (endless), risky=true)") {
		t.Fatalf("unexpected catalog:\n%s", out)
	}

	if _, err := runRoot(t, config.DefaultSettings(), "missions", path, "nope", "--list"); err == nil {
		t.Fatal("expected an error for an unknown mission name")
	}
}

func TestTraceCommand(t *testing.T) {
	dir := t.TempDir()
	w := trace.NewWriter(dir, "trace")
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, phase := range []string{trace.PhaseVertical, trace.PhaseHorizontal, trace.PhaseHorizontal} {
		w.Record(trace.Sample{Time: t0.Add(time.Duration(i) * time.Second), Phase: phase, Target: world.Cell{X: 1, Y: 64}})
	}
	path := w.Path()
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	out, err := runRoot(t, config.DefaultSettings(), "trace", path)
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if !strings.Contains(out, "3 sample(s)") || !strings.Contains(out, "horizontal 2") {
		t.Fatalf("unexpected summary:\n%s", out)
	}

	out, err = runRoot(t, config.DefaultSettings(), "trace", path, "--dump")
	if err != nil {
		t.Fatalf("trace --dump: %v", err)
	}
	if n := strings.Count(strings.TrimSpace(out), "\n") + 1; n != 3 {
		t.Fatalf("dumped %d lines, want 3:\n%s", n, out)
	}
}
