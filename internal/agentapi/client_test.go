package agentapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/QwerMotion/the-Azathoth-project/internal/world"
)

type recorded struct {
	path  string
	query string
}

func newServer(t *testing.T, routes map[string]func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, recorded{path: r.URL.Path, query: r.URL.RawQuery})
		h, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, HTTPTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, &calls
}

func reply(body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestPosition(t *testing.T) {
	c, _ := newServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"/position": reply(`{"x":10.5,"y":64,"z":-3.25,"look_x":90,"look_y":12.5}`),
	})
	p, err := c.Position(context.Background())
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	want := world.Position{X: 10.5, Y: 64, Z: -3.25, Yaw: 90, Pitch: 12.5}
	if p != want {
		t.Fatalf("Position = %+v, want %+v", p, want)
	}
	if got := p.Cell(); got != (world.Cell{X: 10, Y: 64, Z: -4}) {
		t.Fatalf("Cell = %v", got)
	}
}

func TestMalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
		call func(c *Client) error
	}{
		{
			name: "position missing look",
			body: `{"x":1,"y":2,"z":3}`,
			call: func(c *Client) error { _, err := c.Position(context.Background()); return err },
		},
		{
			name: "position not json",
			body: `hello`,
			call: func(c *Client) error { _, err := c.Position(context.Background()); return err },
		},
		{
			name: "block status wrong type",
			body: `{"block":5}`,
			call: func(c *Client) error {
				_, err := c.BlockStatus(context.Background(), world.Cell{})
				return err
			},
		},
		{
			name: "path with short triple",
			body: `{"positions":[[1,2,3],[4,5]]}`,
			call: func(c *Client) error {
				_, err := c.FindPath(context.Background(), world.Cell{}, world.Cell{X: 4}, 8)
				return err
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := reply(tt.body)
			c, _ := newServer(t, map[string]func(http.ResponseWriter, *http.Request){
				"/position":     h,
				"/block_status": h,
				"/find_path":    h,
			})
			if err := tt.call(c); !errors.Is(err, ErrMalformed) {
				t.Fatalf("err = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestFindPath(t *testing.T) {
	c, calls := newServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"/find_path": reply(`{"positions":[[0,64,0],[1,64,0],[2,65,0]]}`),
	})
	path, err := c.FindPath(context.Background(), world.Cell{Y: 64}, world.Cell{X: 2, Y: 65}, 256)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	want := world.Path{{X: 0, Y: 64, Z: 0}, {X: 1, Y: 64, Z: 0}, {X: 2, Y: 65, Z: 0}}
	if len(path) != len(want) {
		t.Fatalf("len = %d, want %d", len(path), len(want))
	}
	for i := range want {
		if path[i] != want[i] {
			t.Fatalf("path[%d] = %v, want %v", i, path[i], want[i])
		}
	}
	q := (*calls)[0].query
	for _, part := range []string{"sx=0", "sy=64", "gx=2", "gy=65", "r=256"} {
		if !strings.Contains(q, part) {
			t.Errorf("query %q missing %q", q, part)
		}
	}
}

func TestFindPath_NoPath(t *testing.T) {
	tests := []struct {
		name    string
		handler func(w http.ResponseWriter, r *http.Request)
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }},
		{"error body", reply(`{"error":"no path within radius"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newServer(t, map[string]func(http.ResponseWriter, *http.Request){
				"/find_path": tt.handler,
			})
			path, err := c.FindPath(context.Background(), world.Cell{}, world.Cell{X: 9}, 16)
			if !errors.Is(err, ErrNoPath) {
				t.Fatalf("err = %v, want ErrNoPath", err)
			}
			if len(path) != 0 {
				t.Fatalf("path = %v, want empty", path)
			}
		})
	}
}

func TestNextBlocks_SkipsIncompleteEntries(t *testing.T) {
	c, _ := newServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"/next_blocks": reply(`{"positions":[{"x":9,"y":0,"z":0},{"x":1,"y":0},{"x":2,"y":0,"z":0},{}]}`),
	})
	cells, err := c.NextBlocksSorted(context.Background(), "minecraft:diamond_ore", 128, 10, world.Cell{})
	if err != nil {
		t.Fatalf("NextBlocksSorted: %v", err)
	}
	want := []world.Cell{{X: 2}, {X: 9}}
	if len(cells) != len(want) || cells[0] != want[0] || cells[1] != want[1] {
		t.Fatalf("cells = %v, want %v", cells, want)
	}
}

func TestNextBlock_RemoteError(t *testing.T) {
	c, _ := newServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"/next_block": reply(`{"error":"none found"}`),
	})
	_, err := c.NextBlock(context.Background(), "minecraft:gold_ore", 32)
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want RemoteError", err)
	}
	if re.Message != "none found" {
		t.Fatalf("message = %q", re.Message)
	}
}

func TestCommands_QueryEncoding(t *testing.T) {
	ack := reply(`{"status":"ok"}`)
	c, calls := newServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"/set_velocity": ack,
		"/look":         ack,
		"/place_block":  ack,
		"/break_block":  ack,
	})
	ctx := context.Background()
	if err := c.SetVelocity(ctx, mgl64.Vec3{0.2, -1, 0.05}); err != nil {
		t.Fatalf("SetVelocity: %v", err)
	}
	if err := c.Look(ctx, -90, 0); err != nil {
		t.Fatalf("Look: %v", err)
	}
	if err := c.PlaceBlock(ctx, world.Cell{X: 1, Y: 63, Z: -2}, world.Dirt); err != nil {
		t.Fatalf("PlaceBlock: %v", err)
	}
	if err := c.BreakBlock(ctx, world.Cell{X: 1, Y: 65, Z: -2}); err != nil {
		t.Fatalf("BreakBlock: %v", err)
	}

	want := []recorded{
		{"/set_velocity", "x=0.2&y=-1&z=0.05"},
		{"/look", "pitch=0&yaw=-90"},
		{"/place_block", "block=minecraft%3Adirt&x=1&y=63&z=-2"},
		{"/break_block", "x=1&y=65&z=-2"},
	}
	if len(*calls) != len(want) {
		t.Fatalf("calls = %v", *calls)
	}
	for i, w := range want {
		if (*calls)[i] != w {
			t.Errorf("call %d = %+v, want %+v", i, (*calls)[i], w)
		}
	}
}

func TestCommand_ServerError(t *testing.T) {
	c, _ := newServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"/break_block": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
	})
	err := c.BreakBlock(context.Background(), world.Cell{})
	var re *RemoteError
	if !errors.As(err, &re) || re.Status != http.StatusInternalServerError {
		t.Fatalf("err = %v, want RemoteError 500", err)
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url, HTTPTimeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Position(context.Background()); !errors.Is(err, ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "   ", "not a url", "/relative"} {
		if _, err := New(Config{BaseURL: raw}); err == nil {
			t.Errorf("New(%q) accepted", raw)
		}
	}
}
