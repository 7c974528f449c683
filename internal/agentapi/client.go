// Package agentapi talks to the remote agent over its HTTP API. Every
// accessor is one blocking GET with query parameters and a JSON reply.
package agentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/QwerMotion/the-Azathoth-project/internal/metrics"
	"github.com/QwerMotion/the-Azathoth-project/internal/world"
)

const maxBody = 4 << 20

type Config struct {
	BaseURL     string
	HTTPTimeout time.Duration
}

type Client struct {
	base       *url.URL
	httpClient *http.Client
}

func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("empty agent base url")
	}
	base, err := url.Parse(raw)
	if err != nil || !base.IsAbs() {
		return nil, fmt.Errorf("invalid agent base url %q", raw)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 15 * time.Second
	}
	return &Client{
		base:       base,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
	}, nil
}

func (c *Client) BaseURL() string { return c.base.String() }

// endpoint resolves name relative to the base url, keeping any path prefix.
func (c *Client) endpoint(name string, q url.Values) string {
	u := c.base.ResolveReference(&url.URL{Path: name})
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) Position(ctx context.Context) (world.Position, error) {
	var p world.Position
	err := c.getJSON(ctx, "position", nil, schemaPosition, &p)
	return p, err
}

func (c *Client) BlockStatus(ctx context.Context, cell world.Cell) (world.BlockStatus, error) {
	var out struct {
		Block string `json:"block"`
	}
	if err := c.getJSON(ctx, "block_status", cellQuery(cell), schemaBlockStatus, &out); err != nil {
		return "", err
	}
	return world.BlockStatus(out.Block), nil
}

func (c *Client) BreakBlock(ctx context.Context, cell world.Cell) error {
	return c.command(ctx, "break_block", cellQuery(cell))
}

func (c *Client) PlaceBlock(ctx context.Context, cell world.Cell, material world.BlockStatus) error {
	q := cellQuery(cell)
	q.Set("block", string(material))
	return c.command(ctx, "place_block", q)
}

func (c *Client) SetVelocity(ctx context.Context, v mgl64.Vec3) error {
	q := url.Values{}
	q.Set("x", formatFloat(v.X()))
	q.Set("y", formatFloat(v.Y()))
	q.Set("z", formatFloat(v.Z()))
	return c.command(ctx, "set_velocity", q)
}

func (c *Client) Look(ctx context.Context, yaw, pitch float64) error {
	q := url.Values{}
	q.Set("yaw", formatFloat(yaw))
	q.Set("pitch", formatFloat(pitch))
	return c.command(ctx, "look", q)
}

// FindPath asks the remote pathfinder for a route from start to goal within
// radius. No route is reported as ErrNoPath.
func (c *Client) FindPath(ctx context.Context, start, goal world.Cell, radius int) (world.Path, error) {
	q := url.Values{}
	q.Set("sx", strconv.Itoa(start.X))
	q.Set("sy", strconv.Itoa(start.Y))
	q.Set("sz", strconv.Itoa(start.Z))
	q.Set("gx", strconv.Itoa(goal.X))
	q.Set("gy", strconv.Itoa(goal.Y))
	q.Set("gz", strconv.Itoa(goal.Z))
	q.Set("r", strconv.Itoa(radius))

	var out struct {
		Positions [][]int `json:"positions"`
	}
	err := c.getJSON(ctx, "find_path", q, schemaFindPath, &out)
	var re *RemoteError
	if errors.As(err, &re) {
		return nil, fmt.Errorf("%w: %s", ErrNoPath, re.Error())
	}
	if err != nil {
		return nil, err
	}
	path := make(world.Path, 0, len(out.Positions))
	for _, p := range out.Positions {
		path = append(path, world.Cell{X: p[0], Y: p[1], Z: p[2]})
	}
	return path, nil
}

// NextBlock returns the nearest block of material within radius.
func (c *Client) NextBlock(ctx context.Context, material world.BlockStatus, radius int) (world.Cell, error) {
	q := url.Values{}
	q.Set("block", string(material))
	q.Set("r", strconv.Itoa(radius))
	var cell world.Cell
	err := c.getJSON(ctx, "next_block", q, schemaNextBlock, &cell)
	return cell, err
}

// NextBlocks returns up to n blocks of material within radius in server
// order. Entries missing a coordinate are dropped.
func (c *Client) NextBlocks(ctx context.Context, material world.BlockStatus, radius, n int) ([]world.Cell, error) {
	q := url.Values{}
	q.Set("block", string(material))
	q.Set("r", strconv.Itoa(radius))
	q.Set("n", strconv.Itoa(n))
	var out struct {
		Positions []struct {
			X *int `json:"x"`
			Y *int `json:"y"`
			Z *int `json:"z"`
		} `json:"positions"`
	}
	if err := c.getJSON(ctx, "next_blocks", q, schemaNextBlocks, &out); err != nil {
		return nil, err
	}
	cells := make([]world.Cell, 0, len(out.Positions))
	for _, p := range out.Positions {
		if p.X == nil || p.Y == nil || p.Z == nil {
			continue
		}
		cells = append(cells, world.Cell{X: *p.X, Y: *p.Y, Z: *p.Z})
	}
	return cells, nil
}

// NextBlocksSorted is NextBlocks ordered by distance from origin. Ties keep
// server order.
func (c *Client) NextBlocksSorted(ctx context.Context, material world.BlockStatus, radius, n int, origin world.Cell) ([]world.Cell, error) {
	cells, err := c.NextBlocks(ctx, material, radius, n)
	if err != nil {
		return nil, err
	}
	world.SortByDistance(cells, origin)
	return cells, nil
}

func (c *Client) command(ctx context.Context, name string, q url.Values) error {
	body, err := c.get(ctx, name, q)
	if err != nil {
		return err
	}
	// Acks carry no schema; only an explicit error object counts.
	if msg, ok := errorField(body); ok {
		return &RemoteError{Endpoint: name, Status: http.StatusOK, Message: msg}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, name string, q url.Values, schema *jsonschema.Schema, out any) error {
	body, err := c.get(ctx, name, q)
	if err != nil {
		return err
	}
	if msg, ok := errorField(body); ok {
		return &RemoteError{Endpoint: name, Status: http.StatusOK, Message: msg}
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, name string, q url.Values) ([]byte, error) {
	if q == nil {
		q = url.Values{}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(name, q), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTransport, name, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordRemoteCall(name, 0, time.Since(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrTransport, name, ctxErr)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrTransport, name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	metrics.RecordRemoteCall(name, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", ErrTransport, name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := errorField(body)
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return nil, &RemoteError{Endpoint: name, Status: resp.StatusCode, Message: msg}
	}
	return body, nil
}

// errorField reports the message of an {"error": "..."} body.
func errorField(body []byte) (string, bool) {
	var probe struct {
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || probe.Error == nil {
		return "", false
	}
	return *probe.Error, true
}

func cellQuery(cell world.Cell) url.Values {
	q := url.Values{}
	q.Set("x", strconv.Itoa(cell.X))
	q.Set("y", strconv.Itoa(cell.Y))
	q.Set("z", strconv.Itoa(cell.Z))
	return q
}

// formatFloat always renders '.' as the decimal separator.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
