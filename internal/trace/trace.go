// Package trace records controller samples as hourly zstd-compressed JSONL
// files.
package trace

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/QwerMotion/the-Azathoth-project/internal/logger"
	"github.com/QwerMotion/the-Azathoth-project/internal/world"
)

const (
	PhaseVertical   = "vertical"
	PhaseHorizontal = "horizontal"
	PhaseClear      = "clear"
	PhasePlace      = "place"
	PhaseReplan     = "replan"
)

// Sample is one control iteration: where the agent was and what it was told.
type Sample struct {
	Time     time.Time   `json:"time"`
	Phase    string      `json:"phase"`
	Target   world.Cell  `json:"target"`
	Position [3]float64  `json:"position"`
	Command  *[3]float64 `json:"command,omitempty"`
	Yaw      *float64    `json:"yaw,omitempty"`
	Note     string      `json:"note,omitempty"`
}

type Recorder interface {
	Record(Sample)
}

type nop struct{}

func (nop) Record(Sample) {}

// Nop discards every sample.
var Nop Recorder = nop{}

// Writer appends samples to <dir>/<prefix>-YYYY-MM-DD-HH.jsonl.zst.
type Writer struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
	failed  bool
}

func NewWriter(baseDir, prefix string) *Writer {
	if prefix == "" {
		prefix = "trace"
	}
	return &Writer{baseDir: baseDir, prefix: prefix, now: time.Now}
}

// Record writes s and logs the first failure only.
func (w *Writer) Record(s Sample) {
	if err := w.Write(s); err != nil {
		w.mu.Lock()
		first := !w.failed
		w.failed = true
		w.mu.Unlock()
		if first {
			logger.Log.Error().Err(err).Str("dir", w.baseDir).Msg("trace write failed")
		}
	}
}

func (w *Writer) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Flush pushes buffered samples into the current frame.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *Writer) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.curHour == "" {
		return ""
	}
	return w.pathForHour(w.curHour)
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *Writer) closeLocked() error {
	var errs []error
	if w.w != nil {
		errs = append(errs, w.w.Flush())
	}
	if w.enc != nil {
		errs = append(errs, w.enc.Close())
		w.enc = nil
	}
	if w.f != nil {
		errs = append(errs, w.f.Close())
		w.f = nil
	}
	w.w = nil
	return errors.Join(errs...)
}

func (w *Writer) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// ReadFile decodes every sample of a trace file. Appended sessions are
// separate zstd frames and decode as one stream.
func ReadFile(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Sample
	jd := json.NewDecoder(dec)
	for {
		var s Sample
		if err := jd.Decode(&s); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("trace %s: %w", path, err)
		}
		out = append(out, s)
	}
}

// Summary counts samples per phase.
type Summary struct {
	Samples int
	Phases  map[string]int
	First   time.Time
	Last    time.Time
}

func Summarize(samples []Sample) Summary {
	s := Summary{Samples: len(samples), Phases: map[string]int{}}
	for i, sm := range samples {
		s.Phases[sm.Phase]++
		if i == 0 || sm.Time.Before(s.First) {
			s.First = sm.Time
		}
		if sm.Time.After(s.Last) {
			s.Last = sm.Time
		}
	}
	return s
}
