// Package listener owns the terminal: it reads console lines and prints
// mission results above the prompt without breaking the line being typed.
package listener

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"
)

// ErrInterrupt is returned by ReadLine on Ctrl+C.
var ErrInterrupt = readline.ErrInterrupt

type Config struct {
	Prompt      string
	HistoryFile string
	// Words seeds tab completion with the first word of each command.
	Words []string
}

type Console struct {
	rl *readline.Instance

	// plain mode, no terminal
	in  *bufio.Scanner
	out io.Writer

	mu   sync.Mutex
	hold bool
	held []string
}

func New(cfg Config) (*Console, error) {
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = "> "
	}
	items := make([]readline.PrefixCompleterInterface, 0, len(cfg.Words))
	for _, w := range cfg.Words {
		items = append(items, readline.PcItem(w))
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     cfg.HistoryFile,
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("init terminal input: %w", err)
	}
	return &Console{rl: rl}, nil
}

// NewPlain reads lines from in and prints to out without any terminal
// handling. One-shot commands and tests use it.
func NewPlain(in io.Reader, out io.Writer) *Console {
	c := &Console{out: out}
	if in != nil {
		c.in = bufio.NewScanner(in)
	}
	return c
}

func (c *Console) Close() {
	if c.rl != nil {
		_ = c.rl.Close()
	}
}

func (c *Console) SetPrompt(p string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rl != nil {
		c.rl.SetPrompt(p)
	}
}

// ReadLine blocks for the next trimmed line. It returns io.EOF at end of
// input and ErrInterrupt on Ctrl+C.
func (c *Console) ReadLine() (string, error) {
	if c.rl != nil {
		line, err := c.rl.Readline()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
	if c.in == nil {
		return "", io.EOF
	}
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(c.in.Text()), nil
}

// BeginInteractive holds async output until EndInteractive so a question
// and its answer are not split by a mission report.
func (c *Console) BeginInteractive() {
	c.mu.Lock()
	c.hold = true
	c.mu.Unlock()
}

func (c *Console) EndInteractive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hold = false
	for _, s := range c.held {
		c.writeLocked(s)
	}
	c.held = nil
	if c.rl != nil {
		c.rl.Refresh()
	}
}

// PrintAbove prints s immediately, even while output is held.
func (c *Console) PrintAbove(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeLocked(s)
}

// Println prints s above the prompt, or queues it while a question is open.
func (c *Console) Println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hold {
		c.held = append(c.held, s)
		return
	}
	c.writeLocked(s)
}

func (c *Console) Printf(format string, args ...any) {
	c.Println(fmt.Sprintf(format, args...))
}

func (c *Console) writeLocked(s string) {
	if c.rl == nil {
		if c.out != nil {
			_, _ = fmt.Fprintln(c.out, s)
		}
		return
	}
	_, _ = c.rl.Write([]byte("\r\n" + s + "\r\n"))
	c.rl.Refresh()
}

func (c *Console) ask(prompt string) (string, error) {
	if c.rl == nil {
		return c.ReadLine()
	}
	c.mu.Lock()
	old := c.rl.Config.Prompt
	c.rl.SetPrompt(prompt)
	c.mu.Unlock()

	line, err := c.ReadLine()

	c.mu.Lock()
	c.rl.SetPrompt(old)
	c.mu.Unlock()
	return strings.ToLower(line), err
}

// AskYesNo repeats the question until it gets a y/n answer. End of input or
// Ctrl+C counts as no.
func (c *Console) AskYesNo(question string) bool {
	c.BeginInteractive()
	defer c.EndInteractive()

	c.PrintAbove(question + " [y/n]")
	for {
		ans, err := c.ask("> ")
		if err != nil {
			return false
		}
		switch strings.ToLower(ans) {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		c.PrintAbove("Please answer y/n.")
	}
}

// IsExit reports whether err from ReadLine should end the session.
func IsExit(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, ErrInterrupt)
}
