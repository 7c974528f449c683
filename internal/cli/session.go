package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/QwerMotion/the-Azathoth-project/internal/display"
	"github.com/QwerMotion/the-Azathoth-project/internal/listener"
	"github.com/QwerMotion/the-Azathoth-project/internal/logger"
	"github.com/QwerMotion/the-Azathoth-project/internal/parser"
	"github.com/QwerMotion/the-Azathoth-project/internal/supervisor"
)

const interpretTimeout = 20 * time.Second

// session dispatches console commands against one app.
type session struct {
	app *app
	con *listener.Console
	// assumeYes skips confirmation prompts.
	assumeYes bool
}

// reportResults prints mission results as they arrive until the supervisor
// closes its result channel.
func (s *session) reportResults() {
	for r := range s.app.sup.Results() {
		s.app.flushTrace()
		s.con.Println(display.FormatMissionResult(r))
	}
}

// handle runs one console line and reports whether the session should end.
func (s *session) handle(ctx context.Context, line string) (exit bool) {
	cmd, err := parser.ParseCommand(line)
	if errors.Is(err, parser.ErrUnknownCommand) && s.app.llm != nil {
		ictx, cancel := context.WithTimeout(ctx, interpretTimeout)
		cmd, err = parser.InterpretGoal(ictx, s.app.llm, line)
		cancel()
		if err == nil {
			logger.Log.Info().Str("line", line).Str("verb", string(cmd.Verb)).Msg("interpreted free text")
			s.con.Printf("[Interpreted] %s", describeCommand(cmd))
		}
	}
	if err != nil {
		if errors.Is(err, parser.ErrUnknownCommand) {
			s.con.Printf("Unknown command %q. Type 'help' for the list.", line)
		} else {
			s.con.Printf("[Error] %v", err)
		}
		return false
	}
	return s.run(ctx, cmd)
}

func (s *session) run(ctx context.Context, cmd parser.Command) (exit bool) {
	switch cmd.Verb {
	case parser.VerbExit:
		return true
	case parser.VerbHelp:
		s.con.Println(parser.Usage)
	case parser.VerbStatus:
		pos, under, err := s.app.status(ctx)
		if err != nil {
			s.con.Printf("[Status FAILED] %v", err)
			return false
		}
		s.con.Println(display.FormatStatus(pos, under))
	case parser.VerbLocate:
		origin, cells, err := s.app.locate(ctx, cmd.Material, cmd.Count, cmd.Radius)
		if err != nil {
			s.con.Printf("[Locate FAILED] %v", err)
			return false
		}
		s.con.Println(display.FormatCandidates(cmd.Material, origin, cells))
	case parser.VerbCancel:
		s.cancel(cmd)
	case parser.VerbMissions:
		s.submitFile(cmd)
	default:
		s.queue(cmd)
	}
	return false
}

// queue turns cmd into a mission, confirms it when needed and submits it.
func (s *session) queue(cmd parser.Command) bool {
	m, ok := cmd.Mission()
	if !ok {
		s.con.Printf("[Error] %s does not start a mission", cmd.Verb)
		return false
	}
	question := fmt.Sprintf("Queue %q?", m.Describe())
	if supervisor.IsMissionRisky(m) {
		question += " It will not stop on its own."
	}
	if (cmd.Confirm || supervisor.IsMissionRisky(m)) && !s.confirm(question) {
		s.con.Println("[Mission REJECTED]")
		return false
	}
	return s.submit(m)
}

func (s *session) confirm(question string) bool {
	if s.assumeYes {
		return true
	}
	return s.con.AskYesNo(question)
}

func (s *session) submit(m supervisor.Mission) bool {
	id, err := s.app.sup.Submit(m)
	if err != nil {
		s.con.Printf("[Submit FAILED] %s: %v", m.Name, err)
		return false
	}
	s.con.Printf("[Mission %s QUEUED] %s", id, m.Name)
	return true
}

// drain closes the supervisor, prints every remaining result and fails if
// any mission did not succeed.
func (s *session) drain() error {
	go s.app.sup.Close()
	var failed []string
	for r := range s.app.sup.Results() {
		s.app.flushTrace()
		s.con.Println(display.FormatMissionResult(r))
		if r.State != supervisor.StatusSucceeded {
			failed = append(failed, r.MissionID)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d mission(s) did not succeed: %v", len(failed), failed)
	}
	return nil
}

func (s *session) cancel(cmd parser.Command) {
	if cmd.MissionID != "" {
		if _, err := s.app.sup.Cancel(cmd.MissionID); err != nil {
			s.con.Printf("[Cancel FAILED] %v", err)
			return
		}
		s.con.Printf("[Mission %s CANCELLING]", cmd.MissionID)
		return
	}
	id, err := s.app.sup.CancelMostRecent()
	if err != nil {
		s.con.Printf("[Cancel FAILED] %v", err)
		return
	}
	s.con.Printf("[Mission %s CANCELLING]", id)
}

func (s *session) submitFile(cmd parser.Command) int {
	missions, err := parser.LoadMissionsFromFile(cmd.Path)
	if err != nil {
		s.con.Printf("[Missions] %v", err)
		return 0
	}
	missions, missing := parser.SelectMissionsByNames(missions, cmd.Names)
	if len(missing) > 0 {
		s.con.Printf("[Missions] Missing missions: %v", missing)
	}
	if len(missions) == 0 {
		s.con.Println("[Missions] No missions to run.")
		return 0
	}

	risky := false
	for _, m := range missions {
		risky = risky || supervisor.IsMissionRisky(m)
	}
	if cmd.Confirm || risky {
		s.con.Println(display.FormatMissionsCatalog(cmd.Path, missions))
		if !s.confirm(fmt.Sprintf("Run %d mission(s) from %s?", len(missions), cmd.Path)) {
			s.con.Println("[Missions] Cancelled.")
			return 0
		}
	}
	queued := 0
	for _, m := range missions {
		if s.submit(m) {
			queued++
		}
	}
	return queued
}

func describeCommand(cmd parser.Command) string {
	if m, ok := cmd.Mission(); ok {
		return m.Describe()
	}
	switch cmd.Verb {
	case parser.VerbLocate:
		return fmt.Sprintf("locate %s", cmd.Material)
	case parser.VerbMissions:
		return fmt.Sprintf("missions %s", cmd.Path)
	default:
		return string(cmd.Verb)
	}
}
