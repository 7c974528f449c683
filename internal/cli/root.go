package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/QwerMotion/the-Azathoth-project/internal/config"
	"github.com/QwerMotion/the-Azathoth-project/internal/listener"
	"github.com/QwerMotion/the-Azathoth-project/internal/logger"
)

var consoleWords = []string{"mine", "goto", "wander", "run", "locate", "status", "missions", "cancel", "help", "exit"}

// NewRootCmd builds the command tree. Flags default to the values already in
// s and write back into it.
func NewRootCmd(s *config.Settings) *cobra.Command {
	var (
		verbose   bool
		assumeYes bool
	)
	root := &cobra.Command{
		Use:   "azathoth",
		Short: "Walk a voxel-world agent along block paths and mine",
		Long: `azathoth drives an agent in a block world through its HTTP control API:
it follows pathfinder routes cell by cell, clears and bridges blocks on the way,
and mines the nearest blocks of a material. Without a subcommand it opens an
interactive console that queues missions in the background.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(logger.Options{File: s.LogFile, Level: s.LogLevel, Console: verbose}); err != nil {
				return fmt.Errorf("could not initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cmd.Context(), *s, assumeYes)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&s.BaseURL, "base-url", s.BaseURL, "agent control API base URL")
	pf.StringVar(&s.TuningPath, "tuning", s.TuningPath, "YAML tuning file")
	pf.StringVar(&s.LogFile, "log-file", s.LogFile, "log file (empty disables file logging)")
	pf.StringVar(&s.LogLevel, "log-level", s.LogLevel, "trace|debug|info|warn|error")
	pf.StringVar(&s.MetricsAddr, "metrics-addr", s.MetricsAddr, "serve Prometheus /metrics on this address")
	pf.StringVar(&s.TraceDir, "trace-dir", s.TraceDir, "write control traces under this directory")
	pf.DurationVar(&s.StartupDelay, "startup-delay", s.StartupDelay, "wait before the first command")
	pf.DurationVar(&s.HTTPTimeout, "http-timeout", s.HTTPTimeout, "timeout of one agent API request")
	pf.StringVar(&s.LLMBackend, "llm-backend", s.LLMBackend, "gemini|ollama, enables free-text commands")
	pf.StringVar(&s.LLMModel, "llm-model", s.LLMModel, "model for free-text commands")
	pf.BoolVarP(&verbose, "verbose", "v", false, "also log to stderr")
	pf.BoolVarP(&assumeYes, "yes", "y", false, "do not ask before queuing endless missions")

	root.AddCommand(
		newMineCmd(s, &assumeYes),
		newGotoCmd(s, &assumeYes),
		newWanderCmd(s, &assumeYes),
		newRunCmd(s, &assumeYes),
		newLocateCmd(s),
		newStatusCmd(s),
		newMissionsCmd(s, &assumeYes),
		newTraceCmd(),
	)
	return root
}

func Execute(ctx context.Context, s config.Settings) error {
	return NewRootCmd(&s).ExecuteContext(ctx)
}

func runConsole(ctx context.Context, s config.Settings, assumeYes bool) error {
	a, err := newApp(ctx, s)
	if err != nil {
		return err
	}
	defer a.close()

	con, err := listener.New(listener.Config{Prompt: "azathoth> ", Words: consoleWords})
	if err != nil {
		return err
	}
	defer con.Close()

	runCtx, stop := context.WithCancel(ctx)
	a.sup.Start(runCtx)
	sess := &session{app: a, con: con, assumeYes: assumeYes}
	go sess.reportResults()

	con.Println("Connected to " + s.BaseURL + ". Type 'help' for commands, 'exit' or Ctrl+D to quit.")
	for {
		line, err := con.ReadLine()
		if err != nil {
			if !listener.IsExit(err) {
				logger.Log.Error().Err(err).Msg("console read failed")
			}
			break
		}
		if line == "" {
			continue
		}
		logger.Log.Debug().Str("line", line).Msg("console input")
		if sess.handle(runCtx, line) {
			break
		}
	}

	// queued missions are dropped, the running one is cancelled
	stop()
	a.sup.Close()
	con.Println("Goodbye!")
	return nil
}
