package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/QwerMotion/the-Azathoth-project/internal/config"
	"github.com/QwerMotion/the-Azathoth-project/internal/display"
	"github.com/QwerMotion/the-Azathoth-project/internal/listener"
	"github.com/QwerMotion/the-Azathoth-project/internal/parser"
	"github.com/QwerMotion/the-Azathoth-project/internal/trace"
	"github.com/QwerMotion/the-Azathoth-project/internal/world"
)

// oneShot opens an app, hands a session to fn and tears everything down.
func oneShot(cmd *cobra.Command, s *config.Settings, assumeYes bool, fn func(*session) error) error {
	a, err := newApp(cmd.Context(), *s)
	if err != nil {
		return err
	}
	defer a.close()
	sess := &session{
		app:       a,
		con:       listener.NewPlain(cmd.InOrStdin(), cmd.OutOrStdout()),
		assumeYes: assumeYes,
	}
	return fn(sess)
}

// runMissionCmd queues the mission described by pc and waits for it.
func runMissionCmd(cmd *cobra.Command, s *config.Settings, assumeYes bool, pc parser.Command) error {
	return oneShot(cmd, s, assumeYes, func(sess *session) error {
		sess.app.sup.Start(cmd.Context())
		if !sess.queue(pc) {
			sess.app.sup.Close()
			return fmt.Errorf("%s was not queued", pc.Verb)
		}
		return sess.drain()
	})
}

func newMineCmd(s *config.Settings, yes *bool) *cobra.Command {
	var tries int
	cmd := &cobra.Command{
		Use:   "mine <material>",
		Short: "Walk to the nearest block of a material and break it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMissionCmd(cmd, s, *yes, parser.Command{
				Verb:     parser.VerbMine,
				Material: world.BlockStatus(args[0]).Qualified(),
				Tries:    tries,
			})
		},
	}
	cmd.Flags().IntVar(&tries, "tries", 0, "attempts before giving up (0 = tuning max_tries)")
	return cmd
}

func newGotoCmd(s *config.Settings, yes *bool) *cobra.Command {
	var radius int
	cmd := &cobra.Command{
		Use:   "goto <x> <y> <z>",
		Short: "Request a path to a cell and follow it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v [3]int
			for i, a := range args {
				n, err := strconv.Atoi(a)
				if err != nil {
					return fmt.Errorf("bad coordinate %q: %w", a, err)
				}
				v[i] = n
			}
			return runMissionCmd(cmd, s, *yes, parser.Command{
				Verb:   parser.VerbGoto,
				Target: &world.Cell{X: v[0], Y: v[1], Z: v[2]},
				Radius: radius,
			})
		},
	}
	cmd.Flags().IntVar(&radius, "radius", 0, "pathfinder search radius (0 = tuning path_radius)")
	return cmd
}

func newWanderCmd(s *config.Settings, yes *bool) *cobra.Command {
	var rangeXZ, tries int
	cmd := &cobra.Command{
		Use:   "wander",
		Short: "Walk to a random reachable cell nearby",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMissionCmd(cmd, s, *yes, parser.Command{Verb: parser.VerbWander, Range: rangeXZ, Tries: tries})
		},
	}
	cmd.Flags().IntVar(&rangeXZ, "range", 0, "horizontal reach (0 = tuning wander_range)")
	cmd.Flags().IntVar(&tries, "tries", 0, "targets to try (0 = tuning max_tries)")
	return cmd
}

func newRunCmd(s *config.Settings, yes *bool) *cobra.Command {
	var rounds, tries int
	cmd := &cobra.Command{
		Use:   "run <material>",
		Short: "Mine a material round after round, wandering after failures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMissionCmd(cmd, s, *yes, parser.Command{
				Verb:     parser.VerbRun,
				Material: world.BlockStatus(args[0]).Qualified(),
				Rounds:   rounds,
				Tries:    tries,
			})
		},
	}
	cmd.Flags().IntVar(&rounds, "rounds", 0, "rounds to run (0 = until interrupted)")
	cmd.Flags().IntVar(&tries, "tries", 0, "mining attempts per round (0 = tuning max_tries)")
	return cmd
}

func newLocateCmd(s *config.Settings) *cobra.Command {
	var n, radius int
	cmd := &cobra.Command{
		Use:   "locate <material>",
		Short: "List the nearest blocks of a material without moving",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			material := world.BlockStatus(args[0]).Qualified()
			return oneShot(cmd, s, false, func(sess *session) error {
				origin, cells, err := sess.app.locate(cmd.Context(), material, n, radius)
				if err != nil {
					return err
				}
				sess.con.Println(display.FormatCandidates(material, origin, cells))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 1, "how many blocks to list")
	cmd.Flags().IntVar(&radius, "radius", 0, "search radius (0 = tuning search_radius)")
	return cmd
}

func newStatusCmd(s *config.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the agent's position and the block underfoot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(cmd, s, false, func(sess *session) error {
				pos, under, err := sess.app.status(cmd.Context())
				if err != nil {
					return err
				}
				sess.con.Println(display.FormatStatus(pos, under))
				return nil
			})
		},
	}
}

func newMissionsCmd(s *config.Settings, yes *bool) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "missions <file.json> [name...]",
		Short: "Run missions from a JSON file in order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pc := parser.Command{Verb: parser.VerbMissions, Path: args[0], Names: args[1:]}
			if list {
				missions, err := parser.LoadMissionsFromFile(pc.Path)
				if err != nil {
					return err
				}
				missions, missing := parser.SelectMissionsByNames(missions, pc.Names)
				if len(missing) > 0 {
					return fmt.Errorf("missing missions: %v", missing)
				}
				fmt.Fprint(cmd.OutOrStdout(), display.FormatMissionsCatalog(pc.Path, missions))
				return nil
			}
			return oneShot(cmd, s, *yes, func(sess *session) error {
				sess.app.sup.Start(cmd.Context())
				if sess.submitFile(pc) == 0 {
					sess.app.sup.Close()
					return fmt.Errorf("no missions queued from %s", pc.Path)
				}
				return sess.drain()
			})
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "only list the missions")
	return cmd
}

func newTraceCmd() *cobra.Command {
	var dump bool
	cmd := &cobra.Command{
		Use:   "trace <file.jsonl.zst>",
		Short: "Summarize a recorded control trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := trace.ReadFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if dump {
				enc := json.NewEncoder(out)
				for _, sm := range samples {
					if err := enc.Encode(sm); err != nil {
						return err
					}
				}
				return nil
			}
			fmt.Fprint(out, display.FormatTraceSummary(args[0], trace.Summarize(samples)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dump, "dump", false, "print every sample as JSON")
	return cmd
}

