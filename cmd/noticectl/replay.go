package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/NathanaelAtEGR/unf/broker"
	"github.com/NathanaelAtEGR/unf/dispatch"
	"github.com/NathanaelAtEGR/unf/internal/logger"
	"github.com/NathanaelAtEGR/unf/notice"
	"github.com/NathanaelAtEGR/unf/pkg/scenepath"
	"github.com/NathanaelAtEGR/unf/stage"
)

var replayDiffCache bool

func init() {
	cmd := newReplayCmd()
	cmd.Flags().BoolVar(&replayDiffCache, "diff-cache", false, "Classify resyncs into HierarchyChanged notices")
	rootCmd.AddCommand(cmd)
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Replay a scenario and print delivered notices",
		Long: `The replay command applies the steps of a scenario file to a fresh
in-memory stage and prints every notice delivered by the stage's broker, in
delivery order, tagged with the step that triggered it.

Example scenario:
  name: nested
  prims: [/World]
  steps:
    - op: begin
    - op: define
      path: /World/Foo
    - op: begin
      types: [ObjectsChanged]
    - op: define
      path: /World/Bar
    - op: end
    - op: end

Example:
  noticectl replay nested.yaml
  noticectl replay nested.yaml --diff-cache --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(args)
		},
	}
	return cmd
}

// record is one delivered notice.
type record struct {
	Seq         int    `json:"seq"`
	Step        string `json:"step"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// replayResult is the JSON form of a replay.
type replayResult struct {
	Scenario string   `json:"scenario,omitempty"`
	Notices  []record `json:"notices"`
	Prims    []string `json:"prims"`
}

var errOpenTransactions = errors.New("scenario leaves open transactions")

func runReplay(args []string) error {
	path := args[0]
	printVerbose("Loading scenario: %s\n", path)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open scenario: %w", err)
	}
	defer f.Close()

	sc, err := loadScenario(f)
	if err != nil {
		return err
	}
	if replayDiffCache {
		sc.DiffCache = true
	}

	records, prims, err := replay(sc)
	if err != nil {
		return err
	}

	if jsonOut {
		out := replayResult{Scenario: sc.Name, Notices: records, Prims: make([]string, 0, len(prims))}
		if out.Notices == nil {
			out.Notices = []record{}
		}
		for _, p := range prims {
			out.Prims = append(out.Prims, p.String())
		}
		return printJSON(out)
	}

	if sc.Name != "" {
		printInfo("Scenario: %s\n", sc.Name)
	}
	for _, r := range records {
		printInfo("%3d  step %-6s %s\n", r.Seq, r.Step, r.Description)
	}
	printInfo("%d notice(s) delivered\n", len(records))
	printVerbose("Final prims: %d\n", len(prims))
	return nil
}

// replayer applies scenario steps to one stage.
type replayer struct {
	st      *stage.Stage
	b       *broker.Broker
	step    string
	records []record
}

// replay runs sc on a fresh stage and returns the delivered notices and the
// final prims.
func replay(sc *Scenario) ([]record, []scenepath.Path, error) {
	st := stage.New()
	defer st.Close()

	for _, p := range sc.Prims {
		if err := st.DefinePrim(scenepath.MustParse(p)); err != nil {
			return nil, nil, fmt.Errorf("prim %s: %w", p, err)
		}
	}

	opts := []dispatch.Option{dispatch.WithLogger(logger.L)}
	if sc.DiffCache {
		opts = append(opts, dispatch.WithDiffCache())
	}
	b, err := dispatch.Create(st, opts...)
	if err != nil {
		return nil, nil, err
	}
	defer broker.Release(st)

	r := &replayer{st: st, b: b}
	cancel := b.Subscribe(r.collect)
	defer cancel()

	for i, s := range sc.Steps {
		if err := r.apply(strconv.Itoa(i+1), s); err != nil {
			return r.records, nil, err
		}
	}

	if depth := b.Depth(); depth > 0 {
		return r.records, nil, fmt.Errorf("%w: %d", errOpenTransactions, depth)
	}
	return r.records, st.Prims(), nil
}

func (r *replayer) collect(n notice.Notice) {
	r.records = append(r.records, record{
		Seq:         len(r.records) + 1,
		Step:        r.step,
		Type:        n.TypeID(),
		Description: notice.Describe(n),
	})
}

func (r *replayer) apply(label string, s Step) error {
	r.step = label
	if err := r.run(label, s); err != nil {
		return fmt.Errorf("step %s (%s): %w", label, s.Op, err)
	}
	return nil
}

func (r *replayer) run(label string, s Step) error {
	switch s.Op {
	case opDefine:
		return r.st.DefinePrim(scenepath.MustParse(s.Path))
	case opRemove:
		return r.st.RemovePrim(scenepath.MustParse(s.Path))
	case opSet:
		return r.st.SetField(scenepath.MustParse(s.Path), s.Field)
	case opMute:
		return r.st.MuteLayer(s.Layer)
	case opUnmute:
		return r.st.UnmuteLayer(s.Layer)
	case opEditTarget:
		return r.st.SetEditTarget(s.Target)
	case opBegin:
		return r.b.Begin(predicate(s.Types))
	case opEnd:
		return r.b.End()
	case opAbort:
		r.b.Abort()
		return nil
	case opBatch:
		return r.st.Batch(func() error {
			for i, sub := range s.Steps {
				if err := r.apply(label+"."+strconv.Itoa(i+1), sub); err != nil {
					return err
				}
			}
			// The batch's change is delivered once the batch closes.
			r.step = label
			return nil
		})
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
}
