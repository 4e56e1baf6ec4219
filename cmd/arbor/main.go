// Command arbor grows a forest headlessly and prints what came out of it.
package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/phanxgames/arbor"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Grow flags
	trees      int
	seed       uint64
	frames     int
	period     int
	budget     time.Duration
	maxSegs    int
	killLeader []int

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Procedural tree growth simulator",
	Long: `arbor grows forests of branching trees one tick at a time and meshes
them into triangle lists. This command runs the simulation without a window.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var growCmd = &cobra.Command{
	Use:   "grow",
	Short: "Run the growth loop for a number of frames",
	Long: `Runs the frame loop until --frames frames have passed or growth stops,
then prints one line per tree and the size of the final mesh.

Flags override values loaded with --config.`,
	Args: cobra.NoArgs,
	RunE: runGrow,
}

var configCmd = &cobra.Command{
	Use:   "config [path]",
	Short: "Write the default configuration as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := arbor.DefaultConfig().Save(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log per-tick statistics")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")

	growCmd.Flags().IntVarP(&trees, "trees", "n", 3, "number of trees")
	growCmd.Flags().Uint64VarP(&seed, "seed", "s", 1, "random seed")
	growCmd.Flags().IntVarP(&frames, "frames", "f", 3600, "frames to simulate")
	growCmd.Flags().IntVar(&period, "period", 60, "frames between growth ticks")
	growCmd.Flags().DurationVar(&budget, "budget", 100*time.Millisecond, "time budget of one growth tick")
	growCmd.Flags().IntVar(&maxSegs, "max-segments", 0, "skeleton capacity (0 = unbounded)")
	growCmd.Flags().IntSliceVar(&killLeader, "kill-leader", nil, "trees whose leader is dead from the start")

	rootCmd.AddCommand(growCmd, configCmd)
}

// loadConfig resolves the config file and applies explicitly set flags.
func loadConfig(cmd *cobra.Command) (arbor.Config, error) {
	cfg := arbor.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = arbor.LoadConfig(configPath); err != nil {
			return cfg, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("trees") {
		cfg.Trees = trees
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("period") {
		cfg.Schedule.Period = period
	}
	if flags.Changed("budget") {
		cfg.Schedule.Budget = budget
	}
	if flags.Changed("max-segments") {
		cfg.MaxSegments = maxSegs
	}
	cfg.Debug = cfg.Debug || verbose
	cfg.Logger = logger
	return cfg, cfg.Validate()
}

func runGrow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sim, err := arbor.New(cfg)
	if err != nil {
		return err
	}
	for _, id := range killLeader {
		if err := sim.Engine().KillLeader(arbor.TreeID(id)); err != nil {
			return err
		}
	}

	sim.OnMeshReady(sim.Recycle)
	reason := arbor.FinishNone
	sim.OnGrowthFinished(func(r arbor.FinishReason) { reason = r })

	frame := 0
	for ; frame < frames && sim.Growing(); frame++ {
		sim.Tick(frame)
	}
	return printSummary(cmd.OutOrStdout(), sim, frame, reason)
}

func printSummary(out io.Writer, sim *arbor.Simulation, frame int, reason arbor.FinishReason) error {
	sk := sim.Skeleton()
	per := sk.TreeStats()

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TREE\tORIGIN\tSEGMENTS\tLEAVES\tCANOPY\tLEADER")
	for i, t := range sk.Trees() {
		leader := "alive"
		if !t.HasLeader {
			leader = fmt.Sprintf("lost@%d", t.LeaderLostAt)
		}
		fmt.Fprintf(w, "%d\t(%.2f, %.2f)\t%d\t%d\t%.3f\t%s\n",
			i, t.Origin.X, t.Origin.Y, per[i].Segments, per[i].Leaves, t.CanopyRadius, leader)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	st := sim.Stats()
	status := "growing"
	if !st.Growing {
		status = "finished: " + reason.String()
	}
	_, err := fmt.Fprintf(out, "frames: %d  ticks: %d  segments: %d  vertices: %d  last tick: %v  %s\n",
		frame, st.Ticks, st.Segments, st.Vertices, st.LastDuration, status)
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
