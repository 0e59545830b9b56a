package cmd

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jwpure/jwpure/pure"
)

var (
	// CLI flags for the run command
	slotsPath      string // Slot catalog CSV
	planPath       string // YAML allocation plan
	constraintText string // Inline constraint (used when no plan is given)
	maxSlot        int    // Max slots kept per configuration, inline pass
	maxConfig      int    // Max configurations kept per visit, inline pass
	repeat         int    // Times to repeat the inline pass
	outPath        string // Summary CSV output
	saveSlotsPath  string // Allocated slot CSV output
	sqlitePath     string // SQLite export output
	traceVisit     string // Visit to trace through every pass
	logLevel       string // Log verbosity level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "jwpure",
	Short: "Assess pure parallel slot allocation scenarios",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// runCmd allocates slots pass by pass using a plan file or an inline constraint
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Allocate pure parallel slots pass by pass",
	Run: func(cmd *cobra.Command, args []string) {
		opts := runOptions{
			SlotsPath:     slotsPath,
			PlanPath:      planPath,
			Constraint:    constraintText,
			MaxSlot:       maxSlot,
			MaxConfig:     maxConfig,
			Repeat:        repeat,
			OutPath:       outPath,
			SaveSlotsPath: saveSlotsPath,
			SQLitePath:    sqlitePath,
			TraceVisit:    traceVisit,
		}
		if err := runScenario(cmd.Context(), opts, cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("run failed: %v", err)
		}
		logrus.Info("Allocation complete.")
	},
}

// summarizeCmd summarizes a slot catalog, including a previously saved allocation
var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize a slot catalog by cycle and pass",
	Run: func(cmd *cobra.Command, args []string) {
		if err := summarizeCatalog(slotsPath, outPath, cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("summarize failed: %v", err)
		}
	},
}

// fieldsCmd lists the parameters constraints can reference
var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List constraint parameters",
	Run: func(cmd *cobra.Command, args []string) {
		printFields(cmd.OutOrStdout())
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().StringVar(&slotsPath, "slots", "", "Slot catalog CSV (overrides the plan's slots)")
	runCmd.Flags().StringVar(&planPath, "plan", "", "YAML allocation plan")
	runCmd.Flags().StringVar(&constraintText, "constraint", "", "Inline constraint, e.g. \"slot.inst != 'NIRCam' & config.nslot >= 3\"")
	runCmd.Flags().IntVar(&maxSlot, "max-slot", pure.DefaultMaxSlot, "Max slots kept per configuration (inline pass)")
	runCmd.Flags().IntVar(&maxConfig, "max-config", pure.DefaultMaxConfig, "Max configurations kept per visit (inline pass)")
	runCmd.Flags().IntVar(&repeat, "repeat", 1, "Number of times to run the inline pass")
	runCmd.Flags().StringVar(&outPath, "out", "", "Write the summary table to this CSV file")
	runCmd.Flags().StringVar(&saveSlotsPath, "save-slots", "", "Write allocated slots to this CSV file")
	runCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "Export the pool and summary to this SQLite database")
	runCmd.Flags().StringVar(&traceVisit, "trace-visit", "", "Visit id to trace through every pass (overrides the plan's trace_visit)")

	summarizeCmd.Flags().StringVar(&slotsPath, "slots", "", "Slot catalog CSV")
	summarizeCmd.Flags().StringVar(&outPath, "out", "", "Write the summary table to this CSV file")
	_ = summarizeCmd.MarkFlagRequired("slots")

	rootCmd.AddCommand(runCmd, summarizeCmd, fieldsCmd)
}
