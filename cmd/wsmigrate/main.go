// Package main provides the wsmigrate CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"wsmigrate/internal/config"
	"wsmigrate/internal/console"
	"wsmigrate/internal/hashid"
	"wsmigrate/internal/migrate"
)

var (
	sourceFlag string
	destFlag   string
	batchFlag  bool
	noCopyFlag bool
	configFlag string
)

var rootCmd = &cobra.Command{
	Use:   "wsmigrate",
	Short: "Migrate VS Code and Cursor workspace state when a project folder moves",
	Long: `wsmigrate relocates the per-workspace state (chat history, UI state,
settings) that VS Code and Cursor key by a hash of the workspace's
absolute path, so a moved project keeps its history.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.Flags().StringVar(&sourceFlag, "source", "", "Source workspace or root folder path")
	rootCmd.Flags().StringVar(&destFlag, "dest", "", "Destination workspace or root folder path")
	rootCmd.Flags().BoolVar(&batchFlag, "batch", false, "Treat source and dest as roots containing multiple workspaces")
	rootCmd.Flags().BoolVar(&noCopyFlag, "no-copy", false, "Skip copying the project folder itself")
	rootCmd.Flags().StringVar(&configFlag, "config", "", "Path to a YAML config overriding storage roots")
	_ = rootCmd.MarkFlagRequired("source")
	_ = rootCmd.MarkFlagRequired("dest")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}

	engine, native := hashid.Probe(cfg.NodeBin)
	if !native {
		console.Warn(fmt.Sprintf("%s not found; using the built-in hash implementation", cfg.NodeBin))
	}

	console.Header("VS Code & Cursor Workspace Migrator")

	orch := migrate.New(cfg, engine, console.Warn)

	var results []*migrate.Result
	if batchFlag {
		results, err = orch.RunBatch(sourceFlag, destFlag, !noCopyFlag)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			console.Warn(fmt.Sprintf("no workspace directories found in %s", sourceFlag))
			return nil
		}
	} else {
		job, err := migrate.NewJob(sourceFlag, destFlag, !noCopyFlag)
		if err != nil {
			return err
		}
		results = []*migrate.Result{orch.Run(job)}
	}

	failed := 0
	reports := make([]console.JobReport, 0, len(results))
	for _, res := range results {
		if res.Failed() {
			failed++
			console.Error(fmt.Sprintf("%s: %v", res.Job.Source, res.Err))
		} else {
			console.Success(fmt.Sprintf("%s migrated", filepath.Base(res.Job.Source)))
		}
		reports = append(reports, report(res))
	}

	console.Summary(reports)

	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(results))
	}
	console.Info("All done. You can open the new folders in VS Code or Cursor.")
	return nil
}

// report flattens a job result into one summary table row.
func report(res *migrate.Result) console.JobReport {
	r := console.JobReport{
		Workspace: filepath.Base(res.Job.Source),
		Status:    "done",
		Files:     string(res.Files),
	}
	if res.Failed() {
		r.Status = "failed"
		if res.Err != nil {
			r.Details = res.Err.Error()
		}
	}

	for _, er := range res.Editors {
		status := editorStatus(er)
		switch er.Editor {
		case config.EditorVSCode:
			r.VSCode = status
		case config.EditorCursor:
			r.Cursor = status
		}
	}
	return r
}

func editorStatus(er migrate.EditorResult) string {
	switch er.Outcome {
	case migrate.OutcomeMigrated:
		return fmt.Sprintf("migrated (%d files, %d rows)", er.Counts.TextFiles, er.Counts.DBRows)
	case migrate.OutcomeSkipped:
		return "no state"
	case migrate.OutcomeFailed:
		return fmt.Sprintf("failed: %v", er.Err)
	default:
		return string(er.Outcome)
	}
}
