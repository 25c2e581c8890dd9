// tutorctl is the operator CLI for the learning core: ingest curriculum
// PDFs, export training data, drive training jobs, and inspect study plans
// without going through the HTTP surface.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/efezeyus/aiogretmen-sub001/config"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/curriculum"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/evaluator"
	coreingest "github.com/efezeyus/aiogretmen-sub001/internal/core/ingest"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/mastery"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/miner"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/planner"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/provider"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/trainer"
	"github.com/efezeyus/aiogretmen-sub001/internal/database"
	"github.com/efezeyus/aiogretmen-sub001/internal/database/model"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// Exit codes: 0 success, 1 validation error (bad flags, nothing eligible,
// policy refusals), 2 external-service failure, 3 partial success (some
// examples or cases were dropped).
const (
	exitValidation = 1
	exitExternal   = 2
	exitPartial    = 3
)

func fail(code int, err error) {
	fmt.Fprintln(os.Stderr, "tutorctl:", err)
	os.Exit(code)
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func mustDB() *gorm.DB {
	db, err := database.GetDB()
	if err != nil {
		fail(exitExternal, err)
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		fail(exitExternal, err)
	}
	return db
}

func newIngestCmd() *cobra.Command {
	var (
		file    string
		grade   int
		subject string
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index a curriculum PDF into its vector collection",
		Run: func(cmd *cobra.Command, args []string) {
			if file == "" || grade == 0 || subject == "" {
				fail(exitValidation, errors.New("--file, --grade and --subject are required"))
			}
			svc := coreingest.NewService(mustDB())
			result, err := svc.Ingest(context.Background(), file, grade, subject, file)
			if err != nil {
				if errors.Is(err, coreingest.ErrEmptyDocument) {
					fail(exitValidation, err)
				}
				fail(exitExternal, err)
			}
			printJSON(result)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "local path or s3:// ref of the PDF")
	cmd.Flags().IntVar(&grade, "grade", 0, "grade level (1-12)")
	cmd.Flags().StringVar(&subject, "subject", "", "subject, e.g. matematik")
	return cmd
}

func newMineCmd() *cobra.Command {
	var sinceStr, untilStr string
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Export eligible ledger rows as fine-tuning JSONL",
		Run: func(cmd *cobra.Command, args []string) {
			since := time.Time{}
			until := time.Now()
			var err error
			if sinceStr != "" {
				if since, err = time.Parse(time.RFC3339, sinceStr); err != nil {
					fail(exitValidation, fmt.Errorf("--since: %w", err))
				}
			}
			if untilStr != "" {
				if until, err = time.Parse(time.RFC3339, untilStr); err != nil {
					fail(exitValidation, fmt.Errorf("--until: %w", err))
				}
			}
			export, err := miner.NewService(mustDB()).Mine(context.Background(), since, until)
			if err != nil {
				if errors.Is(err, miner.ErrNoEligibleRows) {
					fail(exitValidation, err)
				}
				fail(exitExternal, err)
			}
			printJSON(export)
			if export.DroppedCount > 0 {
				os.Exit(exitPartial)
			}
		},
	}
	cmd.Flags().StringVar(&sinceStr, "since", "", "window start (RFC3339)")
	cmd.Flags().StringVar(&untilStr, "until", "", "window end (RFC3339)")
	return cmd
}

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Manage training jobs",
	}

	trigger := &cobra.Command{
		Use:   "trigger",
		Short: "Start a training run now (skips the interval, not the data floor)",
		Run: func(cmd *cobra.Command, args []string) {
			db := mustDB()
			svc := trainer.NewService(db, provider.NewRouter(nil), trainer.NewFineTuner())
			job, err := svc.Trigger(context.Background(), false)
			if err != nil {
				if errors.Is(err, trainer.ErrInsufficientData) || errors.Is(err, trainer.ErrJobActive) {
					fail(exitValidation, err)
				}
				fail(exitExternal, err)
			}
			fmt.Println("job created:", job.JobID)
			svc.Run(context.Background(), job.JobID)
			final, err := svc.Job(context.Background(), job.JobID)
			if err != nil {
				fail(exitExternal, err)
			}
			printJSON(final)
			if final.State != model.JobSucceeded {
				os.Exit(exitExternal)
			}
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the autolearn loop status",
		Run: func(cmd *cobra.Command, args []string) {
			db := mustDB()
			svc := trainer.NewService(db, provider.NewRouter(nil), trainer.NewFineTuner())
			st, err := svc.GetStatus(context.Background())
			if err != nil {
				fail(exitExternal, err)
			}
			printJSON(st)
		},
	}

	cmd.AddCommand(trigger, status)
	return cmd
}

func newEvaluateCmd() *cobra.Command {
	var modelID string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a model on the fixed evaluation set",
		Run: func(cmd *cobra.Command, args []string) {
			if modelID == "" {
				fail(exitValidation, errors.New("--model is required"))
			}
			router := provider.NewRouter(nil)
			report, err := evaluator.NewService(router).Evaluate(context.Background(), modelID)
			if err != nil {
				fail(exitExternal, err)
			}
			printJSON(report)
			if report.FailureCount > 0 {
				os.Exit(exitPartial)
			}
		},
	}
	cmd.Flags().StringVar(&modelID, "model", "", "model id to evaluate")
	return cmd
}

func newPlanCmd() *cobra.Command {
	var (
		studentID string
		grade     int
		subject   string
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Derive a student's study plan",
		Run: func(cmd *cobra.Command, args []string) {
			if studentID == "" || grade == 0 || subject == "" {
				fail(exitValidation, errors.New("--student, --grade and --subject are required"))
			}
			graph, err := curriculum.Load()
			if err != nil {
				fail(exitExternal, err)
			}
			db := mustDB()
			entries, err := mastery.NewService(db).Get(context.Background(), studentID, grade, subject)
			if err != nil {
				fail(exitExternal, err)
			}
			plan, err := planner.Build(graph, grade, subject, entries, planner.Options{
				UpcomingTopics: config.Cfg.Planner.UpcomingTopics,
				PaceFactor:     config.Cfg.Planner.PaceFactor,
			})
			if err != nil {
				fail(exitExternal, err)
			}
			printJSON(plan)
		},
	}
	cmd.Flags().StringVar(&studentID, "student", "", "student id")
	cmd.Flags().IntVar(&grade, "grade", 0, "grade level (1-12)")
	cmd.Flags().StringVar(&subject, "subject", "", "subject, e.g. matematik")
	return cmd
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "tutorctl",
		Short: "Operator CLI for the MEB AI tutor learning core",
	}
	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newMineCmd())
	rootCmd.AddCommand(newTrainCmd())
	rootCmd.AddCommand(newEvaluateCmd())
	rootCmd.AddCommand(newPlanCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitValidation)
	}
}
