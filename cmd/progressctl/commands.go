package main

import (
	"fmt"
	"time"

	"skill-tracker-progress/services"
	"skill-tracker-progress/workers"

	"github.com/spf13/cobra"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init <user-id>",
		Short: "Create progress and locked achievements for a user (idempotent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.store.InitializeUserProgress(cmd.Context(), args[0]); err != nil {
				return err
			}
			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{"user_id": args[0], "status": "initialized"})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\n", args[0])
			return nil
		},
	}
}

type completeOptions struct {
	Verified     bool
	PerfectDay   bool
	CompletionID string
}

func newCompleteCommand(opts *rootOptions) *cobra.Command {
	copts := &completeOptions{}

	cmd := &cobra.Command{
		Use:   "complete <user-id>",
		Short: "Record one task completion and print the achievements it unlocked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			unlocked, err := rt.evaluator.Process(cmd.Context(), services.CompletionEvent{
				UserID:       args[0],
				CompletionID: copts.CompletionID,
				IsVerified:   copts.Verified,
				IsPerfectDay: copts.PerfectDay,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				return printJSON(out, map[string]interface{}{"unlocked": unlocked})
			}
			if len(unlocked) == 0 {
				fmt.Fprintln(out, "no new achievements")
				return nil
			}
			for _, a := range unlocked {
				fmt.Fprintf(out, "%s %s (%s)\n", a.Icon, a.Name, a.ID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&copts.Verified, "verified", false, "the completion was verified")
	cmd.Flags().BoolVar(&copts.PerfectDay, "perfect-day", false, "the completion finished a perfect day")
	cmd.Flags().StringVar(&copts.CompletionID, "completion-id", "", "idempotency key; replays are ignored")

	return cmd
}

func newShowCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Print a user's progress and achievements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			prog, err := rt.store.GetProgress(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			records, err := rt.store.ListAchievements(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				return printJSON(out, map[string]interface{}{"progress": prog, "achievements": records})
			}

			fmt.Fprintf(out, "user:            %s\n", prog.UserID)
			fmt.Fprintf(out, "streak:          %d (longest %d)\n", prog.CurrentStreak, prog.LongestStreak)
			fmt.Fprintf(out, "tasks completed: %d\n", prog.TotalTasksCompleted)
			fmt.Fprintf(out, "perfect days:    %d\n", prog.PerfectDaysCount)
			fmt.Fprintf(out, "quizzes passed:  %d\n", prog.QuizzesPassedCount)
			fmt.Fprintf(out, "roadmaps done:   %d\n", prog.TotalRoadmapsCompleted)
			if prog.LastTaskCompletionDate != nil {
				fmt.Fprintf(out, "last completion: %s\n", prog.LastTaskCompletionDate.Format(time.RFC3339))
			}
			fmt.Fprintln(out)
			for _, r := range records {
				mark := "[ ]"
				if r.Unlocked() {
					mark = "[x]"
				}
				fmt.Fprintf(out, "%s %-18s %d/%d\n", mark, r.AchievementID, r.CurrentProgress, r.CriteriaValue)
			}
			return nil
		},
	}
}

func newBackfillCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Create missing locked achievements for every user after the catalog grew",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			created, err := workers.NewBackfillScheduler(rt.store).RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]int64{"created": created})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d achievement records\n", created)
			return nil
		},
	}
}

func newCatalogCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the loaded achievement catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			catalog, err := services.LoadCatalogFromConfig(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"achievements": catalog.Definitions()})
			}
			out, err := services.MarshalCatalogYAML(catalog)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
