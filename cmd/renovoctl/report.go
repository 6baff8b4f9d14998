package main

import (
	"time"

	"github.com/spf13/cobra"

	"renovo/internal/core"
	"renovo/internal/report"
)

var (
	flagProject int64
	flagUser    int64
	flagFrom    string
	flagTo      string
	flagGroupBy string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print spending analytics for a project",
	RunE:  runReport,
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Print the dashboard summary of a user",
	RunE:  runDashboard,
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute the spent amount of every monthly budget",
	RunE:  runReconcile,
}

func init() {
	reportCmd.Flags().Int64VarP(&flagProject, "project", "p", 0, "Project id")
	reportCmd.Flags().StringVar(&flagFrom, "from", "", "First day, YYYY-MM-DD (default: project start)")
	reportCmd.Flags().StringVar(&flagTo, "to", "", "Last day, YYYY-MM-DD (default: today)")
	reportCmd.Flags().StringVarP(&flagGroupBy, "group-by", "g", string(core.GroupByMonth), "day, week, month, category or type")
	_ = reportCmd.MarkFlagRequired("project")

	dashboardCmd.Flags().Int64VarP(&flagUser, "user", "u", 0, "User id")
	_ = dashboardCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(reportCmd, dashboardCmd, reconcileCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	p, err := app.Services.Projects.Get(ctx, flagProject)
	if err != nil {
		return err
	}
	q := core.AnalyticsQuery{
		ProjectID: p.ID,
		DateFrom:  p.StartDate,
		DateTo:    core.DateOf(time.Now().UTC()),
		GroupBy:   core.GroupBy(flagGroupBy),
	}
	if flagFrom != "" {
		if q.DateFrom, err = core.ParseDate(flagFrom); err != nil {
			return core.Validation("from", err)
		}
	}
	if flagTo != "" {
		if q.DateTo, err = core.ParseDate(flagTo); err != nil {
			return core.Validation("to", err)
		}
	}

	r, err := app.Services.Analytics.Get(ctx, q)
	if err != nil {
		return err
	}
	return report.Analytics(cmd.OutOrStdout(), p, r)
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	s, err := app.Services.Dashboard.Summary(ctx, flagUser)
	if err != nil {
		return err
	}
	return report.Dashboard(cmd.OutOrStdout(), s)
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	n, err := app.Services.Budgets.ReconcileAll(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("recomputed %d monthly budgets\n", n)
	return nil
}
