package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/movielens/metrics"
	"github.com/YuminosukeSato/movielens/tracking"
)

func newRunsCommand(root *rootOptions) *cobra.Command {
	var experiment string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs and their metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load("")
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), experiment)
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().StringVarP(&experiment, "experiment", "e", "", "Only list runs of this experiment")
	return cmd
}

func printRuns(w io.Writer, runs []tracking.RunInfo) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tEXPERIMENT\tNAME\tSTATUS\tSTARTED\tMODEL\tRMSE\tMAE\tR2")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Experiment, r.Name, r.Status,
			r.StartTime.Format("2006-01-02 15:04:05"),
			r.Params["model_name"],
			metricCell(r.Metrics, metrics.RMSEName),
			metricCell(r.Metrics, metrics.MAEName),
			metricCell(r.Metrics, metrics.R2Name),
		)
	}
	_ = tw.Flush()
}

func metricCell(m map[string]float64, name string) string {
	v, ok := m[name]
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.4f", v)
}
