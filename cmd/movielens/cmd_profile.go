package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/movielens/dataset"
)

func newProfileCommand() *cobra.Command {
	var (
		input  string
		topN   int
		format string
	)
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Summarise duplicate and missing values per column of a CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "table" && format != "yaml" {
				return usage(fmt.Errorf("unsupported format %q: must be table or yaml", format))
			}
			profiles, err := dataset.ProfileCSV(cmd.Context(), input, topN)
			if err != nil {
				return err
			}
			if format == "yaml" {
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				defer enc.Close()
				return enc.Encode(profiles)
			}
			printProfiles(cmd.OutOrStdout(), profiles)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "CSV file to profile")
	cmd.Flags().IntVar(&topN, "top", 5, "Most frequent duplicated values to show per column")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table or yaml")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func printProfiles(w io.Writer, profiles []dataset.ColumnProfile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tUNIQUE\tDUPLICATES\tDUPLICATED VALUES\tMISSING\tMISSING %\tTOP DUPLICATES")
	for _, p := range profiles {
		top := ""
		for i, vc := range p.TopDuplicates {
			if i > 0 {
				top += ", "
			}
			top += fmt.Sprintf("%s(%d)", vc.Value, vc.Count)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%.2f\t%s\n",
			p.Column, p.Unique, p.Duplicates, p.DistinctDuplicates, p.Missing, 100*p.MissingRatio, top)
	}
	_ = tw.Flush()
}
