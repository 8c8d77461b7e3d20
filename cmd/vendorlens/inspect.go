package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/dashboard"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/evaluation"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/excel"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/util"
)

func newInspectCmd() *cobra.Command {
	var (
		criteriaFile string
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <workbook.xlsx>",
		Short: "Print sheet resolution, table sizes, radar completeness and warnings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.OutOrStdout(), args[0], criteriaFile, asJSON)
		},
	}

	cmd.Flags().StringVar(&criteriaFile, "criteria", "", "YAML criteria registry (default: built-in six criteria)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the report as JSON")

	return cmd
}

// inspectReport is the machine-readable form of the inspect output.
type inspectReport struct {
	File           string                     `json:"file"`
	Sheets         map[model.SheetRole]string `json:"sheets"`
	Rows           map[model.SheetRole]int    `json:"rows"`
	Logos          int                        `json:"logos"`
	Summary        evaluation.Summary         `json:"summary"`
	Incomplete     []string                   `json:"incompleteRadars"`
	Requirements   int                        `json:"requirements"`
	AlignmentError string                     `json:"alignmentError,omitempty"`
	Warnings       []evaluation.Warning       `json:"warnings"`
}

func runInspect(out io.Writer, path, criteriaFile string, asJSON bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	registry, err := model.LoadCriteriaRegistry(criteriaFile)
	if err != nil {
		return err
	}
	wb, err := excel.Load(data, excel.DefaultLoadOptions())
	if err != nil {
		return err
	}
	snap, err := dashboard.Build(filepath.Base(path), wb, registry)
	if err != nil {
		return err
	}

	report := buildInspectReport(path, snap)
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printInspectReport(out, report, snap)
	return nil
}

func buildInspectReport(path string, snap *dashboard.Snapshot) inspectReport {
	wb := snap.Workbook
	report := inspectReport{
		File:   path,
		Sheets: wb.Sheets,
		Rows: map[model.SheetRole]int{
			model.RoleCompanies: wb.Companies.Len(),
			model.RoleSolutions: wb.Solutions.Len(),
			model.RoleAnalysis:  wb.Analysis.Len(),
			model.RoleAlignment: wb.Alignment.Len(),
		},
		Logos:    len(wb.CompanyLogos),
		Summary:  snap.Model.Summary(),
		Warnings: snap.Model.Warnings(),
	}
	for _, c := range snap.Model.Companies() {
		if _, ok := snap.Model.RadarVector(c.Name); !ok {
			report.Incomplete = append(report.Incomplete, c.Name)
		}
	}
	if snap.AlignmentErr != nil {
		report.AlignmentError = snap.AlignmentErr.Error()
	} else {
		report.Requirements = snap.Alignment.Len()
	}
	return report
}

func printInspectReport(out io.Writer, r inspectReport, snap *dashboard.Snapshot) {
	fmt.Fprintf(out, "Workbook: %s\n\n", r.File)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tSHEET\tROWS")
	for _, role := range model.SheetRoles {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", role, r.Sheets[role], r.Rows[role])
	}
	tw.Flush()

	fmt.Fprintf(out, "\nCompanies: %d  Solutions: %d  Logos: %d\n", r.Summary.Companies, r.Summary.Solutions, r.Logos)
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPANY\tGLOBAL\tRADAR\tSOLUTIONS")
	for _, c := range snap.Model.Companies() {
		radar := "complete"
		if _, ok := snap.Model.RadarVector(c.Name); !ok {
			radar = "incomplete"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", c.Name, util.FormatScore(c.GlobalScore), radar, len(snap.Model.SolutionsOf(c.Name)))
	}
	tw.Flush()

	if r.AlignmentError != "" {
		fmt.Fprintf(out, "\nAlignment: unavailable (%s)\n", r.AlignmentError)
	} else {
		fmt.Fprintf(out, "\nAlignment: %d requirements, types %v\n", r.Requirements, snap.Alignment.Types())
	}

	if len(r.Warnings) == 0 {
		fmt.Fprintln(out, "\nNo warnings.")
		return
	}
	fmt.Fprintf(out, "\nWarnings (%d):\n", len(r.Warnings))
	for _, w := range r.Warnings {
		fmt.Fprintf(out, "  - %s\n", w.String())
	}
}
