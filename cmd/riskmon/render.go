package main

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/selivandex/supplier-risk/pkg/models"
)

// renderReport prints the ranked scores, the newest headlines and any advisories
func renderReport(out io.Writer, report *models.Report, headlines int) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(out, "Supplier risk, %d-day window (alpha=%.2f beta=%.2f gamma=%.2f)\n\n",
		report.LookbackDays, report.Weights.Alpha, report.Weights.Beta, report.Weights.Gamma)

	fmt.Fprintln(w, "Supplier\tCountry\tRiskSent\tRiskGeo\tRiskReg\tRiskScore\t")
	for _, s := range report.Scores {
		fmt.Fprintf(w, "%s\t%s\t%.1f\t%.1f\t%.1f\t%.1f\t\n",
			s.Supplier, s.Country, s.RiskSent, s.RiskGeo, s.RiskReg, s.RiskScore)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if headlines > 0 && len(report.Headlines) > 0 {
		fmt.Fprintln(out, "\nRecent headlines")

		rows := slices.Clone(report.Headlines)
		slices.SortStableFunc(rows, func(a, b models.SentimentRow) int {
			return cmp.Compare(b.Date.Unix(), a.Date.Unix())
		})
		if len(rows) > headlines {
			rows = rows[:headlines]
		}

		hw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, r := range rows {
			fmt.Fprintf(hw, "%s\t%s\t%+.2f\t%s\n", r.Date.Format("2006-01-02"), r.Supplier, r.Sentiment, r.Title)
		}
		if err := hw.Flush(); err != nil {
			return err
		}
	}

	if len(report.Advisories) > 0 {
		fmt.Fprintln(out, "\nAdvisories")
		for _, a := range report.Advisories {
			fmt.Fprintf(out, "  ! %s\n", a)
		}
	}

	return nil
}
