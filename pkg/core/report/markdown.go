// Package report renders statements and analysis as GitHub-flavored markdown
// tables and converts them to HTML pages.
package report

import (
	"fmt"
	"strings"

	"finstat/pkg/core/calc"
	"finstat/pkg/core/statements"
)

// MissingCell is shown for absent values.
const MissingCell = "n/a"

// StatementsMarkdown renders the three canonical statements. An unavailable set
// renders as a single quoted error line.
func StatementsMarkdown(title string, std *statements.Standardized) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escape(title))
	if err := std.Ensure(); err != nil {
		fmt.Fprintf(&b, "> %s\n", escape(err.Error()))
		return b.String()
	}
	for _, s := range []struct {
		heading string
		table   *statements.CanonicalTable
	}{
		{"Income Statement", std.Income},
		{"Balance Sheet", std.Balance},
		{"Cash Flow", std.CashFlow},
	} {
		fmt.Fprintf(&b, "## %s\n\n", s.heading)
		labels := make([]string, len(s.table.Rows))
		values := make([]statements.Series, len(s.table.Rows))
		for i, r := range s.table.Rows {
			labels[i], values[i] = string(r.Item), r.Values
		}
		writeTable(&b, "Item", s.table.Periods, labels, values)
	}
	return b.String()
}

// AnalysisMarkdown renders every derived table of a.
func AnalysisMarkdown(title string, a *calc.Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escape(title))
	for _, s := range []struct {
		heading string
		table   *calc.DerivedTable
	}{
		{"Ratios", a.Ratios},
		{"Common Size: Income Statement (% of revenue)", a.CommonSize.IncomeStatement},
		{"Common Size: Balance Sheet (% of assets)", a.CommonSize.BalanceSheet},
		{"DuPont", a.DuPont},
		{"Growth", a.Growth},
	} {
		fmt.Fprintf(&b, "## %s\n\n", s.heading)
		labels := make([]string, len(s.table.Rows))
		values := make([]statements.Series, len(s.table.Rows))
		for i, r := range s.table.Rows {
			labels[i], values[i] = r.Metric, r.Values
		}
		writeTable(&b, "Metric", s.table.Periods, labels, values)
	}
	if q := a.Quality; q != nil {
		b.WriteString("## Data Quality\n\n")
		gap := q.BalanceGap
		writeTable(&b, "Check", gap.Periods, []string{calc.BalanceGapMetric}, []statements.Series{gap.Get(calc.BalanceGapMetric)})
		fmt.Fprintf(&b, "Benford: %s (MAD %.4f over %d figures)\n\n", q.Benford.Level, q.Benford.MAD, q.Benford.TotalCount)
		for _, w := range q.Warnings {
			fmt.Fprintf(&b, "- %s\n", escape(w))
		}
	}
	return b.String()
}

// ErrorMarkdown renders a page that only carries a message.
func ErrorMarkdown(title, message string) string {
	return fmt.Sprintf("# %s\n\n> %s\n", escape(title), escape(message))
}

func writeTable(b *strings.Builder, first string, periods, labels []string, values []statements.Series) {
	b.WriteString("| " + first + " |")
	for _, p := range periods {
		b.WriteString(" " + escape(p) + " |")
	}
	b.WriteString("\n|---|")
	for range periods {
		b.WriteString("---:|")
	}
	b.WriteString("\n")
	for i, label := range labels {
		b.WriteString("| " + escape(label) + " |")
		for j := range periods {
			cell := MissingCell
			if j < len(values[i]) && !values[i][j].IsMissing() {
				cell = values[i][j].String()
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// escape keeps free text from breaking table or block syntax.
func escape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
