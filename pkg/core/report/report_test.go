package report

import (
	"strings"
	"testing"

	"finstat/pkg/core/calc"
	"finstat/pkg/core/statements"
)

func sample() *statements.Standardized {
	periods := []string{"2023", "2022"}
	n := statements.Num
	income := &statements.RawTable{Periods: periods, Rows: []statements.RawRow{
		{Label: "Total Revenue", Values: statements.Series{n(1000), n(800)}},
		{Label: "Net Income", Values: statements.Series{n(100), statements.Missing}},
	}}
	balance := &statements.RawTable{Periods: periods, Rows: []statements.RawRow{
		{Label: "Total Assets", Values: statements.Series{n(2000), n(1600)}},
	}}
	cash := &statements.RawTable{Periods: periods, Rows: []statements.RawRow{
		{Label: "Operating Cash Flow", Values: statements.Series{n(150), n(120)}},
	}}
	return statements.Normalize(statements.DefaultAliases, income, balance, cash)
}

func TestStatementsMarkdown(t *testing.T) {
	out := StatementsMarkdown("AAPL", sample())

	for _, want := range []string{
		"# AAPL",
		"## Income Statement",
		"| Item | 2023 | 2022 |",
		"| Total Revenue | 1000 | 800 |",
		"| Net Income | 100 | n/a |",
		"## Cash Flow",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q\n%s", want, out)
		}
	}
}

func TestStatementsMarkdown_Unavailable(t *testing.T) {
	out := StatementsMarkdown("X", statements.FromError(statements.NotFoundMessage))
	if !strings.Contains(out, "> "+statements.NotFoundMessage) {
		t.Errorf("Expected error line, got %s", out)
	}
	if strings.Contains(out, "|") {
		t.Errorf("Expected no tables, got %s", out)
	}
}

func TestAnalysisMarkdown(t *testing.T) {
	a, err := calc.Analyze(sample())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	out := AnalysisMarkdown("AAPL analysis", a)
	for _, want := range []string{"## Ratios", "| Net Margin | 0.1 | n/a |", "## DuPont", "| Revenue YoY | 0.25 | n/a |", "## Data Quality", "Benford:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q", want)
		}
	}
}

func TestRenderHTML_Table(t *testing.T) {
	html, err := RenderHTML("| A | B |\n|---|---:|\n| x | 1 |\n")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(html, "<table>") || !strings.Contains(html, "<td>x</td>") {
		t.Errorf("Expected an HTML table, got %s", html)
	}
}

func TestPage_EscapesTitle(t *testing.T) {
	out, err := Page("<b>x</b>", "# hi\n\n<script>alert(1)</script>")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	s := string(out)
	if strings.Contains(s, "<title><b>") {
		t.Error("Expected title to be escaped")
	}
	if strings.Contains(s, "<script>alert") {
		t.Error("Expected raw HTML to be dropped")
	}
	if !strings.Contains(s, "<h1>hi</h1>") {
		t.Errorf("Expected rendered heading, got %s", s)
	}
}
