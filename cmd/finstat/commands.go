package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"finstat/pkg/core/export"
	"finstat/pkg/core/ingest"
	"finstat/pkg/core/pipeline"
	"finstat/pkg/core/statements"
	"finstat/pkg/core/valuation"

	"github.com/google/subcommands"
	"github.com/xuri/excelize/v2"
)

var commands = []subcommands.Command{
	&fetchCmd{},
	&statementsCmd{},
	&analyzeCmd{},
	&dcfCmd{},
	&compsCmd{},
	&waccCmd{},
	&runsCmd{},
	&exportCmd{},
}

// sourceFlags selects a statement set by ticker or folder.
type sourceFlags struct {
	ticker string
	folder string
}

func (s *sourceFlags) register(f *flag.FlagSet) {
	f.StringVar(&s.ticker, "t", "", "Ticker whose latest snapshot is used.")
	f.StringVar(&s.folder, "path", "", "Snapshot folder. Takes precedence over -t.")
}

func (s *sourceFlags) source() (pipeline.Source, error) {
	if s.ticker == "" && s.folder == "" {
		return pipeline.Source{}, fmt.Errorf("one of -t or -path is required")
	}
	return pipeline.Source{Ticker: s.ticker, Folder: s.folder}, nil
}

// dcfFlags are the valuation assumptions.
type dcfFlags struct {
	wacc     float64
	terminal float64
	years    int
	shares   float64
}

func (d *dcfFlags) register(f *flag.FlagSet) {
	f.Float64Var(&d.wacc, "wacc", 0.09, "Discount rate.")
	f.Float64Var(&d.terminal, "g", 0.025, "Terminal growth rate.")
	f.IntVar(&d.years, "years", valuation.DefaultForecastYears, "Forecast horizon in years.")
	f.Float64Var(&d.shares, "shares", 0, "Shares outstanding. When 0 the market provider is asked.")
}

func (d *dcfFlags) params() valuation.DCFParams {
	p := valuation.DCFParams{WACC: d.wacc, TerminalGrowth: d.terminal, ForecastYears: d.years, SharesOutstanding: statements.Missing}
	if d.shares > 0 {
		p.SharesOutstanding = statements.Num(d.shares)
	}
	return p
}

// =============================================================================
// fetch
// =============================================================================

type fetchCmd struct {
	start    string
	end      string
	interval string
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "download price history and statements for tickers" }
func (*fetchCmd) Usage() string {
	return `finstat fetch [-start YYYY-MM-DD] [-end YYYY-MM-DD] [-interval 1d] <ticker>...

  Writes a new <data-dir>/<TICKER>/<timestamp>/ snapshot per ticker.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.start, "start", "", "First day of price history.")
	f.StringVar(&c.end, "end", "", "Last day of price history.")
	f.StringVar(&c.interval, "interval", "1d", "Bar interval (1d, 5d, 1wk, 1mo, 3mo).")
}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	var start, end time.Time
	var err error
	if c.start != "" {
		if start, err = time.Parse("2006-01-02", c.start); err != nil {
			return fail(fmt.Errorf("invalid -start: %w", err))
		}
	}
	if c.end != "" {
		if end, err = time.Parse("2006-01-02", c.end); err != nil {
			return fail(fmt.Errorf("invalid -end: %w", err))
		}
	}

	a, err := newApp(ctx)
	if err != nil {
		return fail(err)
	}
	var results []*ingest.FetchResult
	status := subcommands.ExitSuccess
	for _, ticker := range f.Args() {
		res, err := a.svc.Fetch(ctx, ingest.FetchRequest{Ticker: ticker, Start: start, End: end, Interval: c.interval})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", ticker, err)
			status = subcommands.ExitFailure
			continue
		}
		results = append(results, res)
	}
	if s := printJSON(results); s != subcommands.ExitSuccess {
		return s
	}
	return status
}

// =============================================================================
// statements / analyze
// =============================================================================

type statementsCmd struct{ src sourceFlags }

func (*statementsCmd) Name() string     { return "statements" }
func (*statementsCmd) Synopsis() string { return "print the standardized statements as JSON" }
func (*statementsCmd) Usage() string {
	return `finstat statements (-t <ticker> | -path <folder>)
`
}
func (c *statementsCmd) SetFlags(f *flag.FlagSet) { c.src.register(f) }

func (c *statementsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	src, err := c.src.source()
	if err != nil {
		return fail(err)
	}
	a, err := newApp(ctx)
	if err != nil {
		return fail(err)
	}
	std := a.svc.Standardize(src)
	if err := std.Ensure(); err != nil {
		return fail(err)
	}
	return printJSON(std)
}

type analyzeCmd struct{ src sourceFlags }

func (*analyzeCmd) Name() string     { return "analyze" }
func (*analyzeCmd) Synopsis() string { return "print ratios, common-size, DuPont and growth tables" }
func (*analyzeCmd) Usage() string {
	return `finstat analyze (-t <ticker> | -path <folder>)
`
}
func (c *analyzeCmd) SetFlags(f *flag.FlagSet) { c.src.register(f) }

func (c *analyzeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	src, err := c.src.source()
	if err != nil {
		return fail(err)
	}
	a, err := newApp(ctx)
	if err != nil {
		return fail(err)
	}
	_, analysis, err := a.svc.Analyze(src)
	if err != nil {
		return fail(err)
	}
	return printJSON(analysis)
}

// =============================================================================
// valuation
// =============================================================================

type dcfCmd struct {
	src sourceFlags
	dcf dcfFlags
}

func (*dcfCmd) Name() string     { return "dcf" }
func (*dcfCmd) Synopsis() string { return "run a discounted cash flow valuation" }
func (*dcfCmd) Usage() string {
	return `finstat dcf (-t <ticker> | -path <folder>) [-wacc 0.09] [-g 0.025] [-years 5] [-shares N]

  Projects the latest free cash flow and discounts it at -wacc. The run is recorded.
`
}

func (c *dcfCmd) SetFlags(f *flag.FlagSet) {
	c.src.register(f)
	c.dcf.register(f)
}

func (c *dcfCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	src, err := c.src.source()
	if err != nil {
		return fail(err)
	}
	a, err := newApp(ctx)
	if err != nil {
		return fail(err)
	}
	res, err := a.svc.DCF(ctx, src, c.dcf.params())
	if err != nil {
		return fail(err)
	}
	return printJSON(res)
}

type compsCmd struct{}

func (*compsCmd) Name() string     { return "comps" }
func (*compsCmd) Synopsis() string { return "build a comparables table of market multiples" }
func (*compsCmd) Usage() string {
	return `finstat comps <ticker>...
`
}
func (*compsCmd) SetFlags(*flag.FlagSet) {}

func (*compsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	a, err := newApp(ctx)
	if err != nil {
		return fail(err)
	}
	rows, summary, err := a.svc.Comps(ctx, f.Args())
	if err != nil {
		return fail(err)
	}
	return printJSON(map[string]interface{}{"table": rows, "summary": summary})
}

type waccCmd struct{ in valuation.WACCInput }

func (*waccCmd) Name() string     { return "wacc" }
func (*waccCmd) Synopsis() string { return "estimate WACC from CAPM inputs" }
func (*waccCmd) Usage() string {
	return `finstat wacc -beta 1.1 -rf 0.04 -erp 0.05 -kd 0.06 -tax 0.21 -de 0.3
`
}

func (c *waccCmd) SetFlags(f *flag.FlagSet) {
	f.Float64Var(&c.in.UnleveredBeta, "beta", 1, "Unlevered beta.")
	f.Float64Var(&c.in.RiskFreeRate, "rf", 0.04, "Risk-free rate.")
	f.Float64Var(&c.in.MarketRiskPremium, "erp", 0.05, "Equity risk premium.")
	f.Float64Var(&c.in.PreTaxCostOfDebt, "kd", 0.06, "Pre-tax cost of debt.")
	f.Float64Var(&c.in.TaxRate, "tax", 0.21, "Marginal tax rate.")
	f.Float64Var(&c.in.DebtToEquityRatio, "de", 0, "Target debt to equity.")
}

func (c *waccCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	res, err := valuation.CalculateWACC(c.in)
	if err != nil {
		return fail(err)
	}
	return printJSON(res)
}

type runsCmd struct {
	ticker string
	limit  int
}

func (*runsCmd) Name() string     { return "runs" }
func (*runsCmd) Synopsis() string { return "list recorded DCF runs, newest first" }
func (*runsCmd) Usage() string {
	return `finstat runs [-t <ticker>] [-n 20]
`
}

func (c *runsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "t", "", "Only runs for this ticker.")
	f.IntVar(&c.limit, "n", 20, "Maximum number of runs.")
}

func (c *runsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp(ctx)
	if err != nil {
		return fail(err)
	}
	runs, err := a.svc.Runs(ctx, c.ticker, c.limit)
	if err != nil {
		return fail(err)
	}
	return printJSON(runs)
}

// =============================================================================
// export
// =============================================================================

type exportCmd struct {
	src   sourceFlags
	dcf   dcfFlags
	kind  string
	out   string
	peers string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write statements, analysis or valuation to an xlsx workbook" }
func (*exportCmd) Usage() string {
	return `finstat export -kind (statements|analysis|valuation) (-t <ticker> | -path <folder>) [-out dir] [-peers A,B]

  Valuation exports run the DCF with the valuation flags, plus comps when -peers is set.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	c.src.register(f)
	c.dcf.register(f)
	f.StringVar(&c.kind, "kind", "statements", "What to export: statements, analysis or valuation.")
	f.StringVar(&c.out, "out", "", "Output directory. Defaults to the data dir.")
	f.StringVar(&c.peers, "peers", "", "Comma separated peer tickers for the Comps sheet.")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	src, err := c.src.source()
	if err != nil {
		return fail(err)
	}
	a, err := newApp(ctx)
	if err != nil {
		return fail(err)
	}

	var book *excelize.File
	switch c.kind {
	case "statements":
		book, err = export.StatementsWorkbook(a.svc.Standardize(src))
	case "analysis":
		_, res, aerr := a.svc.Analyze(src)
		if aerr != nil {
			return fail(aerr)
		}
		book, err = export.AnalysisWorkbook(res)
	case "valuation":
		book, err = c.valuation(ctx, a, src)
	default:
		return fail(fmt.Errorf("unknown -kind %q", c.kind))
	}
	if err != nil {
		return fail(err)
	}

	dir := c.out
	if dir == "" {
		dir = a.cfg.DataDir
	}
	path, err := export.Save(book, dir, export.FileName(src.Label(), c.kind))
	if err != nil {
		return fail(err)
	}
	return printJSON(map[string]string{"path": path})
}

func (c *exportCmd) valuation(ctx context.Context, a *app, src pipeline.Source) (*excelize.File, error) {
	res, err := a.svc.DCF(ctx, src, c.dcf.params())
	if err != nil {
		return nil, err
	}
	var rows []valuation.CompRow
	if peers := splitList(c.peers); len(peers) > 0 {
		if rows, _, err = a.svc.Comps(ctx, peers); err != nil {
			return nil, err
		}
	}
	return export.ValuationWorkbook(res, rows)
}
