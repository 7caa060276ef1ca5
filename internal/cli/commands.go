package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vcmarket/internal/model"
	"vcmarket/internal/pipeline"
	"vcmarket/internal/store"
	"vcmarket/pkg/utils"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show overall funding statistics",
		Args:  cobra.NoArgs,
		RunE: runWithDataset(func(cmd *cobra.Command, app *App, ds *pipeline.Dataset) error {
			w := cmd.OutOrStdout()
			if app.OutputFormat == "json" {
				return printJSON(w, ds.Overall)
			}
			fmt.Fprintf(w, "Funding type: %s (%d companies)\n", ds.FundingType, len(ds.Companies))
			for i, v := range ds.Overall.Values() {
				fmt.Fprintf(w, "%s: %d\n", titleKey(model.StatisticsKeys[i]), v)
			}
			return nil
		}),
	}
}

func newIndustriesCmd() *cobra.Command {
	var (
		industries []string
		listOnly   bool
		chart      string
	)
	cmd := &cobra.Command{
		Use:   "industries",
		Short: "Show funding statistics per industry group",
		Args:  cobra.NoArgs,
		RunE: runWithDataset(func(cmd *cobra.Command, app *App, ds *pipeline.Dataset) error {
			w := cmd.OutOrStdout()
			if listOnly {
				if app.OutputFormat == "json" {
					return printJSON(w, ds.Industries)
				}
				for _, label := range ds.Industries {
					fmt.Fprintln(w, label)
				}
				return nil
			}

			labels := pipeline.SortedLabels(ds.Categories)
			if len(industries) > 0 {
				var err error
				if labels, err = pipeline.ResolveIndustries(ds.Categories, industries); err != nil {
					return err
				}
			}

			if chart != "" {
				drawn, err := pipeline.ResolveIndustries(ds.Categories, industries)
				if err != nil {
					return err
				}
				if err := pipeline.WriteIndustryChart(ds.Categories, drawn, chart); err != nil {
					return fmt.Errorf("write chart: %w", err)
				}
				app.Logger.Info("industry chart written", zap.String("path", chart), zap.Int("industries", len(drawn)))
			}

			if app.OutputFormat == "json" {
				out := make(map[string]model.CategoryStat, len(labels))
				for _, label := range labels {
					out[label] = ds.Categories[label]
				}
				return printJSON(w, out)
			}
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "INDUSTRY\tCOMPANIES\tMEAN TOTAL\tMEDIAN TOTAL\tMEAN LAST\tMEDIAN LAST")
			for _, label := range labels {
				s := ds.Categories[label]
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", label, s.CompanyCount,
					s.TotalFundingMean, s.TotalFundingMedian, s.LastFundingMean, s.LastFundingMedian)
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().StringSliceVarP(&industries, "industry", "i", nil, "industry groups to show, case-insensitive (repeatable or comma separated)")
	cmd.Flags().BoolVar(&listOnly, "list", false, "only list the industry groups in first-seen order")
	cmd.Flags().StringVar(&chart, "chart", "", "also write a PNG bar chart to this path")
	return cmd
}

func newInvestorsCmd() *cobra.Command {
	var (
		k      int
		region string
		all    bool
		chart  string
	)
	cmd := &cobra.Command{
		Use:   "investors",
		Short: "Show the highest scoring investors",
		Long:  "Investors score one point per investment and two per exit. Ties keep file order, EU before US.",
		Args:  cobra.NoArgs,
		RunE: runWithDataset(func(cmd *cobra.Command, app *App, ds *pipeline.Dataset) error {
			if k < 0 {
				return &pipeline.ParameterError{Field: "top", Reason: "must be >= 0"}
			}
			var r model.Region
			if region != "" {
				var err error
				if r, err = model.ParseRegion(region); err != nil {
					return &pipeline.ParameterError{Field: "region", Reason: err.Error()}
				}
			}

			var list []model.InvestorScore
			switch {
			case all:
				list = ds.Investors.All()
				if r != "" {
					filtered := list[:0]
					for _, inv := range list {
						if inv.Region == r {
							filtered = append(filtered, inv)
						}
					}
					list = filtered
				}
			case r != "":
				list = ds.Investors.TopByRegion(r, k)
			default:
				list = ds.Investors.Top(k)
			}

			if chart != "" {
				if r == "" {
					return &pipeline.ParameterError{Field: "chart", Reason: "a chart needs --region"}
				}
				if err := pipeline.WriteInvestorChart(ds.Investors.TopByRegion(r, k), r, chart); err != nil {
					return fmt.Errorf("write chart: %w", err)
				}
				app.Logger.Info("investor chart written", zap.String("path", chart), zap.String("region", string(r)))
			}

			w := cmd.OutOrStdout()
			if app.OutputFormat == "json" {
				return printJSON(w, list)
			}
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tREGION\tINVESTMENTS\tEXITS\tSCORE")
			for _, inv := range list {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", inv.Name, inv.Region, inv.NumInvestments, inv.NumExits, inv.Score)
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().IntVarP(&k, "top", "k", pipeline.TopInvestorCount, "number of investors")
	cmd.Flags().StringVarP(&region, "region", "r", "", "restrict to EU or US")
	cmd.Flags().BoolVar(&all, "all", false, "list every investor in file order")
	cmd.Flags().StringVar(&chart, "chart", "", "also write a PNG bar chart of the top investors of --region")
	return cmd
}

func newRankCmd() *cobra.Command {
	var flags rankFlags
	var detail bool
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Find the best companies by weighted score",
		Long: "Ranks companies by investor weight * normalized investor score + funding weight *\n" +
			"normalized funding difference + market weight * market context score.",
		Args: cobra.NoArgs,
		RunE: runWithDataset(func(cmd *cobra.Command, app *App, ds *pipeline.Dataset) error {
			ranked, err := pipeline.Rank(ds, flags.request(cmd, app.Config))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if app.OutputFormat == "json" {
				return printJSON(w, ranked)
			}
			if !detail {
				for _, rc := range ranked {
					fmt.Fprintln(w, rc.Company.Name)
				}
				return nil
			}
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tCOMPANY\tINVESTOR\tFUNDING\tMARKET\tOVERALL\tEXPECTED NEXT")
			for _, rc := range ranked {
				fmt.Fprintf(tw, "%d\t%s\t%.4f\t%.4f\t%.4f\t%.4f\t%.0f\n", rc.Rank, rc.Company.Name,
					rc.InvestorNorm, rc.FundingNorm, rc.MarketContextScore, rc.OverallScore, rc.Company.ExpectedNextFunding)
			}
			return tw.Flush()
		}),
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&detail, "detail", false, "print the score components")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		flags       rankFlags
		dir         string
		db          string
		workbook    bool
		charts      bool
		modelReport bool
		history     bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the export bundle",
		Long:  "Writes investor, statistics and top company files, plus the optional workbook, charts, model report and SQLite file.",
		Args:  cobra.NoArgs,
		RunE: runWithDataset(func(cmd *cobra.Command, app *App, ds *pipeline.Dataset) error {
			cfg := app.Config
			spec := cfg.ExportSpec()
			spec.Ranking = flags.request(cmd, cfg)
			spec.Dir = dir
			f := cmd.Flags()
			if f.Changed("db") {
				spec.DB = db
			}
			if f.Changed("workbook") {
				spec.Workbook = workbook
			}
			if f.Changed("charts") {
				spec.Charts = charts
			}
			if f.Changed("model-report") {
				spec.ModelReport = modelReport
			}

			var hist *store.Store
			if history && cfg.Server.HistoryDB != "" {
				var err error
				if hist, err = store.Open(cfg.Server.HistoryDB); err != nil {
					return err
				}
				defer hist.Close()
			}

			em := pipeline.NewExportManager(utils.NewOutputManager(cfg.Export.Dir), hist, nil, app.Logger)
			run, err := em.Export(cmd.Context(), ds, spec)
			if run == nil {
				return err
			}

			w := cmd.OutOrStdout()
			if app.OutputFormat == "json" {
				if perr := printJSON(w, run); perr != nil {
					return perr
				}
				return err
			}
			fmt.Fprintf(w, "Export %s: %s\n", run.ID, run.Status)
			for _, file := range run.Files {
				status := "ok"
				if !file.Success {
					status = "FAILED: " + file.Error
				}
				fmt.Fprintf(w, "  %s (%d records) %s\n", file.Path, file.RecordCount, status)
			}
			return err
		}),
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&dir, "dir", "", "output directory (default: a new directory under the configured export dir)")
	cmd.Flags().StringVar(&db, "db", "", "also write a SQLite file with this name")
	cmd.Flags().BoolVar(&workbook, "workbook", false, "write the XLSX workbook (default from config)")
	cmd.Flags().BoolVar(&charts, "charts", false, "write PNG charts (default from config)")
	cmd.Flags().BoolVar(&modelReport, "model-report", false, "write the model report (default from config)")
	cmd.Flags().BoolVar(&history, "history", false, "record the run in the configured history database")
	return cmd
}

const faqText = `1. How are the scores computed?
Investor scores count one point per investment and two per exit, so the more
investments and exits, the higher the score.
Company scores combine the investor score, the funding difference score and
the market context score. Investor and funding scores are normalized to 0..1.

2. How are the best companies found?
The overall score is a weighted sum of the investor score, the funding
difference score and the market context score. The weights are given with
--investor-weight, --funding-weight and --market-weight.

3. How are the top 20 investors found?
All EU and US investors are sorted by score. Ties keep file order, EU first.

4. What is the funding difference?
A random forest trained on the loaded companies predicts the next funding
amount of each company. The difference is prediction minus last funding.
`

func newFAQCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "faq",
		Short: "Frequently asked questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), faqText)
			return nil
		},
	}
}

// titleKey turns mean_total_funding into Mean Total Funding
func titleKey(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
