package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"

	"claimlab/adapters/api"
	"claimlab/adapters/config"
	"claimlab/adapters/postgres"
	"claimlab/adapters/report"
	"claimlab/adapters/tabular"
	"claimlab/app"
	"claimlab/domain/abtest"
	"claimlab/domain/dataset"
	"claimlab/internal/eda"
	"claimlab/internal/logging"
	"claimlab/internal/metrics"
	"claimlab/internal/modeling"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hypotest",
		Short: "Insurance claims A/B hypothesis-testing pipeline",
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newEDACmd(),
		newModelCmd(),
		newServeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured hypothesis tests and write the summary report",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewDefaultLogger()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			table, err := loadAugmented(cfg.Data.CleanedPath, log)
			if err != nil {
				return err
			}

			opts := app.DefaultOptions()
			opts.Alpha = cfg.Alpha
			opts.BalanceThreshold = cfg.BalanceThreshold
			opts.StrictBalance = cfg.StrictBalance
			opts.Parallel = cfg.Parallel
			if cfg.MinSampleSize != nil {
				opts.MinSampleSize = *cfg.MinSampleSize
			}

			service := app.NewABTestService(log)
			specs := cfg.Specs()
			results := service.RunAll(cmd.Context(), table, specs, opts)
			log.Info("run: %d of %d specs completed", len(results), len(specs))

			writer := report.NewWriter(log)
			if cfg.Reports.SummaryMD != "" {
				if err := writer.WriteSummary(cfg.Reports.SummaryMD, results, opts.Alpha); err != nil {
					return err
				}
			}
			if cfg.Reports.SummaryHTML != "" {
				if err := writer.WriteHTML(cfg.Reports.SummaryHTML, results, opts.Alpha); err != nil {
					return err
				}
			}
			if cfg.Reports.SummaryXLSX != "" {
				if err := writer.WriteXLSX(cfg.Reports.SummaryXLSX, results); err != nil {
					return err
				}
			}

			if dsn := config.DatabaseURL(); dsn != "" {
				if err := persist(cmd.Context(), dsn, cfg, opts.Alpha, len(specs), results); err != nil {
					return err
				}
				log.Info("run: results persisted")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "configs/hypothesis_config.yaml", "path to the run configuration")
	return cmd
}

func newEDACmd() *cobra.Command {
	var dataPath, groupBy string

	cmd := &cobra.Command{
		Use:   "eda",
		Short: "Print descriptive statistics and grouped loss ratios",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewDefaultLogger()

			table, err := loadAugmented(dataPath, log)
			if err != nil {
				return err
			}

			kpiCols := []string{abtest.ColPremium, abtest.ColClaims, abtest.ColMargin, abtest.ColLossRatio}
			out := map[string]interface{}{
				"portfolio_loss_ratio": jsonFloat(eda.PortfolioLossRatio(table)),
				"columns":              eda.Summarize(table),
				"kpi_correlations": map[string]interface{}{
					"columns": kpiCols,
					"matrix":  jsonMatrix(eda.CorrelationMatrix(table, kpiCols)),
				},
			}
			if groupBy != "" {
				out["loss_ratio_by_"+groupBy] = eda.LossRatioByGroup(table, groupBy)
			}
			return printJSON(out)
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "path to the cleaned dataset (csv or xlsx)")
	cmd.Flags().StringVar(&groupBy, "group-by", "", "categorical column for grouped loss ratios")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func newModelCmd() *cobra.Command {
	var dataPath string

	cmd := &cobra.Command{
		Use:   "model",
		Short: "Train and evaluate the claim, premium, and severity models",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewDefaultLogger()

			table, err := loadAugmented(dataPath, log)
			if err != nil {
				return err
			}

			pipeline := modeling.NewPipeline(log)
			return printJSON(pipeline.Run(table))
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "path to the cleaned dataset (csv or xlsx)")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored runs and results over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewDefaultLogger()

			dsn := config.DatabaseURL()
			if dsn == "" {
				return fmt.Errorf("DATABASE_URL must be set to serve stored results")
			}

			db, err := postgres.Open(cmd.Context(), dsn)
			if err != nil {
				return err
			}
			defer db.Close()

			service := api.NewService(postgres.NewRunRepository(db), log)
			log.Info("serve: listening on %s", addr)
			return http.ListenAndServe(addr, service.Routes())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

// loadAugmented reads the dataset, applies cleaning, and derives the KPI
// columns used by every downstream stage.
func loadAugmented(path string, log logging.Logger) (*dataset.Table, error) {
	reader := tabular.NewReader(log)
	table, err := reader.ReadTable(path)
	if err != nil {
		return nil, err
	}

	cleaner := tabular.NewCleaner(log)
	table = cleaner.Clean(table)
	table = cleaner.DropInvalidRows(table)

	engine := metrics.NewEngine(log)
	return engine.Augment(table), nil
}

func persist(ctx context.Context, dsn string, cfg *config.RunConfig, alpha float64, specCount int, results []abtest.TestResult) error {
	db, err := postgres.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	store := postgres.NewRunRepository(db)
	run := postgres.NewRun(alpha, specCount, results, cfg.Digest())
	return store.SaveRun(ctx, run, results)
}

// jsonFloat maps NaN to null so undefined ratios survive JSON encoding.
func jsonFloat(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func jsonMatrix(m [][]float64) [][]interface{} {
	out := make([][]interface{}, len(m))
	for i, row := range m {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = jsonFloat(v)
		}
		out[i] = cells
	}
	return out
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
