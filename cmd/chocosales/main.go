// Chocosales CLI - filter and summarize chocolate sales from a CSV file
//
// Usage:
//
//	chocosales summary --file chocosales.csv --country UK --country India
//	chocosales options --file chocosales.csv
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"chocosales-dashboard/internal/config"
	"chocosales-dashboard/internal/models"
	"chocosales-dashboard/internal/observability"
	"chocosales-dashboard/internal/services"
)

var version = "dev"

func main() {
	// Flag env fallbacks are resolved during parsing, so .env must be
	// applied before the app runs.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: read .env: %v\n", err)
	}

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "chocosales",
		Usage:   "Filter and summarize chocolate sales transactions",
		Version: version,

		// Product names may contain commas.
		DisableSliceFlagSeparator: true,

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "zero-boxes",
				Value:   string(services.ZeroBoxesReject),
				Usage:   "How to treat rows with zero boxes shipped (reject, null)",
				EnvVars: []string{"ZERO_BOXES_POLICY"},
			},
		},

		Commands: []*cli.Command{
			summaryCommand(),
			optionsCommand(),
		},
	}
}

func fileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "file",
		Aliases: []string{"f"},
		Value:   "chocosales.csv",
		Usage:   "Path to the sales CSV file",
		EnvVars: []string{"CSV_FILE"},
	}
}

// =============================================================================
// SUMMARY COMMAND
// =============================================================================

func summaryCommand() *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Show metrics, top products and a preview for a filter selection",
		Flags: []cli.Flag{
			fileFlag(),
			&cli.StringSliceFlag{
				Name:    "sales-person",
				Aliases: []string{"s"},
				Usage:   "Keep only these sales people (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:    "country",
				Aliases: []string{"c"},
				Usage:   "Keep only these countries (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:    "product",
				Aliases: []string{"p"},
				Usage:   "Keep only these products (repeatable)",
			},
			&cli.StringFlag{
				Name:  "format",
				Value: "table",
				Usage: "Output format (table, json)",
			},
			&cli.IntFlag{
				Name:    "preview",
				Value:   services.PreviewRows,
				Usage:   "Number of rows to preview (0 for all)",
				EnvVars: []string{"PREVIEW_ROWS"},
			},
		},
		Action: runSummary,
	}
}

type summaryOutput struct {
	Metrics models.SummaryMetrics `json:"metrics"`
	Preview models.Dataset        `json:"preview"`
	Total   int                   `json:"total"`
}

func runSummary(c *cli.Context) error {
	format := c.String("format")
	if format != "table" && format != "json" {
		return fmt.Errorf("unknown format %q (want table or json)", format)
	}
	previewRows := c.Int("preview")
	if previewRows < 0 {
		return fmt.Errorf("preview must not be negative, got %d", previewRows)
	}

	sales, err := loadSales(c)
	if err != nil {
		return err
	}

	selection := models.FilterSelection{
		models.FieldSalesPerson: c.StringSlice("sales-person"),
		models.FieldCountry:     c.StringSlice("country"),
		models.FieldProduct:     c.StringSlice("product"),
	}
	filtered, metrics := sales.Apply(selection)

	out := summaryOutput{
		Metrics: metrics,
		Preview: services.Preview(filtered, previewRows),
		Total:   len(filtered),
	}

	if format == "json" {
		return writeJSON(c.App.Writer, out)
	}
	return writeSummaryTable(c.App.Writer, out)
}

func writeSummaryTable(w io.Writer, out summaryOutput) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	m := out.Metrics
	fmt.Fprintf(tw, "Transactions\t%d\n", m.TransactionCount)
	fmt.Fprintf(tw, "Total Revenue\t%s\n", models.FormatCurrency(m.TotalRevenue))
	fmt.Fprintf(tw, "Total Boxes\t%d\n", m.TotalBoxes)
	fmt.Fprintf(tw, "Products\t%d\n", m.DistinctProductCount)
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "TOP PRODUCTS BY REVENUE")
	for i, pr := range m.TopProductsByRevenue {
		fmt.Fprintf(tw, "%d.\t%s\t%s\n", i+1, pr.Product, models.FormatCurrency(pr.Revenue))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "PREVIEW (%d of %d transactions)\n", len(out.Preview), out.Total)
	fmt.Fprintln(tw, "Date\tSales Person\tCountry\tProduct\tAmount\tBoxes Shipped\tPrice/Box")
	for _, r := range out.Preview {
		perBox := "n/a"
		if r.PricePerBox != nil {
			perBox = models.FormatCurrency(*r.PricePerBox)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			models.FormatDate(r.Date),
			r.SalesPerson,
			r.Country,
			r.Product,
			models.FormatCurrency(r.Amount),
			r.BoxesShipped,
			perBox,
		)
	}
	return tw.Flush()
}

// =============================================================================
// OPTIONS COMMAND
// =============================================================================

func optionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "options",
		Usage: "List the distinct values available for each filter",
		Flags: []cli.Flag{
			fileFlag(),
			&cli.StringFlag{
				Name:  "format",
				Value: "table",
				Usage: "Output format (table, json)",
			},
		},
		Action: runOptions,
	}
}

func runOptions(c *cli.Context) error {
	sales, err := loadSales(c)
	if err != nil {
		return err
	}
	opts := sales.Options()

	if c.String("format") == "json" {
		return writeJSON(c.App.Writer, opts)
	}

	for i, field := range models.Fields {
		if i > 0 {
			fmt.Fprintln(c.App.Writer)
		}
		values := opts.For(field)
		fmt.Fprintf(c.App.Writer, "%s (%d)\n", field.Label(), len(values))
		for _, v := range values {
			fmt.Fprintf(c.App.Writer, "  %s\n", v)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func newLogger(c *cli.Context) *slog.Logger {
	return observability.NewLoggerTo(c.App.ErrWriter, config.LoggerConfig{
		Level:  c.String("log-level"),
		Format: "text",
	})
}

func loadSales(c *cli.Context) (*services.Sales, error) {
	policy, err := services.ParseZeroBoxesPolicy(c.String("zero-boxes"))
	if err != nil {
		return nil, err
	}

	sales := services.NewSales(
		services.WithLogger(newLogger(c)),
		services.WithZeroBoxesPolicy(policy),
	)

	if err := sales.LoadFromCSV(c.Context, c.String("file")); err != nil {
		return nil, err
	}
	return sales, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
