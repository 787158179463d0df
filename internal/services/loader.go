package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"chocosales-dashboard/internal/models"
	"chocosales-dashboard/internal/observability"
)

const (
	DateLayout = "2-Jan-06"

	colSalesPerson  = "Sales Person"
	colCountry      = "Country"
	colDate         = "Date"
	colProduct      = "Product"
	colAmount       = "Amount"
	colBoxesShipped = "Boxes Shipped"

	pricePrecision = 2
	utf8BOM        = "\ufeff"
)

var requiredColumns = []string{colSalesPerson, colCountry, colDate, colProduct, colAmount, colBoxesShipped}

var currencySymbols = []string{"$", "€", "£", "¥"}

// ZeroBoxesPolicy decides what the loader does with a row that shipped no boxes.
type ZeroBoxesPolicy string

const (
	// ZeroBoxesReject fails the load with a DivisionError.
	ZeroBoxesReject ZeroBoxesPolicy = "reject"
	// ZeroBoxesNull keeps the row with a nil PricePerBox.
	ZeroBoxesNull ZeroBoxesPolicy = "null"
)

func ParseZeroBoxesPolicy(s string) (ZeroBoxesPolicy, error) {
	switch p := ZeroBoxesPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case ZeroBoxesReject, ZeroBoxesNull:
		return p, nil
	case "":
		return ZeroBoxesReject, nil
	default:
		return "", fmt.Errorf("unknown zero boxes policy %q, must be one of: reject, null", s)
	}
}

type LoadOptions struct {
	ZeroBoxes ZeroBoxesPolicy
	Logger    *slog.Logger
}

func (o LoadOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// SourceNotFoundError reports a record source that is missing or unreadable.
type SourceNotFoundError struct {
	Path string
	Err  error
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("record source %q not found: %v", e.Path, e.Err)
}

func (e *SourceNotFoundError) Unwrap() error { return e.Err }

// ParseError reports a cell or header that does not match the expected format.
// Line is 1-based and counts the header row.
type ParseError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: column %q: cannot parse %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DivisionError reports a row whose price per box cannot be derived.
type DivisionError struct {
	Line   int
	Amount float64
}

func (e *DivisionError) Error() string {
	return fmt.Sprintf("line %d: cannot derive price per box for amount %.2f: boxes shipped is zero", e.Line, e.Amount)
}

// Load reads the CSV file at path into a Dataset.
func Load(ctx context.Context, path string, opts LoadOptions) (models.Dataset, error) {
	ctx, span := observability.StartSpan(ctx, "sales.load")
	defer span.Finish()
	span.SetTag("source", path)

	file, err := os.Open(path)
	if err != nil {
		srcErr := &SourceNotFoundError{Path: path, Err: err}
		span.SetError(srcErr)
		return nil, srcErr
	}
	defer file.Close()

	start := time.Now()
	dataset, err := Parse(ctx, file, opts)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	span.SetTag("records", strconv.Itoa(len(dataset)))
	opts.logger().Debug("sales data parsed",
		"source", path,
		"records", len(dataset),
		"duration", time.Since(start),
		"trace_id", span.TraceID,
	)
	return dataset, nil
}

// Parse reads CSV rows from r. The whole parse fails on the first malformed
// row; no partial dataset is returned.
func Parse(ctx context.Context, r io.Reader, opts LoadOptions) (models.Dataset, error) {
	policy := opts.ZeroBoxes
	if policy == "" {
		policy = ZeroBoxesReject
	}
	logger := opts.logger()

	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &ParseError{Line: 1, Err: errors.New("empty file: missing header row")}
	}
	if err != nil {
		return nil, csvError(1, err)
	}

	index, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	dataset := make(models.Dataset, 0)
	line := 1
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, csvError(line, err)
		}

		rec, err := parseRow(row, index, line)
		if err != nil {
			var divErr *DivisionError
			if errors.As(err, &divErr) && policy == ZeroBoxesNull {
				logger.Warn("zero boxes shipped, price per box left empty",
					"line", line,
					"amount", rec.Amount,
				)
				dataset = append(dataset, rec)
				continue
			}
			return nil, err
		}
		dataset = append(dataset, rec)
	}

	return dataset, nil
}

func csvError(line int, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		line = pe.Line
	}
	return &ParseError{Line: line, Err: err}
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, utf8BOM))
		if !isRequiredColumn(name) {
			return nil, &ParseError{Line: 1, Column: name, Value: h, Err: errors.New("unrecognized column")}
		}
		if _, dup := index[name]; dup {
			return nil, &ParseError{Line: 1, Column: name, Value: h, Err: errors.New("duplicate column")}
		}
		index[name] = i
	}

	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &ParseError{Line: 1, Column: col, Err: errors.New("missing column")}
		}
	}
	return index, nil
}

func isRequiredColumn(name string) bool {
	for _, col := range requiredColumns {
		if col == name {
			return true
		}
	}
	return false
}

// parseRow returns the parsed record alongside a DivisionError so the
// caller can keep the row under the null policy.
func parseRow(row []string, index map[string]int, line int) (models.SalesRecord, error) {
	cell := func(col string) string { return row[index[col]] }

	date, err := ParseDate(cell(colDate))
	if err != nil {
		return models.SalesRecord{}, &ParseError{Line: line, Column: colDate, Value: cell(colDate), Err: err}
	}

	amount, err := ParseAmount(cell(colAmount))
	if err != nil {
		return models.SalesRecord{}, &ParseError{Line: line, Column: colAmount, Value: cell(colAmount), Err: err}
	}

	boxes, err := parseBoxes(cell(colBoxesShipped))
	if err != nil {
		return models.SalesRecord{}, &ParseError{Line: line, Column: colBoxesShipped, Value: cell(colBoxesShipped), Err: err}
	}

	rec := models.SalesRecord{
		Date:         date,
		SalesPerson:  strings.TrimSpace(cell(colSalesPerson)),
		Country:      strings.TrimSpace(cell(colCountry)),
		Product:      strings.TrimSpace(cell(colProduct)),
		Amount:       amount.InexactFloat64(),
		BoxesShipped: boxes,
	}

	price, err := PricePerBox(amount, boxes)
	if err != nil {
		return rec, &DivisionError{Line: line, Amount: rec.Amount}
	}
	rec.PricePerBox = &price
	return rec, nil
}

// ParseDate parses a DD-Mon-YY date such as 04-Jan-22.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// ParseAmount parses a currency string such as " $1,234.56 ".
func ParseAmount(s string) (decimal.Decimal, error) {
	v := strings.TrimSpace(s)
	for _, sym := range currencySymbols {
		if strings.HasPrefix(v, sym) {
			v = strings.TrimPrefix(v, sym)
			break
		}
	}
	v = strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
	if v == "" {
		return decimal.Zero, errors.New("empty amount")
	}
	return decimal.NewFromString(v)
}

func parseBoxes(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("boxes shipped must not be negative")
	}
	return n, nil
}

var errZeroBoxes = errors.New("zero boxes shipped")

// PricePerBox divides amount by boxes and rounds half to even at two decimal
// places, so 5 over 8 boxes is 0.62.
func PricePerBox(amount decimal.Decimal, boxes int) (float64, error) {
	if boxes == 0 {
		return 0, errZeroBoxes
	}
	return amount.Div(decimal.NewFromInt(int64(boxes))).RoundBank(pricePrecision).InexactFloat64(), nil
}
