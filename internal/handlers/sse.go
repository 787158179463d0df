package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"chocosales-dashboard/internal/errors"
	"chocosales-dashboard/internal/models"
	"chocosales-dashboard/internal/observability"
	"chocosales-dashboard/internal/services"
)

var fragmentFuncs = template.FuncMap{
	"money": models.FormatCurrency,
	"date":  func(r models.SalesRecord) string { return models.FormatDate(r.Date) },
	"pricePerBox": func(p *float64) string {
		if p == nil {
			return "n/a"
		}
		return models.FormatCurrency(*p)
	},
}

var metricsTemplate = template.Must(template.New("metrics").Funcs(fragmentFuncs).Parse(`
<div id="metrics" class="metrics-grid">
<div class="metric-card"><span class="metric-label">Transactions</span><span class="metric-value">{{.TransactionCount}}</span></div>
<div class="metric-card"><span class="metric-label">Total Revenue</span><span class="metric-value">{{money .TotalRevenue}}</span></div>
<div class="metric-card"><span class="metric-label">Total Boxes</span><span class="metric-value">{{.TotalBoxes}}</span></div>
<div class="metric-card"><span class="metric-label">Products</span><span class="metric-value">{{.DistinctProductCount}}</span></div>
</div>`))

var previewTemplate = template.Must(template.New("preview").Funcs(fragmentFuncs).Parse(`
<div id="preview">
<table class="modern-table">
<thead><tr><th>Date</th><th>Sales Person</th><th>Country</th><th>Product</th><th>Amount</th><th>Boxes Shipped</th><th>Price/Box</th></tr></thead>
<tbody>
{{range .Rows}}<tr>
<td>{{date .}}</td>
<td>{{.SalesPerson}}</td>
<td>{{.Country}}</td>
<td>{{.Product}}</td>
<td>{{money .Amount}}</td>
<td>{{.BoxesShipped}}</td>
<td>{{pricePerBox .PricePerBox}}</td>
</tr>{{else}}<tr><td colspan="7" class="empty">No transactions match the selected filters</td></tr>{{end}}
</tbody>
</table>
<p class="table-note">Showing {{len .Rows}} of {{.Total}} transactions</p>
</div>`))

var topProductsTemplate = template.Must(template.New("topProducts").Funcs(fragmentFuncs).Parse(`
<div id="top-products" class="bar-chart">
{{range .}}<div class="bar-row">
<span class="bar-label">{{.Product}}</span>
<span class="bar" style="width: {{.Width}}%"></span>
<span class="bar-value">{{money .Revenue}}</span>
</div>{{else}}<p class="empty">No products to chart</p>{{end}}
</div>`))

type previewData struct {
	Rows  models.Dataset
	Total int
}

type bar struct {
	models.ProductRevenue
	Width float64
}

type SSEHandlers struct {
	sales       *services.Sales
	logger      *slog.Logger
	previewRows int
}

func NewSSEHandlers(sales *services.Sales, logger *slog.Logger, previewRows int) *SSEHandlers {
	return &SSEHandlers{
		sales:       sales,
		logger:      logger,
		previewRows: previewRows,
	}
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf strings.Builder
	err := tmpl.Execute(&buf, data)
	return buf.String(), err
}

func (h *SSEHandlers) renderMetrics(metrics models.SummaryMetrics) (string, error) {
	return render(metricsTemplate, metrics)
}

func (h *SSEHandlers) renderPreview(filtered models.Dataset) (string, error) {
	return render(previewTemplate, previewData{
		Rows:  services.Preview(filtered, h.previewRows),
		Total: len(filtered),
	})
}

// renderTopProducts scales each bar against the best seller.
func (h *SSEHandlers) renderTopProducts(top []models.ProductRevenue) (string, error) {
	bars := make([]bar, 0, len(top))
	var peak float64
	for _, pr := range top {
		peak = max(peak, pr.Revenue)
	}
	for _, pr := range top {
		width := 0.0
		if peak > 0 {
			width = pr.Revenue / peak * 100
		}
		bars = append(bars, bar{ProductRevenue: pr, Width: width})
	}
	return render(topProductsTemplate, bars)
}

// HandleDashboard recomputes the dashboard for the selection carried in the
// Datastar signals and patches every panel.
func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	var signals dashboardSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		errors.Respond(w, r, h.logger, errors.InvalidParam("datastar", err))
		return
	}

	_, span := observability.StartSpan(r.Context(), "sales.apply")
	filtered, metrics := h.sales.Apply(signals.selection())

	h.logger.Debug("dashboard recomputed",
		"transactions", metrics.TransactionCount,
		"duration", span.Finish(),
		"request_id", observability.GetRequestID(r.Context()),
	)

	sse := datastar.NewSSE(w, r)

	fragments := []func() (string, error){
		func() (string, error) { return h.renderMetrics(metrics) },
		func() (string, error) { return h.renderPreview(filtered) },
		func() (string, error) { return h.renderTopProducts(metrics.TopProductsByRevenue) },
	}
	for _, fragment := range fragments {
		html, err := fragment()
		if err != nil {
			h.logger.Error("render dashboard fragment", "error", err)
			return
		}
		if err := sse.PatchElements(html); err != nil {
			h.logger.Warn("patch elements", "error", err)
			return
		}
	}

	chartData, err := json.Marshal(map[string]any{
		"topProducts": metrics.TopProductsByRevenue,
	})
	if err != nil {
		h.logger.Error("marshal top products", "error", err)
		return
	}
	if err := sse.PatchSignals(chartData); err != nil {
		h.logger.Warn("patch signals", "error", err)
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
