package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"maps"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/history"
	"sales-dashboard/internal/models"
)

var segmentTableTemplate = template.Must(template.New("segmentTable").Funcs(template.FuncMap{
	"rupiah": formatRupiah,
	"join":   strings.Join,
}).Parse(`
<div id="segments-content">
<p>{{.K}} segments, silhouette {{printf "%.3f" .Silhouette}}, features: {{join .Features ", "}}</p>
<table class="modern-table">
<thead><tr><th>Segment</th><th>Label</th><th>Products</th><th>Total Sales</th><th>Avg / Product</th><th>Top Categories</th><th>Top Products</th><th>Recommendations</th></tr></thead>
<tbody>
{{range .Segments}}<tr>
<td>Segment {{.ID}}</td>
<td><span class="badge">{{.Label}}</span></td>
<td>{{.Size}}</td>
<td><strong>{{rupiah .TotalSales}}</strong></td>
<td>{{rupiah .AvgSalesPerProduct}}</td>
<td>{{range .TopCategories}}{{.Category}} ({{.Count}})<br>{{end}}</td>
<td>{{range .TopProducts}}{{.Product}}<br>{{end}}</td>
<td><ul>{{range .Recommendations}}<li>{{.}}</li>{{end}}</ul></td>
</tr>{{end}}
</tbody>
</table>
</div>`))

var historyTemplate = template.Must(template.New("history").Parse(`
<div id="history-content">
{{if not .}}<p class="muted">No datasets loaded yet.</p>{{else}}
<table class="modern-table">
<thead><tr><th>#</th><th>File</th><th>Uploaded</th><th>Records</th><th>Analysis</th><th>Segments</th><th></th></tr></thead>
<tbody>
{{range .}}<tr>
<td>{{.Index}}</td>
<td>{{if .Active}}<strong>{{.Filename}}</strong> <span class="badge">active</span>{{else}}{{.Filename}}{{end}}</td>
<td>{{.UploadTime.Format "2006-01-02 15:04"}}</td>
<td>{{.RecordCount}}</td>
<td>{{if .AnalysisOK}}ok{{else}}-{{end}}</td>
<td>{{if .ClusteringOK}}ok{{else}}-{{end}}</td>
<td>{{if not .Active}}<button data-on-click="@post('/api/history/{{.Index}}/select')">Select</button>{{end}}</td>
</tr>{{end}}
</tbody>
</table>
<p><button data-on-click="@post('/api/history/combine')">Combine all</button>
<button data-on-click="@delete('/api/history/active')">Remove active</button>
<button data-on-click="@delete('/api/history')">Clear history</button></p>
{{end}}
</div>`))

type SSEHandlers struct {
	history *history.Store
	logger  *slog.Logger
}

func NewSSEHandlers(hist *history.Store, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		history: hist,
		logger:  logger,
	}
}

type segmentView struct {
	K          int
	Silhouette float64
	Features   []string
	Segments   []models.Segment
}

func (h *SSEHandlers) renderSegments(res *models.ClusteringResult) (string, error) {
	view := segmentView{K: res.K, Silhouette: res.Silhouette, Features: res.FeaturesUsed}
	for _, id := range slices.Sorted(maps.Keys(res.Segments)) {
		view.Segments = append(view.Segments, res.Segments[id])
	}

	var buf strings.Builder
	err := segmentTableTemplate.Execute(&buf, view)
	return buf.String(), err
}

func (h *SSEHandlers) renderHistory(list []models.DatasetSummary) (string, error) {
	var buf strings.Builder
	err := historyTemplate.Execute(&buf, list)
	return buf.String(), err
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleCharts pushes the chart payloads and headline stats of the active
// dataset as signals.
func (h *SSEHandlers) HandleCharts(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	ds, err := h.history.Active()
	if err != nil {
		sse.PatchElements(`<div id="charts-status" class="muted">No dataset loaded. Upload a sales report to get started.</div>`)
		flush(w)
		return
	}

	charts := make(map[string]models.ChartPayload)
	var stats models.BasicStats
	status := "Analysis unavailable"
	if a := ds.Analysis; a != nil {
		if a.Success {
			maps.Copy(charts, a.Charts)
			stats = a.BasicStats
			status = "Analysis of " + ds.SourceFilename
		} else {
			status = "Analysis failed: " + a.Error
		}
	}
	if c := ds.Clustering; c != nil && c.Success {
		maps.Copy(charts, c.Charts)
	}

	signals, err := json.Marshal(map[string]any{
		"charts": charts,
		"stats":  stats,
	})
	if err != nil {
		h.logger.Error("marshal chart signals", "error", err)
		return
	}
	sse.PatchSignals(signals)
	sse.PatchElements(`<div id="charts-status">` + template.HTMLEscapeString(status) + `</div>`)
	flush(w)
}

func (h *SSEHandlers) HandleSegments(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	ds, err := h.history.Active()
	switch {
	case err != nil:
		sse.PatchElements(`<div id="segments-content" class="muted">No dataset loaded.</div>`)
	case ds.Clustering == nil || !ds.Clustering.Success:
		reason := "clustering has not run"
		if ds.Clustering != nil {
			reason = ds.Clustering.Error
		}
		sse.PatchElements(`<div id="segments-content" class="muted">Segmentation unavailable: ` +
			template.HTMLEscapeString(reason) + `</div>`)
	default:
		html, err := h.renderSegments(ds.Clustering)
		if err != nil {
			h.logger.Error("render segment table", "error", err)
			return
		}
		sse.PatchElements(html)
	}
	flush(w)
}

func (h *SSEHandlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	html, err := h.renderHistory(h.history.List())
	if err != nil {
		h.logger.Error("render history", "error", err)
		return
	}
	sse.PatchElements(html)
	flush(w)
}

// formatRupiah renders a whole amount with dot thousands separators.
func formatRupiah(v float64) string {
	s := strconv.FormatFloat(math.Round(v), 'f', 0, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	return sign + "Rp " + b.String()
}
