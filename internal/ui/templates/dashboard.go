package templates

import (
	"fmt"

	"github.com/a-h/templ"
)

// chartScript draws the chart payloads pushed in the charts signal.
const chartScript = `<script>
window.salesCharts = {};
window.renderCharts = function (charts) {
  if (!charts || typeof Chart === "undefined") return;
  Object.entries(charts).forEach(function ([key, c]) {
    var el = document.getElementById("chart-" + key);
    if (!el) return;
    if (window.salesCharts[key]) window.salesCharts[key].destroy();
    if (c.kind === "message") {
      el.replaceWith(Object.assign(document.createElement("p"), {id: el.id, className: "muted", textContent: c.message}));
      return;
    }
    window.salesCharts[key] = new Chart(el, {
      type: c.kind === "pie" ? "pie" : "bar",
      data: {labels: c.labels, datasets: [{label: c.value_label || c.title, data: c.values, backgroundColor: c.colors}]},
      options: {indexAxis: c.kind === "bar" ? "y" : "x", plugins: {title: {display: true, text: c.title}}}
    });
  });
};
</script>`

var chartKeys = []string{
	"top_products",
	"category_distribution",
	"favorite_menus",
	"cluster_distribution",
	"sales_by_cluster",
}

// Dashboard is the main page. Its panels fill themselves over SSE.
func Dashboard() templ.Component {
	body := `<header><h1>Sales Report Dashboard</h1>` +
		`<p>Product sales analysis and segmentation</p></header>` +
		`<main data-signals="{charts: {}, stats: {}}" data-effect="window.renderCharts($charts)">` +
		`<section class="card"><a href="/upload">Upload a report</a> &middot; <a href="/export">Export active dataset</a></section>` +
		`<section class="card" data-on-load="@get('/sse/history')"><h2>Dataset History</h2>` +
		`<div id="history-content" class="muted">Loading...</div></section>` +
		`<section class="card" data-on-load="@get('/sse/charts')"><h2>Sales Overview</h2>` +
		`<div id="charts-status" class="muted">Loading...</div><div class="grid">`

	for _, key := range chartKeys {
		body += fmt.Sprintf(`<div><canvas id="chart-%s"></canvas></div>`, key)
	}

	body += `</div></section>` +
		`<section class="card" data-on-load="@get('/sse/segments')"><h2>Product Segments</h2>` +
		`<div id="segments-content" class="muted">Loading...</div></section>` +
		`</main>` + chartScript

	return page("Sales Report Dashboard", raw(body))
}
