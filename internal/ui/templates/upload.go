package templates

import (
	"fmt"

	"github.com/a-h/templ"
)

// Upload is the report upload form. maxBytes is shown to the user as the
// size limit.
func Upload(maxBytes int64) templ.Component {
	body := `<header><h1>Upload Sales Report</h1><p>PDF sales reports or CSV exports</p></header>` +
		`<main><section class="card">` +
		`<form action="/upload" method="post" enctype="multipart/form-data">` +
		`<p><input type="file" name="file" accept=".pdf,.csv" required></p>` +
		fmt.Sprintf(`<p class="muted">Maximum size %s MB.</p>`, templ.EscapeString(fmt.Sprintf("%.0f", float64(maxBytes)/(1<<20)))) +
		`<p><button type="submit">Upload and analyse</button> <a href="/">Back to dashboard</a></p>` +
		`</form></section></main>`
	return page("Upload Sales Report", raw(body))
}
