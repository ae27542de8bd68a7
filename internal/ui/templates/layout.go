// Package templates holds the dashboard's HTML components.
package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const (
	datastarSrc = "https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0-RC.5/bundles/datastar.js"
	chartJSSrc  = "https://cdn.jsdelivr.net/npm/chart.js@4.4.4/dist/chart.umd.min.js"
)

const styles = `<style>
body{font-family:system-ui,sans-serif;margin:0;background:#f9f9ff;color:#3c3c3c}
header{background:#4C9AFF;color:#fff;padding:1.25rem 2rem}
header p{margin:.25rem 0 0;opacity:.85}
main{padding:1.5rem 2rem;display:grid;gap:1.5rem}
.card{background:#fff;border-radius:8px;padding:1rem 1.25rem;box-shadow:0 1px 3px rgba(0,0,0,.08)}
.grid{display:grid;grid-template-columns:repeat(auto-fit,minmax(420px,1fr));gap:1.5rem}
.modern-table{width:100%;border-collapse:collapse}
.modern-table th,.modern-table td{padding:.45rem .6rem;border-bottom:1px solid #eee;text-align:left}
.badge{display:inline-block;padding:.1rem .5rem;border-radius:10px;background:#eef4ff;font-size:.85em}
.muted{color:#888}
button{cursor:pointer}
</style>`

// page wraps body in the shared document shell.
func page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1"><title>`+
			templ.EscapeString(title)+`</title>`+styles+
			`<script type="module" src="`+datastarSrc+`"></script>`+
			`<script src="`+chartJSSrc+`"></script></head><body>`); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

func raw(html string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, html)
		return err
	})
}
