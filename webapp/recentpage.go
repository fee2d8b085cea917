package webapp

import (
	"encoding/json"
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// RecentPage lists recently read documents so they can be resumed
type RecentPage struct {
	app.Compo
	documents []RecentDocument
	loading   bool
	error     string
}

// OnMount is called when the component is mounted
func (r *RecentPage) OnMount(ctx app.Context) {
	r.loading = true
	r.fetchRecent(ctx)
}

func (r *RecentPage) fetchRecent(ctx app.Context) {
	apiRequest(ctx, "GET", "/api/recent", nil, "", func(ctx app.Context, code int, text string) {
		r.loading = false
		if code != 200 {
			_, r.error = parseViewerResponse(code, text)
			return
		}
		var documents []RecentDocument
		if err := json.Unmarshal([]byte(text), &documents); err != nil {
			r.error = fmt.Sprintf("Failed to parse response: %v", err)
			return
		}
		r.error = ""
		r.documents = documents
	})
}

func (r *RecentPage) onOpen(id string) func(ctx app.Context, e app.Event) {
	return func(ctx app.Context, e app.Event) {
		apiRequest(ctx, "POST", "/api/recent/"+id+"/open", nil, "", func(ctx app.Context, code int, text string) {
			if _, errMsg := parseViewerResponse(code, text); errMsg != "" {
				r.error = errMsg
				return
			}
			ctx.Navigate("/")
		})
	}
}

func (r *RecentPage) onForget(id string) func(ctx app.Context, e app.Event) {
	return func(ctx app.Context, e app.Event) {
		apiRequest(ctx, "DELETE", "/api/recent/"+id, nil, "", func(ctx app.Context, code int, text string) {
			if code != 200 {
				_, r.error = parseViewerResponse(code, text)
				return
			}
			r.fetchRecent(ctx)
		})
	}
}

// Render renders the recent documents page
func (r *RecentPage) Render() app.UI {
	var content app.UI

	if r.loading {
		content = app.Div().Class("loading").Body(app.Text("Loading..."))
	} else if r.error != "" {
		content = app.Div().Class("error").Body(app.Text("Error: " + r.error))
	} else if len(r.documents) == 0 {
		content = app.Div().Class("no-results").Body(app.Text("No recent documents."))
	} else {
		content = app.Table().Class("recent-table").Body(
			app.THead().Body(
				app.Tr().Body(
					app.Th().Text("Document"),
					app.Th().Text("Progress"),
					app.Th().Text(""),
				),
			),
			app.TBody().Body(
				app.Range(r.documents).Slice(func(i int) app.UI {
					doc := r.documents[i]
					rowClass := "recent-row"
					if doc.Current {
						rowClass += " recent-current"
					}
					return app.Tr().Class(rowClass).Body(
						app.Td().Title(doc.Path).Text(doc.DisplayName),
						app.Td().Text(doc.Progress()),
						app.Td().Body(
							app.Button().Class("nav-btn-small").OnClick(r.onOpen(doc.ID)).Text("Open"),
							app.Button().Class("nav-btn-small").OnClick(r.onForget(doc.ID)).Text("Forget"),
						),
					)
				}),
			),
		)
	}

	return app.Div().Class("recent-page").Body(
		app.H2().Text("Recent Documents"),
		content,
	)
}
