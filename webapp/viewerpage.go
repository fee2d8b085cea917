package webapp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// ViewerPage shows one page of the open document with the navigation bar
type ViewerPage struct {
	app.Compo
	status    ViewerStatus
	loading   bool
	busy      bool
	error     string
	pathInput string
	imageRev  int
}

// OnMount is called when the component is mounted
func (v *ViewerPage) OnMount(ctx app.Context) {
	v.loading = true
	apiRequest(ctx, "GET", "/api/navigation", nil, "", v.onViewerResponse)
}

// onViewerResponse applies the status returned by any viewer action
func (v *ViewerPage) onViewerResponse(ctx app.Context, code int, text string) {
	v.loading = false
	v.busy = false
	status, errMsg := parseViewerResponse(code, text)
	if status != nil {
		v.status = *status
		v.imageRev++
	}
	v.error = errMsg
}

// navigate posts one page action, e.g. "next" or "goto?page=3"
func (v *ViewerPage) navigate(action string) func(ctx app.Context, e app.Event) {
	return func(ctx app.Context, e app.Event) {
		e.PreventDefault()
		v.busy = true
		apiRequest(ctx, "POST", "/api/page/"+action, nil, "", v.onViewerResponse)
	}
}

func (v *ViewerPage) onPathInput(ctx app.Context, e app.Event) {
	v.pathInput = ctx.JSSrc().Get("value").String()
}

// onOpenPath handles the desktop "Open PDF" form
func (v *ViewerPage) onOpenPath(ctx app.Context, e app.Event) {
	e.PreventDefault()
	path := strings.TrimSpace(v.pathInput)
	if path == "" {
		v.error = "Enter the path of a PDF file"
		return
	}
	body, _ := json.Marshal(map[string]string{"path": path})
	v.busy = true
	apiRequest(ctx, "POST", "/api/document/open", string(body), "application/json", v.onViewerResponse)
}

// onFileChosen uploads the picked file
func (v *ViewerPage) onFileChosen(ctx app.Context, e app.Event) {
	files := ctx.JSSrc().Get("files")
	if !files.Truthy() || files.Length() == 0 {
		return
	}
	formData := app.Window().Get("FormData").New()
	formData.Call("append", "file", files.Index(0))
	v.busy = true
	apiRequest(ctx, "POST", "/api/document/upload", formData, "", v.onViewerResponse)
}

// imageURL changes on every state change so the browser refetches the page
func (v *ViewerPage) imageURL() string {
	return BuildAPIURL(fmt.Sprintf("/api/page/image?rev=%d", v.imageRev))
}

// statusClass highlights error messages
func statusClass(status string) string {
	if strings.HasPrefix(status, "Error") {
		return "status-label status-error"
	}
	return "status-label"
}

// Render renders the viewer
func (v *ViewerPage) Render() app.UI {
	if v.loading {
		return app.Div().Class("viewer-page").Body(
			app.Div().Class("loading").Body(app.Text("Loading...")),
		)
	}

	return app.Div().Class("viewer-page").Body(
		app.Div().Class(statusClass(v.status.Status)).Text(v.status.Status),
		app.If(v.error != "", func() app.UI {
			return app.Div().Class("error").Body(app.Text("Error: " + v.error))
		}),
		v.renderOpenControls(),
		app.Div().Class("page-view").Body(
			app.If(v.status.State.Loaded, func() app.UI {
				return app.Img().
					Class("page-image").
					Alt(fmt.Sprintf("%s, %s", v.status.Document, v.status.Label)).
					Src(v.imageURL())
			}).Else(func() app.UI {
				return app.Div().Class("page-placeholder").Text("No PDF displayed.")
			}),
		),
		v.renderNavigation(),
	)
}

func (v *ViewerPage) renderOpenControls() app.UI {
	upload := app.Label().Class("upload-button").Body(
		app.Text("Upload PDF"),
		app.Input().
			Type("file").
			Accept("application/pdf,.pdf").
			Disabled(v.busy).
			OnChange(v.onFileChosen),
	)

	if v.status.IsMobile() {
		// documents normally arrive through the share sheet
		return app.Div().Class("open-controls").Body(upload)
	}

	return app.Div().Class("open-controls").Body(
		app.Form().Class("open-form").OnSubmit(v.onOpenPath).Body(
			app.Input().
				Type("text").
				Class("path-input").
				Placeholder("/path/to/document.pdf").
				Value(v.pathInput).
				OnInput(v.onPathInput),
			app.Button().
				Type("submit").
				Class("nav-btn").
				Disabled(v.busy).
				Text("Open PDF"),
		),
		upload,
	)
}

func (v *ViewerPage) renderNavigation() app.UI {
	state := v.status.State
	label := v.status.Label
	if label == "" {
		label = "Page: 0/0"
	}

	return app.Div().Class("page-nav").Body(
		app.Button().
			Class("nav-btn-small").
			Disabled(!state.CanRetreat || v.busy).
			OnClick(v.navigate("first")).
			Text("First"),
		app.Button().
			Class("nav-btn").
			Disabled(!state.CanRetreat || v.busy).
			OnClick(v.navigate("previous")).
			Text("Previous"),
		app.Span().Class("page-label").Text(label),
		app.Button().
			Class("nav-btn").
			Disabled(!state.CanAdvance || v.busy).
			OnClick(v.navigate("next")).
			Text("Next"),
		app.Button().
			Class("nav-btn-small").
			Disabled(!state.CanAdvance || v.busy).
			OnClick(v.navigate("last")).
			Text("Last"),
	)
}
