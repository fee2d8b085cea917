package webapp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// GetAPIBaseURL returns the configured API base URL
// It reads from window.pdfreaderConfig.apiURL if available,
// otherwise falls back to empty string (relative URLs)
func GetAPIBaseURL() string {
	if !app.IsClient {
		return "" // Server-side rendering - use relative URLs
	}

	config := app.Window().Get("pdfreaderConfig")
	if config.Truthy() {
		apiURL := config.Get("apiURL")
		if apiURL.Truthy() {
			return strings.TrimSuffix(apiURL.String(), "/")
		}
	}

	// Fallback to relative URLs (same origin)
	return ""
}

// BuildAPIURL constructs a full API URL from a path
// Example: BuildAPIURL("/api/navigation") -> "http://backend:8000/api/navigation"
// or just "/api/navigation" if using relative URLs
func BuildAPIURL(path string) string {
	return GetAPIBaseURL() + path
}

// NavigationState mirrors the navigator state sent by the API
type NavigationState struct {
	CanAdvance bool `json:"canAdvance"`
	CanRetreat bool `json:"canRetreat"`
	Loaded     bool `json:"loaded"`
	Current    int  `json:"current"`
	Total      int  `json:"total"`
}

// ViewerStatus is the viewer status from /api/navigation and the page actions
type ViewerStatus struct {
	State    NavigationState `json:"state"`
	Label    string          `json:"label"`
	Document string          `json:"document"`
	Status   string          `json:"status"`
	Variant  string          `json:"variant"`
	RecentID string          `json:"recentId"`
}

// IsMobile reports whether the server runs the share target variant
func (s ViewerStatus) IsMobile() bool {
	return s.Variant == "mobile"
}

// RecentDocument is one entry of /api/recent
type RecentDocument struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	Path        string `json:"path"`
	PageCount   int    `json:"pageCount"`
	LastPage    int    `json:"lastPage"`
	UpdatedAt   string `json:"updatedAt"`
	DisplayName string `json:"displayName"`
	Current     bool   `json:"current"`
}

// Progress describes how far the reader got
func (d RecentDocument) Progress() string {
	if d.PageCount == 0 {
		return "No pages"
	}
	return fmt.Sprintf("Page %d of %d", d.LastPage+1, d.PageCount)
}

type apiError struct {
	Error  string        `json:"error"`
	Viewer *ViewerStatus `json:"viewer"`
}

// parseViewerResponse decodes a page or document action response. Failed
// actions still carry the viewer status when the server knows it.
func parseViewerResponse(code int, body string) (*ViewerStatus, string) {
	if code == 0 {
		return nil, body
	}
	if code >= 200 && code < 300 {
		var status ViewerStatus
		if err := json.Unmarshal([]byte(body), &status); err != nil {
			return nil, fmt.Sprintf("Failed to parse response: %v", err)
		}
		return &status, ""
	}
	var failure apiError
	if err := json.Unmarshal([]byte(body), &failure); err != nil || failure.Error == "" {
		return nil, fmt.Sprintf("Request failed with status %d", code)
	}
	return failure.Viewer, failure.Error
}

// apiRequest runs fetch off the UI loop and hands the status code and body
// text back to done through ctx.Dispatch. body may be nil, a string or a FormData value.
func apiRequest(ctx app.Context, method, path string, body any, contentType string, done func(ctx app.Context, code int, text string)) {
	ctx.Async(func() {
		options := app.Window().Get("Object").New()
		options.Set("method", method)
		if contentType != "" {
			headers := app.Window().Get("Object").New()
			headers.Set("Content-Type", contentType)
			options.Set("headers", headers)
		}
		if body != nil {
			options.Set("body", body)
		}

		res := app.Window().Call("fetch", BuildAPIURL(path), options)

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
			if len(args) == 0 {
				return nil
			}
			response := args[0]
			status := response.Get("status").Int()

			response.Call("text").Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
				text := ""
				if len(args) > 0 {
					text = args[0].String()
				}
				ctx.Dispatch(func(ctx app.Context) {
					done(ctx, status, text)
				})
				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				done(ctx, 0, "Network error: Could not connect to server")
			})
			return nil
		}))
	})
}
