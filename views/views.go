// Package views renders funnel pages from embedded html/template files and
// exposes them as templ components.
package views

import (
	"context"
	"embed"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"trial-funnel/funnel"
	"trial-funnel/utils"
)

// ScreenView carries the per-visitor values a screen needs besides its copy.
type ScreenView struct {
	Flow           string
	Email          string
	EmailError     string
	SelectedAmount int
	CheckoutError  string
	Currency       string
}

var funcs = template.FuncMap{
	"action": actionPath,
	"money": func(amount int, currency string) string {
		return utils.FormatMinorUnits(int64(amount)*100, currency)
	},
}

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.New("views").Funcs(funcs).ParseFS(templatesFS, "templates/*.html"))

type layoutData struct {
	Lang  string
	Title string
	Body  template.HTML
}

type screenData struct {
	Screen   funnel.Screen
	Kind     string
	Continue funnel.Choice
	View     ScreenView
}

// Layout wraps body in the HTML document shell.
func Layout(lang, title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		inner, err := templ.ToGoHTML(ctx, body)
		if err != nil {
			return err
		}
		return templates.ExecuteTemplate(w, "layout", layoutData{Lang: lang, Title: title, Body: inner})
	})
}

// Screen renders one funnel screen. Back and choice buttons post to the
// flow's advance and back endpoints.
func Screen(s funnel.Screen, v ScreenView) templ.Component {
	if v.Currency == "" {
		v.Currency = "brl"
	}
	return templ.FromGoHTML(templates.Lookup("screen"), screenData{
		Screen:   s,
		Kind:     string(s.Kind),
		Continue: funnel.ChoiceContinue,
		View:     v,
	})
}

// Empty renders nothing; used for steps with no screen.
func Empty() templ.Component {
	return templ.ComponentFunc(func(context.Context, io.Writer) error { return nil })
}

// Success is the page the provider redirects to after a completed checkout.
func Success(sessionID string) templ.Component {
	return templ.FromGoHTML(templates.Lookup("success"), sessionID)
}

// PagePath is where a flow's current screen is served.
func PagePath(flow string) string {
	if flow == funnel.LandingFlow {
		return "/"
	}
	return "/quiz/" + flow
}

func actionPath(flow, action string) string {
	return "/funnel/" + flow + "/" + action
}
