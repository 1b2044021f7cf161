// Package templates renders task list markup as templ components.
package templates

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.977 generate

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/a-h/templ"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/domain"
)

// LazyBoundary marks where the task list is spliced into the page shell.
const LazyBoundary = "<!-- lazy -->"

// ListID is the element id of the task list.
const ListID = "task-list"

// Interaction selects the client wiring emitted on links and forms.
type Interaction string

const (
	// InteractionLinks uses plain links and forms with full navigations.
	InteractionLinks Interaction = "links"
	// InteractionHTMX swaps the list fragment via htmx attributes.
	InteractionHTMX Interaction = "htmx"
	// InteractionDatastar issues datastar actions that stream patches back.
	InteractionDatastar Interaction = "datastar"
)

// ListView is the data for one render of the list.
type ListView struct {
	Tasks       []domain.Task
	Filter      domain.Filter
	Interaction Interaction
	// EditingID renders that task's row as an edit form.
	EditingID string
}

// TaskElementID returns the element id of one task row.
func TaskElementID(id string) string {
	return "task-" + id
}

// taskHref is the path of a per-task action.
func taskHref(path, id string) string {
	return path + "?id=" + url.QueryEscape(id)
}

func taskURL(path, id string) templ.SafeURL {
	return templ.SafeURL(taskHref(path, id))
}

// actionAttrs wires a task link for interaction. Plain links need none.
func actionAttrs(interaction Interaction, method, path, id string) templ.OrderedAttributes {
	href := taskHref(path, id)
	switch interaction {
	case InteractionHTMX:
		target := "#" + ListID
		if method == http.MethodGet {
			target = "closest li"
		}
		attrs := templ.OrderedAttributes{
			{Key: "hx-" + strings.ToLower(method), Value: href},
			{Key: "hx-target", Value: target},
			{Key: "hx-swap", Value: "outerHTML"},
		}
		if method == http.MethodDelete {
			attrs = append(attrs, templ.KeyValue[string, any]{Key: "hx-confirm", Value: "Delete this task?"})
		}
		return attrs
	case InteractionDatastar:
		return templ.OrderedAttributes{
			{Key: "data-on-click__prevent", Value: "@" + strings.ToLower(method) + "(`" + href + "`)"},
		}
	default:
		return nil
	}
}

func filterFormAttrs(interaction Interaction) templ.OrderedAttributes {
	switch interaction {
	case InteractionHTMX:
		return templ.OrderedAttributes{
			{Key: "hx-post", Value: "/set-filter"},
			{Key: "hx-target", Value: "#" + ListID},
			{Key: "hx-swap", Value: "outerHTML"},
			{Key: "hx-trigger", Value: "change"},
		}
	case InteractionDatastar:
		return templ.OrderedAttributes{
			{Key: "data-on-change", Value: "@post(`/set-filter`, {contentType: `form`})"},
		}
	default:
		return nil
	}
}

func editFormAttrs(interaction Interaction, id string) templ.OrderedAttributes {
	href := taskHref("/edit", id)
	switch interaction {
	case InteractionHTMX:
		return templ.OrderedAttributes{{Key: "hx-patch", Value: href}}
	case InteractionDatastar:
		return templ.OrderedAttributes{
			{Key: "data-on-submit__prevent", Value: "@patch(`" + href + "`, {contentType: `form`})"},
		}
	default:
		return nil
	}
}

// editValue undoes the storage escaping so the attribute is escaped once.
func editValue(title string) string {
	return html.UnescapeString(title)
}

// Splice renders body into shell at the lazy boundary. A shell without the
// boundary is returned unchanged with found=false.
func Splice(ctx context.Context, shell []byte, body templ.Component) ([]byte, bool, error) {
	head, tail, found := bytes.Cut(shell, []byte(LazyBoundary))
	if !found {
		return shell, false, nil
	}
	rendered, err := Render(ctx, body)
	if err != nil {
		return nil, true, err
	}
	out := make([]byte, 0, len(head)+len(rendered)+len(tail))
	out = append(out, head...)
	out = append(out, rendered...)
	out = append(out, tail...)
	return out, true, nil
}

// Render renders c to a string.
func Render(ctx context.Context, c templ.Component) (string, error) {
	if c == nil {
		return "", nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", fmt.Errorf("render component: %w", err)
	}
	return buf.String(), nil
}
