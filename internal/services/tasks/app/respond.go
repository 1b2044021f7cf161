package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/fetch"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/platform/httpx"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/sse"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/templates"
	"github.com/starfederation/datastar-go/datastar"
)

// ResponseMode selects how mutating handlers answer.
type ResponseMode string

const (
	// ModeRedirect answers every mutation with a 303 to the list.
	ModeRedirect ResponseMode = "redirect"
	// ModeFragment answers htmx requests with HTML fragments.
	ModeFragment ResponseMode = "fragment"
	// ModeStream answers datastar requests with event-stream patches.
	ModeStream ResponseMode = "stream"
)

// ParseResponseMode validates a configured mode.
func ParseResponseMode(raw string) (ResponseMode, error) {
	switch mode := ResponseMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case ModeRedirect, ModeFragment, ModeStream:
		return mode, nil
	case "":
		return ModeRedirect, nil
	default:
		return "", fmt.Errorf("unknown response mode %q", raw)
	}
}

// Interaction returns the client wiring rendered for mode.
func (m ResponseMode) Interaction() templates.Interaction {
	switch m {
	case ModeFragment:
		return templates.InteractionHTMX
	case ModeStream:
		return templates.InteractionDatastar
	default:
		return templates.InteractionLinks
	}
}

// clientKind says how the current request can be answered.
type clientKind int

const (
	clientNavigation clientKind = iota
	clientHTMX
	clientDatastar
)

// client classifies r under mode. Requests not made by the mode's library
// are full navigations.
func (m ResponseMode) client(r *http.Request) clientKind {
	switch {
	case m == ModeFragment && httpx.IsHTMXRequest(r):
		return clientHTMX
	case m == ModeStream && sse.IsDatastarRequest(r):
		return clientDatastar
	default:
		return clientNavigation
	}
}

// redirectTo answers with a full or soft redirect to location.
func (m ResponseMode) redirectTo(r *http.Request, location string) (*fetch.Response, error) {
	switch m.client(r) {
	case clientDatastar:
		return sse.Response(r, func(sg *datastar.ServerSentEventGenerator) error {
			return sg.Redirect(location)
		})
	case clientHTMX:
		return fetch.Capture(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpx.WriteRedirect(w, r, location)
		}), r), nil
	default:
		return fetch.Redirect(location, http.StatusSeeOther), nil
	}
}

// listResponse answers a mutation with the refreshed list, or a redirect
// for full navigations.
func (m ResponseMode) listResponse(ctx context.Context, r *http.Request, view templates.ListView) (*fetch.Response, error) {
	switch m.client(r) {
	case clientDatastar:
		return patchElements(r, templates.TaskList(view))
	case clientHTMX:
		return fragment(ctx, templates.TaskList(view))
	default:
		return fetch.Redirect("/", http.StatusSeeOther), nil
	}
}

func fragment(ctx context.Context, c templ.Component) (*fetch.Response, error) {
	body, err := templates.Render(ctx, c)
	if err != nil {
		return nil, err
	}
	return fetch.HTML(http.StatusOK, body), nil
}

// patchElements streams c as one element patch; elements are matched by id.
func patchElements(r *http.Request, c templ.Component) (*fetch.Response, error) {
	return sse.Response(r, func(sg *datastar.ServerSentEventGenerator) error {
		return sg.PatchElementTempl(c)
	})
}

// removeElement streams the removal of the element with id.
func removeElement(r *http.Request, id string) (*fetch.Response, error) {
	return sse.Response(r, func(sg *datastar.ServerSentEventGenerator) error {
		return sg.RemoveElement("#" + id)
	})
}
