package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/louisbranch/offline-tasks/internal/platform/msgchan"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/domain"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/fetch"
	apperrors "github.com/louisbranch/offline-tasks/internal/services/tasks/platform/errors"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/templates"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/worker"
)

// listView loads the filtered list for rendering.
func (a *App) listView(ctx context.Context) (templates.ListView, error) {
	filter, err := a.filters.Get(ctx)
	if err != nil {
		return templates.ListView{}, err
	}
	tasks, err := a.tasks.List(ctx)
	if err != nil {
		return templates.ListView{}, err
	}
	return templates.ListView{
		Tasks:       filter.Apply(tasks),
		Filter:      filter,
		Interaction: a.cfg.ResponseMode.Interaction(),
	}, nil
}

// page splices view into the cached page shell.
func (a *App) page(ctx context.Context, view templates.ListView) (*fetch.Response, error) {
	req, err := fetch.NewGet(ctx, "/")
	if err != nil {
		return nil, err
	}
	shell, err := a.strategies.CacheFirst(ctx, req, a.lifecycle.CacheName())
	if err != nil {
		return nil, err
	}
	body, found, err := templates.Splice(ctx, shell.Body, templates.ListSection(view))
	if err != nil {
		return nil, err
	}
	if !found {
		log.Printf("page shell has no lazy boundary cache=%s", a.lifecycle.CacheName())
	}
	out := shell.Clone()
	out.Body = body
	out.Header.Del("Content-Length")
	return out, nil
}

func (a *App) handleList(e *worker.FetchEvent) (*fetch.Response, error) {
	ctx := e.Context()
	view, err := a.listView(ctx)
	if err != nil {
		return nil, err
	}
	return a.page(ctx, view)
}

func (a *App) handleSetFilter(e *worker.FetchEvent) (*fetch.Response, error) {
	ctx := e.Context()
	f, err := readForm(e.Request)
	if err != nil {
		return nil, err
	}
	raw, _ := f.Get("filter")
	filter, err := domain.ParseFilter(raw)
	if err != nil {
		return nil, apperrors.E(apperrors.KindInvalidInput, fmt.Sprintf("unknown filter %q", raw))
	}
	if err := a.filters.Set(ctx, filter); err != nil {
		return nil, err
	}
	view, err := a.listView(ctx)
	if err != nil {
		return nil, err
	}
	return a.cfg.ResponseMode.listResponse(ctx, e.Request, view)
}

func (a *App) handleCreate(e *worker.FetchEvent) (*fetch.Response, error) {
	ctx := e.Context()
	f, err := readForm(e.Request)
	if err != nil {
		return nil, err
	}
	raw, ok := f.GetOrFirst("task")
	if !ok {
		return nil, apperrors.E(apperrors.KindInvalidInput, "task title is required")
	}
	title, err := sanitizeTitle(raw)
	if err != nil {
		return nil, err
	}
	task := domain.NewTask(title)

	if a.cfg.ResponseMode.client(e.Request) == clientNavigation {
		e.WaitUntil(func(ctx context.Context) error {
			return a.tasks.Create(ctx, task)
		})
		return fetch.Redirect("/", http.StatusSeeOther), nil
	}
	if err := a.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	view, err := a.listView(ctx)
	if err != nil {
		return nil, err
	}
	return a.cfg.ResponseMode.listResponse(ctx, e.Request, view)
}

func (a *App) handleComplete(e *worker.FetchEvent) (*fetch.Response, error) {
	ctx := e.Context()
	id, err := taskID(e.Request)
	if err != nil {
		return nil, err
	}
	if _, err := a.tasks.Toggle(ctx, id); err != nil {
		return nil, err
	}
	view, err := a.listView(ctx)
	if err != nil {
		return nil, err
	}
	return a.cfg.ResponseMode.listResponse(ctx, e.Request, view)
}

func (a *App) handleDelete(e *worker.FetchEvent) (*fetch.Response, error) {
	ctx := e.Context()
	id, err := taskID(e.Request)
	if err != nil {
		return nil, err
	}
	if err := a.tasks.Delete(ctx, id); err != nil {
		return nil, err
	}
	if a.cfg.ResponseMode.client(e.Request) == clientDatastar {
		return removeElement(e.Request, templates.TaskElementID(id))
	}
	view, err := a.listView(ctx)
	if err != nil {
		return nil, err
	}
	return a.cfg.ResponseMode.listResponse(ctx, e.Request, view)
}

func (a *App) handleEditForm(e *worker.FetchEvent) (*fetch.Response, error) {
	ctx := e.Context()
	id, err := taskID(e.Request)
	if err != nil {
		return nil, err
	}
	task, err := a.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	interaction := a.cfg.ResponseMode.Interaction()
	switch a.cfg.ResponseMode.client(e.Request) {
	case clientHTMX:
		return fragment(ctx, templates.EditForm(task, interaction))
	case clientDatastar:
		return patchElements(e.Request, templates.EditForm(task, interaction))
	}
	view, err := a.listView(ctx)
	if err != nil {
		return nil, err
	}
	view.EditingID = id
	if !containsTask(view.Tasks, id) {
		view.Tasks = append(view.Tasks, task)
	}
	return a.page(ctx, view)
}

func (a *App) handleEdit(e *worker.FetchEvent) (*fetch.Response, error) {
	ctx := e.Context()
	id, err := taskID(e.Request)
	if err != nil {
		return nil, err
	}
	f, err := readForm(e.Request)
	if err != nil {
		return nil, err
	}
	raw, ok := f.Get("title")
	if !ok {
		return nil, apperrors.E(apperrors.KindInvalidInput, "title is required")
	}
	title, err := sanitizeTitle(raw)
	if err != nil {
		return nil, err
	}
	if _, err := a.tasks.Rename(ctx, id, title); err != nil {
		return nil, err
	}
	return a.cfg.ResponseMode.redirectTo(e.Request, "/")
}

func (a *App) handlePostMessage(e *worker.FetchEvent) (*fetch.Response, error) {
	raw := strings.TrimSpace(e.Request.URL.Query().Get("increment"))
	if raw == "" {
		raw = "1"
	}
	increment, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperrors.E(apperrors.KindInvalidInput, fmt.Sprintf("increment %q is not an integer", raw))
	}

	e.WaitUntil(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, a.cfg.ReplyTimeout)
		defer cancel()
		reply, err := a.channel.Post(ctx, msgchan.Message{
			"path":      "post-message",
			"count":     0,
			"increment": increment,
		})
		if err != nil {
			return fmt.Errorf("post on %s: %w", a.channel.Name(), err)
		}
		log.Printf("channel reply channel=%s data=%v", a.channel.Name(), map[string]any(reply))
		return nil
	})
	return a.cfg.ResponseMode.redirectTo(e.Request, "/")
}

func containsTask(tasks []domain.Task, id string) bool {
	for _, t := range tasks {
		if t.ID == id {
			return true
		}
	}
	return false
}
