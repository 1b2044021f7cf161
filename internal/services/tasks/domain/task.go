// Package domain holds the task record and the list filter.
package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// Task is one to-do item. Titles are stored already HTML-escaped.
type Task struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// NewTask creates an incomplete task with a fresh id.
func NewTask(title string) Task {
	return Task{ID: uuid.NewString(), Title: title}
}

// WithCompleted returns a copy of t with Completed set.
func (t Task) WithCompleted(completed bool) Task {
	t.Completed = completed
	return t
}

// Toggled returns a copy of t with Completed flipped.
func (t Task) Toggled() Task {
	return t.WithCompleted(!t.Completed)
}

// WithTitle returns a copy of t with a new title.
func (t Task) WithTitle(title string) Task {
	t.Title = title
	return t
}

// Filter selects which tasks the list shows.
type Filter string

const (
	FilterAll    Filter = "all"
	FilterDone   Filter = "done"
	FilterActive Filter = "active"
)

// Filters lists every filter in display order.
var Filters = []Filter{FilterAll, FilterDone, FilterActive}

// ParseFilter validates a raw filter value, ignoring case.
func ParseFilter(raw string) (Filter, error) {
	switch f := Filter(cases.Fold().String(strings.TrimSpace(raw))); f {
	case FilterAll, FilterDone, FilterActive:
		return f, nil
	default:
		return "", fmt.Errorf("unknown filter %q", raw)
	}
}

// Matches reports whether t is visible under f.
func (f Filter) Matches(t Task) bool {
	switch f {
	case FilterDone:
		return t.Completed
	case FilterActive:
		return !t.Completed
	default:
		return true
	}
}

// Apply keeps the tasks visible under f, preserving order.
func (f Filter) Apply(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}
