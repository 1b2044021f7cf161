package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/louisbranch/offline-tasks/internal/services/tasks/domain"
	apperrors "github.com/louisbranch/offline-tasks/internal/services/tasks/platform/errors"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/storage"
)

const (
	// DatabaseName names the on-disk store.
	DatabaseName = "tasks-db"
	// PartitionTasks holds task records keyed by id.
	PartitionTasks = "tasks"
	// PartitionAppState holds UI state.
	PartitionAppState = "app-state"
	// FilterKey stores the active list filter.
	FilterKey = "task-filter"
)

// Partitions lists every partition the app needs opened.
var Partitions = []string{PartitionTasks, PartitionAppState}

var errTaskNotFound = apperrors.E(apperrors.KindNotFound, "task not found")

// TaskRepository stores tasks as JSON in the tasks partition.
type TaskRepository struct {
	kv storage.KV
}

// NewTaskRepository wraps kv.
func NewTaskRepository(kv storage.KV) TaskRepository {
	return TaskRepository{kv: kv}
}

// Create persists a new task.
func (r TaskRepository) Create(ctx context.Context, task domain.Task) error {
	encoded, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	if err := r.kv.Set(ctx, PartitionTasks, task.ID, encoded); err != nil {
		return storageError(err)
	}
	return nil
}

// Get loads one task.
func (r TaskRepository) Get(ctx context.Context, id string) (domain.Task, error) {
	raw, found, err := r.kv.Get(ctx, PartitionTasks, id)
	if err != nil {
		return domain.Task{}, storageError(err)
	}
	if !found {
		return domain.Task{}, errTaskNotFound
	}
	return decodeTask(raw)
}

// List returns every task in creation order.
func (r TaskRepository) List(ctx context.Context) ([]domain.Task, error) {
	entries, err := r.kv.Entries(ctx, PartitionTasks)
	if err != nil {
		return nil, storageError(err)
	}
	tasks := make([]domain.Task, 0, len(entries))
	for _, entry := range entries {
		task, err := decodeTask(entry.Value)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", entry.Key, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Modify applies change to an existing task in one transaction.
func (r TaskRepository) Modify(ctx context.Context, id string, change func(domain.Task) domain.Task) (domain.Task, error) {
	var updated domain.Task
	err := r.kv.Update(ctx, PartitionTasks, id, func(current []byte, found bool) ([]byte, error) {
		if !found {
			return nil, errTaskNotFound
		}
		task, err := decodeTask(current)
		if err != nil {
			return nil, err
		}
		updated = change(task)
		return json.Marshal(updated)
	})
	if err != nil {
		if apperrors.KindOf(err) != apperrors.KindUnknown {
			return domain.Task{}, err
		}
		return domain.Task{}, storageError(err)
	}
	return updated, nil
}

// Toggle flips the completion flag of a task.
func (r TaskRepository) Toggle(ctx context.Context, id string) (domain.Task, error) {
	return r.Modify(ctx, id, domain.Task.Toggled)
}

// Rename replaces the title of a task.
func (r TaskRepository) Rename(ctx context.Context, id, title string) (domain.Task, error) {
	return r.Modify(ctx, id, func(t domain.Task) domain.Task { return t.WithTitle(title) })
}

// Delete removes an existing task.
func (r TaskRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	if err := r.kv.Delete(ctx, PartitionTasks, id); err != nil {
		return storageError(err)
	}
	return nil
}

func decodeTask(raw []byte) (domain.Task, error) {
	var task domain.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return domain.Task{}, fmt.Errorf("decode task: %w", err)
	}
	return task, nil
}

// FilterRepository stores the list filter in the app-state partition.
type FilterRepository struct {
	kv storage.KV
}

// NewFilterRepository wraps kv.
func NewFilterRepository(kv storage.KV) FilterRepository {
	return FilterRepository{kv: kv}
}

// Get returns the stored filter, persisting FilterAll on first read.
func (r FilterRepository) Get(ctx context.Context) (domain.Filter, error) {
	current, found, err := r.kv.Get(ctx, PartitionAppState, FilterKey)
	if err != nil {
		return "", storageError(err)
	}
	if found {
		if filter, err := domain.ParseFilter(string(current)); err == nil {
			return filter, nil
		}
	}

	var filter domain.Filter
	err = r.kv.Update(ctx, PartitionAppState, FilterKey, func(current []byte, found bool) ([]byte, error) {
		if found {
			if parsed, err := domain.ParseFilter(string(current)); err == nil {
				filter = parsed
				return current, nil
			}
		}
		filter = domain.FilterAll
		return []byte(filter), nil
	})
	if err != nil {
		return "", storageError(err)
	}
	return filter, nil
}

// Set persists filter.
func (r FilterRepository) Set(ctx context.Context, filter domain.Filter) error {
	if err := r.kv.Set(ctx, PartitionAppState, FilterKey, []byte(filter)); err != nil {
		return storageError(err)
	}
	return nil
}

func storageError(err error) error {
	return apperrors.Wrap(apperrors.KindUnavailable, "task storage unavailable", err)
}
