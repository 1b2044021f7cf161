package domain

import "testing"

func TestNewTask(t *testing.T) {
	t.Parallel()

	a := NewTask("milk")
	b := NewTask("milk")
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("ids = %q, %q, want distinct non-empty", a.ID, b.ID)
	}
	if a.Completed {
		t.Fatal("new task should not be completed")
	}
	if a.Title != "milk" {
		t.Fatalf("title = %q, want %q", a.Title, "milk")
	}
}

func TestToggleTwiceRestores(t *testing.T) {
	t.Parallel()

	task := NewTask("x")
	once := task.Toggled()
	if !once.Completed {
		t.Fatal("toggled task should be completed")
	}
	if task.Completed {
		t.Fatal("Toggled must not mutate the receiver")
	}
	if twice := once.Toggled(); twice != task {
		t.Fatalf("toggle twice = %+v, want %+v", twice, task)
	}
}

func TestWithTitleKeepsIdentity(t *testing.T) {
	t.Parallel()

	task := NewTask("old").WithCompleted(true)
	edited := task.WithTitle("new")
	if edited.ID != task.ID || !edited.Completed || edited.Title != "new" {
		t.Fatalf("edited = %+v", edited)
	}
}

func TestParseFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    Filter
		wantErr bool
	}{
		{raw: "all", want: FilterAll},
		{raw: " Done ", want: FilterDone},
		{raw: "active", want: FilterActive},
		{raw: "ACTIVE", want: FilterActive},
		{raw: "", wantErr: true},
		{raw: "archived", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseFilter(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseFilter(%q) error = nil, want error", tc.raw)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseFilter(%q) = %q, %v, want %q", tc.raw, got, err, tc.want)
		}
	}
}

func TestFilterApply(t *testing.T) {
	t.Parallel()

	tasks := []Task{
		{ID: "1", Completed: true},
		{ID: "2"},
		{ID: "3", Completed: true},
	}
	for _, f := range Filters {
		got := f.Apply(tasks)
		for _, task := range got {
			if f == FilterDone && !task.Completed {
				t.Fatalf("done filter kept %+v", task)
			}
			if f == FilterActive && task.Completed {
				t.Fatalf("active filter kept %+v", task)
			}
		}
	}
	if got := FilterAll.Apply(tasks); len(got) != 3 {
		t.Fatalf("all = %d tasks, want 3", len(got))
	}
	if got := FilterDone.Apply(tasks); len(got) != 2 || got[0].ID != "1" || got[1].ID != "3" {
		t.Fatalf("done = %+v, want ids 1,3 in order", got)
	}
	if got := FilterActive.Apply(tasks); len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("active = %+v, want id 2", got)
	}
}
