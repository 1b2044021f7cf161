package worker

import (
	"context"
	"testing"
)

func TestCacheName(t *testing.T) {
	t.Parallel()

	if got := CacheName("static", "0.0.1"); got != "static-cache_0.0.1" {
		t.Fatalf("CacheName() = %q, want %q", got, "static-cache_0.0.1")
	}
}

func TestInstallAndActivateEvictsOldGenerations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	caches := openTestCaches(t)
	if err := caches.OpenCache(ctx, "static-cache_0.0.0"); err != nil {
		t.Fatalf("open old cache: %v", err)
	}
	origin := newFakeOrigin(map[string]string{"/": "shell", "/main.css": "css"})
	l := NewLifecycle(LifecycleConfig{
		Caches:     caches,
		Fetcher:    origin,
		CacheName:  CacheName("static", "0.0.1"),
		Assets:     []string{"/", "/main.css"},
		Background: NewBackground(),
	})
	if l.State() != StateParsed || l.Controlling() {
		t.Fatalf("initial state = %s, want parsed and not controlling", l.State())
	}

	if err := l.Install(ctx); err != nil {
		t.Fatalf("install: %v", err)
	}
	if l.State() != StateInstalled {
		t.Fatalf("state = %s, want installed", l.State())
	}
	if l.Controlling() {
		t.Fatal("installed worker should not control yet")
	}
	for _, key := range []string{"/", "/main.css"} {
		if _, found, _ := caches.Match(ctx, "static-cache_0.0.1", key); !found {
			t.Fatalf("asset %s not precached", key)
		}
	}

	if err := l.Activate(ctx); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !l.Controlling() {
		t.Fatal("activated worker should control")
	}
	names, err := caches.CacheNames(ctx)
	if err != nil {
		t.Fatalf("cache names: %v", err)
	}
	if len(names) != 1 || names[0] != "static-cache_0.0.1" {
		t.Fatalf("caches = %v, want only current generation", names)
	}
}

func TestInstallFailureIsAllOrNothing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	caches := openTestCaches(t)
	origin := newFakeOrigin(map[string]string{"/": "shell"})
	l := NewLifecycle(LifecycleConfig{
		Caches:    caches,
		Fetcher:   origin,
		CacheName: "static-cache_2",
		Assets:    []string{"/", "/missing.js"},
	})

	if err := l.Install(ctx); err == nil {
		t.Fatal("expected install error")
	}
	if l.State() != StateRedundant {
		t.Fatalf("state = %s, want redundant", l.State())
	}
	if _, found, _ := caches.Match(ctx, "static-cache_2", "/"); found {
		t.Fatal("failed install must not store partial assets")
	}
	if err := l.Activate(ctx); err == nil {
		t.Fatal("redundant worker should not activate")
	}
	if err := l.Install(ctx); err == nil {
		t.Fatal("install should not rerun from redundant")
	}
}

func TestActivateRequiresInstall(t *testing.T) {
	t.Parallel()

	l := NewLifecycle(LifecycleConfig{Caches: openTestCaches(t), CacheName: "c"})
	l.SkipWaiting()
	if err := l.Activate(context.Background()); err == nil {
		t.Fatal("expected error activating before install")
	}
}

func TestShutdownDrainsBackground(t *testing.T) {
	t.Parallel()

	bg := NewBackground()
	l := NewLifecycle(LifecycleConfig{Background: bg})
	ran := make(chan struct{})
	bg.Go(context.Background(), "test", func(context.Context) error {
		close(ran)
		return nil
	})
	if err := l.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	select {
	case <-ran:
	default:
		t.Fatal("background work did not finish before shutdown returned")
	}
}
