package policy

import (
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Live holds an atomically-swappable Registry so a hot-reload can publish
// a new immutable snapshot without disrupting in-flight dispatches, which
// keep using the registry they captured at call start.
type Live struct {
	ptr atomic.Pointer[Registry]
}

// NewLive wraps an initial registry for atomic, lock-free reads.
func NewLive(initial *Registry) *Live {
	l := &Live{}
	l.ptr.Store(initial)
	return l
}

// Current returns the currently published registry.
func (l *Live) Current() *Registry {
	return l.ptr.Load()
}

// WatchDir starts an fsnotify watcher on dir and republishes the full
// merge result on every create/write/remove/rename of a *.yaml file. onReload,
// if non-nil, is called with the new LoadSummary (or an error) after
// each reload attempt; a failed reload keeps serving the prior registry.
func (l *Live) WatchDir(src Source, onReload func(LoadSummary, error)) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(src.OverlayDir); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if !strings.HasSuffix(event.Name, ".yaml") {
					continue
				}
				reg, summary, err := Load(src)
				if err == nil {
					l.ptr.Store(reg)
				}
				if onReload != nil {
					onReload(summary, err)
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return watcher, nil
}
