// Package hooks provides a prioritized hook registry. The irc engine uses it
// to publish lifecycle events (registration, disconnects, channel creation and
// removal, dispatched commands) to observers such as the metrics collector.
package hooks

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Hook is called with the event payload. A returned error is logged and
// reported by Run but never stops the remaining hooks.
type Hook[T any] func(event T) error

// HookInfo describes one registered hook.
type HookInfo[T any] struct {
	Name     string
	Hook     Hook[T]
	Priority int64 // lower values run first, like Unix nice
}

// Registry holds the hooks for one event type.
type Registry[T any] struct {
	mu    sync.RWMutex
	hooks []HookInfo[T]
	log   logrus.FieldLogger
}

// NewRegistry creates an empty registry. Hook failures are logged under the
// given event name.
func NewRegistry[T any](event string) *Registry[T] {
	return &Registry[T]{
		log: logrus.StandardLogger().WithFields(logrus.Fields{
			"component": "hooks",
			"event":     event,
		}),
	}
}

// Register adds hook with priority 0.
func (r *Registry[T]) Register(hook Hook[T]) {
	r.RegisterWithPriority(hook, 0)
}

// RegisterWithPriority adds hook. Hooks of equal priority run in registration
// order.
func (r *Registry[T]) RegisterWithPriority(hook Hook[T], priority int64) {
	name := runtime.FuncForPC(reflect.ValueOf(hook).Pointer()).Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.hooks = append(r.hooks, HookInfo[T]{Name: name, Hook: hook, Priority: priority})
	sort.SliceStable(r.hooks, func(i, j int) bool {
		return r.hooks[i].Priority < r.hooks[j].Priority
	})
}

// Run calls every hook with event in priority order. Panics are recovered
// and converted to errors. The result joins all hook errors, or is nil.
func (r *Registry[T]) Run(event T) error {
	r.mu.RLock()
	hooks := make([]HookInfo[T], len(r.hooks))
	copy(hooks, r.hooks)
	r.mu.RUnlock()

	var errs []error
	for _, info := range hooks {
		if err := r.call(info, event); err != nil {
			r.log.WithField("hook", info.Name).WithError(err).Error("Hook failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry[T]) call(info HookInfo[T], event T) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in hook %s: %v", info.Name, p)
		}
	}()
	return info.Hook(event)
}

// Clear removes all hooks.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hooks = nil
}

// Count returns the number of registered hooks.
func (r *Registry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.hooks)
}
