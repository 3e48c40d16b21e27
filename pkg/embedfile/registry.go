package embedfile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Registry maps string ids to embedded files. Every lookup and registration
// runs through the hook chains; hooks are invoked outside the map lock so a
// hook may itself call Get or Set.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*File

	hookMu    sync.RWMutex
	getBefore []subscription[GetBeforeHook]
	getAfter  []subscription[GetAfterHook]
	set       []subscription[SetHook]

	logger *slog.Logger
}

// RegistryOption represents a functional option for configuring a Registry
type RegistryOption func(*Registry)

// WithHooks subscribes every hook in h, in slice order
func WithHooks(h *Hooks) RegistryOption {
	return func(r *Registry) {
		if h == nil {
			return
		}
		for _, hook := range h.GetBefore {
			r.OnGetBefore(hook)
		}
		for _, hook := range h.GetAfter {
			r.OnGetAfter(hook)
		}
		for _, hook := range h.Set {
			r.OnSet(hook)
		}
	}
}

// WithRegistryLogger sets the logger used for registry diagnostics
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries: make(map[string]*File),
		logger:  discardLogger,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// OnGetBefore subscribes a hook run before every lookup
func (r *Registry) OnGetBefore(hook GetBeforeHook) uuid.UUID {
	id := uuid.New()
	r.hookMu.Lock()
	defer r.hookMu.Unlock()
	r.getBefore = append(r.getBefore, subscription[GetBeforeHook]{id: id, hook: hook})
	return id
}

// OnGetAfter subscribes a hook run after every lookup, hit or miss
func (r *Registry) OnGetAfter(hook GetAfterHook) uuid.UUID {
	id := uuid.New()
	r.hookMu.Lock()
	defer r.hookMu.Unlock()
	r.getAfter = append(r.getAfter, subscription[GetAfterHook]{id: id, hook: hook})
	return id
}

// OnSet subscribes a hook run before every registration
func (r *Registry) OnSet(hook SetHook) uuid.UUID {
	id := uuid.New()
	r.hookMu.Lock()
	defer r.hookMu.Unlock()
	r.set = append(r.set, subscription[SetHook]{id: id, hook: hook})
	return id
}

// Unsubscribe removes the hook registered under id. It reports whether a hook was removed.
func (r *Registry) Unsubscribe(id uuid.UUID) bool {
	r.hookMu.Lock()
	defer r.hookMu.Unlock()

	var removed bool
	if r.getBefore, removed = withoutSubscription(r.getBefore, id); removed {
		return true
	}
	if r.getAfter, removed = withoutSubscription(r.getAfter, id); removed {
		return true
	}
	r.set, removed = withoutSubscription(r.set, id)
	return removed
}

func (r *Registry) hooks() ([]subscription[GetBeforeHook], []subscription[GetAfterHook], []subscription[SetHook]) {
	r.hookMu.RLock()
	defer r.hookMu.RUnlock()
	return r.getBefore, r.getAfter, r.set
}

// Get looks up id. The get-before hooks may rewrite the id; the get-after
// hooks run even on a miss and may supply a file. A nil file with a nil
// error means nothing is registered. Hook errors are returned as is.
func (r *Registry) Get(ctx context.Context, id string) (*File, error) {
	getBefore, getAfter, _ := r.hooks()

	req, err := runChain(ctx, getBefore, GetRequest{ID: id})
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	file := r.entries[req.ID]
	r.mu.RUnlock()

	res, err := runChain(ctx, getAfter, GetResult{ID: req.ID, File: file})
	if err != nil {
		return nil, err
	}
	return res.File, nil
}

// Set registers file under id and returns the previous file as seen through
// Get, so the get hooks fire too. A set hook may rewrite the id, the file or
// the previous value, or cancel the write; a cancelled Set leaves the
// registry untouched and still returns the previous value.
func (r *Registry) Set(ctx context.Context, id string, file *File) (*File, error) {
	previous, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	_, _, set := r.hooks()
	req, err := runChain(ctx, set, SetRequest{ID: id, File: file, Previous: previous})
	if err != nil {
		return nil, err
	}

	if req.Cancelled {
		r.logger.Debug("Registration cancelled by hook", "id", req.ID)
		return req.Previous, nil
	}

	r.mu.Lock()
	r.entries[req.ID] = req.File
	r.mu.Unlock()

	return req.Previous, nil
}

// IDs returns the registered ids in sorted order. It does not run hooks.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Len returns the number of registered ids
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// ExtractReport summarizes a batch extraction
type ExtractReport struct {
	Extracted []string
	Skipped   []string
	Failed    map[string]error
}

// OK reports whether every file landed or was skipped
func (rep ExtractReport) OK() bool {
	return len(rep.Failed) == 0
}

// ExtractAll extracts every registered file into directory, continuing past
// failures. Each file is fetched through Get, so hooks apply.
func (r *Registry) ExtractAll(ctx context.Context, directory string, skipIfExisting bool) ExtractReport {
	report := ExtractReport{Failed: make(map[string]error)}

	for _, id := range r.IDs() {
		file, err := r.Get(ctx, id)
		if err == nil && file == nil {
			err = fmt.Errorf("%w: nothing registered under %q", ErrResourceNotFound, id)
		}
		if err != nil {
			r.logger.Error("Failed to resolve embedded file", "id", id, "err", err)
			report.Failed[id] = err
			continue
		}

		written, err := file.Extract(ctx, directory, ExtractOptions{SkipIfExisting: skipIfExisting})
		switch {
		case err != nil:
			r.logger.Error("Failed to extract embedded file", "id", id, "resource", file.ResourceString(), "err", err)
			report.Failed[id] = err
		case written:
			report.Extracted = append(report.Extracted, id)
		default:
			report.Skipped = append(report.Skipped, id)
		}
	}
	return report
}
