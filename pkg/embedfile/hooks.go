package embedfile

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Hooks let callers observe or alter registry lookups and registrations.
// Each hook receives the value left by the previous one and returns the
// value handed to the next, so the last writer wins in subscription order.

// Hooks defines all available registry hooks
type Hooks struct {
	GetBefore []GetBeforeHook
	GetAfter  []GetAfterHook
	Set       []SetHook
}

// HookContext carries information through one hook chain
type HookContext struct {
	Context   context.Context
	Metadata  map[string]interface{} // Custom metadata passed between hooks
	StopChain bool                   // Set to true to skip the remaining hooks
}

// NewHookContext creates a new hook context
func NewHookContext(ctx context.Context) *HookContext {
	return &HookContext{
		Context:  ctx,
		Metadata: make(map[string]interface{}),
	}
}

// GetRequest is threaded through the get-before chain
type GetRequest struct {
	ID string
}

// GetResult is threaded through the get-after chain. File is nil on a miss.
type GetResult struct {
	ID   string
	File *File
}

// SetRequest is threaded through the set chain
type SetRequest struct {
	ID        string
	File      *File
	Previous  *File
	Cancelled bool
}

// GetBeforeHook is called before a lookup and may rewrite the id
type GetBeforeHook func(hctx *HookContext, req GetRequest) (GetRequest, error)

// GetAfterHook is called after a lookup and may substitute the file
type GetAfterHook func(hctx *HookContext, res GetResult) (GetResult, error)

// SetHook is called before a registration and may rewrite it or cancel it
type SetHook func(hctx *HookContext, req SetRequest) (SetRequest, error)

type subscription[H any] struct {
	id   uuid.UUID
	hook H
}

// runChain folds value through hooks in order. The first error aborts the chain.
func runChain[T any, H ~func(*HookContext, T) (T, error)](ctx context.Context, subs []subscription[H], value T) (T, error) {
	if len(subs) == 0 {
		return value, nil
	}

	hctx := NewHookContext(ctx)
	for _, sub := range subs {
		next, err := sub.hook(hctx, value)
		if err != nil {
			return value, err
		}
		value = next
		if hctx.StopChain {
			break
		}
	}
	return value, nil
}

func withoutSubscription[H any](subs []subscription[H], id uuid.UUID) ([]subscription[H], bool) {
	for i, sub := range subs {
		if sub.id != id {
			continue
		}
		out := make([]subscription[H], 0, len(subs)-1)
		out = append(out, subs[:i]...)
		out = append(out, subs[i+1:]...)
		return out, true
	}
	return subs, false
}

// Common hook implementations

// LoggingHooks logs lookups and registrations at debug level
func LoggingHooks(logger *slog.Logger) *Hooks {
	return &Hooks{
		GetAfter: []GetAfterHook{
			func(hctx *HookContext, res GetResult) (GetResult, error) {
				logger.Debug("Embedded file lookup", "id", res.ID, "found", res.File != nil)
				return res, nil
			},
		},
		Set: []SetHook{
			func(hctx *HookContext, req SetRequest) (SetRequest, error) {
				var resource string
				if req.File != nil {
					resource = req.File.ResourceString()
				}
				logger.Debug("Embedded file registration", "id", req.ID, "resource", resource, "replaces", req.Previous != nil)
				return req, nil
			},
		},
	}
}

// AliasHook rewrites ids found in aliases to their target
func AliasHook(aliases map[string]string) GetBeforeHook {
	return func(hctx *HookContext, req GetRequest) (GetRequest, error) {
		if target, ok := aliases[req.ID]; ok {
			req.ID = target
		}
		return req, nil
	}
}

// FallbackHook supplies a file for ids the registry does not hold
func FallbackHook(fallback func(id string) *File) GetAfterHook {
	return func(hctx *HookContext, res GetResult) (GetResult, error) {
		if res.File == nil {
			res.File = fallback(res.ID)
		}
		return res, nil
	}
}

// WriteOnceHook cancels registrations that would replace an existing file
func WriteOnceHook() SetHook {
	return func(hctx *HookContext, req SetRequest) (SetRequest, error) {
		if req.Previous != nil {
			req.Cancelled = true
		}
		return req, nil
	}
}
