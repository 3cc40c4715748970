package rpc

import "context"

// DispatchHook observes calls around dispatch. Implementations must be safe
// for concurrent use.
type DispatchHook interface {
	OnDispatchStart(ctx context.Context, info DispatchInfo) (context.Context, HookToken)
	OnDispatchEnd(ctx context.Context, token HookToken, info DispatchInfo, stats CallStats, err error)
}

// HookToken is an opaque value returned by OnDispatchStart and passed back to
// OnDispatchEnd of the same hook.
type HookToken any

// DispatchInfo describes one decoded call.
type DispatchInfo struct {
	Tag       string            // envelope tag
	Version   string            // origin version, empty for latest
	ServerID  string            // from WithServerID
	RequestID string            // generated per request
	Metadata  map[string]string // transport metadata
}

// CallStats holds per-call byte counts.
type CallStats struct {
	RequestBytes  int64
	ResponseBytes int64
}

type hookCall struct {
	hook  DispatchHook
	token HookToken
}

func startHooks(ctx context.Context, hooks []DispatchHook, info DispatchInfo) (context.Context, []hookCall) {
	if len(hooks) == 0 {
		return ctx, nil
	}
	calls := make([]hookCall, len(hooks))
	for i, h := range hooks {
		var token HookToken
		ctx, token = h.OnDispatchStart(ctx, info)
		calls[i] = hookCall{hook: h, token: token}
	}
	return ctx, calls
}

// endHooks runs in reverse start order.
func endHooks(ctx context.Context, calls []hookCall, info DispatchInfo, stats CallStats, err error) {
	for i := len(calls) - 1; i >= 0; i-- {
		calls[i].hook.OnDispatchEnd(ctx, calls[i].token, info, stats, err)
	}
}
