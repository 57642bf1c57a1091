package types

import (
	"context"
	"time"

	"cosmossdk.io/log"
	storetypes "cosmossdk.io/store/types"
)

type contextKey struct{}

// ContextKey is the key under which a Context is reachable from a wrapped
// context.Context.
var ContextKey = contextKey{}

// Context carries the state a keeper needs while executing one ledger
// transaction or query: the (possibly cache-wrapped) multistore, the block
// the call executes in, a logger and the event sink.
type Context struct {
	baseCtx      context.Context
	ms           storetypes.MultiStore
	height       int64
	blockTime    time.Time
	logger       log.Logger
	eventManager *EventManager
}

var _ context.Context = Context{}

// NewContext creates a Context over the given multistore.
func NewContext(ms storetypes.MultiStore, height int64, blockTime time.Time, logger log.Logger) Context {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return Context{
		baseCtx:      context.Background(),
		ms:           ms,
		height:       height,
		blockTime:    blockTime,
		logger:       logger,
		eventManager: NewEventManager(),
	}
}

func (c Context) Context() context.Context { return c.baseCtx }
func (c Context) MultiStore() storetypes.MultiStore { return c.ms }
func (c Context) BlockHeight() int64 { return c.height }
func (c Context) BlockTime() time.Time { return c.blockTime }
func (c Context) Logger() log.Logger { return c.logger }
func (c Context) EventManager() *EventManager { return c.eventManager }

// KVStore fetches a KVStore from the multistore.
func (c Context) KVStore(key storetypes.StoreKey) storetypes.KVStore {
	return c.ms.GetKVStore(key)
}

func (c Context) WithContext(ctx context.Context) Context {
	c.baseCtx = ctx
	return c
}

func (c Context) WithMultiStore(ms storetypes.MultiStore) Context {
	c.ms = ms
	return c
}

func (c Context) WithBlockHeight(height int64) Context {
	c.height = height
	return c
}

func (c Context) WithBlockTime(t time.Time) Context {
	c.blockTime = t
	return c
}

func (c Context) WithLogger(logger log.Logger) Context {
	c.logger = logger
	return c
}

func (c Context) WithEventManager(em *EventManager) Context {
	c.eventManager = em
	return c
}

// CacheContext returns a new Context with the multistore cache-wrapped and
// a fresh event manager, plus a function that writes the cache back.
func (c Context) CacheContext() (Context, func()) {
	cms := c.ms.CacheMultiStore()
	cc := c.WithMultiStore(cms).WithEventManager(NewEventManager())
	return cc, cms.Write
}

func (c Context) Deadline() (deadline time.Time, ok bool) { return c.baseCtx.Deadline() }
func (c Context) Done() <-chan struct{} { return c.baseCtx.Done() }
func (c Context) Err() error { return c.baseCtx.Err() }

func (c Context) Value(key interface{}) interface{} {
	if key == ContextKey {
		return c
	}
	return c.baseCtx.Value(key)
}

// WrapContext stores c inside a plain context.Context.
func WrapContext(c Context) context.Context {
	return context.WithValue(c.baseCtx, ContextKey, c)
}

// UnwrapContext retrieves a Context from a context.Context. It panics when
// none is present, which only happens when a keeper is called outside of
// the ledger.
func UnwrapContext(ctx context.Context) Context {
	if c, ok := ctx.(Context); ok {
		return c
	}
	return ctx.Value(ContextKey).(Context)
}
