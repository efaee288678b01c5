package leader

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/pkg/logger"
)

// Always is a LeaderGate for single-instance deployments.
type Always struct{}

func (Always) IsLeader() bool { return true }

var _ domrepo.LeaderGate = Always{}

// Elector campaigns for a lease in the background. Only the lease holder
// reports IsLeader; losing a renewal demotes immediately.
type Elector struct {
	store    LeaseStore
	key      string
	token    string
	ttl      time.Duration
	interval time.Duration
	timeout  time.Duration

	leader atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	l      *logger.Logger
}

var _ domrepo.LeaderGate = (*Elector)(nil)

// Option configures Elector.
type Option func(*Elector)

// WithToken overrides the random instance token.
func WithToken(token string) Option {
	return func(e *Elector) { e.token = token }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Elector) {
		if l != nil {
			e.l = l
		}
	}
}

func NewElector(store LeaseStore, key string, ttl, interval time.Duration, opts ...Option) *Elector {
	e := &Elector{
		store:    store,
		key:      key,
		token:    uuid.NewString(),
		ttl:      ttl,
		interval: interval,
		timeout:  interval,
		l:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.timeout <= 0 || e.timeout > ttl {
		e.timeout = ttl
	}
	return e
}

func (e *Elector) IsLeader() bool { return e.leader.Load() }

// Token identifies this instance in the lease value.
func (e *Elector) Token() string { return e.token }

// Start runs one campaign round synchronously, then keeps campaigning until Stop.
func (e *Elector) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	e.Tick(ctx)
	go func() {
		defer close(e.done)
		t := time.NewTicker(e.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				e.Tick(ctx)
			}
		}
	}()
}

// Tick performs one campaign round: renew while leading, otherwise try to acquire.
func (e *Elector) Tick(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if e.leader.Load() {
		ok, err := e.store.Renew(cctx, e.key, e.token, e.ttl)
		if err != nil || !ok {
			e.leader.Store(false)
			e.l.Warn("leadership lost", logger.String("key", e.key), logger.Error(err))
		}
		return
	}
	ok, err := e.store.Acquire(cctx, e.key, e.token, e.ttl)
	if err != nil {
		e.l.Warn("leader campaign failed", logger.String("key", e.key), logger.Error(err))
		return
	}
	if ok {
		e.leader.Store(true)
		e.l.Info("leadership acquired", logger.String("key", e.key), logger.String("token", e.token))
	}
}

// Stop ends the campaign and releases the lease if held.
func (e *Elector) Stop(ctx context.Context) error {
	var err error
	e.once.Do(func() {
		if e.cancel != nil {
			e.cancel()
			<-e.done
		}
		if e.leader.Swap(false) {
			err = e.store.Release(ctx, e.key, e.token)
		}
	})
	return err
}
