package generation

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// sharedFlight is the context of one collapsed run. It is cancelled only once
// every caller waiting on the run has gone away.
type sharedFlight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// flights collapses concurrent calls per key. Each caller waits on its own
// context; the shared work keeps running while any caller is still waiting.
type flights struct {
	group singleflight.Group

	mu     sync.Mutex
	active map[string]*sharedFlight
}

func (f *flights) join(ctx context.Context, key string) *sharedFlight {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil {
		f.active = make(map[string]*sharedFlight)
	}
	sf := f.active[key]
	if sf == nil {
		sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		sf = &sharedFlight{ctx: sctx, cancel: cancel}
		f.active[key] = sf
	}
	sf.waiters++
	return sf
}

// leave drops one waiter and reports whether it was the last.
func (f *flights) leave(key string, sf *sharedFlight) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	sf.waiters--
	if sf.waiters > 0 {
		return false
	}
	if f.active[key] == sf {
		delete(f.active, key)
	}
	sf.cancel()
	return true
}

// do runs fn once per key among concurrent callers. A caller whose context
// ends gets its context error; when it was the last waiter the shared run is
// cancelled and awaited so it has settled before do returns.
func (f *flights) do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	for {
		sf := f.join(ctx, key)
		ch := f.group.DoChan(key, func() (any, error) {
			return fn(sf.ctx)
		})

		select {
		case res := <-ch:
			f.leave(key, sf)
			// A live caller that joined a run abandoned by everyone else
			// starts over instead of inheriting the cancellation.
			if errors.Is(res.Err, context.Canceled) && ctx.Err() == nil {
				continue
			}
			return res.Val, res.Err
		case <-ctx.Done():
			if f.leave(key, sf) {
				<-ch
			}
			return nil, ctx.Err()
		}
	}
}
