package view

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"ledgerchat/internal/core"
	"ledgerchat/internal/ledger"
	applog "ledgerchat/internal/log"
)

// Coordinator owns the store subscription and the single current-aggregate
// slot. On every snapshot it runs the aggregation engine once and replaces
// all derived state wholesale, then fans the new view out to renderers.
//
// States: Unsubscribed -> Subscribed; Unsubscribed again only via Close.
// Reconnect policy belongs to the store adapter, not here.
type Coordinator struct {
	feed      ledger.ChangeFeed
	renderers []Renderer

	mu      sync.RWMutex
	current core.Aggregate
	view    View

	started bool
	cancel  func()
	done    chan struct{}
}

func NewCoordinator(feed ledger.ChangeFeed, renderers ...Renderer) *Coordinator {
	return &Coordinator{
		feed:      feed,
		renderers: renderers,
		done:      make(chan struct{}),
	}
}

// AddRenderer registers another render target. Call before Start; renderers
// added later miss views already fanned out.
func (c *Coordinator) AddRenderer(r Renderer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderers = append(c.renderers, r)
}

// Start opens the subscription and begins the pump. The first snapshot
// arrives immediately per the ChangeFeed contract, so the aggregate slot is
// populated before the first change happens.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("coordinator already subscribed")
	}
	c.started = true
	c.mu.Unlock()

	ch, cancel, err := c.feed.Subscribe(ctx)
	if err != nil {
		return err
	}
	c.cancel = cancel

	go c.pump(ctx, ch)
	return nil
}

// Close tears the subscription down and waits for the pump to drain.
func (c *Coordinator) Close() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
}

// Current returns the last derived aggregate. Query intents read this cached
// value; it can trail the store until the next snapshot lands.
func (c *Coordinator) Current() core.Aggregate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// View returns the last rendered view state.
func (c *Coordinator) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

func (c *Coordinator) pump(ctx context.Context, ch <-chan []core.Transaction) {
	defer close(c.done)
	for records := range ch {
		agg := core.Summarize(records)
		v := Build(records, agg)

		c.mu.Lock()
		c.current = agg
		c.view = v
		renderers := c.renderers
		c.mu.Unlock()

		slog.DebugContext(ctx, "View replaced",
			applog.FieldRecordCount, len(records),
			"balance_cents", agg.Balance.Cents)

		for _, r := range renderers {
			r.Render(v)
		}
	}
}
