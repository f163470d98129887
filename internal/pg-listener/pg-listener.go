package pg_listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/dealerkit/leadsync/model"
)

// LeadsChannel is the NOTIFY channel the lead table trigger publishes to.
const LeadsChannel = "leads_change"

type ListenerConfig struct {
	PgConnStr            string
	MinReconnectInterval time.Duration
	MaxReconnectInterval time.Duration
	PingInterval         time.Duration
}

// DBListener opens per-subscriber LISTEN connections against the lead table
// change channel. Each subscription owns its connection; closing the
// subscription releases it.
type DBListener struct {
	config ListenerConfig
}

// Subscription is a live LISTEN stream. Events delivers decoded change
// events; Drops signals that the underlying connection was lost and
// re-established, meaning notifications may have been missed and the
// consumer must reseed its snapshot before trusting further deltas.
type Subscription struct {
	events chan model.ChangeEvent
	drops  chan struct{}
	cancel context.CancelFunc
}

func (s *Subscription) Events() <-chan model.ChangeEvent {
	return s.events
}

func (s *Subscription) Drops() <-chan struct{} {
	return s.drops
}

// Close releases the subscription's listener connection. Safe to call more
// than once.
func (s *Subscription) Close() {
	s.cancel()
}

func NewDBListener(config ListenerConfig) *DBListener {
	if config.MinReconnectInterval == 0 {
		config.MinReconnectInterval = time.Second
	}
	if config.MaxReconnectInterval == 0 {
		config.MaxReconnectInterval = 30 * time.Second
	}
	if config.PingInterval == 0 {
		config.PingInterval = 90 * time.Second
	}
	return &DBListener{config: config}
}

// Subscribe starts listening on the leads change channel. The returned
// subscription is closed when ctx is cancelled or Close is called.
func (d *DBListener) Subscribe(ctx context.Context) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	sub := &Subscription{
		events: make(chan model.ChangeEvent, 64),
		drops:  make(chan struct{}, 1),
		cancel: cancel,
	}

	listener := pq.NewListener(d.config.PgConnStr, d.config.MinReconnectInterval, d.config.MaxReconnectInterval, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logrus.Errorf("leads listener error: %v", err)
		}
		if ev == pq.ListenerEventReconnected {
			// Coalesce: one pending drop signal is enough to force a reseed.
			select {
			case sub.drops <- struct{}{}:
			default:
			}
		}
	})

	if err := listener.Listen(LeadsChannel); err != nil {
		cancel()
		_ = listener.Close()
		return nil, err
	}

	go d.run(ctx, listener, sub)

	return sub, nil
}

func (d *DBListener) run(ctx context.Context, listener *pq.Listener, sub *Subscription) {
	defer func() {
		_ = listener.Close()
		close(sub.events)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case notification := <-listener.Notify:
			if notification == nil {
				// pq sends nil after the connection is re-established;
				// the event callback already queued a drop signal.
				continue
			}
			d.handleNotification(ctx, notification, sub)
		case <-time.After(d.config.PingInterval):
			go func() {
				if err := listener.Ping(); err != nil {
					logrus.Errorf("leads listener ping failed: %v", err)
				}
			}()
		}
	}
}

func (d *DBListener) handleNotification(ctx context.Context, notification *pq.Notification, sub *Subscription) {
	var event model.ChangeEvent
	if err := json.Unmarshal([]byte(notification.Extra), &event); err != nil {
		logrus.Errorf("error unmarshalling change event payload: %v", err)
		return
	}

	select {
	case sub.events <- event:
	case <-ctx.Done():
	}
}
