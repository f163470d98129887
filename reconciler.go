/*
Copyright 2025 Leadsync Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package leadsync

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/dealerkit/leadsync/database"
	pg_listener "github.com/dealerkit/leadsync/internal/pg-listener"
	"github.com/dealerkit/leadsync/model"
)

// NewMarkerWindow is how long a freshly inserted lead stays marked as new in
// the reconciled view. Purely a UI affordance; eviction is evaluated against
// the subscription's clock, not a wall timer.
const NewMarkerWindow = 3 * time.Second

const defaultSeedLimit = 200

// Clock abstracts time so the new-lead marker window is testable without
// real timers.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// SortKey selects the ordering of a reconciled snapshot.
type SortKey int

const (
	SortCreatedAtDesc SortKey = iota
	SortCreatedAtAsc
	SortLastActivityDesc
)

// SubscribeOptions configures a lead subscription.
type SubscribeOptions struct {
	Filter    SnapshotFilter
	Sort      SortKey
	SeedLimit int
	Clock     Clock
}

// ReconciledUpdate is one consistent view of the lead list: the visible
// snapshot after a merge, the set of leads still inside the new-marker
// window, and stats recomputed over the full underlying snapshot.
type ReconciledUpdate struct {
	Snapshot []*model.Lead
	NewIDs   map[string]struct{}
	Stats    model.Stats
}

// FeedSource abstracts the change feed transport. The drops channel signals
// that the underlying stream reconnected and deltas may have been lost.
type FeedSource interface {
	Subscribe(ctx context.Context) (events <-chan model.ChangeEvent, drops <-chan struct{}, err error)
}

type listenerFeed struct {
	listener *pg_listener.DBListener
}

func (f *listenerFeed) Subscribe(ctx context.Context) (<-chan model.ChangeEvent, <-chan struct{}, error) {
	sub, err := f.listener.Subscribe(ctx)
	if err != nil {
		return nil, nil, err
	}
	return sub.Events(), sub.Drops(), nil
}

// Reconciler maintains one client's ordered lead snapshot from a seed query
// plus feed deltas. It is single-writer: only its own run loop mutates the
// snapshot, and it is never shared between sessions.
type Reconciler struct {
	datasource database.IDataSource
	opts       SubscribeOptions
	cancel     context.CancelFunc

	mu       sync.Mutex
	snapshot map[string]*model.Lead
	newMarks map[string]time.Time

	updates chan ReconciledUpdate
}

// SubscribeLeads opens a change feed subscription and seeds the snapshot
// with a full query, so late joiners see current state before the first
// delta. A client switching filters must Close the previous subscription
// before opening the next one; two live feeds must never write into the same
// local snapshot.
func (l *Leadsync) SubscribeLeads(ctx context.Context, opts SubscribeOptions) (*Reconciler, error) {
	if opts.SeedLimit == 0 {
		opts.SeedLimit = defaultSeedLimit
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}

	ctx, cancel := context.WithCancel(ctx)

	events, drops, err := l.feed.Subscribe(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	r := &Reconciler{
		datasource: l.datasource,
		opts:       opts,
		cancel:     cancel,
		snapshot:   make(map[string]*model.Lead),
		newMarks:   make(map[string]time.Time),
		updates:    make(chan ReconciledUpdate, 1),
	}

	if err := r.reseed(ctx); err != nil {
		cancel()
		return nil, err
	}

	go r.run(ctx, events, drops)

	return r, nil
}

// Updates delivers a fresh view after every merge. The channel holds only
// the latest pending update; a slow consumer skips intermediate states but
// always converges on the current one. It is closed when the subscription
// ends.
func (r *Reconciler) Updates() <-chan ReconciledUpdate {
	return r.updates
}

// Close releases the subscription and its feed resources.
func (r *Reconciler) Close() {
	r.cancel()
}

// All returns the full underlying snapshot regardless of the active filter.
func (r *Reconciler) All() []*model.Lead {
	r.mu.Lock()
	defer r.mu.Unlock()
	leads := make([]*model.Lead, 0, len(r.snapshot))
	for _, lead := range r.snapshot {
		leads = append(leads, lead)
	}
	r.sortLeads(leads)
	return leads
}

func (r *Reconciler) run(ctx context.Context, events <-chan model.ChangeEvent, drops <-chan struct{}) {
	defer close(r.updates)

	// Initial view right after the seed.
	r.emit()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			r.apply(event)
			r.emit()
		case <-drops:
			// The feed reconnected; events may have been lost in between.
			// Resuming delta-only would risk permanent divergence, so a
			// full reseed is mandatory before trusting further deltas.
			if err := r.reseedWithRetry(ctx); err != nil {
				logrus.Errorf("lead feed reseed failed, closing subscription: %v", err)
				return
			}
			r.emit()
		}
	}
}

// apply merges one change event into the snapshot. Classification rule: an
// insert for an unknown id is marked new; any event for an id already
// present is a mutation and is never re-marked, no matter which fields
// changed.
func (r *Reconciler) apply(event model.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead := event.Lead
	switch event.Kind {
	case model.EventInsert:
		if _, exists := r.snapshot[lead.LeadID]; !exists {
			r.newMarks[lead.LeadID] = r.opts.Clock.Now()
		}
		r.snapshot[lead.LeadID] = &lead
	case model.EventUpdate:
		// An update for an id we have not seen can happen after a missed
		// insert on an at-least-once feed; absorb it without a new mark.
		r.snapshot[lead.LeadID] = &lead
	case model.EventDelete:
		delete(r.snapshot, lead.LeadID)
		delete(r.newMarks, lead.LeadID)
	}
}

func (r *Reconciler) reseed(ctx context.Context) error {
	leads, err := r.datasource.GetAllLeads(ctx, r.opts.SeedLimit, 0)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshot = make(map[string]*model.Lead, len(leads))
	for _, lead := range leads {
		r.snapshot[lead.LeadID] = lead
	}
	// Keep marks only for rows that survived the reseed.
	for id := range r.newMarks {
		if _, ok := r.snapshot[id]; !ok {
			delete(r.newMarks, id)
		}
	}
	return nil
}

func (r *Reconciler) reseedWithRetry(ctx context.Context) error {
	operation := func() error {
		return r.reseed(ctx)
	}
	return backoff.Retry(operation, backoff.WithContext(backoff.NewExponentialBackOff(), ctx))
}

// emit publishes the current view, evicting expired new markers on the way.
func (r *Reconciler) emit() {
	r.mu.Lock()

	now := r.opts.Clock.Now()
	newIDs := make(map[string]struct{})
	for id, markedAt := range r.newMarks {
		if now.Sub(markedAt) >= NewMarkerWindow {
			delete(r.newMarks, id)
			continue
		}
		newIDs[id] = struct{}{}
	}

	full := make([]*model.Lead, 0, len(r.snapshot))
	visible := make([]*model.Lead, 0, len(r.snapshot))
	for _, lead := range r.snapshot {
		full = append(full, lead)
		if r.opts.Filter.Matches(lead) {
			visible = append(visible, lead)
		}
	}
	r.sortLeads(visible)

	update := ReconciledUpdate{
		Snapshot: visible,
		NewIDs:   newIDs,
		Stats:    ComputeStats(full, now),
	}

	r.mu.Unlock()

	// Replace any pending update so the consumer always lands on the
	// latest view.
	for {
		select {
		case r.updates <- update:
			return
		default:
			select {
			case <-r.updates:
			default:
			}
		}
	}
}

// sortLeads orders leads by the active sort key. The sort is stable with
// lead id as the final tie-break, so unaffected rows do not jitter between
// updates.
func (r *Reconciler) sortLeads(leads []*model.Lead) {
	less := func(a, b *model.Lead) bool {
		switch r.opts.Sort {
		case SortCreatedAtAsc:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		case SortLastActivityDesc:
			if !a.LastActivityAt.Equal(b.LastActivityAt) {
				return a.LastActivityAt.After(b.LastActivityAt)
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.LeadID < b.LeadID
	}
	sort.SliceStable(leads, func(i, j int) bool {
		return less(leads[i], leads[j])
	})
}
