package reminder

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
)

// DefaultInterval is used when no positive scan interval is configured.
const DefaultInterval = 60 * time.Second

// scanTimeout bounds a single scan of the store.
const scanTimeout = 30 * time.Second

// NotifyFunc receives every notification the scheduler creates.
type NotifyFunc func(model.Notification)

// Scheduler periodically scans open tasks with a due date and creates a
// reminder notification when a task enters one of the trigger windows.
// Each task gets at most one notification per trigger type.
type Scheduler struct {
	store    store.Store
	interval time.Duration
	notify   NotifyFunc
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a Scheduler scanning s every interval. notify may be nil.
func New(s store.Store, interval time.Duration, notify NotifyFunc) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		store:    s,
		interval: interval,
		notify:   notify,
		now:      time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (sc *Scheduler) SetClock(now func() time.Time) {
	sc.now = now
}

// Start launches the scan loop in the background. Calling Start on a
// running scheduler does nothing.
func (sc *Scheduler) Start(ctx context.Context) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.running {
		return
	}
	sc.running = true
	sc.stopCh = make(chan struct{})
	sc.doneCh = make(chan struct{})

	go func(stopCh, doneCh chan struct{}) {
		defer close(doneCh)
		sc.loop(ctx, stopCh)
	}(sc.stopCh, sc.doneCh)
}

// Stop halts the scan loop and waits for an in-flight scan to finish.
func (sc *Scheduler) Stop() {
	sc.mu.Lock()
	if !sc.running {
		sc.mu.Unlock()
		return
	}
	sc.running = false
	close(sc.stopCh)
	doneCh := sc.doneCh
	sc.mu.Unlock()

	<-doneCh
}

// Run scans immediately and then on every tick until ctx is cancelled.
func (sc *Scheduler) Run(ctx context.Context) {
	sc.loop(ctx, nil)
}

func (sc *Scheduler) loop(ctx context.Context, stopCh <-chan struct{}) {
	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()

	sc.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			sc.scan(ctx)
		}
	}
}

func (sc *Scheduler) scan(ctx context.Context) {
	scanCtx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	if _, err := sc.ScanOnce(scanCtx); err != nil {
		log.Printf("reminder: scan failed: %v", err)
	}
}

// ScanOnce checks every open task with a due date once and returns the
// notifications it created. A task whose due date lies within several
// windows only gets the tightest one.
func (sc *Scheduler) ScanOnce(ctx context.Context) ([]model.Notification, error) {
	tasks, err := sc.store.GetDueTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading due tasks: %w", err)
	}

	now := sc.now()
	var created []model.Notification
	for _, t := range tasks {
		due, ok := model.ParseDueDate(t.DueDate)
		if !ok {
			continue
		}
		trigger, ok := TriggerFor(due.Sub(now))
		if !ok {
			continue
		}

		sent, err := sc.store.HasBeenSent(ctx, t.ID, trigger)
		if err != nil {
			return created, err
		}
		if sent {
			continue
		}

		title, body := model.ReminderText(trigger, t.Heading)
		n, err := sc.store.CreateNotification(ctx, model.Notification{
			TaskID:      t.ID,
			Title:       title,
			Body:        body,
			TriggerType: trigger,
		})
		if err != nil {
			return created, err
		}
		created = append(created, n)
		if sc.notify != nil {
			sc.notify(n)
		}
	}
	return created, nil
}

// TriggerFor returns the tightest trigger whose window contains a due date
// that is until away. Past due dates match nothing.
func TriggerFor(until time.Duration) (string, bool) {
	if until <= 0 {
		return "", false
	}
	for _, trigger := range model.ReminderTriggers {
		window, _ := model.TriggerWindow(trigger)
		if until <= window {
			return trigger, true
		}
	}
	return "", false
}
