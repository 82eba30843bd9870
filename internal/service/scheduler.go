package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/errgroup"

	"github.com/gatorlabs/labbot/internal/model"
	"github.com/gatorlabs/labbot/internal/ports"
)

// Scheduler drives the poll-and-dispatch cycle. Every tick it asks each
// calendar source for upcoming occurrences, decides which (occurrence, lead
// time) reminders are due, filters out ones already recorded in the dedup
// store, and hands the rest to the dispatcher. A reminder record is written
// only after a successful dispatch, so a failed delivery is retried on the
// next tick for as long as the occurrence stays inside the query window.
type Scheduler struct {
	calendars  []model.CalendarConfig
	source     ports.CalendarSource
	store      ports.DedupStore
	dispatcher ports.Dispatcher
	clock      ports.Clock

	pollInterval time.Duration
	fetchTimeout time.Duration

	// tickMu serializes ticks: a slow tick delays the next one, they never
	// overlap against the same dedup keys.
	tickMu sync.Mutex

	// pending holds reminders whose dispatch failed. Their due instant has
	// left the due window by the next tick, so they are retried from here
	// until delivered or until the occurrence drops out of the fetch
	// window. Lost on restart; only delivery failures spanning a restart
	// are affected.
	pending map[pendingKey]model.Reminder

	snapMu   sync.RWMutex
	snapshot []model.Occurrence
}

type pendingKey struct {
	occurrenceID string
	lead         time.Duration
}

func NewScheduler(
	calendars []model.CalendarConfig,
	source ports.CalendarSource,
	store ports.DedupStore,
	dispatcher ports.Dispatcher,
	clock ports.Clock,
	pollInterval time.Duration,
	fetchTimeout time.Duration,
) *Scheduler {
	return &Scheduler{
		calendars:    calendars,
		source:       source,
		store:        store,
		dispatcher:   dispatcher,
		clock:        clock,
		pollInterval: pollInterval,
		fetchTimeout: fetchTimeout,
		pending:      make(map[pendingKey]model.Reminder),
	}
}

// ValidateCalendars probes every configured calendar once and drops the
// ones whose id does not resolve. Misconfiguration is fatal for that
// calendar only; transient fetch errors keep the calendar in rotation.
func (s *Scheduler) ValidateCalendars(ctx context.Context) {
	now := s.clock.Now()
	kept := make([]model.CalendarConfig, 0, len(s.calendars))

	for _, cal := range s.calendars {
		probeCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
		_, err := s.source.ListOccurrences(probeCtx, cal.CalendarID, now, now.Add(time.Hour))
		cancel()

		if errors.Is(err, ports.ErrCalendarNotFound) {
			zlog.Logger.Error().
				Err(err).
				Str("calendar_id", cal.CalendarID).
				Msg("calendar does not resolve, removing it from the polling rotation")
			continue
		}
		if err != nil {
			zlog.Logger.Warn().
				Err(err).
				Str("calendar_id", cal.CalendarID).
				Msg("calendar probe failed, keeping it in rotation")
		}
		kept = append(kept, cal)
	}

	s.calendars = kept
}

// Run ticks once immediately and then on every poll interval until the
// context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	s.tickLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			zlog.Logger.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.tickLogged(ctx)
		}
	}
}

func (s *Scheduler) tickLogged(ctx context.Context) {
	if err := s.Tick(ctx, s.clock.Now()); err != nil {
		ticksAborted.Inc()
		zlog.Logger.Error().Err(err).Msg("tick aborted")
	}
}

// Tick runs one poll-and-dispatch cycle at the given instant. It returns
// an error only when the dedup store is unreliable; in that case the whole
// tick is abandoned rather than risking a duplicate reminder. Per-calendar
// fetch failures and delivery failures are logged and absorbed.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) error {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	fetched := s.fetchAll(ctx, now)
	s.updateSnapshot(fetched)

	for _, result := range fetched {
		if result.err != nil {
			fetchFailures.WithLabelValues(result.calendar.CalendarID).Inc()
			zlog.Logger.Warn().
				Err(result.err).
				Str("calendar_id", result.calendar.CalendarID).
				Msg("calendar fetch failed, will retry next tick")
			continue
		}
		if err := s.dispatchDue(ctx, result.calendar, result.occurrences, now); err != nil {
			return err
		}
		s.prunePending(result)
	}

	ticksTotal.Inc()
	return nil
}

type fetchResult struct {
	calendar    model.CalendarConfig
	occurrences []model.Occurrence
	err         error
}

// fetchAll queries every calendar concurrently. Each fetch gets its own
// timeout so one slow feed cannot stall the rest, and errors are captured
// per calendar instead of cancelling the group.
func (s *Scheduler) fetchAll(ctx context.Context, now time.Time) []fetchResult {
	results := make([]fetchResult, len(s.calendars))
	g := &errgroup.Group{}

	for i, cal := range s.calendars {
		i, cal := i, cal
		results[i].calendar = cal
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
			defer cancel()

			to := now.Add(cal.MaxLeadTime() + s.pollInterval)
			occurrences, err := s.source.ListOccurrences(fetchCtx, cal.CalendarID, now, to)
			results[i].occurrences = occurrences
			results[i].err = err
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (s *Scheduler) dispatchDue(ctx context.Context, cal model.CalendarConfig, occurrences []model.Occurrence, now time.Time) error {
	for _, occ := range occurrences {
		for _, lead := range cal.LeadTimes {
			key := pendingKey{occurrenceID: occ.OccurrenceID, lead: lead}
			_, retrying := s.pending[key]
			if !retrying && !s.due(occ.StartsAt, lead, now) {
				continue
			}

			sent, err := s.store.HasSent(ctx, occ.OccurrenceID, lead)
			if err != nil {
				return fmt.Errorf("dedup lookup for (%s, %s): %w", occ.OccurrenceID, lead, err)
			}
			if sent {
				delete(s.pending, key)
				continue
			}

			reminder := model.Reminder{
				Occurrence:   occ,
				LeadTime:     lead,
				Channel:      cal.Channel,
				CalendarName: cal.Name,
			}

			if err := s.dispatcher.Dispatch(ctx, reminder); err != nil {
				s.pending[key] = reminder
				dispatchFailures.WithLabelValues(cal.CalendarID).Inc()
				zlog.Logger.Error().
					Err(err).
					Str("calendar_id", cal.CalendarID).
					Str("occurrence_id", occ.OccurrenceID).
					Stringer("lead", lead).
					Msg("reminder dispatch failed, will retry next tick")
				continue
			}

			if err := s.store.MarkSent(ctx, occ.OccurrenceID, lead, now); err != nil {
				// The reminder went out but we could not record it. Abort
				// loudly; this is the one failure mode that can duplicate.
				return fmt.Errorf("mark sent (%s, %s) after dispatch: %w", occ.OccurrenceID, lead, err)
			}

			delete(s.pending, key)
			remindersDispatched.WithLabelValues(cal.CalendarID).Inc()
			zlog.Logger.Info().
				Str("calendar_id", cal.CalendarID).
				Str("occurrence_id", occ.OccurrenceID).
				Str("title", occ.Title).
				Stringer("lead", lead).
				Str("channel", cal.Channel).
				Msg("reminder dispatched")
		}
	}
	return nil
}

// prunePending drops queued retries whose occurrence is no longer returned
// by a successfully polled calendar: the event was cancelled or has started,
// and no retraction is sent for either.
func (s *Scheduler) prunePending(result fetchResult) {
	if result.err != nil {
		return
	}
	present := make(map[string]struct{}, len(result.occurrences))
	for _, occ := range result.occurrences {
		present[occ.OccurrenceID] = struct{}{}
	}
	for key, reminder := range s.pending {
		if reminder.Occurrence.CalendarID != result.calendar.CalendarID {
			continue
		}
		if _, ok := present[key.occurrenceID]; !ok {
			delete(s.pending, key)
			zlog.Logger.Warn().
				Str("calendar_id", result.calendar.CalendarID).
				Str("occurrence_id", key.occurrenceID).
				Stringer("lead", key.lead).
				Msg("dropping undeliverable reminder, occurrence left the query window")
		}
	}
}

// due reports whether the reminder instant start-lead falls inside the
// half-open window (now-pollInterval, now]. Sized to the poll interval so a
// delayed tick still catches its occurrences and no instant fires twice. A
// gap wider than the interval (long GC pause, host clock jump) can still
// skip a window; that is an accepted limitation, not masked here.
func (s *Scheduler) due(startsAt time.Time, lead time.Duration, now time.Time) bool {
	dueAt := startsAt.Add(-lead)
	return dueAt.After(now.Add(-s.pollInterval)) && !dueAt.After(now)
}

func (s *Scheduler) updateSnapshot(results []fetchResult) {
	occurrences := make([]model.Occurrence, 0)
	for _, result := range results {
		if result.err == nil {
			occurrences = append(occurrences, result.occurrences...)
		}
	}

	s.snapMu.Lock()
	s.snapshot = occurrences
	s.snapMu.Unlock()
}

// Snapshot returns the occurrences seen on the most recent poll. Serves the
// admin API only; reminder decisions never read from it.
func (s *Scheduler) Snapshot() []model.Occurrence {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	out := make([]model.Occurrence, len(s.snapshot))
	copy(out, s.snapshot)
	return out
}

// Calendars returns the calendars currently in the polling rotation.
func (s *Scheduler) Calendars() []model.CalendarConfig {
	out := make([]model.CalendarConfig, len(s.calendars))
	copy(out, s.calendars)
	return out
}
