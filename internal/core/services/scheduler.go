package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driving"
	"github.com/custodia-labs/hrwatch/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

const (
	// historyKeep is how many poll records are kept per user.
	historyKeep = 100
	// maintenanceInterval is how often retention pruning runs.
	maintenanceInterval = time.Hour
	// stateWriteTimeout bounds bookkeeping writes made after a cycle,
	// which run detached from the cycle's context.
	stateWriteTimeout = 5 * time.Second
	// fetchOverlap re-reads the tail of the previous window so readings
	// that arrived late at the vendor are not missed.
	fetchOverlap = time.Second
	failureBuffer = 16
)

// Scheduler drives one fetch, detect and persist cycle per user.
//
// A dispatcher wakes every Tick, finds users whose interval (or backoff)
// has elapsed and hands them to a bounded pool of workers. A user is
// never in more than one cycle at a time.
type Scheduler struct {
	repo     *Repository
	tokens   driving.TokenManager
	tracker  driving.BaselineTracker
	fetcher  driven.SampleFetcher
	notifier driven.Notifier
	policy   driven.PollPolicy
	settings driven.SettingsProvider
	logger   *zap.Logger
	now      func() time.Time

	mu        sync.Mutex
	running   bool
	stopped   bool
	stopCh    chan struct{}
	runCtx    context.Context
	cancelRun context.CancelFunc
	wg        sync.WaitGroup
	inflight  map[string]domain.PollPhase
	lastMaint time.Time

	failures chan domain.PollFailure
}

// NewScheduler creates a scheduler. notifier and policy may be nil.
func NewScheduler(
	repo *Repository,
	tokens driving.TokenManager,
	tracker driving.BaselineTracker,
	fetcher driven.SampleFetcher,
	notifier driven.Notifier,
	policy driven.PollPolicy,
	settings driven.SettingsProvider,
	log *zap.Logger,
) *Scheduler {
	return &Scheduler{
		repo:     repo,
		tokens:   tokens,
		tracker:  tracker,
		fetcher:  fetcher,
		notifier: notifier,
		policy:   policy,
		settings: settings,
		logger:   logger.OrNop(log).Named("scheduler"),
		now:      time.Now,
		inflight: make(map[string]domain.PollPhase),
		failures: make(chan domain.PollFailure, failureBuffer),
	}
}

// Failures returns the channel on which users that stop being scheduled
// are reported. Each suspension is sent once. The channel is never closed;
// when nobody reads it, reports are dropped.
func (s *Scheduler) Failures() <-chan domain.PollFailure {
	return s.failures
}

// Start begins dispatching. This method blocks until Stop is called or ctx
// is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	cfg := s.settings.Polling()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("polling config: %w", err)
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopped = false
	s.stopCh = make(chan struct{})
	s.runCtx, s.cancelRun = context.WithCancel(ctx)
	runCtx, stopCh := s.runCtx, s.stopCh
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	s.logger.Info("scheduler started",
		zap.Int("workers", cfg.Workers),
		zap.Duration("tick", cfg.Tick))

	jobs := make(chan string)
	g, gctx := errgroup.WithContext(runCtx)
	for range cfg.Workers {
		g.Go(func() error {
			for userID := range jobs {
				s.execute(runCtx, userID)
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(jobs)
		return s.dispatch(gctx, stopCh, jobs, cfg.Tick)
	})

	err := g.Wait()
	s.logger.Info("scheduler stopped")
	if errors.Is(err, context.Canceled) && ctx.Err() == nil {
		// Cancelled by Stop after the grace period.
		return nil
	}
	return err
}

// Stop stops dispatching and waits for in-flight cycles. Cycles still
// running after ShutdownTimeout are cancelled; their poll state is still
// written.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.stopped = true
	close(s.stopCh)
	cancel := s.cancelRun
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	grace := s.settings.Polling().ShutdownTimeout
	select {
	case <-done:
	case <-time.After(grace):
		s.logger.Warn("shutdown grace period elapsed, cancelling in-flight cycles",
			zap.Duration("grace", grace))
		cancel()
		<-done
	}
	cancel()
	return nil
}

// dispatch is the main scheduler loop.
func (s *Scheduler) dispatch(ctx context.Context, stopCh <-chan struct{}, jobs chan<- string, tick time.Duration) error {
	// Check for due users immediately on startup
	if !s.dispatchDue(ctx, stopCh, jobs) {
		return nil
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			if !s.dispatchDue(ctx, stopCh, jobs) {
				return nil
			}
		}
	}
}

// dispatchDue hands every due user to the workers. It returns false when
// the scheduler is stopping.
func (s *Scheduler) dispatchDue(ctx context.Context, stopCh <-chan struct{}, jobs chan<- string) bool {
	creds, err := s.repo.ActiveUsers(ctx)
	if err != nil {
		s.logger.Error("failed to list active users", zap.Error(err))
		return true
	}

	cfg := s.settings.Polling()
	now := s.now()
	for i := range creds {
		userID := creds[i].UserID
		state, err := s.repo.PollState(ctx, userID)
		if err != nil {
			s.logger.Error("failed to load poll state", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		s.liftIfReauthorized(ctx, &creds[i], state)
		if state.Suspended() {
			continue
		}

		interval := s.interval(userID, len(creds), cfg)
		if !state.DueAt(now, interval, cfg.MaxBackoff) {
			continue
		}
		if s.policy != nil {
			if d := s.policy.Decide(userID, now); d.SkipPoll {
				s.logger.Debug("poll skipped by policy", zap.String("user_id", userID), zap.String("reason", d.Reason))
				continue
			}
		}
		if !s.claim(userID) {
			continue
		}
		// A cycle that finished between the read and the claim has already
		// moved NextDue forward.
		if !s.stillDue(ctx, userID, now, interval, cfg.MaxBackoff) {
			s.release(userID)
			continue
		}

		select {
		case jobs <- userID:
		case <-stopCh:
			s.release(userID)
			return false
		case <-ctx.Done():
			s.release(userID)
			return false
		}
	}

	s.maintain(ctx, cfg)
	return true
}

func (s *Scheduler) stillDue(ctx context.Context, userID string, now time.Time, interval, maxBackoff time.Duration) bool {
	state, err := s.repo.PollState(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load poll state", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	return state.DueAt(now, interval, maxBackoff)
}

// interval returns the user's poll interval raised to the rate-budget floor.
func (s *Scheduler) interval(userID string, activeUsers int, cfg domain.PollingConfig) time.Duration {
	return domain.EffectiveInterval(s.settings.UserSettings(userID).PollInterval, activeUsers, cfg.RateBudget)
}

// liftIfReauthorized clears a needs-reauth suspension once the user's
// credential has been replaced after the suspension began.
func (s *Scheduler) liftIfReauthorized(ctx context.Context, cred *domain.Credential, state *domain.PollState) {
	if state.Suspension != domain.SuspensionNeedsReauth || !cred.UpdatedAt.After(state.SuspendedAt) {
		return
	}
	state.Suspension = domain.SuspensionNone
	state.SuspendedAt = time.Time{}
	state.ConsecutiveFailures = 0
	state.LastError = ""
	if err := s.repo.PollStates().SavePollState(ctx, state); err != nil {
		s.logger.Error("failed to save poll state", zap.String("user_id", state.UserID), zap.Error(err))
		return
	}
	s.logger.Info("credential replaced, resuming polling", zap.String("user_id", state.UserID))
}

// claim marks userID as in flight. It returns false if it already is.
func (s *Scheduler) claim(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[userID]; busy {
		return false
	}
	s.inflight[userID] = domain.PhaseDue
	return true
}

func (s *Scheduler) setPhase(userID string, phase domain.PollPhase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inflight[userID]; ok {
		s.inflight[userID] = phase
	}
}

func (s *Scheduler) release(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, userID)
}

// execute runs a dispatched cycle and releases the user afterwards.
func (s *Scheduler) execute(ctx context.Context, userID string) {
	s.wg.Add(1)
	defer s.wg.Done()
	defer s.release(userID)

	if _, err := s.cycle(ctx, userID); err != nil {
		s.logger.Debug("poll cycle failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// PollNow runs one cycle for userID in the caller's goroutine. It runs
// even if the user is suspended; a successful cycle lifts the suspension.
func (s *Scheduler) PollNow(ctx context.Context, userID string) (*domain.PollRecord, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil, domain.ErrSchedulerStopped
	}
	runCtx := s.runCtx
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	if _, err := s.repo.Credentials().Get(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, domain.ErrUnauthenticated)
		}
		return nil, err
	}

	if !s.claim(userID) {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrPollInProgress)
	}
	defer s.release(userID)

	if runCtx != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(runCtx, cancel)
		defer stop()
	}
	return s.cycle(ctx, userID)
}

// Resume clears a user's suspension and failure count.
func (s *Scheduler) Resume(ctx context.Context, userID string) error {
	if _, err := s.repo.Credentials().Get(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("user %s: %w", userID, domain.ErrUnauthenticated)
		}
		return err
	}
	state, err := s.repo.PollState(ctx, userID)
	if err != nil {
		return err
	}
	state.Suspension = domain.SuspensionNone
	state.SuspendedAt = time.Time{}
	state.ConsecutiveFailures = 0
	state.LastError = ""
	if err := s.repo.PollStates().SavePollState(ctx, state); err != nil {
		return fmt.Errorf("save poll state: %w", err)
	}
	s.logger.Info("polling resumed", zap.String("user_id", userID))
	return nil
}

// Snapshot returns the live scheduling state of every active user.
func (s *Scheduler) Snapshot(ctx context.Context) ([]domain.UserSnapshot, error) {
	creds, err := s.repo.ActiveUsers(ctx)
	if err != nil {
		return nil, err
	}

	cfg := s.settings.Polling()
	now := s.now()
	out := make([]domain.UserSnapshot, 0, len(creds))
	for _, cred := range creds {
		state, err := s.repo.PollState(ctx, cred.UserID)
		if err != nil {
			return nil, err
		}
		interval := s.interval(cred.UserID, len(creds), cfg)
		snap := domain.UserSnapshot{
			UserID:  cred.UserID,
			State:   *state,
			NextDue: state.NextDue(interval, cfg.MaxBackoff),
		}

		s.mu.Lock()
		phase, busy := s.inflight[cred.UserID]
		s.mu.Unlock()
		switch {
		case busy:
			snap.Phase = phase
		case state.Suspended():
			snap.Phase = domain.PhaseSuspended
		case state.DueAt(now, interval, cfg.MaxBackoff):
			snap.Phase = domain.PhaseDue
		default:
			snap.Phase = domain.PhaseIdle
		}
		out = append(out, snap)
	}
	return out, nil
}

// cycle runs fetch, detect and persist for one claimed user and records
// the outcome. The returned record is non-nil whenever the cycle ran.
func (s *Scheduler) cycle(ctx context.Context, userID string) (*domain.PollRecord, error) {
	state, err := s.repo.PollState(ctx, userID)
	if err != nil {
		return nil, err
	}

	rec := &domain.PollRecord{UserID: userID, StartedAt: s.now()}
	s.setPhase(userID, domain.PhaseFetching)

	err = s.safeFetch(ctx, userID, rec)

	rec.EndedAt = s.now()
	if err == nil {
		s.setPhase(userID, domain.PhaseSucceeded)
	} else {
		s.setPhase(userID, domain.PhaseFailed)
	}
	s.finish(ctx, state, rec, err)
	return rec, err
}

// safeFetch converts a panic in the cycle into a permanent failure so
// that one bad payload cannot take down the process.
func (s *Scheduler) safeFetch(ctx context.Context, userID string, rec *domain.PollRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in poll cycle", zap.String("user_id", userID), zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("%w: panic: %v", domain.ErrPermanent, r)
		}
	}()
	return s.fetchAndRecord(ctx, userID, rec)
}

func (s *Scheduler) fetchAndRecord(ctx context.Context, userID string, rec *domain.PollRecord) error {
	cfg := s.settings.Polling()

	token, err := s.tokens.GetValidToken(ctx, userID)
	if err != nil {
		return err
	}

	now := s.now()
	since := now.Add(-cfg.InitialLookback)
	last, err := s.repo.Samples().Last(ctx, userID)
	if err != nil {
		return fmt.Errorf("last sample: %w", err)
	}
	if last != nil {
		since = last.ObservedAt.Add(-fetchOverlap)
	}
	if cfg.Retention > 0 && since.Before(now.Add(-cfg.Retention)) {
		since = now.Add(-cfg.Retention)
	}

	readings, err := s.fetch(ctx, token, userID, since, now, cfg.FetchTimeout)
	if errors.Is(err, domain.ErrAuth) {
		s.logger.Info("access token rejected by API, forcing refresh", zap.String("user_id", userID))
		token, err = s.tokens.ForceRefresh(ctx, userID)
		if err != nil {
			return err
		}
		readings, err = s.fetch(ctx, token, userID, since, now, cfg.FetchTimeout)
		if errors.Is(err, domain.ErrAuth) {
			return fmt.Errorf("%w: token rejected after refresh: %w", domain.ErrRefreshFailed, err)
		}
	}
	if err != nil {
		return err
	}

	slices.SortStableFunc(readings, func(a, b domain.Reading) int {
		return a.ObservedAt.Compare(b.ObservedAt)
	})

	for _, r := range readings {
		if !r.Accepts() {
			s.logger.Debug("reading skipped",
				zap.String("user_id", userID),
				zap.Int("bpm", r.BPM),
				zap.String("source", r.Source),
				zap.Time("observed_at", r.ObservedAt))
			continue
		}
		sample := domain.Sample{
			UserID:     userID,
			BPM:        r.BPM,
			ObservedAt: r.ObservedAt.UTC(),
			FetchedAt:  now,
			Source:     r.Source,
		}
		eval, inserted, err := s.tracker.Record(ctx, sample)
		if err != nil {
			return fmt.Errorf("record sample: %w", err)
		}
		if !inserted {
			continue
		}
		rec.SamplesStored++
		if eval.Anomalous {
			rec.Anomalies++
			s.notify(sample, eval)
		}
	}
	return nil
}

func (s *Scheduler) fetch(
	ctx context.Context,
	token, userID string,
	since, until time.Time,
	timeout time.Duration,
) ([]domain.Reading, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	readings, err := s.fetcher.Fetch(fetchCtx, token, userID, since, until)
	if err != nil {
		return nil, fmt.Errorf("fetch heart rate: %w", err)
	}
	return readings, nil
}

// notify emits an anomaly event on its own goroutine.
func (s *Scheduler) notify(sample domain.Sample, eval domain.Evaluation) {
	log := s.logger.With(
		zap.String("user_id", sample.UserID),
		zap.Int("bpm", sample.BPM),
		zap.Float64("baseline_bpm", eval.BaselineBPM),
		zap.Float64("deviation", eval.Deviation),
		zap.Time("observed_at", sample.ObservedAt))

	if s.notifier == nil {
		log.Info("anomaly detected")
		return
	}
	if s.policy != nil {
		if d := s.policy.Decide(sample.UserID, s.now()); d.SuppressNotify {
			log.Info("anomaly detected, notification suppressed", zap.String("reason", d.Reason))
			return
		}
	}

	event := domain.AnomalyEvent{
		ID:          uuid.NewString(),
		UserID:      sample.UserID,
		BPM:         sample.BPM,
		BaselineBPM: eval.BaselineBPM,
		Deviation:   eval.Deviation,
		ObservedAt:  sample.ObservedAt,
	}
	timeout := s.settings.Polling().NotifyTimeout

	// The calling cycle holds a wg slot, so the counter is non-zero here.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, event); err != nil {
			log.Warn("anomaly notification failed", zap.String("event_id", event.ID), zap.Error(err))
			return
		}
		log.Info("anomaly notified", zap.String("event_id", event.ID))
	}()
}

// finish applies the cycle outcome to the user's poll state and history.
func (s *Scheduler) finish(ctx context.Context, state *domain.PollState, rec *domain.PollRecord, err error) {
	cfg := s.settings.Polling()
	log := s.logger.With(zap.String("user_id", state.UserID))
	state.LastFetchAt = rec.StartedAt

	var suspension domain.Suspension
	switch {
	case err == nil:
		rec.Status = domain.StatusSucceeded
		state.LastStatus = domain.StatusSucceeded
		state.ConsecutiveFailures = 0
		state.LastError = ""
		if state.Suspended() {
			log.Info("suspension cleared by successful poll", zap.String("suspension", string(state.Suspension)))
		}
		state.Suspension = domain.SuspensionNone
		state.SuspendedAt = time.Time{}
		log.Debug("poll succeeded",
			zap.Int("samples_stored", rec.SamplesStored),
			zap.Int("anomalies", rec.Anomalies))

	case ctx.Err() != nil && errors.Is(err, context.Canceled):
		// Interrupted by shutdown; not the user's fault.
		rec.Status = domain.StatusFailed
		state.LastStatus = domain.StatusFailed
		state.LastError = "interrupted"
		log.Info("poll interrupted")

	case domain.NeedsReauth(err):
		suspension = domain.SuspensionNeedsReauth

	case errors.Is(err, domain.ErrPermanent):
		suspension = domain.SuspensionHalted

	default:
		rec.Status = domain.StatusFailed
		state.LastStatus = domain.StatusFailed
		state.LastError = err.Error()
		state.ConsecutiveFailures++
		interval := s.interval(state.UserID, 1, cfg)
		log.Warn("poll failed, backing off",
			zap.Error(err),
			zap.Int("consecutive_failures", state.ConsecutiveFailures),
			zap.Duration("backoff", domain.Backoff(interval, cfg.MaxBackoff, state.ConsecutiveFailures)))
	}

	if suspension != domain.SuspensionNone {
		rec.Status = domain.StatusFailed
		state.LastStatus = domain.StatusFailed
		state.LastError = err.Error()
		state.ConsecutiveFailures++
		state.Suspension = suspension
		state.SuspendedAt = rec.EndedAt
		log.Error("polling suspended",
			zap.String("suspension", string(suspension)),
			zap.Error(err))
		s.report(domain.PollFailure{
			UserID:     state.UserID,
			Suspension: suspension,
			Err:        err,
			At:         rec.EndedAt,
		})
	}
	if err != nil {
		rec.Error = err.Error()
	}

	// Bookkeeping must land even if the cycle was cancelled.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stateWriteTimeout)
	defer cancel()
	if saveErr := s.repo.PollStates().SavePollState(wctx, state); saveErr != nil {
		log.Error("failed to save poll state", zap.Error(saveErr))
	}
	if recErr := s.repo.PollStates().RecordPoll(wctx, rec); recErr != nil {
		log.Error("failed to record poll", zap.Error(recErr))
	}
}

func (s *Scheduler) report(f domain.PollFailure) {
	select {
	case s.failures <- f:
	default:
		s.logger.Warn("failure channel full, dropping report", zap.String("user_id", f.UserID))
	}
}

// maintain prunes expired samples and old poll history at most once per
// maintenanceInterval.
func (s *Scheduler) maintain(ctx context.Context, cfg domain.PollingConfig) {
	now := s.now()
	s.mu.Lock()
	if !s.lastMaint.IsZero() && now.Sub(s.lastMaint) < maintenanceInterval {
		s.mu.Unlock()
		return
	}
	s.lastMaint = now
	s.mu.Unlock()

	if cfg.Retention > 0 {
		n, err := s.repo.Samples().Prune(ctx, now.Add(-cfg.Retention))
		if err != nil {
			s.logger.Error("failed to prune samples", zap.Error(err))
		} else if n > 0 {
			s.logger.Info("pruned expired samples", zap.Int64("deleted", n))
		}
	}
	if err := s.repo.PollStates().PruneHistory(ctx, historyKeep); err != nil {
		s.logger.Error("failed to prune poll history", zap.Error(err))
	}
}
