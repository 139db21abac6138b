package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"giveaway/internal/metrics"
	"giveaway/internal/models"

	"github.com/google/logger"
)

// Notifier carries lottery announcements to the chat platform.
type Notifier interface {
	LotteryStarted(ctx context.Context, res models.StartResult) error
	LotteryResolved(ctx context.Context, res models.ResolveResult) error
}

// DefaultStoreTimeout bounds a single snapshot load or save.
const DefaultStoreTimeout = 10 * time.Second

// LotteryService is the only entry point for commands and chat events.
// It guarantees at most one running lottery and serializes every mutation.
type LotteryService struct {
	mu        sync.Mutex
	state     *LotteryState
	scheduler *Scheduler
	persist   *persister
	closed    bool

	notifier      Notifier
	now           func() time.Time
	rnd           RandSource
	storeTimeout  time.Duration
	lockOnResolve bool
}

// Option configures a LotteryService.
type Option func(*LotteryService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *LotteryService) { s.now = now }
}

// WithRandSource makes draws reproducible.
func WithRandSource(rnd RandSource) Option {
	return func(s *LotteryService) { s.rnd = rnd }
}

// WithNotifier sets the announcement collaborator.
func WithNotifier(n Notifier) Option {
	return func(s *LotteryService) { s.notifier = n }
}

// WithStoreTimeout bounds each snapshot load and save.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *LotteryService) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithLockOnResolve controls whether resolution asks the collaborator to lock the scope.
func WithLockOnResolve(lock bool) Option {
	return func(s *LotteryService) { s.lockOnResolve = lock }
}

// NewLotteryService loads the stored snapshot and resumes a running lottery, if any.
// A lottery whose end time passed while the process was down resolves right away.
func NewLotteryService(ctx context.Context, gw Gateway, opts ...Option) *LotteryService {
	s := &LotteryService{
		now:           time.Now,
		storeTimeout:  DefaultStoreTimeout,
		lockOnResolve: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	snap := s.load(ctx, gw)
	s.state = NewLotteryState(snap, NewWeightedDrawer(s.rnd))
	s.scheduler = NewScheduler(s.now)
	s.persist = newPersister(gw, s.storeTimeout)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Running() {
		s.armLocked()
		logger.Infof("Resumed lottery %s in scope %s, ends at %s", s.state.ID(), s.state.ScopeID(), s.state.EndTime().Format(time.RFC3339))
	}
	s.publishLocked()
	return s
}

func (s *LotteryService) load(ctx context.Context, gw Gateway) models.Snapshot {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	snap, err := gw.Load(ctx)
	if err != nil {
		metrics.PersistenceFailure("load")
		logger.Warningf("%v: load snapshot: %v; starting idle", ErrPersistenceUnavailable, err)
		return models.DefaultSnapshot()
	}
	return snap
}

// Start opens a lottery. A running lottery that already reached its end time is resolved
// first so it is never dropped un-awarded.
func (s *LotteryService) Start(ctx context.Context, opts models.StartOptions) (models.StartResult, error) {
	if err := validateStart(opts); err != nil {
		return models.StartResult{}, err
	}

	res, version, expired, expiredVersion, err := s.startUnderLock(opts)
	if err != nil {
		return models.StartResult{}, err
	}

	if expired != nil {
		s.finishResolve(ctx, *expired, expiredVersion)
	}
	s.waitPersisted(ctx, version)
	logger.Infof("Lottery %s started in scope %s: %d winner(s) of %q, ends at %s",
		res.ID, res.ScopeID, res.WinnersCount, res.Prize, res.EndTime.Format(time.RFC3339))

	if s.notifier != nil {
		nctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
		if err := s.notifier.LotteryStarted(nctx, res); err != nil {
			logger.Errorf("%v: announce start of lottery %s: %v", ErrCollaboratorUnavailable, res.ID, err)
		}
		cancel()
	}
	return res, nil
}

func (s *LotteryService) startUnderLock(opts models.StartOptions) (res models.StartResult, version uint64, expired *models.ResolveResult, expiredVersion uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return res, 0, nil, 0, fmt.Errorf("start: service closed")
	}
	now := s.now()

	if s.state.Expired(now) {
		prev, v, _ := s.resolveLocked(models.ResolveTimer)
		expired, expiredVersion = &prev, v
	}

	res, err = s.state.Start(now, opts)
	if err != nil {
		return res, 0, expired, expiredVersion, err
	}
	version = s.persist.enqueue(s.state.Snapshot())
	s.armLocked()
	metrics.LotteryStarted()
	s.publishLocked()
	return res, version, expired, expiredVersion, nil
}

// RecordParticipant enters a participant in the running lottery. It reports whether the
// participant was added; idle lotteries and repeat participants are silently ignored.
func (s *LotteryService) RecordParticipant(participantID string, hasMultiplierRole bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked(participantID, hasMultiplierRole)
}

// HandleMessage turns a chat message into a participation. Bot authors and messages
// outside the running lottery's scope are ignored.
func (s *LotteryService) HandleMessage(ev models.MessageEvent) bool {
	if ev.Bot {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Running() || ev.ScopeID != s.state.ScopeID() {
		return false
	}
	role := s.state.MultiplierRoleID()
	hasRole := role != "" && slices.Contains(ev.RoleIDs, role)
	return s.recordLocked(ev.ParticipantID, hasRole)
}

func (s *LotteryService) recordLocked(participantID string, hasMultiplierRole bool) bool {
	if s.closed || s.state.Expired(s.now()) {
		return false
	}
	if !s.state.RecordParticipant(participantID, hasMultiplierRole) {
		return false
	}
	s.persist.enqueue(s.state.Snapshot())
	metrics.EntryRecorded(hasMultiplierRole && s.state.MultiplierRoleID() != "")
	s.publishLocked()
	return true
}

// Resolve closes the running lottery and draws its winners.
func (s *LotteryService) Resolve(ctx context.Context, reason models.ResolveReason) (models.ResolveResult, error) {
	res, version, err := s.resolveUnderLock(reason)
	if err != nil {
		return models.ResolveResult{}, err
	}

	s.finishResolve(ctx, res, version)
	return res, nil
}

func (s *LotteryService) resolveUnderLock(reason models.ResolveReason) (models.ResolveResult, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(reason)
}

// EndEarly is Resolve triggered by an operator.
func (s *LotteryService) EndEarly(ctx context.Context) (models.ResolveResult, error) {
	return s.Resolve(ctx, models.ResolveManual)
}

func (s *LotteryService) resolveLocked(reason models.ResolveReason) (models.ResolveResult, uint64, error) {
	s.scheduler.Cancel()
	res, err := s.state.Resolve(reason)
	if err != nil {
		return models.ResolveResult{}, 0, err
	}
	res.LockScope = s.lockOnResolve
	version := s.persist.enqueue(s.state.Snapshot())
	metrics.LotteryResolved(string(reason), len(res.Winners))
	s.publishLocked()
	return res, version, nil
}

func (s *LotteryService) finishResolve(ctx context.Context, res models.ResolveResult, version uint64) {
	s.waitPersisted(ctx, version)
	logger.Infof("Lottery %s in scope %s resolved (%s): %d participant(s), winners %v",
		res.ID, res.ScopeID, res.Reason, res.ParticipantCount, res.Winners)

	if s.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.notifier.LotteryResolved(nctx, res); err != nil {
		logger.Errorf("%v: announce result of lottery %s: %v", ErrCollaboratorUnavailable, res.ID, err)
	}
}

// Reroll draws one more winner from the running lottery. Nothing is changed.
func (s *LotteryService) Reroll() (models.RerollResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Reroll()
}

// Info reports on the running lottery.
func (s *LotteryService) Info() (models.InfoResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Info(s.now())
}

// Close cancels the pending resolution and flushes the last snapshot. A running lottery
// stays persisted and resumes on the next start.
func (s *LotteryService) Close() {
	if !s.markClosed() {
		return
	}
	s.persist.close()
}

func (s *LotteryService) markClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	s.scheduler.Cancel()
	return true
}

func (s *LotteryService) armLocked() {
	id := s.state.ID()
	s.scheduler.Arm(s.state.EndTime(), func() { s.resolveOnTimer(id) })
}

// resolveOnTimer runs on the scheduler's goroutine. The id guards against a timer that
// fired for a lottery that was already ended or replaced.
func (s *LotteryService) resolveOnTimer(id string) {
	res, version, err := func() (models.ResolveResult, uint64, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || s.state.ID() != id {
			return models.ResolveResult{}, 0, ErrNothingRunning
		}
		return s.resolveLocked(models.ResolveTimer)
	}()
	if err != nil {
		return
	}
	s.finishResolve(context.Background(), res, version)
}

func (s *LotteryService) waitPersisted(ctx context.Context, version uint64) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.persist.wait(ctx, version); err != nil {
		logger.Warningf("%v: snapshot write still pending: %v", ErrPersistenceUnavailable, err)
	}
}

func (s *LotteryService) publishLocked() {
	metrics.SetLottery(s.state.Running(), s.state.Participants())
}
