package claim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/iufi-bot/iufi/iufi/cardpool"
	"github.com/iufi-bot/iufi/iufi/config"
	"github.com/iufi-bot/iufi/iufi/database/models"
	"github.com/iufi-bot/iufi/iufi/database/patch"
	"github.com/iufi-bot/iufi/iufi/interfaces"
	"github.com/iufi-bot/iufi/iufi/logger"
)

var (
	ErrUserBusy    = errors.New("you already have an action in progress")
	ErrInvalidSlot = errors.New("invalid claim slot")
)

// CooldownError is returned when a roll is attempted too early.
type CooldownError struct {
	Action    string
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s on cooldown for %s", e.Action, e.Remaining.Round(time.Second))
}

type Config struct {
	Window         time.Duration
	PriorityWindow time.Duration
	RollCooldown   time.Duration
	ClaimCooldown  time.Duration
	RollAmount     int
}

func DefaultConfig() Config {
	return Config{
		Window:         config.ClaimWindow,
		PriorityWindow: config.PriorityClaimWindow,
		RollCooldown:   config.RollCooldown,
		ClaimCooldown:  config.ClaimCooldown,
		RollAmount:     cardpool.DefaultRollAmount,
	}
}

type Status int

const (
	StatusClaimed Status = iota
	// StatusTaken means somebody else won the slot; Result.Winner names them.
	StatusTaken
	// StatusAlreadyClaimed means the user already won another slot of the session.
	StatusAlreadyClaimed
	// StatusPriority means the slot is still reserved for the roller.
	StatusPriority
	StatusCooldown
	StatusExpired
	// StatusBusy means the user is in the middle of another roll, claim or card
	// operation.
	StatusBusy
)

type Result struct {
	Status    Status
	Card      *cardpool.Card
	Winner    snowflake.ID
	Remaining time.Duration
}

type Option func(*Manager)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager runs roll sessions: it guards users against overlapping rolls, hands
// out cards to claimers and persists every win before acknowledging it.
type Manager struct {
	pool  *cardpool.Pool
	store interfaces.Store
	cfg   Config
	now   func() time.Time

	sessions    sync.Map // session id -> *Session
	activeUsers sync.Map // user id -> time the lock was taken
	seq         atomic.Uint64
}

func NewManager(pool *cardpool.Pool, store interfaces.Store, cfg Config, opts ...Option) *Manager {
	def := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.PriorityWindow < 0 || cfg.PriorityWindow > cfg.Window {
		cfg.PriorityWindow = def.PriorityWindow
	}
	if cfg.RollAmount <= 0 {
		cfg.RollAmount = def.RollAmount
	}
	m := &Manager{pool: pool, store: store, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Config() Config {
	return m.cfg
}

// LockUser marks the user busy. It fails if the user already holds the lock.
func (m *Manager) LockUser(userID snowflake.ID) bool {
	_, loaded := m.activeUsers.LoadOrStore(userID, m.now())
	return !loaded
}

func (m *Manager) ReleaseUser(userID snowflake.ID) {
	m.activeUsers.Delete(userID)
}

func (m *Manager) IsBusy(userID snowflake.ID) bool {
	_, ok := m.activeUsers.Load(userID)
	return ok
}

// Roll draws cards for the user and opens a claim session for them. When tier is
// set the last card is guaranteed to be of that tier. The roll cooldown is
// stored on the user before the session is returned.
func (m *Manager) Roll(ctx context.Context, userID snowflake.ID, tier *cardpool.Tier) (*Session, error) {
	if !m.LockUser(userID) {
		return nil, ErrUserBusy
	}
	defer m.ReleaseUser(userID)

	user, err := m.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	now := m.now()
	if now.Before(user.RollCooldown) {
		return nil, &CooldownError{Action: "roll", Remaining: user.RollCooldown.Sub(now)}
	}

	var opts []cardpool.RollOption
	if user.Luck.Active(now) {
		opts = append(opts, cardpool.WithLuck(cardpool.UniformLuck(user.Luck.Multiplier)))
	}
	if tier != nil {
		opts = append(opts, cardpool.Include(*tier))
	}
	cards, err := m.pool.Roll(m.cfg.RollAmount, opts...)
	if err != nil {
		return nil, err
	}

	if m.cfg.RollCooldown > 0 {
		if _, err := m.store.UpdateUser(ctx, userID, patch.Set(models.UserRollCooldown, now.Add(m.cfg.RollCooldown))); err != nil {
			return nil, fmt.Errorf("failed to store roll cooldown: %w", err)
		}
	}

	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID()
	}
	return m.Open(userID, ids), nil
}

// Open registers a session for already rolled cards.
func (m *Manager) Open(roller snowflake.ID, cardIDs []string) *Session {
	id := fmt.Sprintf("%d-%d", roller, m.seq.Add(1))
	s := newSession(id, roller, cardIDs, m.now())
	m.sessions.Store(id, s)
	slog.Debug("Claim session opened",
		slog.String("type", logger.AttrPool),
		slog.String("session", id),
		slog.Any("cards", cardIDs),
	)
	return s
}

func (m *Manager) Session(id string) (*Session, bool) {
	v, ok := m.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Claim tries to give slot of the session to userID. Losing is reported through
// Result.Status, not as an error; errors are reserved for bad input and for
// persistence failures, after which the card is back in the pool.
func (m *Manager) Claim(ctx context.Context, sessionID string, slot int, userID snowflake.ID) (Result, error) {
	s, ok := m.Session(sessionID)
	if !ok {
		return Result{Status: StatusExpired}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := m.now()
	if s.expired || now.Sub(s.CreatedAt) >= m.cfg.Window {
		return Result{Status: StatusExpired}, nil
	}
	if slot < 0 || slot >= len(s.CardIDs) {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	if winner := s.winners[slot]; winner != 0 {
		return Result{Status: StatusTaken, Winner: winner}, nil
	}
	if _, ok := s.claimers[userID]; ok {
		return Result{Status: StatusAlreadyClaimed}, nil
	}
	if userID != s.Roller {
		if left := m.cfg.PriorityWindow - now.Sub(s.CreatedAt); left > 0 {
			return Result{Status: StatusPriority, Remaining: left}, nil
		}
	}

	// The cooldown read below stays valid until the claim is stored only while
	// no other session can claim for the same user.
	if !m.LockUser(userID) {
		return Result{Status: StatusBusy}, nil
	}
	defer m.ReleaseUser(userID)

	user, err := m.store.GetUser(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load user: %w", err)
	}
	if now.Before(user.ClaimCooldown) {
		return Result{Status: StatusCooldown, Remaining: user.ClaimCooldown.Sub(now)}, nil
	}

	cardID := s.CardIDs[slot]
	card := m.pool.GetCard(cardID)
	if card == nil {
		return Result{}, fmt.Errorf("%w: %s", cardpool.ErrCardNotFound, cardID)
	}
	before := card.Snapshot()

	if _, err := m.pool.Claim(cardID, userID); err != nil {
		var claimed *cardpool.ClaimedError
		if errors.As(err, &claimed) {
			s.winners[slot] = claimed.Owner
			return Result{Status: StatusTaken, Winner: claimed.Owner}, nil
		}
		return Result{}, err
	}
	// The card was free when claimed, whatever the snapshot raced with.
	before.OwnerID = 0

	if err := m.persistClaim(ctx, card, before, userID, now); err != nil {
		return Result{}, err
	}

	s.winners[slot] = userID
	s.claimers[userID] = slot
	logger.LogPool("Card claimed",
		slog.String("session", s.ID),
		slog.String("card", cardID),
		slog.String("tier", card.Tier().String()),
		slog.String("user_id", userID.String()),
	)
	return Result{Status: StatusClaimed, Card: card}, nil
}

func (m *Manager) persistClaim(ctx context.Context, card *cardpool.Card, before cardpool.Snapshot, userID snowflake.ID, now time.Time) error {
	id := card.ID()
	err := m.store.UpdateCards(ctx, []string{id},
		patch.Set(models.CardOwner, int64(userID)),
		patch.Unset(models.CardTag),
		patch.Unset(models.CardFrame),
	)
	if err != nil {
		m.rollback(before)
		return fmt.Errorf("failed to store card owner: %w", err)
	}

	userOps := []patch.Op[models.User]{patch.Push(models.UserCards, id)}
	if m.cfg.ClaimCooldown > 0 {
		userOps = append(userOps, patch.Set(models.UserClaimCooldown, now.Add(m.cfg.ClaimCooldown)))
	}
	if _, err := m.store.UpdateUser(ctx, userID, userOps...); err != nil {
		if revertErr := m.store.UpdateCards(ctx, []string{id}, patch.Unset(models.CardOwner)); revertErr != nil {
			logger.LogDivergent(logger.AttrDB, "Card owner stored but user update failed and could not be reverted", revertErr,
				slog.String("card", id),
				slog.String("user_id", userID.String()),
			)
		}
		m.rollback(before)
		return fmt.Errorf("failed to store claimed card: %w", err)
	}
	return nil
}

func (m *Manager) rollback(before cardpool.Snapshot) {
	if err := m.pool.Restore(before); err != nil {
		logger.LogDivergent(logger.AttrPool, "Failed to roll back card after persistence error", err,
			slog.String("card", before.ID),
		)
	}
}

// Expire closes the session so later claims report StatusExpired. It returns the
// session, or false when it was already gone.
func (m *Manager) Expire(id string) (*Session, bool) {
	v, ok := m.sessions.LoadAndDelete(id)
	if !ok {
		return nil, false
	}
	s := v.(*Session)
	s.mu.Lock()
	s.expired = true
	s.mu.Unlock()
	return s, true
}

func (m *Manager) cleanupExpired() {
	now := m.now()
	m.sessions.Range(func(key, value any) bool {
		s := value.(*Session)
		if now.Sub(s.CreatedAt) >= m.cfg.Window {
			m.Expire(key.(string))
		}
		return true
	})
	// A user lock outliving a full window means its roll never finished.
	m.activeUsers.Range(func(key, value any) bool {
		if now.Sub(value.(time.Time)) > m.cfg.Window {
			m.activeUsers.Delete(key)
		}
		return true
	})
}

func (m *Manager) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(config.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.cleanupExpired()
			}
		}
	}()
}
