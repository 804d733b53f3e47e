package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kamstrup/intmap"
	"go.uber.org/zap"

	"github.com/jaminalder/atetria/internal/config"
	"github.com/jaminalder/atetria/internal/domain"
)

// Errors exposed by the service layer.
var (
	ErrNotFound = errors.New("game not found")
	ErrClosed   = errors.New("service closed")
)

// subscriberBuffer is how many updates a subscriber may lag before it is
// dropped.
const subscriberBuffer = 16

// UpdateKind tags a broadcast.
type UpdateKind string

const (
	UpdateBoard    UpdateKind = "board"
	UpdateGameOver UpdateKind = "gameover"
)

// Update is one broadcast to subscribers. Data is the rendered snapshot.
type Update struct {
	Kind UpdateKind
	Data []byte
}

// PieceView locates the falling piece.
type PieceView struct {
	Type        string `json:"type"`
	Orientation int    `json:"orientation"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
}

// Snapshot is a point-in-time copy of a game. Rows lists the board top row
// first, one letter per cell and '.' for empty cells.
type Snapshot struct {
	ID        string     `json:"id"`
	State     string     `json:"state"`
	Score     int        `json:"score"`
	Lines     int        `json:"lines"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	Rows      []string   `json:"rows"`
	Current   *PieceView `json:"current,omitempty"`
	Held      string     `json:"held,omitempty"`
	Next      []string   `json:"next"`
	ElapsedMS int64      `json:"elapsed_ms"`
	Created   time.Time  `json:"created"`
	Updated   time.Time  `json:"updated"`
}

type subscriber struct {
	id        uint32
	ch        chan Update
	closeOnce sync.Once
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.ch) }) }

// session is the in-memory state tracked per game. Everything but stop is
// guarded by Service.mu.
type session struct {
	id      string
	game    *domain.Game
	created time.Time
	updated time.Time
	over    bool
	subs    *intmap.Map[uint32, *subscriber]

	stop     chan struct{}
	stopOnce sync.Once
}

func (ss *session) halt() { ss.stopOnce.Do(func() { close(ss.stop) }) }

// Service manages games, their gravity tickers and subscribers.
type Service struct {
	mu      sync.Mutex
	cfg     config.GameConfig
	log     *zap.Logger
	games   map[string]*session
	created uint64
	nextSub uint32
	closed  bool
	render  func(Snapshot) []byte
	tickers sync.WaitGroup
}

// NewService creates a service whose broadcasts carry JSON snapshots. cfg
// must already be validated.
func NewService(cfg config.GameConfig, logger *zap.Logger) *Service {
	return NewServiceWithRenderer(cfg, logger, nil)
}

// NewServiceWithRenderer allows injecting a renderer for broadcast payloads.
func NewServiceWithRenderer(cfg config.GameConfig, logger *zap.Logger, renderer func(Snapshot) []byte) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = renderJSON
	}
	return &Service{
		cfg:    cfg,
		log:    logger,
		games:  make(map[string]*session),
		render: renderer,
	}
}

func renderJSON(snap Snapshot) []byte {
	b, _ := json.Marshal(snap)
	return b
}

// CreateGame creates and registers a new game and starts its ticker.
func (s *Service) CreateGame() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	s.created++
	src, err := newSource(s.cfg, gameRand(s.cfg.Seed, s.created))
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	board := domain.NewBoard(s.cfg.Width, s.cfg.Height, s.cfg.TopSpace)
	board.SetDebug(s.cfg.Debug)
	bus := domain.NewBus()
	game, err := domain.NewGame(board, src, bus, s.cfg.NextQueueSize)
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}

	now := time.Now()
	ss := &session{
		id:      newGameID(),
		game:    game,
		created: now,
		updated: now,
		subs:    intmap.New[uint32, *subscriber](4),
		stop:    make(chan struct{}),
	}
	// Published from inside Game.Command, which runs under s.mu.
	bus.Subscribe(func(e domain.Event) {
		if e == domain.EventGameOver {
			ss.over = true
		}
	})
	s.games[ss.id] = ss
	if s.cfg.TickInterval > 0 {
		s.tickers.Add(1)
		go s.runTicker(ss, s.cfg.TickInterval)
	}
	s.log.Info("game created",
		zap.String("game_id", ss.id),
		zap.String("randomizer", s.cfg.Randomizer),
		zap.Duration("tick_interval", s.cfg.TickInterval),
	)
	snap := s.snapshotLocked(ss)
	return &snap, nil
}

// Get returns a snapshot of the game if present.
func (s *Service) Get(id string) (*Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.games[id]
	if !ok {
		return nil, false
	}
	snap := s.snapshotLocked(ss)
	return &snap, true
}

// Command applies cmd to the game and broadcasts the new state.
func (s *Service) Command(id string, cmd domain.Command) (*Snapshot, error) {
	return s.apply(id, func(g *domain.Game) error { return g.Command(cmd) })
}

// Tick advances the game by one gravity step and broadcasts the new state.
func (s *Service) Tick(id string) (*Snapshot, error) {
	return s.apply(id, (*domain.Game).Tick)
}

// Delete stops the game and closes its subscribers.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.games[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.games, id)
	ss.halt()
	closeSubsLocked(ss)
	s.log.Info("game deleted", zap.String("game_id", id))
	return nil
}

// Close stops every ticker and subscriber and rejects further games. It
// waits for running tickers to return.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	for id, ss := range s.games {
		ss.halt()
		closeSubsLocked(ss)
		delete(s.games, id)
	}
	s.mu.Unlock()
	s.tickers.Wait()
}

// Subscribe registers a subscriber for a game. Returns a channel and an
// unsubscribe func. The channel is closed on unsubscribe, on ctx
// cancellation, when the game is deleted, or when the subscriber falls
// subscriberBuffer updates behind. For an unknown game it is closed already.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan Update, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &subscriber{ch: make(chan Update, subscriberBuffer)}
	ss, ok := s.games[id]
	if !ok {
		sub.close()
		return sub.ch, func() {}
	}
	s.nextSub++
	sub.id = s.nextSub
	ss.subs.Put(sub.id, sub)

	var once sync.Once
	release := func() {
		once.Do(func() {
			s.mu.Lock()
			ss.subs.Del(sub.id)
			sub.close()
			s.mu.Unlock()
		})
	}
	stop := context.AfterFunc(ctx, release)
	return sub.ch, func() {
		stop()
		release()
	}
}

// apply runs fn against the game and fans the result out. Sends never
// block, so the fan-out happens under the lock; subscribers are only ever
// closed under the same lock.
func (s *Service) apply(id string, fn func(*domain.Game) error) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	wasOver := ss.over
	if err := fn(ss.game); err != nil {
		return nil, err
	}
	ss.updated = time.Now()
	snap := s.snapshotLocked(ss)
	payload := s.render(snap)
	s.broadcastLocked(ss, Update{Kind: UpdateBoard, Data: payload})
	if ss.over && !wasOver {
		ss.halt()
		s.broadcastLocked(ss, Update{Kind: UpdateGameOver, Data: payload})
		s.log.Info("game over",
			zap.String("game_id", ss.id),
			zap.Int("score", snap.Score),
			zap.Int("lines", snap.Lines),
			zap.Duration("elapsed", ss.game.ElapsedTime()),
		)
	}
	return &snap, nil
}

func (s *Service) broadcastLocked(ss *session, u Update) {
	var slow []uint32
	ss.subs.ForEach(func(id uint32, sub *subscriber) bool {
		select {
		case sub.ch <- u:
		default:
			slow = append(slow, id)
		}
		return true
	})
	for _, id := range slow {
		if sub, ok := ss.subs.Get(id); ok {
			sub.close()
			ss.subs.Del(id)
		}
		s.log.Debug("dropped slow subscriber", zap.String("game_id", ss.id), zap.Uint32("subscriber", id))
	}
}

func closeSubsLocked(ss *session) {
	ss.subs.ForEach(func(_ uint32, sub *subscriber) bool {
		sub.close()
		return true
	})
	ss.subs.Clear()
}

func (s *Service) snapshotLocked(ss *session) Snapshot {
	g := ss.game
	b := g.Board()
	snap := Snapshot{
		ID:        ss.id,
		State:     g.State().String(),
		Score:     g.Score(),
		Lines:     g.Lines(),
		Width:     b.Width(),
		Height:    b.Height(),
		Rows:      strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n"),
		Next:      make([]string, 0, g.NextQueueSize()),
		ElapsedMS: g.ElapsedTime().Milliseconds(),
		Created:   ss.created,
		Updated:   ss.updated,
	}
	if p, pos, ok := g.Current(); ok {
		snap.Current = &PieceView{Type: p.Type().String(), Orientation: p.Orientation(), X: pos.X, Y: pos.Y}
	}
	if h, ok := g.Held(); ok {
		snap.Held = h.Type().String()
	}
	for _, p := range g.Preview() {
		snap.Next = append(snap.Next, p.Type().String())
	}
	return snap
}
