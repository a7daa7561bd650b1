// Package catalog holds the client-side state for the film catalog: the film
// list, its load status, the signed-in session, and the last pending error.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/andikarhm/filmku/internal/model"
)

// Store-level failure modes, enforced before the service is even called.
// The service checks them too; the local checks keep a stale UI honest.
var (
	ErrAuthRequired = errors.New("sign in required")
	ErrNotOwner     = errors.New("you do not own this film")
	ErrTitleEmpty   = errors.New("title is required")
)

// API is the subset of the catalog service the store calls.
type API interface {
	List(ctx context.Context) ([]model.Film, error)
	Create(ctx context.Context, token, title, cast, description string, image []byte) error
	Update(ctx context.Context, token string, id int64, title, cast, description string, image []byte) error
	Delete(ctx context.Context, token string, id int64) error
	ExchangeIdentity(ctx context.Context, idToken string) (model.Session, error)
}

// Sessions is the durable session store the catalog mirrors. Watch must
// replay the current value at subscription time before pushing updates.
type Sessions interface {
	Save(ctx context.Context, sess model.Session) error
	Clear(ctx context.Context) error
	Current(ctx context.Context) (*model.Session, error)
	Watch(ctx context.Context) (<-chan *model.Session, func(), error)
}

// Store orchestrates catalog reads and writes against the remote service.
//
// All state transitions are applied atomically under the mutex; network and
// persistence calls run outside it, so overlapping operations are allowed and
// not serialized. Results arriving after Close are discarded.
//
// Operations never return errors. Failures land in the pending error message,
// which the presentation layer reads and clears after display.
type Store struct {
	api      API
	sessions Sessions
	log      *slog.Logger

	cancelWatch func()

	mu      sync.Mutex
	films   []model.Film
	status  model.Status
	session *model.Session
	lastErr string
	closed  bool
	subs    map[int]chan struct{}
	nextSub int
}

// NewStore creates a store and starts mirroring the persisted session.
// Initial status is Loading until the first Refresh completes.
func NewStore(ctx context.Context, api API, sessions Sessions, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	s := &Store{
		api:      api,
		sessions: sessions,
		log:      log,
		status:   model.StatusLoading,
		subs:     make(map[int]chan struct{}),
	}

	updates, cancel, err := sessions.Watch(ctx)
	if err != nil {
		return nil, fmt.Errorf("watching session store: %w", err)
	}
	s.cancelWatch = cancel

	// The watch stream replays the current value at subscription time, so the
	// mirror is populated before the store is handed out.
	s.session = <-updates

	go func() {
		for sess := range updates {
			s.apply(func() { s.session = sess })
		}
	}()

	return s, nil
}

// Close stops the session mirror and makes in-flight operations discard
// their results when they land.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()

	s.cancelWatch()
}

// Refresh re-fetches the film list. On failure the previous list is kept and
// the status flips to Failed; callers retry by calling Refresh again.
func (s *Store) Refresh(ctx context.Context) {
	s.apply(func() { s.status = model.StatusLoading })

	films, err := s.api.List(ctx)
	if err != nil {
		s.log.Warn("film list fetch failed", "error", err)
		s.apply(func() {
			s.status = model.StatusFailed
			s.lastErr = err.Error()
		})
		return
	}

	model.SortFilmsByID(films)
	s.apply(func() {
		s.films = films
		s.status = model.StatusSuccess
	})
}

// VisibleFor returns the films the given user may see, ascending by id:
// every unowned film, plus the user's own. A nil userID means signed out.
func (s *Store) VisibleFor(userID *int64) []model.Film {
	s.mu.Lock()
	defer s.mu.Unlock()

	visible := make([]model.Film, 0, len(s.films))
	for _, f := range s.films {
		if f.OwnerID == nil || (userID != nil && *f.OwnerID == *userID) {
			visible = append(visible, f)
		}
	}
	return visible
}

// Create adds a film to the catalog and re-syncs the list on success.
func (s *Store) Create(ctx context.Context, title, cast, description string, image []byte) {
	sess := s.Session()
	if !sess.SignedIn() {
		s.fail("create film", ErrAuthRequired)
		return
	}
	if strings.TrimSpace(title) == "" {
		s.fail("create film", ErrTitleEmpty)
		return
	}

	if err := s.api.Create(ctx, sess.Token, title, cast, description, image); err != nil {
		s.fail("create film", err)
		return
	}
	s.Refresh(ctx)
}

// Update modifies a film the user owns. A nil image keeps the existing one.
func (s *Store) Update(ctx context.Context, id int64, title, cast, description string, image []byte) {
	sess := s.Session()
	if !sess.SignedIn() {
		s.fail("update film", ErrAuthRequired)
		return
	}
	if !s.ownedBy(id, sess.UserID) {
		s.fail("update film", ErrNotOwner)
		return
	}
	if strings.TrimSpace(title) == "" {
		s.fail("update film", ErrTitleEmpty)
		return
	}

	if err := s.api.Update(ctx, sess.Token, id, title, cast, description, image); err != nil {
		s.fail("update film", err)
		return
	}
	s.Refresh(ctx)
}

// Delete removes a film the user owns.
func (s *Store) Delete(ctx context.Context, id int64) {
	sess := s.Session()
	if !sess.SignedIn() {
		s.fail("delete film", ErrAuthRequired)
		return
	}
	if !s.ownedBy(id, sess.UserID) {
		s.fail("delete film", ErrNotOwner)
		return
	}

	if err := s.api.Delete(ctx, sess.Token, id); err != nil {
		s.fail("delete film", err)
		return
	}
	s.Refresh(ctx)
}

// SignIn exchanges a Google ID token for a catalog session and persists it.
// On failure the previous session (or signed-out state) is kept.
func (s *Store) SignIn(ctx context.Context, idToken string) {
	sess, err := s.api.ExchangeIdentity(ctx, idToken)
	if err != nil {
		s.fail("sign in", err)
		return
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		s.fail("sign in", err)
		return
	}

	// The session mirror is fed by the persistence watch stream; setting it
	// here as well just makes the new session visible without waiting for
	// the notification to arrive.
	s.apply(func() { s.session = &sess })
	s.log.Info("signed in", "user_id", sess.UserID, "email", sess.Email)
}

// SignOut clears the persisted session. The remote service holds no
// server-side session state, so nothing is revoked there.
func (s *Store) SignOut(ctx context.Context) {
	if err := s.sessions.Clear(ctx); err != nil {
		s.fail("sign out", err)
		return
	}

	s.apply(func() { s.session = nil })
	s.log.Info("signed out")
}

// ClearError resets the pending error message. Idempotent.
func (s *Store) ClearError() {
	s.apply(func() { s.lastErr = "" })
}

// Films returns a copy of the full film list, ascending by id.
func (s *Store) Films() []model.Film {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Film, len(s.films))
	copy(out, s.films)
	return out
}

// Status returns the current load status.
func (s *Store) Status() model.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastError returns the pending error message, or "" if none.
func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Session returns the current session, or nil when signed out.
func (s *Store) Session() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil
	}
	sess := *s.session
	return &sess
}

// Subscribe returns a channel that signals after every applied state change.
// Signals are coalesced; readers pull fresh state through the getters.
// The cancel function releases the subscription.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// apply runs a state transition atomically, dropping it if the store was
// closed while the operation was in flight.
func (s *Store) apply(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	f()

	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// fail records an operation failure as the pending error message. The film
// list and status are left untouched.
func (s *Store) fail(op string, err error) {
	s.log.Warn(op+" failed", "error", err)
	s.apply(func() { s.lastErr = err.Error() })
}

// ownedBy reports whether the film is known locally and owned by the user.
// Films missing from the local list are left for the service to reject.
func (s *Store) ownedBy(id, userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.films {
		if f.ID == id {
			return f.EditableBy(userID)
		}
	}
	return true
}
