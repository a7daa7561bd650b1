// Package session persists the signed-in user's session in the local
// database and notifies watchers whenever it changes.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/andikarhm/filmku/internal/model"
)

// Store is the durable session store. It is the sole writer of the session
// row; in-memory consumers mirror it through Watch.
type Store struct {
	db *sql.DB

	mu   sync.Mutex
	subs map[int]chan *model.Session
	next int
}

// NewStore creates a session store over an opened database.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:   db,
		subs: make(map[int]chan *model.Session),
	}
}

// Save replaces the stored session and notifies watchers. The bearer token is
// sealed before it touches disk.
func (s *Store) Save(ctx context.Context, sess model.Session) error {
	if sess.Token == "" {
		return fmt.Errorf("saving session: empty token")
	}

	key, err := sealKey(ctx, s.db)
	if err != nil {
		return err
	}
	sealed, err := seal(key, []byte(sess.Token))
	if err != nil {
		return fmt.Errorf("sealing token: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session (id, user_id, name, email, photo_url, sealed_token, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (id) DO UPDATE SET
		     user_id = excluded.user_id,
		     name = excluded.name,
		     email = excluded.email,
		     photo_url = excluded.photo_url,
		     sealed_token = excluded.sealed_token,
		     updated_at = CURRENT_TIMESTAMP`,
		sess.UserID, sess.Name, sess.Email, sess.PhotoURL, sealed,
	)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	s.notify(&sess)
	return nil
}

// Clear removes the stored session and notifies watchers. Clearing an already
// empty store is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE id = 1`); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}

	s.notify(nil)
	return nil
}

// Current returns the stored session, or nil when signed out.
func (s *Store) Current(ctx context.Context) (*model.Session, error) {
	sess := &model.Session{}
	var name, email, photoURL sql.NullString
	var sealed []byte

	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, name, email, photo_url, sealed_token FROM session WHERE id = 1`,
	).Scan(&sess.UserID, &name, &email, &photoURL, &sealed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	key, err := sealKey(ctx, s.db)
	if err != nil {
		return nil, err
	}
	token, err := open(key, sealed)
	if err != nil {
		return nil, fmt.Errorf("unsealing token: %w", err)
	}

	sess.Token = string(token)
	sess.Name = name.String
	sess.Email = email.String
	sess.PhotoURL = photoURL.String
	return sess, nil
}

// Watch returns a channel that first replays the current session (nil when
// signed out) and then emits on every Save or Clear. The channel only keeps
// the latest value; slow readers see coalesced updates, never stale ones.
// The returned cancel function must be called to release the subscription.
func (s *Store) Watch(ctx context.Context) (<-chan *model.Session, func(), error) {
	current, err := s.Current(ctx)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan *model.Session, 1)
	ch <- current

	s.mu.Lock()
	id := s.next
	s.next++
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
	return ch, cancel, nil
}

// notify pushes the new value to all watchers, replacing any value a watcher
// has not consumed yet.
func (s *Store) notify(sess *model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- sess:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- sess
		}
	}
}
