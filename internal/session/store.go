// Package session owns the server-side session records. No other component
// writes to the sessions collection; activity touches, logout deletes and
// the periodic sweep all funnel through here and are serialized by the
// store's atomic Update.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"parcelbox/internal/models"
	"parcelbox/internal/store"
)

const collection = "sessions"

var ErrNotFound = errors.New("session not found")

type Store struct {
	db  store.Store
	ttl time.Duration
	log zerolog.Logger
}

func NewStore(db store.Store, ttl time.Duration, log zerolog.Logger) *Store {
	return &Store{db: db, ttl: ttl, log: log}
}

func decode(doc []byte) ([]models.Session, error) {
	if len(doc) == 0 {
		return nil, nil
	}
	var sessions []models.Session
	if err := json.Unmarshal(doc, &sessions); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return sessions, nil
}

func (s *Store) Create(ctx context.Context, username, token string) (models.Session, error) {
	now := time.Now()
	session := models.Session{
		ID:           uuid.NewString(),
		Username:     username,
		Token:        token,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
		LastActivity: now,
	}

	err := s.db.Update(ctx, collection, func(current []byte) ([]byte, error) {
		sessions, err := decode(current)
		if err != nil {
			return nil, err
		}
		return json.Marshal(append(sessions, session))
	})
	if err != nil {
		return models.Session{}, err
	}
	return session, nil
}

func (s *Store) FindByToken(ctx context.Context, token string) (models.Session, error) {
	doc, err := s.db.Get(ctx, collection)
	if err != nil {
		if errors.Is(err, store.ErrCollectionNotFound) {
			return models.Session{}, ErrNotFound
		}
		return models.Session{}, err
	}

	sessions, err := decode(doc)
	if err != nil {
		return models.Session{}, err
	}
	for _, session := range sessions {
		if session.Token == token {
			return session, nil
		}
	}
	return models.Session{}, ErrNotFound
}

// Touch stamps lastActivity. Returns false when no session holds the token.
func (s *Store) Touch(ctx context.Context, token string) (bool, error) {
	found := false
	err := s.db.Update(ctx, collection, func(current []byte) ([]byte, error) {
		sessions, err := decode(current)
		if err != nil {
			return nil, err
		}
		for i := range sessions {
			if sessions[i].Token == token {
				sessions[i].LastActivity = time.Now()
				found = true
				break
			}
		}
		return json.Marshal(sessions)
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (s *Store) Delete(ctx context.Context, token string) (bool, error) {
	found := false
	err := s.db.Update(ctx, collection, func(current []byte) ([]byte, error) {
		sessions, err := decode(current)
		if err != nil {
			return nil, err
		}
		kept := sessions[:0]
		for _, session := range sessions {
			if session.Token == token {
				found = true
				continue
			}
			kept = append(kept, session)
		}
		return json.Marshal(kept)
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// SweepExpired removes every session whose expiresAt has passed and returns
// how many were dropped. This is the only bulk deletion by time in the
// system; it runs from the hourly maintenance job.
func (s *Store) SweepExpired(ctx context.Context) (int, error) {
	removed := 0
	err := s.db.Update(ctx, collection, func(current []byte) ([]byte, error) {
		sessions, err := decode(current)
		if err != nil {
			return nil, err
		}
		now := time.Now()
		kept := sessions[:0]
		for _, session := range sessions {
			if session.ExpiresAt.Before(now) {
				removed++
				continue
			}
			kept = append(kept, session)
		}
		return json.Marshal(kept)
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("expired sessions cleaned")
	}
	return removed, nil
}
