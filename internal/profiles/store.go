package profiles

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ruminaider/profilepop/internal/storage"
	"github.com/samber/lo"
)

// Store owns the ordered profile collection. Every mutation is a single
// storage.Update of the whole collection, so concurrent writers, including
// other processes sharing the backend, never drop each other's changes.
type Store struct {
	kv    storage.Store
	now   func() time.Time
	newID func() ID
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(gen func() ID) Option {
	return func(s *Store) { s.newID = gen }
}

// NewStore returns a Store persisting to kv.
func NewStore(kv storage.Store, opts ...Option) *Store {
	s := &Store{
		kv:    kv,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() ID { return ID(uuid.NewString()) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns profiles in insertion order, clipped to maxProfiles when it is
// positive. Clipping is a view; the stored collection is untouched.
func (s *Store) List(ctx context.Context, maxProfiles int) ([]Profile, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	if maxProfiles > 0 && len(all) > maxProfiles {
		return all[:maxProfiles], nil
	}
	return all, nil
}

// All returns every stored profile in insertion order.
func (s *Store) All(ctx context.Context) ([]Profile, error) {
	var all []Profile
	if _, err := storage.GetJSON(ctx, s.kv, storage.KeyProfiles, &all); err != nil {
		return nil, fmt.Errorf("loading profiles: %w", err)
	}
	if all == nil {
		all = []Profile{}
	}
	return all, nil
}

// Get returns the profile with the given id.
func (s *Store) Get(ctx context.Context, id ID) (Profile, error) {
	all, err := s.All(ctx)
	if err != nil {
		return Profile{}, err
	}
	p, _, ok := lo.FindIndexOf(all, func(p Profile) bool { return p.ID == id })
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p, nil
}

// Save inserts or updates a profile.
//
// An empty ID inserts a new profile with a fresh id. An ID matching a stored
// profile replaces it in place, keeping its position and CreatedAt. Any other
// ID inserts with that id. Inserts fail with ErrLimitExceeded once the
// collection holds maxProfiles entries (maxProfiles <= 0 means unlimited).
func (s *Store) Save(ctx context.Context, p Profile, maxProfiles int) (Profile, error) {
	in := p
	err := s.mutate(ctx, func(all []Profile) ([]Profile, error) {
		p = in
		if p.ID != "" {
			if existing, idx, ok := lo.FindIndexOf(all, func(e Profile) bool { return e.ID == p.ID }); ok {
				p = normalize(p, idx)
				p.CreatedAt = existing.CreatedAt
				if err := Validate(p); err != nil {
					return nil, err
				}
				all[idx] = p
				return all, nil
			}
		}

		if maxProfiles > 0 && len(all) >= maxProfiles {
			return nil, fmt.Errorf("%w: free tier allows %d profiles", ErrLimitExceeded, maxProfiles)
		}

		p = normalize(p, len(all))
		if p.ID == "" {
			p.ID = s.uniqueID(all)
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = s.now()
		}
		if err := Validate(p); err != nil {
			return nil, err
		}
		return append(all, p), nil
	})
	if err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Delete removes the profile with the given id. Deleting a missing id is a
// no-op.
func (s *Store) Delete(ctx context.Context, id ID) error {
	return s.mutate(ctx, func(all []Profile) ([]Profile, error) {
		kept := lo.Filter(all, func(p Profile, _ int) bool { return p.ID != id })
		if len(kept) == len(all) {
			return nil, nil
		}
		return kept, nil
	})
}

// Switch stamps LastUsed on the profile and returns it. Applying the profile
// (theme, notification, extensions) is the caller's job.
func (s *Store) Switch(ctx context.Context, id ID) (Profile, error) {
	var out Profile
	err := s.mutate(ctx, func(all []Profile) ([]Profile, error) {
		_, idx, ok := lo.FindIndexOf(all, func(p Profile) bool { return p.ID == id })
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		now := s.now()
		all[idx].LastUsed = &now
		out = all[idx]
		return all, nil
	})
	if err != nil {
		return Profile{}, err
	}
	return out, nil
}

// Replace swaps the entire collection, as import and reset do. Profiles
// without an id get one; duplicate ids and invalid profiles are rejected with
// ErrInvalidFormat and leave the stored collection unchanged.
func (s *Store) Replace(ctx context.Context, list []Profile) ([]Profile, error) {
	out := make([]Profile, 0, len(list))
	seen := make(map[ID]bool, len(list))
	for i, p := range list {
		p = normalize(p, i)
		if p.ID == "" {
			p.ID = s.uniqueID(list)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("%w: duplicate profile id %q", ErrInvalidFormat, p.ID)
		}
		seen[p.ID] = true
		if p.CreatedAt.IsZero() {
			p.CreatedAt = s.now()
		}
		if err := Validate(p); err != nil {
			return nil, fmt.Errorf("%w: profile %d: %v", ErrInvalidFormat, i+1, err)
		}
		out = append(out, p)
	}

	err := s.mutate(ctx, func([]Profile) ([]Profile, error) { return out, nil })
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ResetToDefaults replaces the collection with the starter profiles.
func (s *Store) ResetToDefaults(ctx context.Context) ([]Profile, error) {
	return s.Replace(ctx, DefaultProfiles())
}

// DefaultProfiles returns the starter set offered on reset.
func DefaultProfiles() []Profile {
	return []Profile{
		FromTemplate(templates["work"]),
		FromTemplate(templates["personal"]),
		FromTemplate(templates["development"]),
	}
}

func (s *Store) uniqueID(existing []Profile) ID {
	for {
		id := s.newID()
		if !lo.ContainsBy(existing, func(p Profile) bool { return p.ID == id }) {
			return id
		}
	}
}

// mutate applies fn to the stored collection inside one storage.Update. A
// nil result leaves storage untouched. fn may be called again if the backend
// retries.
func (s *Store) mutate(ctx context.Context, fn func(all []Profile) ([]Profile, error)) error {
	return s.kv.Update(ctx, func(cur map[string][]byte) (map[string][]byte, error) {
		all := []Profile{}
		if raw, ok := cur[storage.KeyProfiles]; ok {
			if err := json.Unmarshal(raw, &all); err != nil {
				return nil, fmt.Errorf("loading profiles: %w", err)
			}
			if all == nil {
				all = []Profile{}
			}
		}

		next, err := fn(all)
		if err != nil || next == nil {
			return nil, err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("saving profiles: %w", err)
		}
		return map[string][]byte{storage.KeyProfiles: data}, nil
	}, storage.KeyProfiles)
}
