package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
)

// Store is an in-memory Identity Store for development and tests. It
// implements every persistence port behind a single mutex, which makes the
// conditional consume trivially atomic.
type Store struct {
	mu    sync.Mutex
	users map[domain.UserID]*domain.User
	creds map[string]*domain.RefreshCredential
	links map[domain.UserID]map[domain.UserID]bool // trainer -> customers
}

func NewStore() *Store {
	return &Store{
		users: make(map[domain.UserID]*domain.User),
		creds: make(map[string]*domain.RefreshCredential),
		links: make(map[domain.UserID]map[domain.UserID]bool),
	}
}

// --- ports.UserRepository ---

func (s *Store) Create(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	u.Email = strings.ToLower(u.Email)
	s.users[u.ID] = &u
	return nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) GetByID(ctx context.Context, userID domain.UserID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) GetByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	if externalID == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ExternalID == externalID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) LinkExternalID(ctx context.Context, userID domain.UserID, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.ExternalID = externalID
		u.UpdatedAt = time.Now()
	}
	return nil
}

func (s *Store) UpdateProfile(ctx context.Context, userID domain.UserID, displayName, profileImageURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.DisplayName = displayName
		u.ProfileImageURL = profileImageURL
		u.UpdatedAt = time.Now()
	}
	return nil
}

func (s *Store) UpdatePassword(ctx context.Context, userID domain.UserID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.PasswordHash = passwordHash
		u.UpdatedAt = time.Now()
	}
	return nil
}

func (s *Store) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// Delete removes a user record; tests use it to simulate a deleted account.
func (s *Store) Delete(userID domain.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
}

// --- ports.RefreshCredentialStore ---

func (s *Store) Store(ctx context.Context, userID domain.UserID, tokenHash string, issuedAt, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[tokenHash] = &domain.RefreshCredential{
		TokenHash: tokenHash,
		UserID:    userID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}
	return nil
}

func (s *Store) Get(ctx context.Context, tokenHash string) (*domain.RefreshCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.creds[tokenHash]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) ConsumeIfPresent(ctx context.Context, tokenHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.creds[tokenHash]; !ok {
		return false, nil
	}
	delete(s.creds, tokenHash)
	return true, nil
}

func (s *Store) DeleteAllForUser(ctx context.Context, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, c := range s.creds {
		if c.UserID == userID {
			delete(s.creds, hash)
		}
	}
	return nil
}

func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for hash, c := range s.creds {
		if c.Expired(now) {
			delete(s.creds, hash)
			purged++
		}
	}
	return purged, nil
}

// CredentialCount reports how many refresh credentials are live.
func (s *Store) CredentialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.creds)
}

// --- ports.TrainerLinkStore ---

func (s *Store) Link(trainerID, customerID domain.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.links[trainerID] == nil {
		s.links[trainerID] = make(map[domain.UserID]bool)
	}
	s.links[trainerID][customerID] = true
}

func (s *Store) Linked(ctx context.Context, trainerID, customerID domain.UserID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.links[trainerID][customerID], nil
}

func (s *Store) ListCustomerIDs(ctx context.Context, trainerID domain.UserID) ([]domain.UserID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []domain.UserID
	for id := range s.links[trainerID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

var (
	_ ports.UserRepository         = (*Store)(nil)
	_ ports.RefreshCredentialStore = (*Store)(nil)
	_ ports.TrainerLinkStore       = (*Store)(nil)
)
