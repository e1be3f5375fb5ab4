package store

import (
	"sync"

	"github.com/li-boxuan/community/pkg/models"
)

// MemoryStore is an in-memory implementation of the data store, used in
// tests and as a scratch store for dry runs.
type MemoryStore struct {
	participants map[string]*models.Participant
	comments     map[string]*models.Comment
	reactions    map[string]*models.Reaction
	contributors map[string]*models.Contributor
	committers   map[string]*models.OutsideCommitter
	migrated     bool
	mu           sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		participants: make(map[string]*models.Participant),
		comments:     make(map[string]*models.Comment),
		reactions:    make(map[string]*models.Reaction),
		contributors: make(map[string]*models.Contributor),
		committers:   make(map[string]*models.OutsideCommitter),
	}
}

// Migrate marks the store as migrated; there is no schema to create
func (s *MemoryStore) Migrate() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.migrated {
		return 0, nil
	}
	s.migrated = true
	return len(migrations), nil
}

// SchemaVersion returns the latest version when migrated, 0 otherwise
func (s *MemoryStore) SchemaVersion() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.migrated {
		return 0, nil
	}
	return migrations[len(migrations)-1].Version, nil
}

// GetParticipant retrieves a participant by login
func (s *MemoryStore) GetParticipant(login string) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participants[login]
	if !ok {
		return nil, ErrParticipantNotFound
	}
	copied := *p
	return &copied, nil
}

// GetAllParticipants returns every participant
func (s *MemoryStore) GetAllParticipants() ([]*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participants := make([]*models.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		copied := *p
		participants = append(participants, &copied)
	}
	return participants, nil
}

// SaveParticipant inserts or replaces a participant
func (s *MemoryStore) SaveParticipant(p *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *p
	s.participants[p.Login] = &copied
	return nil
}

// GetComment retrieves a review comment by ID
func (s *MemoryStore) GetComment(id string) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, ErrCommentNotFound
	}
	copied := *c
	return &copied, nil
}

// GetAllComments returns every review comment
func (s *MemoryStore) GetAllComments() ([]*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comments := make([]*models.Comment, 0, len(s.comments))
	for _, c := range s.comments {
		copied := *c
		comments = append(comments, &copied)
	}
	return comments, nil
}

// SaveComment inserts or replaces a review comment
func (s *MemoryStore) SaveComment(c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *c
	s.comments[c.ID] = &copied
	return nil
}

// SaveComments persists review comments
func (s *MemoryStore) SaveComments(cs []*models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range cs {
		copied := *c
		s.comments[c.ID] = &copied
	}
	return nil
}

// GetReaction retrieves a reaction by ID
func (s *MemoryStore) GetReaction(id string) (*models.Reaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reactions[id]
	if !ok {
		return nil, ErrReactionNotFound
	}
	copied := *r
	return &copied, nil
}

// GetAllReactions returns every reaction
func (s *MemoryStore) GetAllReactions() ([]*models.Reaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reactions := make([]*models.Reaction, 0, len(s.reactions))
	for _, r := range s.reactions {
		copied := *r
		reactions = append(reactions, &copied)
	}
	return reactions, nil
}

// SaveReaction inserts or replaces a reaction
func (s *MemoryStore) SaveReaction(r *models.Reaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *r
	s.reactions[r.ID] = &copied
	return nil
}

// SaveContributor inserts or replaces a contributor
func (s *MemoryStore) SaveContributor(c *models.Contributor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *c
	s.contributors[c.Login] = &copied
	return nil
}

// GetAllContributors returns every imported contributor
func (s *MemoryStore) GetAllContributors() ([]*models.Contributor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contributors := make([]*models.Contributor, 0, len(s.contributors))
	for _, c := range s.contributors {
		copied := *c
		contributors = append(contributors, &copied)
	}
	return contributors, nil
}

// SaveOutsideCommitter inserts or replaces an outside committer
func (s *MemoryStore) SaveOutsideCommitter(c *models.OutsideCommitter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *c
	s.committers[c.Name+"/"+c.Org] = &copied
	return nil
}

// GetAllOutsideCommitters returns every imported outside committer
func (s *MemoryStore) GetAllOutsideCommitters() ([]*models.OutsideCommitter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	committers := make([]*models.OutsideCommitter, 0, len(s.committers))
	for _, c := range s.committers {
		copied := *c
		committers = append(committers, &copied)
	}
	return committers, nil
}

// HealthCheck always succeeds for the in-memory store
func (s *MemoryStore) HealthCheck() error {
	return nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
