package store

import (
	"errors"
	"time"

	"github.com/li-boxuan/community/pkg/models"
)

var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrCommentNotFound     = errors.New("comment not found")
	ErrReactionNotFound    = errors.New("reaction not found")
	ErrUnsupportedDatabase = errors.New("unsupported database type")
)

// Store defines the interface for meta-review data persistence.
// SQLite and PostgreSQL implement this interface; MemoryStore backs tests.
type Store interface {
	// Participant operations
	GetParticipant(login string) (*models.Participant, error)
	GetAllParticipants() ([]*models.Participant, error)
	SaveParticipant(p *models.Participant) error

	// Review comment operations
	GetComment(id string) (*models.Comment, error)
	GetAllComments() ([]*models.Comment, error)
	SaveComment(c *models.Comment) error
	// SaveComments persists comments in one transaction. Review datasets
	// carry thousands of comments, saving them one by one dominates the
	// deploy time otherwise.
	SaveComments(cs []*models.Comment) error

	// Reaction operations
	GetReaction(id string) (*models.Reaction, error)
	GetAllReactions() ([]*models.Reaction, error)
	SaveReaction(r *models.Reaction) error

	// Imported dataset operations
	SaveContributor(c *models.Contributor) error
	GetAllContributors() ([]*models.Contributor, error)
	SaveOutsideCommitter(c *models.OutsideCommitter) error
	GetAllOutsideCommitters() ([]*models.OutsideCommitter, error)

	// Schema management
	Migrate() (int, error)
	SchemaVersion() (int, error)

	// Lifecycle
	HealthCheck() error
	Close() error
}

// Config holds database configuration
type Config struct {
	Type string // "sqlite" or "postgres"
	DSN  string // Connection string

	// PostgreSQL specific
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// SQLite specific
	Path string
}

// NewStore creates a store based on configuration
func NewStore(config Config) (Store, error) {
	switch config.Type {
	case "postgres", "postgresql":
		return NewPostgreSQLStore(config)
	case "sqlite", "":
		path := config.Path
		if path == "" {
			path = config.DSN
		}
		if path == "" {
			path = "community.db"
		}
		return NewSQLiteStore(path)
	default:
		return nil, ErrUnsupportedDatabase
	}
}
