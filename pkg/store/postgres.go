package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/li-boxuan/community/pkg/models"
)

// PostgreSQLStore implements Store using PostgreSQL. Deployments that keep
// review history across build machines point the pipeline at a shared
// database instead of the local SQLite file.
type PostgreSQLStore struct {
	db *sql.DB
}

// NewPostgreSQLStore creates a new PostgreSQL store
func NewPostgreSQLStore(config Config) (*PostgreSQLStore, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("PostgreSQL DSN is required")
	}

	db, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(2)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgreSQLStore{db: db}, nil
}

// Migrate applies pending schema migrations
func (s *PostgreSQLStore) Migrate() (int, error) {
	return applyMigrations(s.db, "postgres")
}

// SchemaVersion returns the highest applied migration version
func (s *PostgreSQLStore) SchemaVersion() (int, error) {
	return currentVersion(s.db)
}

// GetParticipant retrieves a participant by login
func (s *PostgreSQLStore) GetParticipant(login string) (*models.Participant, error) {
	row := s.db.QueryRow(`
		SELECT login, name, score, pos_in, weighted_pos_in, neg_in, weighted_neg_in,
		       pos_out, neg_out, punishment, weight_factor, ranking, trend, last_active_at
		FROM participants WHERE login = $1
	`, login)
	return scanParticipant(row)
}

// GetAllParticipants returns every participant
func (s *PostgreSQLStore) GetAllParticipants() ([]*models.Participant, error) {
	rows, err := s.db.Query(`
		SELECT login, name, score, pos_in, weighted_pos_in, neg_in, weighted_neg_in,
		       pos_out, neg_out, punishment, weight_factor, ranking, trend, last_active_at
		FROM participants
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []*models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// SaveParticipant upserts a participant
func (s *PostgreSQLStore) SaveParticipant(p *models.Participant) error {
	_, err := s.db.Exec(`
		INSERT INTO participants
		(login, name, score, pos_in, weighted_pos_in, neg_in, weighted_neg_in,
		 pos_out, neg_out, punishment, weight_factor, ranking, trend, last_active_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (login) DO UPDATE SET
			name = EXCLUDED.name, score = EXCLUDED.score,
			pos_in = EXCLUDED.pos_in, weighted_pos_in = EXCLUDED.weighted_pos_in,
			neg_in = EXCLUDED.neg_in, weighted_neg_in = EXCLUDED.weighted_neg_in,
			pos_out = EXCLUDED.pos_out, neg_out = EXCLUDED.neg_out,
			punishment = EXCLUDED.punishment, weight_factor = EXCLUDED.weight_factor,
			ranking = EXCLUDED.ranking, trend = EXCLUDED.trend,
			last_active_at = EXCLUDED.last_active_at
	`, p.Login, p.Name, p.Score, p.PosIn, p.WeightedPosIn, p.NegIn, p.WeightedNegIn,
		p.PosOut, p.NegOut, p.Punishment, p.WeightFactor, p.Rank, p.Trend,
		nullTime(p.LastActiveAt))
	return err
}

// GetComment retrieves a review comment by ID
func (s *PostgreSQLStore) GetComment(id string) (*models.Comment, error) {
	row := s.db.QueryRow(`
		SELECT id, author_login, body, diff, score, pos, neg, weighted_pos,
		       weighted_neg, created_at, last_edited_at
		FROM comments WHERE id = $1
	`, id)
	return scanComment(row)
}

// GetAllComments returns every review comment
func (s *PostgreSQLStore) GetAllComments() ([]*models.Comment, error) {
	rows, err := s.db.Query(`
		SELECT id, author_login, body, diff, score, pos, neg, weighted_pos,
		       weighted_neg, created_at, last_edited_at
		FROM comments
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// SaveComment upserts a review comment
func (s *PostgreSQLStore) SaveComment(c *models.Comment) error {
	_, err := s.db.Exec(insertCommentPostgres, commentArgs(c)...)
	return err
}

// SaveComments persists review comments in a single transaction
func (s *PostgreSQLStore) SaveComments(cs []*models.Comment) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(insertCommentPostgres)
	if err != nil {
		tx.Rollback()
		return err
	}
	for _, c := range cs {
		if _, err := stmt.Exec(commentArgs(c)...); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("failed to save comment %s: %w", c.ID, err)
		}
	}
	stmt.Close()
	return tx.Commit()
}

// GetReaction retrieves a reaction by ID
func (s *PostgreSQLStore) GetReaction(id string) (*models.Reaction, error) {
	row := s.db.QueryRow(`
		SELECT id, content, giver_login, receiver_login, comment_id, created_at
		FROM reactions WHERE id = $1
	`, id)
	return scanReaction(row)
}

// GetAllReactions returns every reaction
func (s *PostgreSQLStore) GetAllReactions() ([]*models.Reaction, error) {
	rows, err := s.db.Query(`
		SELECT id, content, giver_login, receiver_login, comment_id, created_at
		FROM reactions
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reactions []*models.Reaction
	for rows.Next() {
		r, err := scanReaction(rows)
		if err != nil {
			return nil, err
		}
		reactions = append(reactions, r)
	}
	return reactions, rows.Err()
}

// SaveReaction upserts a reaction
func (s *PostgreSQLStore) SaveReaction(r *models.Reaction) error {
	_, err := s.db.Exec(`
		INSERT INTO reactions
		(id, content, giver_login, receiver_login, comment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content, giver_login = EXCLUDED.giver_login,
			receiver_login = EXCLUDED.receiver_login,
			comment_id = EXCLUDED.comment_id, created_at = EXCLUDED.created_at
	`, r.ID, r.Content, r.GiverLogin, r.ReceiverLogin, r.CommentID, nullTime(r.CreatedAt))
	return err
}

// SaveContributor upserts a contributor
func (s *PostgreSQLStore) SaveContributor(c *models.Contributor) error {
	_, err := s.db.Exec(`
		INSERT INTO contributors (login, name, reviews, commits, issues_opened)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (login) DO UPDATE SET
			name = EXCLUDED.name, reviews = EXCLUDED.reviews,
			commits = EXCLUDED.commits, issues_opened = EXCLUDED.issues_opened
	`, c.Login, c.Name, c.Reviews, c.Commits, c.IssuesOpened)
	return err
}

// GetAllContributors returns every imported contributor
func (s *PostgreSQLStore) GetAllContributors() ([]*models.Contributor, error) {
	rows, err := s.db.Query(`SELECT login, name, reviews, commits, issues_opened FROM contributors`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contributors []*models.Contributor
	for rows.Next() {
		var c models.Contributor
		if err := rows.Scan(&c.Login, &c.Name, &c.Reviews, &c.Commits, &c.IssuesOpened); err != nil {
			return nil, err
		}
		contributors = append(contributors, &c)
	}
	return contributors, rows.Err()
}

// SaveOutsideCommitter upserts an outside committer
func (s *PostgreSQLStore) SaveOutsideCommitter(c *models.OutsideCommitter) error {
	_, err := s.db.Exec(`
		INSERT INTO outside_committers
		(name, org, commit_count, project_count, latest_commit)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name, org) DO UPDATE SET
			commit_count = EXCLUDED.commit_count,
			project_count = EXCLUDED.project_count,
			latest_commit = EXCLUDED.latest_commit
	`, c.Name, c.Org, c.CommitCount, c.ProjectCount, c.LatestCommit)
	return err
}

// GetAllOutsideCommitters returns every imported outside committer
func (s *PostgreSQLStore) GetAllOutsideCommitters() ([]*models.OutsideCommitter, error) {
	rows, err := s.db.Query(`
		SELECT name, org, commit_count, project_count, latest_commit FROM outside_committers
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var committers []*models.OutsideCommitter
	for rows.Next() {
		var c models.OutsideCommitter
		if err := rows.Scan(&c.Name, &c.Org, &c.CommitCount, &c.ProjectCount, &c.LatestCommit); err != nil {
			return nil, err
		}
		committers = append(committers, &c)
	}
	return committers, rows.Err()
}

// HealthCheck verifies the database connection
func (s *PostgreSQLStore) HealthCheck() error {
	return s.db.Ping()
}

// Close closes the database connection
func (s *PostgreSQLStore) Close() error {
	return s.db.Close()
}

const insertCommentPostgres = `
	INSERT INTO comments
	(id, author_login, body, diff, score, pos, neg, weighted_pos, weighted_neg,
	 created_at, last_edited_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO UPDATE SET
		author_login = EXCLUDED.author_login, body = EXCLUDED.body,
		diff = EXCLUDED.diff, score = EXCLUDED.score, pos = EXCLUDED.pos,
		neg = EXCLUDED.neg, weighted_pos = EXCLUDED.weighted_pos,
		weighted_neg = EXCLUDED.weighted_neg, created_at = EXCLUDED.created_at,
		last_edited_at = EXCLUDED.last_edited_at`
