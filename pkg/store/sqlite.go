package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/li-boxuan/community/pkg/models"
)

// SQLiteStore is a SQLite-based implementation of the data store
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database. The schema is NOT
// created here; callers run Migrate first, so that a failed migration is
// observable as its own step.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL and a busy timeout so that a serve process can read while a
	// build writes; the build pipeline itself is single-writer.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Serialize writes to avoid SQLITE_BUSY
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate applies pending schema migrations
func (s *SQLiteStore) Migrate() (int, error) {
	return applyMigrations(s.db, "sqlite")
}

// SchemaVersion returns the highest applied migration version
func (s *SQLiteStore) SchemaVersion() (int, error) {
	return currentVersion(s.db)
}

// GetParticipant retrieves a participant by login
func (s *SQLiteStore) GetParticipant(login string) (*models.Participant, error) {
	row := s.db.QueryRow(`
		SELECT login, name, score, pos_in, weighted_pos_in, neg_in, weighted_neg_in,
		       pos_out, neg_out, punishment, weight_factor, ranking, trend, last_active_at
		FROM participants WHERE login = ?
	`, login)
	return scanParticipant(row)
}

// GetAllParticipants returns every participant
func (s *SQLiteStore) GetAllParticipants() ([]*models.Participant, error) {
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

// SaveParticipant inserts or replaces a participant
func (s *SQLiteStore) SaveParticipant(p *models.Participant) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO participants
		(login, name, score, pos_in, weighted_pos_in, neg_in, weighted_neg_in,
		 pos_out, neg_out, punishment, weight_factor, ranking, trend, last_active_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.Login, p.Name, p.Score, p.PosIn, p.WeightedPosIn, p.NegIn, p.WeightedNegIn,
		p.PosOut, p.NegOut, p.Punishment, p.WeightFactor, p.Rank, p.Trend,
		nullTime(p.LastActiveAt))
	return err
}

// GetComment retrieves a review comment by ID
func (s *SQLiteStore) GetComment(id string) (*models.Comment, error) {
	row := s.db.QueryRow(`
		SELECT id, author_login, body, diff, score, pos, neg, weighted_pos,
		       weighted_neg, created_at, last_edited_at
		FROM comments WHERE id = ?
	`, id)
	return scanComment(row)
}

// GetAllComments returns every review comment
func (s *SQLiteStore) GetAllComments() ([]*models.Comment, error) {
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

// SaveComment inserts or replaces a review comment
func (s *SQLiteStore) SaveComment(c *models.Comment) error {
	_, err := s.db.Exec(insertCommentSQLite, commentArgs(c)...)
	return err
}

// SaveComments persists review comments in a single transaction
func (s *SQLiteStore) SaveComments(cs []*models.Comment) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(insertCommentSQLite)
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
func (s *SQLiteStore) GetReaction(id string) (*models.Reaction, error) {
	row := s.db.QueryRow(`
		SELECT id, content, giver_login, receiver_login, comment_id, created_at
		FROM reactions WHERE id = ?
	`, id)
	return scanReaction(row)
}

// GetAllReactions returns every reaction
func (s *SQLiteStore) GetAllReactions() ([]*models.Reaction, error) {
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

// SaveReaction inserts or replaces a reaction
func (s *SQLiteStore) SaveReaction(r *models.Reaction) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO reactions
		(id, content, giver_login, receiver_login, comment_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.Content, r.GiverLogin, r.ReceiverLogin, r.CommentID, nullTime(r.CreatedAt))
	return err
}

// SaveContributor inserts or replaces a contributor
func (s *SQLiteStore) SaveContributor(c *models.Contributor) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO contributors (login, name, reviews, commits, issues_opened)
		VALUES (?, ?, ?, ?, ?)
	`, c.Login, c.Name, c.Reviews, c.Commits, c.IssuesOpened)
	return err
}

// GetAllContributors returns every imported contributor
func (s *SQLiteStore) GetAllContributors() ([]*models.Contributor, error) {
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

// SaveOutsideCommitter inserts or replaces an outside committer
func (s *SQLiteStore) SaveOutsideCommitter(c *models.OutsideCommitter) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO outside_committers
		(name, org, commit_count, project_count, latest_commit)
		VALUES (?, ?, ?, ?, ?)
	`, c.Name, c.Org, c.CommitCount, c.ProjectCount, c.LatestCommit)
	return err
}

// GetAllOutsideCommitters returns every imported outside committer
func (s *SQLiteStore) GetAllOutsideCommitters() ([]*models.OutsideCommitter, error) {
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
func (s *SQLiteStore) HealthCheck() error {
	return s.db.Ping()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const insertCommentSQLite = `
	INSERT OR REPLACE INTO comments
	(id, author_login, body, diff, score, pos, neg, weighted_pos, weighted_neg,
	 created_at, last_edited_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func commentArgs(c *models.Comment) []interface{} {
	return []interface{}{
		c.ID, c.AuthorLogin, c.Body, c.Diff, c.Score, c.Pos, c.Neg,
		c.WeightedPos, c.WeightedNeg, nullTime(c.CreatedAt), nullTime(c.LastEditedAt),
	}
}

// scanner matches both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanParticipant(row scanner) (*models.Participant, error) {
	var p models.Participant
	var lastActive sql.NullTime
	err := row.Scan(&p.Login, &p.Name, &p.Score, &p.PosIn, &p.WeightedPosIn,
		&p.NegIn, &p.WeightedNegIn, &p.PosOut, &p.NegOut, &p.Punishment,
		&p.WeightFactor, &p.Rank, &p.Trend, &lastActive)
	if err == sql.ErrNoRows {
		return nil, ErrParticipantNotFound
	}
	if err != nil {
		return nil, err
	}
	p.LastActiveAt = timePtr(lastActive)
	return &p, nil
}

func scanComment(row scanner) (*models.Comment, error) {
	var c models.Comment
	var createdAt, lastEditedAt sql.NullTime
	err := row.Scan(&c.ID, &c.AuthorLogin, &c.Body, &c.Diff, &c.Score, &c.Pos,
		&c.Neg, &c.WeightedPos, &c.WeightedNeg, &createdAt, &lastEditedAt)
	if err == sql.ErrNoRows {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	c.CreatedAt = timePtr(createdAt)
	c.LastEditedAt = timePtr(lastEditedAt)
	return &c, nil
}

func scanReaction(row scanner) (*models.Reaction, error) {
	var r models.Reaction
	var createdAt sql.NullTime
	err := row.Scan(&r.ID, &r.Content, &r.GiverLogin, &r.ReceiverLogin,
		&r.CommentID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrReactionNotFound
	}
	if err != nil {
		return nil, err
	}
	r.CreatedAt = timePtr(createdAt)
	return &r, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
