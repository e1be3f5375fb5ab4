package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/li-boxuan/community/pkg/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "community.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if _, err := s.Migrate(); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return s
}

func TestSQLiteMigrate(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "community.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	version, err := s.SchemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version != 0 {
		t.Errorf("fresh database schema version = %d, want 0", version)
	}

	applied, err := s.Migrate()
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if applied != len(migrations) {
		t.Errorf("applied = %d migrations, want %d", applied, len(migrations))
	}

	version, err = s.SchemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version != migrations[len(migrations)-1].Version {
		t.Errorf("schema version = %d, want latest", version)
	}

	// Migrating again applies nothing
	applied, err = s.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if applied != 0 {
		t.Errorf("second migrate applied = %d, want 0", applied)
	}
}

func TestSQLiteParticipantRoundtrip(t *testing.T) {
	s := newTestSQLiteStore(t)

	if _, err := s.GetParticipant("alice"); err != ErrParticipantNotFound {
		t.Errorf("err = %v, want ErrParticipantNotFound", err)
	}

	active := time.Date(2019, 5, 1, 12, 0, 0, 0, time.UTC)
	p := &models.Participant{
		Login:         "alice",
		Name:          "Alice",
		Score:         2.5,
		PosIn:         3,
		WeightedPosIn: 1.8,
		NegIn:         1,
		WeightedNegIn: 0.4,
		PosOut:        5,
		NegOut:        2,
		Punishment:    0.5,
		WeightFactor:  0.7,
		Rank:          2,
		Trend:         1,
		LastActiveAt:  &active,
	}
	if err := s.SaveParticipant(p); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := s.GetParticipant("alice")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "Alice" || got.Score != 2.5 || got.PosIn != 3 || got.Rank != 2 || got.Trend != 1 {
		t.Errorf("got %+v", got)
	}
	if got.WeightedPosIn != 1.8 || got.Punishment != 0.5 || got.WeightFactor != 0.7 {
		t.Errorf("got %+v", got)
	}
	if got.LastActiveAt == nil || !got.LastActiveAt.Equal(active) {
		t.Errorf("last active = %v, want %v", got.LastActiveAt, active)
	}

	// Saving again upserts
	p.Score = 3.5
	p.Rank = 1
	if err := s.SaveParticipant(p); err != nil {
		t.Fatal(err)
	}
	all, err := s.GetAllParticipants()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Score != 3.5 || all[0].Rank != 1 {
		t.Errorf("all = %+v", all)
	}
}

func TestSQLiteCommentRoundtrip(t *testing.T) {
	s := newTestSQLiteStore(t)

	created := time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC)
	edited := created.Add(48 * time.Hour)
	comments := []*models.Comment{
		{
			ID:           "c1",
			AuthorLogin:  "alice",
			Body:         "please add a test",
			Diff:         "@@ -1 +1 @@",
			Score:        1.2,
			Pos:          2,
			WeightedPos:  1.2,
			CreatedAt:    &created,
			LastEditedAt: &edited,
		},
		{ID: "c2", AuthorLogin: "bob"},
	}
	if err := s.SaveComments(comments); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := s.GetComment("c1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.AuthorLogin != "alice" || got.Body != "please add a test" || got.Pos != 2 {
		t.Errorf("got %+v", got)
	}
	if got.LastEditedAt == nil || !got.LastEditedAt.Equal(edited) {
		t.Errorf("last edited = %v, want %v", got.LastEditedAt, edited)
	}

	c2, err := s.GetComment("c2")
	if err != nil {
		t.Fatal(err)
	}
	if c2.CreatedAt != nil || c2.LastEditedAt != nil {
		t.Errorf("unset timestamps should stay nil, got %+v", c2)
	}

	all, err := s.GetAllComments()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("all = %d comments, want 2", len(all))
	}
}

func TestSQLiteReactionRoundtrip(t *testing.T) {
	s := newTestSQLiteStore(t)

	if _, err := s.GetReaction("r1"); err != ErrReactionNotFound {
		t.Errorf("err = %v, want ErrReactionNotFound", err)
	}

	created := time.Date(2019, 3, 2, 0, 0, 0, 0, time.UTC)
	r := &models.Reaction{
		ID:            "r1",
		Content:       "THUMBS_UP",
		GiverLogin:    "bob",
		ReceiverLogin: "alice",
		CommentID:     "c1",
		CreatedAt:     &created,
	}
	if err := s.SaveReaction(r); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := s.GetReaction("r1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.GiverLogin != "bob" || got.ReceiverLogin != "alice" || got.CommentID != "c1" {
		t.Errorf("got %+v", got)
	}
	if !got.Positive() {
		t.Error("stored reaction lost its content")
	}
}

func TestSQLiteCommitters(t *testing.T) {
	s := newTestSQLiteStore(t)

	if err := s.SaveContributor(&models.Contributor{Login: "alice", Reviews: 4, Commits: 20, IssuesOpened: 2}); err != nil {
		t.Fatal(err)
	}
	// Upsert on login
	if err := s.SaveContributor(&models.Contributor{Login: "alice", Reviews: 5, Commits: 21, IssuesOpened: 2}); err != nil {
		t.Fatal(err)
	}
	contributors, err := s.GetAllContributors()
	if err != nil {
		t.Fatal(err)
	}
	if len(contributors) != 1 || contributors[0].Reviews != 5 {
		t.Errorf("contributors = %+v", contributors)
	}

	if err := s.SaveOutsideCommitter(&models.OutsideCommitter{Name: "Jane", Org: "coala", CommitCount: 7, ProjectCount: 2}); err != nil {
		t.Fatal(err)
	}
	committers, err := s.GetAllOutsideCommitters()
	if err != nil {
		t.Fatal(err)
	}
	if len(committers) != 1 || committers[0].CommitCount != 7 {
		t.Errorf("committers = %+v", committers)
	}
}

func TestSQLiteHealthCheck(t *testing.T) {
	s := newTestSQLiteStore(t)
	if err := s.HealthCheck(); err != nil {
		t.Errorf("health check failed: %v", err)
	}
}

func TestNewStoreUnsupportedType(t *testing.T) {
	if _, err := NewStore(Config{Type: "oracle"}); err == nil {
		t.Error("expected an error for an unsupported store type")
	}
}
