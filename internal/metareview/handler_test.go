package metareview

import (
	"math"
	"testing"
	"time"

	"github.com/li-boxuan/community/pkg/logging"
	"github.com/li-boxuan/community/pkg/models"
	"github.com/li-boxuan/community/pkg/store"
)

func ts(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad test timestamp %s: %v", value, err)
	}
	return &parsed
}

func quietLogger() *logging.Logger {
	logger := logging.NewLogger(logging.ERROR, false)
	return logger
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func docWithComments(comments ...RawComment) *Document {
	return &Document{Issues: []IssueWrapper{
		{Issue: Issue{PullRequest: &PullRequest{Comments: comments}}},
	}}
}

// TestHandler_FirstIteration checks the scoring formula on a fresh store:
// alice's review gets one thumbs up from bob and one thumbs down from
// carol, both reacting for the first time.
func TestHandler_FirstIteration(t *testing.T) {
	st := store.NewMemoryStore()
	doc := docWithComments(RawComment{
		ID:        "c1",
		BodyText:  "consider renaming this",
		CreatedAt: ts(t, "2019-01-01T10:00:00Z"),
		Author:    RawUser{Login: "alice", Name: "Alice"},
		Reactions: []RawReaction{
			{ID: "r1", Content: "THUMBS_UP", CreatedAt: ts(t, "2019-01-02T10:00:00Z"), User: RawUser{Login: "bob"}},
			{ID: "r2", Content: "THUMBS_DOWN", CreatedAt: ts(t, "2019-01-03T10:00:00Z"), User: RawUser{Login: "carol"}},
		},
	})

	handler := NewHandler(st, quietLogger(), doc, time.Now())
	if err := handler.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	alice, err := st.GetParticipant("alice")
	if err != nil {
		t.Fatalf("failed to get alice: %v", err)
	}
	// New reactors carry full weight: P1 = 1.0, N1 = 1.0, no bonus points
	if !almostEqual(alice.Score, 0) {
		t.Errorf("alice score = %v, want 0", alice.Score)
	}
	if alice.PosIn != 1 || alice.NegIn != 1 {
		t.Errorf("alice pos_in/neg_in = %d/%d, want 1/1", alice.PosIn, alice.NegIn)
	}
	if alice.Name != "Alice" {
		t.Errorf("alice name = %q, want Alice", alice.Name)
	}

	bob, _ := st.GetParticipant("bob")
	if !almostEqual(bob.Score, 0.05) {
		t.Errorf("bob score = %v, want 0.05 (one thumbs up given)", bob.Score)
	}

	carol, _ := st.GetParticipant("carol")
	if !almostEqual(carol.Score, 0.2) {
		t.Errorf("carol score = %v, want 0.2 (one thumbs down given)", carol.Score)
	}

	// Rankings: carol 0.2, bob 0.05, alice 0
	if carol.Rank != 1 || bob.Rank != 2 || alice.Rank != 3 {
		t.Errorf("ranks = carol %d, bob %d, alice %d; want 1, 2, 3",
			carol.Rank, bob.Rank, alice.Rank)
	}

	// Weight factors: score/max*0.9 + 0.1 with max clamped to 1.0
	if !almostEqual(alice.WeightFactor, 0.1) {
		t.Errorf("alice weight factor = %v, want 0.1", alice.WeightFactor)
	}
	if !almostEqual(carol.WeightFactor, 0.28) {
		t.Errorf("carol weight factor = %v, want 0.28", carol.WeightFactor)
	}

	// The review comment's own tallies
	c1, err := st.GetComment("c1")
	if err != nil {
		t.Fatalf("failed to get comment: %v", err)
	}
	if c1.Pos != 1 || c1.Neg != 1 {
		t.Errorf("comment pos/neg = %d/%d, want 1/1", c1.Pos, c1.Neg)
	}
	if !almostEqual(c1.Score, 0) {
		t.Errorf("comment score = %v, want 0", c1.Score)
	}
}

// TestHandler_WeightedReactions checks that a reaction carries the giver's
// stored weight factor, not a flat point.
func TestHandler_WeightedReactions(t *testing.T) {
	st := store.NewMemoryStore()
	if err := st.SaveParticipant(&models.Participant{Login: "bob", WeightFactor: 0.4}); err != nil {
		t.Fatal(err)
	}

	doc := docWithComments(RawComment{
		ID:        "c1",
		CreatedAt: ts(t, "2019-01-01T10:00:00Z"),
		Author:    RawUser{Login: "alice"},
		Reactions: []RawReaction{
			{ID: "r1", Content: "THUMBS_UP", CreatedAt: ts(t, "2019-01-02T10:00:00Z"), User: RawUser{Login: "bob"}},
		},
	})

	handler := NewHandler(st, quietLogger(), doc, time.Now())
	if err := handler.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	alice, _ := st.GetParticipant("alice")
	if !almostEqual(alice.Score, 0.4) {
		t.Errorf("alice score = %v, want bob's weight factor 0.4", alice.Score)
	}
	if !almostEqual(alice.WeightedPosIn, 0.4) {
		t.Errorf("alice weighted_pos_in = %v, want 0.4", alice.WeightedPosIn)
	}
}

// TestHandler_SkipsCountedReactions checks that reactions older than the
// receiver's last active time are not counted again.
func TestHandler_SkipsCountedReactions(t *testing.T) {
	st := store.NewMemoryStore()
	if err := st.SaveParticipant(&models.Participant{
		Login:        "alice",
		Score:        1.5,
		PosIn:        3,
		LastActiveAt: ts(t, "2019-06-01T00:00:00Z"),
	}); err != nil {
		t.Fatal(err)
	}

	// The reaction predates alice's last active time: already counted
	doc := docWithComments(RawComment{
		ID:        "c1",
		CreatedAt: ts(t, "2019-01-01T10:00:00Z"),
		Author:    RawUser{Login: "alice"},
		Reactions: []RawReaction{
			{ID: "r1", Content: "THUMBS_UP", CreatedAt: ts(t, "2019-01-02T10:00:00Z"), User: RawUser{Login: "bob"}},
		},
	})

	handler := NewHandler(st, quietLogger(), doc, time.Now())
	if err := handler.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	alice, _ := st.GetParticipant("alice")
	if !almostEqual(alice.Score, 1.5) {
		t.Errorf("alice score = %v, want unchanged 1.5", alice.Score)
	}
	if alice.PosIn != 3 {
		t.Errorf("alice pos_in = %d, want unchanged 3", alice.PosIn)
	}
}

// TestHandler_EditPenalty checks that editing a review comment after it was
// meta-reviewed costs half a point.
func TestHandler_EditPenalty(t *testing.T) {
	st := store.NewMemoryStore()
	// The reaction is already on record from a previous iteration
	if err := st.SaveReaction(&models.Reaction{
		ID:            "r1",
		Content:       "THUMBS_UP",
		GiverLogin:    "bob",
		ReceiverLogin: "alice",
		CommentID:     "c1",
		CreatedAt:     ts(t, "2019-01-02T10:00:00Z"),
	}); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveParticipant(&models.Participant{
		Login: "alice", Score: 2.0,
		LastActiveAt: ts(t, "2019-01-02T10:00:00Z"),
	}); err != nil {
		t.Fatal(err)
	}

	// The scraped comment was edited after the reaction
	doc := docWithComments(RawComment{
		ID:           "c1",
		CreatedAt:    ts(t, "2019-01-01T10:00:00Z"),
		LastEditedAt: ts(t, "2019-01-05T10:00:00Z"),
		Author:       RawUser{Login: "alice"},
	})

	handler := NewHandler(st, quietLogger(), doc, time.Now())
	if err := handler.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	alice, _ := st.GetParticipant("alice")
	if !almostEqual(alice.Score, 1.5) {
		t.Errorf("alice score = %v, want 1.5 after penalty", alice.Score)
	}
	if !almostEqual(alice.Punishment, 0.5) {
		t.Errorf("alice punishment = %v, want 0.5", alice.Punishment)
	}
}

// TestHandler_RankingTiesAndTrend checks dense ranking with shared ranks
// for equal scores and trend as places climbed.
func TestHandler_RankingTiesAndTrend(t *testing.T) {
	st := store.NewMemoryStore()
	seed := []*models.Participant{
		{Login: "alice", Score: 5.0, PosIn: 10, Rank: 2},
		{Login: "bob", Score: 5.0, PosIn: 4, Rank: 1},
		{Login: "carol", Score: 3.0, Rank: 3},
		{Login: "dave", Score: 1.0}, // never ranked before
	}
	for _, p := range seed {
		if err := st.SaveParticipant(p); err != nil {
			t.Fatal(err)
		}
	}

	// Empty document: nobody was active, only rankings move
	handler := NewHandler(st, quietLogger(), &Document{}, time.Now())
	if err := handler.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	alice, _ := st.GetParticipant("alice")
	bob, _ := st.GetParticipant("bob")
	carol, _ := st.GetParticipant("carol")
	dave, _ := st.GetParticipant("dave")

	if alice.Rank != 1 || bob.Rank != 1 {
		t.Errorf("tied ranks = alice %d, bob %d; want both 1", alice.Rank, bob.Rank)
	}
	if carol.Rank != 2 {
		t.Errorf("carol rank = %d, want 2 (dense ranking)", carol.Rank)
	}
	if dave.Rank != 3 {
		t.Errorf("dave rank = %d, want 3", dave.Rank)
	}

	if alice.Trend != 1 {
		t.Errorf("alice trend = %d, want +1 (was 2, now 1)", alice.Trend)
	}
	if carol.Trend != 1 {
		t.Errorf("carol trend = %d, want +1 (was 3, now 2)", carol.Trend)
	}
	if dave.Trend != 0 {
		t.Errorf("dave trend = %d, want 0 for a first ranking", dave.Trend)
	}
}

// TestHandler_NegativeScoreWeighsNothing checks that a participant with a
// negative score gets a zero weight factor.
func TestHandler_NegativeScoreWeighsNothing(t *testing.T) {
	st := store.NewMemoryStore()
	if err := st.SaveParticipant(&models.Participant{Login: "mallory", Score: -2.0}); err != nil {
		t.Fatal(err)
	}

	handler := NewHandler(st, quietLogger(), &Document{}, time.Now())
	if err := handler.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	mallory, _ := st.GetParticipant("mallory")
	if mallory.WeightFactor != 0 {
		t.Errorf("mallory weight factor = %v, want 0", mallory.WeightFactor)
	}
}

// TestHandler_DeletedAccounts checks that comments and reactions from
// deleted GitHub accounts (blank login) do not create participants.
func TestHandler_DeletedAccounts(t *testing.T) {
	st := store.NewMemoryStore()
	doc := docWithComments(RawComment{
		ID:        "c1",
		CreatedAt: ts(t, "2019-01-01T10:00:00Z"),
		Author:    RawUser{Login: ""},
		Reactions: []RawReaction{
			{ID: "r1", Content: "THUMBS_UP", CreatedAt: ts(t, "2019-01-02T10:00:00Z"), User: RawUser{Login: "bob"}},
		},
	})

	handler := NewHandler(st, quietLogger(), doc, time.Now())
	if err := handler.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	participants, _ := st.GetAllParticipants()
	if len(participants) != 1 || participants[0].Login != "bob" {
		t.Errorf("participants = %d, want only bob", len(participants))
	}

	// The comment itself is still recorded
	if _, err := st.GetComment("c1"); err != nil {
		t.Errorf("comment from deleted account should be stored: %v", err)
	}
}

// TestHandler_LastActiveTime checks that last active is the latest of
// writing, editing, giving and receiving.
func TestHandler_LastActiveTime(t *testing.T) {
	st := store.NewMemoryStore()
	doc := docWithComments(RawComment{
		ID:           "c1",
		CreatedAt:    ts(t, "2019-01-01T10:00:00Z"),
		LastEditedAt: ts(t, "2019-01-04T10:00:00Z"),
		Author:       RawUser{Login: "alice"},
		Reactions: []RawReaction{
			{ID: "r1", Content: "THUMBS_UP", CreatedAt: ts(t, "2019-01-02T10:00:00Z"), User: RawUser{Login: "bob"}},
		},
	})

	handler := NewHandler(st, quietLogger(), doc, time.Now())
	if err := handler.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	alice, _ := st.GetParticipant("alice")
	if alice.LastActiveAt == nil || !alice.LastActiveAt.Equal(*ts(t, "2019-01-04T10:00:00Z")) {
		t.Errorf("alice last active = %v, want the edit time", alice.LastActiveAt)
	}

	bob, _ := st.GetParticipant("bob")
	if bob.LastActiveAt == nil || !bob.LastActiveAt.Equal(*ts(t, "2019-01-02T10:00:00Z")) {
		t.Errorf("bob last active = %v, want the reaction time", bob.LastActiveAt)
	}
}
