package metareview

import (
	"fmt"
	"sort"
	"time"

	"github.com/li-boxuan/community/pkg/logging"
	"github.com/li-boxuan/community/pkg/models"
	"github.com/li-boxuan/community/pkg/store"
)

// Scoring coefficients. A participant gets at least 0.1 point for a positive
// reaction received, so the bonus for giving one (c1) must stay below that.
// c2 is larger because people are reluctant to give negative reactions. The
// bonus points encourage doing meta-reviews without letting them dominate:
//
//	S = P1 - N1 + c1*P2 + c2*N2
//
// where P1/N1 are the weighted thumbs up/down received and P2/N2 the plain
// counts given away.
const (
	c1 = 0.05
	c2 = 0.2
)

// editPenalty is deducted when a reviewer edits a comment after it has
// already been meta-reviewed.
const editPenalty = 0.5

// rawReaction is a scraped reaction with its comment context attached:
// the receiver is the author of the comment reacted on.
type rawReaction struct {
	RawReaction
	ReceiverLogin string
	CommentID     string
}

// Handler processes one scraped issues document: it merges the scraped
// reviews and reactions with the stored history, recomputes scores,
// rankings and weight factors, and persists everything back to the store.
type Handler struct {
	store  store.Store
	logger *logging.Logger
	now    time.Time

	rawComments  map[string]RawComment
	rawReactions map[string]rawReaction
	rawUsers     map[string]RawUser

	participants map[string]*models.Participant
	comments     map[string]*models.Comment
	reactions    map[string]*models.Reaction
}

// NewHandler collects comments, reactions and participants from the
// document into memory. Users with a blank login (deleted accounts) are
// dropped.
func NewHandler(st store.Store, logger *logging.Logger, doc *Document, now time.Time) *Handler {
	h := &Handler{
		store:        st,
		logger:       logger,
		now:          now,
		rawComments:  make(map[string]RawComment),
		rawReactions: make(map[string]rawReaction),
		rawUsers:     make(map[string]RawUser),
		participants: make(map[string]*models.Participant),
		comments:     make(map[string]*models.Comment),
		reactions:    make(map[string]*models.Reaction),
	}

	for _, wrapper := range doc.Issues {
		if wrapper.Issue.PullRequest == nil {
			continue
		}
		for _, comment := range wrapper.Issue.PullRequest.Comments {
			h.rawComments[comment.ID] = comment
		}
	}

	for _, comment := range h.rawComments {
		for _, reaction := range comment.Reactions {
			h.rawReactions[reaction.ID] = rawReaction{
				RawReaction:   reaction,
				ReceiverLogin: comment.Author.Login,
				CommentID:     comment.ID,
			}
		}
	}

	for _, comment := range h.rawComments {
		if comment.Author.Login != "" {
			h.rawUsers[comment.Author.Login] = comment.Author
		}
		for _, reaction := range comment.Reactions {
			if reaction.User.Login != "" {
				h.rawUsers[reaction.User.Login] = reaction.User
			}
		}
	}

	return h
}

// Run executes one full meta-review iteration
func (h *Handler) Run() error {
	h.logger.Info("load participants to memory")
	if err := h.loadParticipants(); err != nil {
		return err
	}
	h.logger.Info("load comments to memory")
	if err := h.loadComments(); err != nil {
		return err
	}
	h.logger.Info("load reactions to memory")
	if err := h.loadReactions(); err != nil {
		return err
	}

	if err := h.persist(); err != nil {
		return err
	}

	h.logger.Info("update scores")
	h.updateScores()
	h.logger.Info("update rankings")
	h.updateRankings()
	h.logger.Info("update weight factors")
	h.updateWeightFactors()
	h.logger.Info("update last active times")
	h.updateTimes()

	if err := h.persist(); err != nil {
		return err
	}

	h.logger.Info("meta review system finished")
	return nil
}

// loadParticipants gets or creates a participant for every scraped user,
// then pulls in the stored participants that were inactive this round;
// their ranks still need updating.
func (h *Handler) loadParticipants() error {
	created, existing := 0, 0
	for login, user := range h.rawUsers {
		p, err := h.store.GetParticipant(login)
		if err == store.ErrParticipantNotFound {
			// New participants start with full weight; their factor is
			// recalculated from their score at the end of the iteration
			p = &models.Participant{Login: login, WeightFactor: 1.0}
			created++
		} else if err != nil {
			return fmt.Errorf("failed to load participant %s: %w", login, err)
		} else {
			existing++
		}
		p.Name = user.Name
		h.participants[login] = p
	}
	h.logger.Info("participants collected", map[string]interface{}{
		"created": created, "existing": existing,
	})

	all, err := h.store.GetAllParticipants()
	if err != nil {
		return fmt.Errorf("failed to load stored participants: %w", err)
	}
	loaded := 0
	for _, p := range all {
		if _, ok := h.participants[p.Login]; !ok {
			h.participants[p.Login] = p
			loaded++
		}
	}
	h.logger.Info("recently inactive participants loaded", map[string]interface{}{
		"loaded": loaded, "total": len(h.participants),
	})
	return nil
}

// loadComments gets or creates a comment for every scraped review comment
// and applies the edit penalty where a comment changed after it had been
// meta-reviewed.
func (h *Handler) loadComments() error {
	stored, err := h.store.GetAllComments()
	if err != nil {
		return fmt.Errorf("failed to load stored comments: %w", err)
	}
	existing := make(map[string]*models.Comment, len(stored))
	for _, c := range stored {
		existing[c.ID] = c
	}

	// Reactions already on record, grouped by comment; the edit check runs
	// against these, not against the reactions scraped this round.
	storedReactions, err := h.store.GetAllReactions()
	if err != nil {
		return fmt.Errorf("failed to load stored reactions: %w", err)
	}
	byComment := make(map[string][]*models.Reaction)
	for _, r := range storedReactions {
		byComment[r.CommentID] = append(byComment[r.CommentID], r)
	}

	created := 0
	for id, raw := range h.rawComments {
		c, ok := existing[id]
		if !ok {
			c = &models.Comment{ID: id}
			created++
		}
		c.Body = raw.BodyText
		c.Diff = raw.DiffHunk
		c.CreatedAt = raw.CreatedAt
		c.LastEditedAt = raw.LastEditedAt
		if raw.Author.Login != "" {
			c.AuthorLogin = raw.Author.Login
		}

		h.checkCommentUpdate(c, byComment[c.ID])
		h.comments[id] = c
	}
	h.logger.Info("comments collected", map[string]interface{}{
		"created": created, "existing": len(h.rawComments) - created,
	})
	return nil
}

// checkCommentUpdate punishes a reviewer who edits a review comment after
// it has been meta-reviewed.
func (h *Handler) checkCommentUpdate(c *models.Comment, reactions []*models.Reaction) {
	if c.LastEditedAt == nil {
		return
	}

	needPunishment := false
	for _, r := range reactions {
		if r.CreatedAt != nil && c.LastEditedAt.After(*r.CreatedAt) {
			needPunishment = true
		}
	}
	if !needPunishment {
		return
	}

	author, ok := h.participants[c.AuthorLogin]
	if !ok {
		return
	}
	h.logger.Info("review comment edited after meta-review, deducting penalty",
		map[string]interface{}{"login": author.Login, "comment": c.ID})
	author.Punishment += editPenalty
	author.Score -= editPenalty
}

// loadReactions gets or creates a reaction for every scraped one
func (h *Handler) loadReactions() error {
	created, existing := 0, 0
	for id, raw := range h.rawReactions {
		r, err := h.store.GetReaction(id)
		if err == store.ErrReactionNotFound {
			r = &models.Reaction{ID: id}
			created++
		} else if err != nil {
			return fmt.Errorf("failed to load reaction %s: %w", id, err)
		} else {
			existing++
		}
		r.Content = raw.Content
		r.CreatedAt = raw.CreatedAt
		if raw.User.Login != "" {
			r.GiverLogin = raw.User.Login
		}
		if raw.ReceiverLogin != "" {
			r.ReceiverLogin = raw.ReceiverLogin
		}
		r.CommentID = raw.CommentID
		h.reactions[id] = r
	}
	h.logger.Info("reactions collected", map[string]interface{}{
		"created": created, "existing": existing,
	})
	return nil
}

// updateScores applies the scoring formula to every participant. Reactions
// created before the participant's last active time were counted in an
// earlier iteration and are skipped.
func (h *Handler) updateScores() {
	received := make(map[string][]*models.Reaction)
	given := make(map[string][]*models.Reaction)
	for _, r := range h.reactions {
		if r.ReceiverLogin != "" {
			received[r.ReceiverLogin] = append(received[r.ReceiverLogin], r)
		}
		if r.GiverLogin != "" {
			given[r.GiverLogin] = append(given[r.GiverLogin], r)
		}
	}

	for login, participant := range h.participants {
		var p1, n1 float64
		var p2, n2 int
		posCnt, negCnt := 0, 0

		for _, r := range received[login] {
			if h.alreadyCounted(participant.LastActiveAt, r) {
				continue
			}

			weightFactor := 0.0
			if giver, ok := h.participants[r.GiverLogin]; ok {
				weightFactor = giver.WeightFactor
			}

			comment := h.comments[r.CommentID]
			switch {
			case r.Positive():
				p1 += weightFactor
				posCnt++
				if comment != nil {
					comment.Pos++
					comment.WeightedPos += weightFactor
					comment.Score += weightFactor
				}
			case r.Negative():
				n1 += weightFactor
				negCnt++
				if comment != nil {
					comment.Neg++
					comment.WeightedNeg += weightFactor
					comment.Score -= weightFactor
				}
			default:
				h.logger.Debug("reaction ignored", map[string]interface{}{"content": r.Content})
			}
		}

		for _, r := range given[login] {
			if h.alreadyCounted(participant.LastActiveAt, r) {
				continue
			}
			switch {
			case r.Positive():
				p2++
			case r.Negative():
				n2++
			}
		}

		participant.PosIn += posCnt
		participant.WeightedPosIn += p1
		participant.PosOut += p2
		participant.NegIn += negCnt
		participant.WeightedNegIn += n1
		participant.NegOut += n2

		s := p1 - n1 + c1*float64(p2) + c2*float64(n2)
		h.logger.Debug("score updated", map[string]interface{}{
			"login": login, "before": participant.Score, "after": participant.Score + s,
		})
		participant.Score += s
	}
}

func (h *Handler) alreadyCounted(lastActiveAt *time.Time, r *models.Reaction) bool {
	return lastActiveAt != nil && r.CreatedAt != nil && r.CreatedAt.Before(*lastActiveAt)
}

// updateRankings sorts by score, breaking ties on positive reactions
// received; equal scores share a rank. Trend is the number of places
// climbed since the previous iteration.
func (h *Handler) updateRankings() {
	ordered := make([]*models.Participant, 0, len(h.participants))
	for _, p := range h.participants {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		return ordered[i].PosIn > ordered[j].PosIn
	})

	rank := 0
	var lastScore float64
	for i, p := range ordered {
		if i == 0 || lastScore != p.Score {
			rank++
			lastScore = p.Score
		}

		if p.Rank != 0 {
			// No trend for first-time rankings
			p.Trend = p.Rank - rank
		}
		p.Rank = rank
	}
}

// updateWeightFactors recalculates the weight factor each participant's
// reactions will carry in the next iteration. Scores are normalised against
// the best score (at least 1.0) and squeezed into [0.1, 1.0]; negative
// scores weigh nothing.
func (h *Handler) updateWeightFactors() {
	maxScore := 1.0
	for _, p := range h.participants {
		if p.Score > maxScore {
			maxScore = p.Score
		}
	}

	for _, p := range h.participants {
		if p.Score < 0 {
			p.WeightFactor = 0
			continue
		}
		p.WeightFactor = p.Score/maxScore*0.9 + 0.1
	}
}

// updateTimes sets each participant's last active time to the latest of:
// last comment written or edited, last meta-review given, last meta-review
// received. This is "last impact on the meta-review system", not general
// community activity.
func (h *Handler) updateTimes() {
	for _, c := range h.comments {
		if p, ok := h.participants[c.AuthorLogin]; ok {
			bump(p, c.CreatedAt)
			bump(p, c.LastEditedAt)
		}
	}
	for _, r := range h.reactions {
		if p, ok := h.participants[r.GiverLogin]; ok {
			bump(p, r.CreatedAt)
		}
		if p, ok := h.participants[r.ReceiverLogin]; ok {
			bump(p, r.CreatedAt)
		}
	}
}

func bump(p *models.Participant, t *time.Time) {
	if t == nil {
		return
	}
	if p.LastActiveAt == nil || t.After(*p.LastActiveAt) {
		p.LastActiveAt = t
	}
}

// persist writes every in-memory entity back to the store and reloads the
// full stored state, so the scoring passes see history that was not part of
// this round's document.
func (h *Handler) persist() error {
	h.logger.Info("dump participants to store")
	for _, p := range h.participants {
		if err := h.store.SaveParticipant(p); err != nil {
			return fmt.Errorf("failed to save participant %s: %w", p.Login, err)
		}
	}

	h.logger.Info("dump comments to store")
	comments := make([]*models.Comment, 0, len(h.comments))
	for _, c := range h.comments {
		comments = append(comments, c)
	}
	if err := h.store.SaveComments(comments); err != nil {
		return err
	}

	h.logger.Info("dump reactions to store")
	for _, r := range h.reactions {
		if err := h.store.SaveReaction(r); err != nil {
			return fmt.Errorf("failed to save reaction %s: %w", r.ID, err)
		}
	}

	return h.reloadFromStore()
}

func (h *Handler) reloadFromStore() error {
	comments, err := h.store.GetAllComments()
	if err != nil {
		return err
	}
	for _, c := range comments {
		h.comments[c.ID] = c
	}

	reactions, err := h.store.GetAllReactions()
	if err != nil {
		return err
	}
	for _, r := range reactions {
		h.reactions[r.ID] = r
	}
	return nil
}
