package models

import (
	"time"
)

// Participant represents a community member who took part in the meta-review
// system, either by writing review comments or by reacting to them.
type Participant struct {
	Login string `json:"login"`
	Name  string `json:"name,omitempty"`

	// Cumulative score, updated every iteration
	Score float64 `json:"score"`

	// Reactions received on own review comments
	PosIn         int     `json:"pos_in"`
	WeightedPosIn float64 `json:"weighted_pos_in"`
	NegIn         int     `json:"neg_in"`
	WeightedNegIn float64 `json:"weighted_neg_in"`

	// Reactions given to other people's review comments
	PosOut int `json:"pos_out"`
	NegOut int `json:"neg_out"`

	// Points deducted for editing comments after they were meta-reviewed
	Punishment float64 `json:"punishment"`

	// WeightFactor is recalculated each iteration from the score and applied
	// to the reactions this participant gives in the NEXT iteration.
	// Ranges from 0 to 1; 0 for participants with a negative score.
	WeightFactor float64 `json:"weight_factor"`

	// Rank is 1-based; 0 means never ranked. Participants with equal
	// scores share a rank.
	Rank int `json:"rank,omitempty"`

	// Trend = previous rank - current rank (positive means climbing)
	Trend int `json:"trend,omitempty"`

	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
}

// Active reports whether the participant has ever been ranked.
func (p *Participant) Active() bool {
	return p.Rank > 0
}
