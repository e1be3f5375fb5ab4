// Package fixture reads and writes the meta-review dataset file: a single
// JSON snapshot of the store used to seed a fresh database before a build
// and to carry the results over to the deployed site.
package fixture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/li-boxuan/community/pkg/models"
	"github.com/li-boxuan/community/pkg/store"
)

// Snapshot is the serialized form of the meta-review state
type Snapshot struct {
	Participants []*models.Participant `json:"participants"`
	Comments     []*models.Comment     `json:"comments"`
	Reactions    []*models.Reaction    `json:"reactions"`
}

// Exists reports whether a fixture file is present at path
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load reads the fixture at path and upserts its contents into the store
func Load(path string, st store.Store) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode fixture %s: %w", path, err)
	}

	for _, p := range snap.Participants {
		if err := st.SaveParticipant(p); err != nil {
			return nil, fmt.Errorf("failed to load participant %s: %w", p.Login, err)
		}
	}
	if err := st.SaveComments(snap.Comments); err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}
	for _, r := range snap.Reactions {
		if err := st.SaveReaction(r); err != nil {
			return nil, fmt.Errorf("failed to load reaction %s: %w", r.ID, err)
		}
	}

	return &snap, nil
}

// Dump serializes the full store state to path, replacing whatever was
// there. The write goes to a temp file in the same directory first and is
// renamed over the target, so an interrupted dump never leaves a partially
// written dataset behind.
func Dump(path string, st store.Store) (*Snapshot, error) {
	snap, err := Collect(st)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode fixture: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".meta_review-*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp fixture: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to write fixture: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to close fixture: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to replace fixture %s: %w", path, err)
	}

	return snap, nil
}

// Collect assembles a snapshot of the current store state
func Collect(st store.Store) (*Snapshot, error) {
	participants, err := st.GetAllParticipants()
	if err != nil {
		return nil, fmt.Errorf("failed to collect participants: %w", err)
	}
	comments, err := st.GetAllComments()
	if err != nil {
		return nil, fmt.Errorf("failed to collect comments: %w", err)
	}
	reactions, err := st.GetAllReactions()
	if err != nil {
		return nil, fmt.Errorf("failed to collect reactions: %w", err)
	}

	return &Snapshot{
		Participants: participants,
		Comments:     comments,
		Reactions:    reactions,
	}, nil
}
