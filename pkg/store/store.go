// Package store persists optimized sets so they can be listed, shown and
// deleted later.
//
// Backends:
//   - FileStore: one JSON file per set, used by the CLI
//   - MongoStore: a MongoDB collection, used by the server
//
// Sets are identified by a random UUID assigned on first save.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/mixorder/pkg/errors"
	"github.com/matzehuels/mixorder/pkg/library"
	"github.com/matzehuels/mixorder/pkg/mix/cost"
)

// SavedSet is an ordered set with the score it was saved with. Tracks are
// already in play order; Shifts[i] applies to Tracks[i].
type SavedSet struct {
	ID        string          `json:"id" bson:"_id"`
	Name      string          `json:"name" bson:"name"`
	CreatedAt time.Time       `json:"created_at" bson:"created_at"`
	Mode      string          `json:"mode" bson:"mode"`
	Tracks    []library.Track `json:"tracks" bson:"tracks"`
	Shifts    []int           `json:"shifts" bson:"shifts"`
	Cost      float64         `json:"cost" bson:"cost"`
	Breakdown cost.Breakdown  `json:"breakdown" bson:"breakdown"`
}

// Summary is the listing form of a set.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Mode      string    `json:"mode"`
	Cost      float64   `json:"cost"`
	Tracks    int       `json:"tracks"`
}

// Summary returns the listing form of s.
func (s *SavedSet) Summary() Summary {
	return Summary{
		ID:        s.ID,
		Name:      s.Name,
		CreatedAt: s.CreatedAt,
		Mode:      s.Mode,
		Cost:      s.Cost,
		Tracks:    len(s.Tracks),
	}
}

// Store is the interface for saved-set backends.
type Store interface {
	// Save assigns an ID and creation time when missing, then writes the set.
	Save(ctx context.Context, set *SavedSet) error

	// Get returns the set with the given ID, or an error with code
	// NOT_FOUND when it does not exist.
	Get(ctx context.Context, id string) (*SavedSet, error)

	// List returns summaries ordered newest first.
	List(ctx context.Context) ([]Summary, error)

	// Delete removes a set. Deleting a missing set is not an error.
	Delete(ctx context.Context, id string) error

	Close() error
}

// NewID returns a new set identifier.
func NewID() string {
	return uuid.NewString()
}

// prepare fills the ID and creation time and validates the name.
func prepare(set *SavedSet, now time.Time) error {
	if set.ID == "" {
		set.ID = NewID()
	} else if err := errors.ValidateSetID(set.ID); err != nil {
		return err
	}
	if set.CreatedAt.IsZero() {
		set.CreatedAt = now.UTC()
	}
	if set.Name == "" {
		set.Name = "set-" + set.CreatedAt.Format("20060102-150405")
	}
	return errors.ValidateSetName(set.Name)
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeNotFound, "set %s not found", id)
}
