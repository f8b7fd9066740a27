// Package library reads the tracks of a set from playlist files and turns
// them into the tables consumed by the cost model.
package library

import (
	"fmt"

	"github.com/matzehuels/mixorder/pkg/camelot"
	"github.com/matzehuels/mixorder/pkg/errors"
	"github.com/matzehuels/mixorder/pkg/mix/cost"
)

// Track is one entry of a playlist. Key holds a Camelot key; when empty the
// key is taken from the first token of Comments.
type Track struct {
	Title    string `json:"title" toml:"title" yaml:"title"`
	Artist   string `json:"artist,omitempty" toml:"artist" yaml:"artist,omitempty"`
	BPM      int    `json:"bpm" toml:"bpm" yaml:"bpm"`
	Key      string `json:"key,omitempty" toml:"key" yaml:"key,omitempty"`
	Comments string `json:"comments,omitempty" toml:"comments" yaml:"comments,omitempty"`
	Rating   int    `json:"rating,omitempty" toml:"rating" yaml:"rating,omitempty"`
}

// Label returns "Title - Artist", or just the title when the artist is unknown.
func (t Track) Label() string {
	if t.Artist == "" {
		return t.Title
	}
	return fmt.Sprintf("%s - %s", t.Title, t.Artist)
}

// CamelotKey resolves the track's key.
func (t Track) CamelotKey() (camelot.Key, error) {
	if t.Key != "" {
		return camelot.Parse(t.Key)
	}
	return camelot.FromComments(t.Comments)
}

// Playlist is an unordered collection of tracks.
type Playlist struct {
	Name   string  `json:"name,omitempty" toml:"name" yaml:"name,omitempty"`
	Tracks []Track `json:"tracks" toml:"tracks" yaml:"tracks"`
}

// Skipped records a track dropped by Prepare.
type Skipped struct {
	Track  Track  `json:"track"`
	Reason string `json:"reason"`
}

// Prepared holds the usable tracks and their resolved keys in input order.
type Prepared struct {
	Tracks []Track
	Keys   []camelot.Key
}

// Len returns the number of usable tracks.
func (p Prepared) Len() int { return len(p.Tracks) }

// Prepare drops tracks without a tempo or a valid key. It fails only when
// nothing usable remains.
func Prepare(tracks []Track) (Prepared, []Skipped, error) {
	var (
		out     Prepared
		skipped []Skipped
	)
	for _, t := range tracks {
		if t.BPM <= 0 {
			skipped = append(skipped, Skipped{Track: t, Reason: "no BPM"})
			continue
		}
		k, err := t.CamelotKey()
		if err != nil {
			skipped = append(skipped, Skipped{Track: t, Reason: "no valid key"})
			continue
		}
		out.Tracks = append(out.Tracks, t)
		out.Keys = append(out.Keys, k)
	}
	if out.Len() == 0 {
		return out, skipped, errors.New(errors.ErrCodeInvalidInput, "no usable tracks (%d skipped)", len(skipped))
	}
	return out, skipped, nil
}

// BuildTables returns cost tables for the prepared tracks under scheme.
func BuildTables(p Prepared, scheme camelot.Scheme) cost.Tables {
	ct := camelot.BuildTables(scheme)
	t := cost.Tables{
		BPM:      make([]int32, p.Len()),
		Keys:     make([]uint8, p.Len()),
		Shift:    ct.Shift,
		Direct:   ct.Direct,
		Indirect: ct.Indirect,
	}
	for i, tr := range p.Tracks {
		t.BPM[i] = int32(tr.BPM)
		t.Keys[i] = uint8(p.Keys[i])
	}
	return t
}
