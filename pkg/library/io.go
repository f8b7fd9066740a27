package library

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/mixorder/pkg/errors"
)

// ReadJSON decodes a playlist from r.
//
// The input is an object with a "tracks" array:
//
//	{
//	  "name": "friday",
//	  "tracks": [{"title": "Intro", "artist": "X", "bpm": 122, "key": "8A"}]
//	}
//
// A bare array of tracks is accepted as well.
func ReadJSON(r io.Reader) (*Playlist, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	var pl Playlist
	if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &pl.Tracks); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		return &pl, nil
	}
	if err := json.Unmarshal(data, &pl); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &pl, nil
}

// ReadTOML decodes a playlist whose tracks are a [[tracks]] array of tables.
func ReadTOML(r io.Reader) (*Playlist, error) {
	var pl Playlist
	if _, err := toml.NewDecoder(r).Decode(&pl); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &pl, nil
}

// ReadYAML decodes a playlist with a top-level tracks list.
func ReadYAML(r io.Reader) (*Playlist, error) {
	var pl Playlist
	if err := yaml.NewDecoder(r).Decode(&pl); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &pl, nil
}

// Import reads the playlist file at path, choosing the decoder by extension.
// The playlist name defaults to the file's base name.
func Import(path string) (*Playlist, error) {
	if err := errors.ValidatePlaylistPath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "playlist %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var pl *Playlist
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		pl, err = ReadJSON(f)
	case ".toml":
		pl, err = ReadTOML(f)
	default:
		pl, err = ReadYAML(f)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "playlist %s", path)
	}
	if pl.Name == "" {
		pl.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return pl, nil
}

// ExportJSON writes pl to path as indented JSON.
func ExportJSON(pl *Playlist, path string) error {
	data, err := json.MarshalIndent(pl, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
