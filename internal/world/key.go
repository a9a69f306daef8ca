package world

import (
	"fmt"
	"strconv"
	"strings"
)

// Key identifies one generated chunk. A chunk is generated once per key and
// never changes afterwards.
type Key struct {
	Generator     string
	Seed          string
	Coord         ChunkCoord
	FormatVersion int
}

// String renders the store key "<generator>/<seed>/<x>/<z>/<formatVersion>".
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d/%d/%d", k.Generator, k.Seed, k.Coord.X, k.Coord.Z, k.FormatVersion)
}

// ParseKey parses a store key. Seeds may contain slashes; the generator is
// the first segment and the coordinates and version are the last three.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, "/")
	if len(parts) < 5 {
		return Key{}, fmt.Errorf("parse chunk key %q: expected 5 segments", s)
	}
	n := len(parts)
	x, err := strconv.Atoi(parts[n-3])
	if err != nil {
		return Key{}, fmt.Errorf("parse chunk key %q: x: %w", s, err)
	}
	z, err := strconv.Atoi(parts[n-2])
	if err != nil {
		return Key{}, fmt.Errorf("parse chunk key %q: z: %w", s, err)
	}
	version, err := strconv.Atoi(parts[n-1])
	if err != nil {
		return Key{}, fmt.Errorf("parse chunk key %q: version: %w", s, err)
	}
	return Key{
		Generator:     parts[0],
		Seed:          strings.Join(parts[1:n-3], "/"),
		Coord:         ChunkCoord{X: x, Z: z},
		FormatVersion: version,
	}, nil
}
