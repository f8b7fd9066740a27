// Package camelot models the 24-key Camelot wheel used by DJs for harmonic
// mixing and builds the lookup tables consumed by the cost model.
//
// Keys are identified by a dense id in [0, 24) following the order
// 1A, 1B, 2A, 2B, ..., 12A, 12B. The A side is minor, the B side is major.
// A key shift moves the key's pitch by whole semitones while keeping the mode,
// which is how a pitch-shifted track lands on a different Camelot number.
package camelot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/mixorder/pkg/errors"
)

// NumKeys is the number of keys on the wheel.
const NumKeys = 24

// Key is a Camelot key id in [0, NumKeys).
type Key uint8

// pitchOf maps a key id to its pitch class (0 = C).
var pitchOf = [NumKeys]int{
	8, 11, // 1A  1B
	3, 6, //  2A  2B
	10, 1, // 3A  3B
	5, 8, //  4A  4B
	0, 3, //  5A  5B
	7, 10, // 6A  6B
	2, 5, //  7A  7B
	9, 0, //  8A  8B
	4, 7, //  9A  9B
	11, 2, // 10A 10B
	6, 9, //  11A 11B
	1, 4, //  12A 12B
}

var realKeyNames = [NumKeys]string{
	"Ab minor", "B major",
	"Eb minor", "F# major",
	"Bb minor", "Db major",
	"F minor", "Ab major",
	"C minor", "Eb major",
	"G minor", "Bb major",
	"D minor", "F major",
	"A minor", "C major",
	"E minor", "G major",
	"B minor", "D major",
	"F# minor", "A major",
	"C# minor", "E major",
}

// keyOfPitch is the inverse of pitchOf, indexed by [major][pitch].
var keyOfPitch [2][12]Key

func init() {
	for id := 0; id < NumKeys; id++ {
		keyOfPitch[id%2][pitchOf[id]] = Key(id)
	}
}

// New returns the key for a wheel number in [1, 12] and a letter 'A' or 'B'.
func New(number int, letter byte) (Key, error) {
	if number < 1 || number > 12 {
		return 0, errors.New(errors.ErrCodeInvalidKey, "camelot number out of range: %d", number)
	}
	switch letter {
	case 'A', 'a':
		return Key((number - 1) * 2), nil
	case 'B', 'b':
		return Key((number-1)*2 + 1), nil
	}
	return 0, errors.New(errors.ErrCodeInvalidKey, "camelot letter must be A or B, got %q", letter)
}

// Parse parses a Camelot key such as "8A" or "05B". Leading zeros are ignored.
func Parse(s string) (Key, error) {
	s = strings.TrimLeft(strings.TrimSpace(s), "0")
	if len(s) < 2 {
		return 0, errors.New(errors.ErrCodeInvalidKey, "invalid camelot key: %q", s)
	}
	num, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidKey, "invalid camelot key: %q", s)
	}
	return New(num, s[len(s)-1])
}

// MustParse is like Parse but panics on error. Intended for tests and tables.
func MustParse(s string) Key {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

// FromComments extracts the key from the first whitespace-separated token of
// a free-text comments field, as written by common key-detection tools.
func FromComments(comments string) (Key, error) {
	fields := strings.Fields(comments)
	if len(fields) == 0 {
		return 0, errors.New(errors.ErrCodeInvalidKey, "no key in comments")
	}
	return Parse(fields[0])
}

// Valid reports whether k is a key id on the wheel.
func (k Key) Valid() bool { return k < NumKeys }

// Number returns the wheel number in [1, 12].
func (k Key) Number() int { return int(k)/2 + 1 }

// Minor reports whether k is on the A (minor) side of the wheel.
func (k Key) Minor() bool { return k%2 == 0 }

// Letter returns 'A' for minor keys and 'B' for major keys.
func (k Key) Letter() byte {
	if k.Minor() {
		return 'A'
	}
	return 'B'
}

func (k Key) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Key(%d)", uint8(k))
	}
	return fmt.Sprintf("%d%c", k.Number(), k.Letter())
}

// MarshalText implements encoding.TextMarshaler.
func (k Key) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidKey, "invalid key id %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// RealKey returns the conventional name of the key, e.g. "A minor" for 8A.
func (k Key) RealKey() string {
	if !k.Valid() {
		return "N/A"
	}
	return realKeyNames[k]
}

// Pitch returns the pitch class of the key's tonic (0 = C).
func (k Key) Pitch() int { return pitchOf[k] }

// Shift returns the key reached by transposing k by the given number of
// semitones. The mode is preserved.
func (k Key) Shift(semitones int) Key {
	if semitones == 0 {
		return k
	}
	p := ((pitchOf[k]+semitones)%12 + 12) % 12
	return keyOfPitch[k%2][p]
}

// All returns the 24 keys in id order.
func All() []Key {
	keys := make([]Key, NumKeys)
	for i := range keys {
		keys[i] = Key(i)
	}
	return keys
}

// Distance returns the circular distance between the wheel numbers of a and
// b, in [0, 6].
func Distance(a, b Key) int {
	d := a.Number() - b.Number()
	if d < 0 {
		d = -d
	}
	return min(d, 12-d)
}

// Intermediates returns the minimum number of tracks that must sit between a
// and b so that every step moves at most one position on the wheel.
func Intermediates(a, b Key) int {
	if d := Distance(a, b); d > 1 {
		return d - 1
	}
	return 0
}

// Path returns the wheel numbers to step through from a to b along the
// shorter direction, excluding both ends. Either letter is acceptable at
// every step. Adjacent or identical keys yield an empty path.
func Path(a, b Key) []int {
	n1, n2 := a.Number(), b.Number()
	direct := n2 - n1
	if direct < 0 {
		direct = -direct
	}
	dist, step := direct, 1
	if n2 < n1 {
		step = -1
	}
	if wrap := 12 - direct; wrap < direct {
		dist, step = wrap, -step
	}
	if dist <= 1 {
		return nil
	}
	path := make([]int, 0, dist-1)
	cur := n1
	for i := 0; i < dist-1; i++ {
		cur = ((cur-1+step)%12+12)%12 + 1
		path = append(path, cur)
	}
	return path
}
