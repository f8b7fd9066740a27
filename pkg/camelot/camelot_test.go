package camelot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/mixorder/pkg/errors"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want string
		id   Key
	}{
		{"1A", "1A", 0},
		{"1B", "1B", 1},
		{"8A", "8A", 14},
		{"05A", "5A", 8},
		{" 12b ", "12B", 23},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			k, err := Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.id, k)
			assert.Equal(t, tc.want, k.String())
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "A", "13A", "0A", "7C", "x7A", "000"} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidKey))
		})
	}
}

func TestFromComments(t *testing.T) {
	k, err := FromComments("05A - Energy 7")
	require.NoError(t, err)
	assert.Equal(t, "5A", k.String())

	_, err = FromComments("   ")
	require.Error(t, err)
}

func TestShift(t *testing.T) {
	assert.Equal(t, "3B", MustParse("8B").Shift(1).String(), "C major up a semitone is Db major")
	assert.Equal(t, "1A", MustParse("8A").Shift(-1).String(), "A minor down a semitone is Ab minor")
	for _, k := range All() {
		assert.Equal(t, k, k.Shift(0))
		assert.Equal(t, k, k.Shift(1).Shift(-1))
		assert.Equal(t, k.Minor(), k.Shift(1).Minor())
		assert.Equal(t, k, k.Shift(12))
	}
}

func TestRealKey(t *testing.T) {
	assert.Equal(t, "A minor", MustParse("8A").RealKey())
	assert.Equal(t, "C major", MustParse("8B").RealKey())
	assert.Equal(t, "N/A", Key(30).RealKey())
}

func TestPathAndIntermediates(t *testing.T) {
	assert.Equal(t, []int{5}, Path(MustParse("4A"), MustParse("6A")))
	assert.Equal(t, []int{12}, Path(MustParse("1A"), MustParse("11B")))
	assert.Empty(t, Path(MustParse("4A"), MustParse("5B")))
	assert.Empty(t, Path(MustParse("4A"), MustParse("4A")))
	assert.Equal(t, 5, Intermediates(MustParse("1A"), MustParse("7A")))
	assert.Equal(t, 0, Intermediates(MustParse("12A"), MustParse("1B")))
}

func TestSchemeCost(t *testing.T) {
	s := DefaultScheme()
	cases := []struct {
		a, b string
		want float64
	}{
		{"8A", "8A", 0},
		{"8A", "8B", 0.5},
		{"8A", "9A", 0.5},
		{"12A", "1A", 0.5},
		{"8A", "9B", 5},
		{"8A", "10A", 5},
		{"1B", "7B", 5},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, s.Cost(MustParse(tc.a), MustParse(tc.b)), "%s -> %s", tc.a, tc.b)
	}
}

func TestSchemeIndirect(t *testing.T) {
	s := DefaultScheme()
	assert.Equal(t, 1.0, s.Indirect(MustParse("8A"), MustParse("10A")))
	assert.Equal(t, 5.0, s.Indirect(MustParse("8A"), MustParse("2A")))
	assert.Equal(t, 0.0, s.Indirect(MustParse("8A"), MustParse("8A")))
}

func TestBuildTables(t *testing.T) {
	s := DefaultScheme()
	tables := BuildTables(s)
	require.NoError(t, ValidateTables(tables.Shift, tables.Direct, tables.Indirect))

	for _, k := range All() {
		assert.Equal(t, uint8(k), tables.Shift[int(k)*3+1])
		assert.Equal(t, uint8(k.Shift(-1)), tables.Shift[int(k)*3])
		assert.Equal(t, uint8(k.Shift(1)), tables.Shift[int(k)*3+2])
	}
	a, b := MustParse("8A"), MustParse("10A")
	assert.Equal(t, 5.0, tables.Direct[int(a)*NumKeys+int(b)])
	assert.Equal(t, 1.0, tables.Indirect[int(a)*NumKeys+int(b)])
}

func TestValidateTables(t *testing.T) {
	good := BuildTables(DefaultScheme())

	err := ValidateTables(good.Shift[:71], good.Direct, good.Indirect)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidTable))

	bad := append([]uint8(nil), good.Shift...)
	bad[5] = 24
	assert.Error(t, ValidateTables(bad, good.Direct, good.Indirect))

	assert.Error(t, ValidateTables(good.Shift, good.Direct[:10], good.Indirect))
	assert.Error(t, ValidateTables(good.Shift, good.Direct, nil))
}

func TestBridges(t *testing.T) {
	s := DefaultScheme()
	bridges := s.Bridges(MustParse("8A"), MustParse("10A"))
	var names []string
	for _, b := range bridges {
		names = append(names, b.String())
		assert.Equal(t, "9A", b.Effective().String())
	}
	assert.Equal(t, []string{"2A(+1)", "4A(-1)", "9A(+0)"}, names)

	assert.Empty(t, s.Bridges(MustParse("8A"), MustParse("2B")))
}

func TestKeyJSON(t *testing.T) {
	data, err := json.Marshal([]Key{MustParse("8A"), MustParse("12B")})
	require.NoError(t, err)
	assert.JSONEq(t, `["8A","12B"]`, string(data))

	var keys []Key
	require.NoError(t, json.Unmarshal([]byte(`["05A","1b"]`), &keys))
	assert.Equal(t, []Key{MustParse("5A"), MustParse("1B")}, keys)

	assert.Error(t, json.Unmarshal([]byte(`["13A"]`), &keys))
	_, err = json.Marshal(Key(30))
	assert.Error(t, err)
}
