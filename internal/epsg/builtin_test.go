package epsg

import (
	"errors"
	"testing"

	"github.com/woozymasta/shp2geojson/internal/crs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinLookup(t *testing.T) {
	reg := Builtin()

	c, err := reg.Lookup(4326)
	require.NoError(t, err)
	assert.Equal(t, "WGS 84", c.Name())
	assert.False(t, c.IsProjected())

	utm, err := reg.Lookup(32650)
	require.NoError(t, err)
	assert.Equal(t, "WGS 84 / UTM zone 50N", utm.Name())
	assert.InDelta(t, 117, utm.Conversion.Params[crs.ParamLonOrigin], 1e-9)
	assert.InDelta(t, 0.9996, utm.Conversion.Params[crs.ParamScale], 1e-12)

	south, err := reg.Lookup(32760)
	require.NoError(t, err)
	assert.Equal(t, "WGS 84 / UTM zone 60S", south.Name())
	assert.InDelta(t, 177, south.Conversion.Params[crs.ParamLonOrigin], 1e-9)
	assert.InDelta(t, 10000000, south.Conversion.Params[crs.ParamFalseNorth], 1e-9)

	zone, err := reg.Lookup(4527)
	require.NoError(t, err)
	assert.Equal(t, "CGCS2000 / 3-degree Gauss-Kruger zone 39", zone.Name())
	assert.InDelta(t, 39500000, zone.Conversion.Params[crs.ParamFalseEast], 1e-6)
	assert.InDelta(t, 117, zone.Conversion.Params[crs.ParamLonOrigin], 1e-9)

	cm, err := reg.Lookup(4548)
	require.NoError(t, err)
	assert.Equal(t, "CGCS2000 / 3-degree Gauss-Kruger CM 117E", cm.Name())
	assert.InDelta(t, 500000, cm.Conversion.Params[crs.ParamFalseEast], 1e-6)
}

func TestBuiltinUnknownCode(t *testing.T) {
	_, err := Builtin().Lookup(999999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCode))
}

func TestBuiltinCandidatesSorted(t *testing.T) {
	reg := Builtin()

	for _, kind := range []crs.Kind{crs.KindGeographic, crs.KindProjected} {
		list, err := reg.Candidates(kind)
		require.NoError(t, err)
		require.NotEmpty(t, list)

		prev := 0
		for _, c := range list {
			code, ok := c.EPSG()
			require.True(t, ok)
			assert.Greater(t, code, prev)
			assert.Equal(t, kind, c.Kind())
			prev = code
		}
	}

	none, err := reg.Candidates(crs.KindUnknown)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBuiltinWKTRoundTrip(t *testing.T) {
	reg := Builtin()

	for _, kind := range []crs.Kind{crs.KindGeographic, crs.KindProjected} {
		list, err := reg.Candidates(kind)
		require.NoError(t, err)

		for _, c := range list {
			parsed, err := crs.Parse(c.WKT())
			require.NoError(t, err, c.Name())

			code, ok := parsed.EPSG()
			want, _ := c.EPSG()
			assert.True(t, ok, c.Name())
			assert.Equal(t, want, code)
			assert.Equal(t, crs.ConfidenceIdentical, crs.Confidence(parsed, c), c.Name())
		}
	}
}

func TestLoadRegistryErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed", "geographic: ["},
		{"unknown ellipsoid", "geographic:\n  - {code: 1, name: x, datum: x, ellipsoid: nope}\n"},
		{"unknown base", "projected:\n  - {code: 2, name: x, base: 1, method: tmerc}\n"},
		{"bad zones", `
ellipsoids:
  e: {name: e, a: 1, rf: 1}
geographic:
  - {code: 1, name: g, datum: d, ellipsoid: e}
series:
  - {name: s, code: 10, base: 1, zones: [5, 1]}
`},
		{"duplicate code", `
ellipsoids:
  e: {name: e, a: 1, rf: 1}
geographic:
  - {code: 1, name: g, datum: d, ellipsoid: e}
  - {code: 1, name: h, datum: d, ellipsoid: e}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRegistry([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

type stubCatalog struct {
	defs   map[int]*crs.CRS
	err    error
	closed bool
}

func (s *stubCatalog) Lookup(code int) (*crs.CRS, error) {
	if s.err != nil {
		return nil, s.err
	}
	if c, ok := s.defs[code]; ok {
		return c, nil
	}
	return nil, ErrUnknownCode
}

func (s *stubCatalog) Candidates(kind crs.Kind) ([]*crs.CRS, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*crs.CRS
	for _, c := range s.defs {
		if c.Kind() == kind {
			out = append(out, c)
		}
	}
	sortByCode(out)
	return out, nil
}

func (s *stubCatalog) Close() error {
	s.closed = true
	return nil
}

func TestChain(t *testing.T) {
	override := crs.NewGeographic(4326, crs.Geodetic{Name: "override", Datum: "WGS_1984"})
	extra := crs.NewGeographic(1, crs.Geodetic{Name: "extra"})
	first := &stubCatalog{defs: map[int]*crs.CRS{4326: override, 1: extra}}
	chain := Chain{first, Builtin()}

	c, err := chain.Lookup(4326)
	require.NoError(t, err)
	assert.Equal(t, "override", c.Name())

	c, err = chain.Lookup(32650)
	require.NoError(t, err)
	assert.Equal(t, "WGS 84 / UTM zone 50N", c.Name())

	_, err = chain.Lookup(999999)
	assert.ErrorIs(t, err, ErrUnknownCode)

	list, err := chain.Candidates(crs.KindGeographic)
	require.NoError(t, err)
	builtinList, _ := Builtin().Candidates(crs.KindGeographic)
	assert.Len(t, list, len(builtinList)+1)
	assert.Same(t, extra, list[0])
	for _, d := range list {
		if code, _ := d.EPSG(); code == 4326 {
			assert.Same(t, override, d)
		}
	}

	require.NoError(t, chain.Close())
	assert.True(t, first.closed)
}

func TestChainError(t *testing.T) {
	boom := errors.New("boom")
	chain := Chain{&stubCatalog{err: boom}, Builtin()}

	_, err := chain.Lookup(4326)
	assert.ErrorIs(t, err, boom)

	_, err = chain.Candidates(crs.KindProjected)
	assert.ErrorIs(t, err, boom)
}
