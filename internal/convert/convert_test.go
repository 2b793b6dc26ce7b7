package convert

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/woozymasta/shp2geojson/internal/epsg"
	"github.com/woozymasta/shp2geojson/internal/geo"
	"github.com/woozymasta/shp2geojson/internal/shapefile"

	"github.com/jonas-p/go-shp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	wktESRIWGS84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

	wktESRIUTM50N = `PROJCS["WGS_1984_UTM_Zone_50N",GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Transverse_Mercator"],PARAMETER["False_Easting",500000.0],PARAMETER["False_Northing",0.0],PARAMETER["Central_Meridian",117.0],PARAMETER["Scale_Factor",0.9996],PARAMETER["Latitude_Of_Origin",0.0],UNIT["Meter",1.0]]`

	wktLocalGrid = `PROJCS["Local_Grid",GEOGCS["GCS_Local",DATUM["D_Local",SPHEROID["Local_Sphere",6371000.0,0.0]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Transverse_Mercator"],PARAMETER["False_Easting",12345.0],PARAMETER["False_Northing",0.0],PARAMETER["Central_Meridian",113.25],PARAMETER["Scale_Factor",1.0],PARAMETER["Latitude_Of_Origin",22.5],UNIT["Meter",1.0]]`
)

// fixture writes a two point shapefile with the given .prj text (none when empty)
// and returns the .shp path.
func fixture(t *testing.T, prj string) string {
	t.Helper()
	base := filepath.Join(t.TempDir(), "sites")

	w, err := shp.Create(base+".shp", shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("NAME", 16)}))
	for i, name := range []string{"north gate", "south gate"} {
		row := w.Write(&shp.Point{X: 116.39 + float64(i), Y: 39.9 - float64(i)})
		require.NoError(t, w.WriteAttribute(int(row), 0, name))
	}
	w.Close()

	// go-shp v0.1.1 writes the table as "<base>dbf"
	if _, err := os.Stat(base + "dbf"); err == nil {
		require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
	}
	if prj != "" {
		require.NoError(t, os.WriteFile(base+".prj", []byte(prj), 0o644))
	}
	return base + ".shp"
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestConvertEmbedsResolvedCRS(t *testing.T) {
	src := fixture(t, wktESRIWGS84)
	conv := New(epsg.Builtin(), Options{EmbedCRS: true})

	rep, err := conv.Convert(src, "")
	require.NoError(t, err)

	assert.Equal(t, DefaultOutput(src), rep.Destination)
	assert.Equal(t, 4326, rep.Result.Code)
	assert.False(t, rep.Result.Exact)
	assert.True(t, rep.Embedded)
	assert.Equal(t, 2, rep.Features)
	assert.Equal(t, "GCS_WGS_1984 (EPSG:4326)", rep.Info)
	assert.Equal(t, "Point", rep.ShapeType)

	out := readJSON(t, rep.Destination)
	assert.Equal(t, "FeatureCollection", out["type"])
	assert.Equal(t, map[string]any{
		"type":       "name",
		"properties": map[string]any{"name": "urn:ogc:def:crs:EPSG::4326"},
	}, out["crs"])

	features := out["features"].([]any)
	require.Len(t, features, 2)
	first := features[0].(map[string]any)
	assert.Equal(t, "0", first["id"])
	assert.Equal(t, map[string]any{"NAME": "north gate"}, first["properties"])
}

func TestConvertLogs(t *testing.T) {
	defer func(l zerolog.Logger, lvl zerolog.Level) {
		log.Logger = l
		zerolog.SetGlobalLevel(lvl)
	}(log.Logger, zerolog.GlobalLevel())

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	_, err := New(epsg.Builtin(), Options{EmbedCRS: true}).Convert(fixture(t, wktESRIWGS84), "")
	require.NoError(t, err)

	messages := map[string]bool{}
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var entry map[string]any
		require.NoError(t, dec.Decode(&entry))
		if msg, ok := entry["message"].(string); ok {
			messages[msg] = true
		}
	}
	assert.True(t, messages["Annotated document"])
	assert.True(t, messages["Shapefile converted"])
}

func TestConvertFeaturesIndependentOfEmbedding(t *testing.T) {
	src := fixture(t, wktESRIUTM50N)

	embedded, rep, err := New(epsg.Builtin(), Options{EmbedCRS: true}).Document(src)
	require.NoError(t, err)
	require.NotNil(t, embedded.CRS)
	assert.Equal(t, 32650, rep.Result.Code)

	plain, rep, err := New(epsg.Builtin(), Options{}).Document(src)
	require.NoError(t, err)
	assert.Nil(t, plain.CRS)
	assert.False(t, rep.Embedded)
	assert.Equal(t, 32650, rep.Result.Code)
	assert.Equal(t, "WGS_1984_UTM_Zone_50N (CRS not embedded, GeoJSON default WGS84 applies)", rep.Info)

	embedded.CRS = nil
	a, err := geo.Marshal(embedded)
	require.NoError(t, err)
	b, err := geo.Marshal(plain)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestConvertUnresolvedCRS(t *testing.T) {
	tests := map[string]struct {
		prj  string
		info string
	}{
		"custom grid": {wktLocalGrid, "Local_Grid (CRS not embedded, GeoJSON default WGS84 applies)"},
		"no prj":      {"", "unknown (CRS not embedded, GeoJSON default WGS84 applies)"},
		"garbage prj": {"not a projection", "unknown (CRS not embedded, GeoJSON default WGS84 applies)"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			src := fixture(t, tt.prj)
			dst := filepath.Join(t.TempDir(), "out", "sites.geojson")

			rep, err := New(epsg.Builtin(), Options{EmbedCRS: true}).Convert(src, dst)
			require.NoError(t, err)
			assert.False(t, rep.Result.Resolved())
			assert.False(t, rep.Embedded)
			assert.Equal(t, tt.info, rep.Info)

			out := readJSON(t, dst)
			assert.NotContains(t, out, "crs")
			assert.Len(t, out["features"], 2)
		})
	}
}

func TestConvertMinConfidence(t *testing.T) {
	src := fixture(t, wktESRIUTM50N)

	_, rep, err := New(epsg.Builtin(), Options{EmbedCRS: true, MinConfidence: 100}).Document(src)
	require.NoError(t, err)
	assert.False(t, rep.Result.Resolved())
	assert.False(t, rep.Embedded)
}

func TestConvertErrors(t *testing.T) {
	conv := New(epsg.Builtin(), Options{EmbedCRS: true})

	_, err := conv.Convert(filepath.Join(t.TempDir(), "missing.shp"), "")
	assert.ErrorIs(t, err, shapefile.ErrSourceNotFound)

	src := fixture(t, wktESRIWGS84)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err = conv.Convert(src, filepath.Join(blocker, "out.json"))
	assert.ErrorIs(t, err, geo.ErrDestinationWrite)

	_, err = New(epsg.Builtin(), Options{Encoding: "klingon"}).Convert(src, "")
	assert.ErrorIs(t, err, shapefile.ErrSourceDecode)
}

func TestDefaultOutput(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "roads.json"), DefaultOutput(filepath.Join("data", "roads.shp")))
	assert.Equal(t, "ROADS.json", DefaultOutput("ROADS.SHP"))
}

func TestInspect(t *testing.T) {
	conv := New(epsg.Builtin(), Options{})

	p, err := conv.Inspect(fixture(t, wktESRIUTM50N))
	require.NoError(t, err)
	assert.True(t, p.Present)
	assert.True(t, p.Projected)
	assert.Equal(t, "projected", p.Kind)
	assert.Equal(t, 32650, p.Result.Code)
	text := p.String()
	assert.Contains(t, text, "Projected coordinate system: WGS_1984_UTM_Zone_50N")
	assert.Contains(t, text, "EPSG: 32650 (confidence 90)")
	assert.Contains(t, text, "PROJCS[")

	p, err = conv.Inspect(fixture(t, wktLocalGrid))
	require.NoError(t, err)
	assert.Contains(t, p.String(), "EPSG: none")

	p, err = conv.Inspect(fixture(t, ""))
	require.NoError(t, err)
	assert.False(t, p.Present)
	assert.Equal(t, "No projection information available", p.String())

	_, err = conv.Inspect(filepath.Join(t.TempDir(), "missing.shp"))
	assert.ErrorIs(t, err, shapefile.ErrSourceNotFound)
}

func TestConvertAll(t *testing.T) {
	conv := New(epsg.Builtin(), Options{EmbedCRS: true})

	jobs := []Job{
		{Source: fixture(t, wktESRIWGS84)},
		{Source: filepath.Join(t.TempDir(), "missing.shp")},
		{Source: fixture(t, wktESRIUTM50N), Destination: filepath.Join(t.TempDir(), "utm.json")},
		{Source: fixture(t, wktLocalGrid)},
	}

	for _, workers := range []int{0, 1, 3, 10} {
		out := conv.ConvertAll(jobs, workers)
		require.Len(t, out, len(jobs))

		for i, o := range out {
			assert.Equal(t, jobs[i], o.Job)
		}

		require.NoError(t, out[0].Err)
		assert.Equal(t, 4326, out[0].Report.Result.Code)

		assert.ErrorIs(t, out[1].Err, shapefile.ErrSourceNotFound)
		assert.Nil(t, out[1].Report)

		require.NoError(t, out[2].Err)
		assert.Equal(t, jobs[2].Destination, out[2].Report.Destination)
		assert.Equal(t, 32650, out[2].Report.Result.Code)

		require.NoError(t, out[3].Err)
		assert.False(t, out[3].Report.Embedded)
	}

	assert.Empty(t, conv.ConvertAll(nil, 4))
}
