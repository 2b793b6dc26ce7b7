package geo

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFormat(t *testing.T) {
	doc := testDocument()
	doc.CRS = NewNamedCRS(4326)

	data, err := Marshal(doc)
	require.NoError(t, err)
	text := string(data)

	assert.True(t, strings.HasPrefix(text, "{\n  \"type\": \"FeatureCollection\",\n  \"features\": ["))
	assert.True(t, strings.HasSuffix(text, "}\n"))
	assert.Contains(t, text, "天安门")
	assert.NotContains(t, text, `\u`)

	// crs follows features
	assert.Greater(t, strings.Index(text, `"crs"`), strings.Index(text, `"features"`))

	var back map[string]any
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "FeatureCollection", back["type"])
	assert.Len(t, back["features"], 2)
}

func TestEncodeEmptyDocument(t *testing.T) {
	data, err := Marshal(NewDocument(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(data))
	assert.NotContains(t, string(data), "crs")
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "roads.json")

	require.NoError(t, WriteFile(path, testDocument()))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	want, err := Marshal(testDocument())
	require.NoError(t, err)
	assert.Equal(t, want, first)

	// replaced in place, no temp files left behind
	doc := testDocument()
	doc.CRS = NewNamedCRS(4326)
	require.NoError(t, WriteFile(path, doc))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "roads.json", entries[0].Name())

	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(second), "urn:ogc:def:crs:EPSG::4326")
}

func TestWriteFileFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := WriteFile(filepath.Join(blocker, "out.json"), testDocument())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDestinationWrite))

	err = WriteFile(dir, testDocument())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDestinationWrite)
}
