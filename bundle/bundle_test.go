package bundle

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenLoadRoundTrip(t *testing.T) {
	platform := CurrentPlatformKey()
	spec := WriteSpec{
		Plugin: Plugin{Name: "acme-plugin", Version: "1.0.0"},
		Libraries: []LibraryInput{
			{Platform: platform, Variant: "release", Filename: "libacme.so", Data: []byte("pretend-shared-object-bytes")},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), &buf, spec))

	dir := t.TempDir()
	result, err := LoadFromReader(context.Background(), bytes.NewReader(buf.Bytes()), LoadOptions{
		Platform: platform,
		DestDir:  dir,
		Mode:     ModeSkip,
	})
	require.NoError(t, err)
	assert.Equal(t, "acme-plugin", result.Manifest.Plugin.Name)
	assert.NotEmpty(t, result.Manifest.BuildID, "Write stamps a fresh build id")
	assert.FileExists(t, result.ExtractedLibrary)
}

func TestLoadRejectsCorruptedLibrary(t *testing.T) {
	platform := CurrentPlatformKey()
	spec := WriteSpec{
		Plugin: Plugin{Name: "acme-plugin", Version: "1.0.0"},
		Libraries: []LibraryInput{
			{Platform: platform, Variant: "release", Filename: "libacme.so", Data: []byte("original-bytes")},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), &buf, spec))

	corrupted := bytes.Replace(buf.Bytes(), []byte("original-bytes"), []byte("tampered-bytes"), 1)

	_, err := LoadFromReader(context.Background(), bytes.NewReader(corrupted), LoadOptions{
		Platform: platform,
		DestDir:  t.TempDir(),
		Mode:     ModeSkip,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum")
}

func TestLoadRejectsUnsupportedPlatform(t *testing.T) {
	spec := WriteSpec{
		Plugin: Plugin{Name: "acme-plugin", Version: "1.0.0"},
		Libraries: []LibraryInput{
			{Platform: "linux-x86_64", Variant: "release", Filename: "libacme.so", Data: []byte("bytes")},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), &buf, spec))

	_, err := LoadFromReader(context.Background(), bytes.NewReader(buf.Bytes()), LoadOptions{
		Platform: "darwin-aarch64",
		DestDir:  t.TempDir(),
		Mode:     ModeSkip,
	})
	require.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestWriteSignsAndLoadVerifiesStrict(t *testing.T) {
	key, err := GenerateSigningKey()
	require.NoError(t, err)

	platform := CurrentPlatformKey()
	spec := WriteSpec{
		Plugin: Plugin{Name: "acme-plugin", Version: "1.0.0"},
		Libraries: []LibraryInput{
			{Platform: platform, Variant: "release", Filename: "libacme.so", Data: []byte("signed-bytes")},
		},
		SigningKey: key,
	}
	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), &buf, spec))

	result, err := LoadFromReader(context.Background(), bytes.NewReader(buf.Bytes()), LoadOptions{
		Platform: platform,
		DestDir:  t.TempDir(),
		Mode:     ModeStrict,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Manifest.PublicKey)
}

func TestWriteSignedLoadStrictRejectsTamperedLibrary(t *testing.T) {
	key, err := GenerateSigningKey()
	require.NoError(t, err)

	platform := CurrentPlatformKey()
	spec := WriteSpec{
		Plugin: Plugin{Name: "acme-plugin", Version: "1.0.0"},
		Libraries: []LibraryInput{
			{Platform: platform, Variant: "release", Filename: "libacme.so", Data: []byte("signed-bytes-of-real-length")},
		},
		SigningKey: key,
	}
	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), &buf, spec))

	tampered := bytes.Replace(buf.Bytes(), []byte("signed-bytes-of-real-length"), []byte("evil-bytes-of-same-length!!"), 1)

	_, err = LoadFromReader(context.Background(), bytes.NewReader(tampered), LoadOptions{
		Platform: platform,
		DestDir:  t.TempDir(),
		Mode:     ModeStrict,
	})
	require.Error(t, err)
}

func TestListReturnsManifestWithoutExtracting(t *testing.T) {
	platform := CurrentPlatformKey()
	spec := WriteSpec{
		Plugin: Plugin{Name: "acme-plugin", Version: "1.0.0"},
		Libraries: []LibraryInput{
			{Platform: platform, Variant: "release", Filename: "libacme.so", Data: []byte("bytes")},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), &buf, spec))

	path := filepath.Join(t.TempDir(), "acme.rbp")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	manifest, err := List(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "acme-plugin", manifest.Plugin.Name)
	assert.Contains(t, manifest.Platforms, platform)
}

func TestExtractSkipsVerification(t *testing.T) {
	platform := CurrentPlatformKey()
	spec := WriteSpec{
		Plugin: Plugin{Name: "acme-plugin", Version: "1.0.0"},
		Libraries: []LibraryInput{
			{Platform: platform, Variant: "release", Filename: "libacme.so", Data: []byte("bytes")},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), &buf, spec))

	path := filepath.Join(t.TempDir(), "acme.rbp")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	extracted, err := Extract(context.Background(), path, platform, "release", t.TempDir())
	require.NoError(t, err)
	assert.FileExists(t, extracted)
}

func TestCombineMergesPlatforms(t *testing.T) {
	a := validManifest()
	b := validManifest()
	b.Platforms = map[string]Platform{
		"darwin-aarch64": {Variants: map[string]Variant{
			"release": {Library: "lib/darwin-aarch64/release/libacme.dylib", Checksum: "sha256:def"},
		}},
	}

	merged, warnings, err := Combine([]*Manifest{a, b}, SchemaChecksumError)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Len(t, merged.Platforms, 2)
}

func TestCombineRejectsSchemaChecksumMismatchByDefault(t *testing.T) {
	a := validManifest()
	a.SchemaChecksum = "sha256:aaa"
	b := validManifest()
	b.SchemaChecksum = "sha256:bbb"

	_, _, err := Combine([]*Manifest{a, b}, SchemaChecksumError)
	require.Error(t, err)
}

func TestCombineWarnsOnSchemaChecksumMismatch(t *testing.T) {
	a := validManifest()
	a.SchemaChecksum = "sha256:aaa"
	b := validManifest()
	b.SchemaChecksum = "sha256:bbb"

	_, warnings, err := Combine([]*Manifest{a, b}, SchemaChecksumWarn)
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)
}

func TestSlimKeepsOnlySelectedPlatforms(t *testing.T) {
	m := validManifest()
	m.Platforms["darwin-aarch64"] = Platform{Variants: map[string]Variant{
		"release": {Library: "lib/darwin-aarch64/release/libacme.dylib", Checksum: "sha256:def"},
	}}

	slim, err := Slim(m, SlimSpec{Platforms: []string{"linux-x86_64"}})
	require.NoError(t, err)
	assert.Len(t, slim.Platforms, 1)
	_, ok := slim.Platforms["linux-x86_64"]
	assert.True(t, ok)
}

func TestSlimRejectsDroppingRequiredReleaseVariant(t *testing.T) {
	m := validManifest()
	_, err := Slim(m, SlimSpec{Variants: []string{"debug"}})
	assert.Error(t, err)
}
