package bundle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"io/fs"
	"os"

	"github.com/google/uuid"
	"github.com/mholt/archives"

	"github.com/jrobhoward/rustbridge/errcode"
)

// LibraryInput is one (platform, variant, library bytes) triple supplied
// to Write, the in-memory form of spec.md §4.H's "(platform, variant,
// library_path)" writer input.
type LibraryInput struct {
	Platform string
	Variant  string
	Filename string
	Data     []byte
	Build    json.RawMessage
}

// WriteSpec is the caller-provided specification for building a bundle.
type WriteSpec struct {
	Plugin      Plugin
	Libraries   []LibraryInput
	Schemas     map[string][]byte // archive-relative path under schema/ -> bytes
	Notices     []byte
	LicenseFile []byte
	SBOM        map[string][]byte // "sbom.cdx.json" / "sbom.spdx.json" -> bytes
	BuildInfo   json.RawMessage
	SigningKey  *SigningKey // nil: bundle is unsigned
}

// Write builds a bundle archive from spec and streams it to out. Per
// spec.md §4.H, libraries are checksummed and (if signing) signed before
// the manifest is computed, and the manifest is always the last entry
// written.
func Write(ctx context.Context, out io.Writer, spec WriteSpec) error {
	manifest := &Manifest{
		BundleVersion: SupportedBundleVersion,
		BuildID:       uuid.New().String(),
		Plugin:        spec.Plugin,
		Platforms:     map[string]Platform{},
		BuildInfo:     spec.BuildInfo,
	}

	var files []archives.FileInfo
	addMem := func(name string, data []byte) {
		files = append(files, archives.FileInfo{
			FileInfo:      newMemFile(name, data).info,
			NameInArchive: name,
			Open: func() (fs.File, error) {
				return newMemFile(name, data), nil
			},
		})
	}

	for _, lib := range spec.Libraries {
		if !PlatformKeys[lib.Platform] {
			return errcode.New(errcode.ConfigError, "unknown platform key %q", lib.Platform)
		}
		sum := sha256.Sum256(lib.Data)
		checksum := "sha256:" + hex.EncodeToString(sum[:])

		archivePath := libraryPath(lib.Platform, lib.Variant, lib.Filename)
		addMem(archivePath, lib.Data)

		if spec.SigningKey != nil {
			sig, err := spec.SigningKey.Sign(lib.Data)
			if err != nil {
				return errcode.Wrap(errcode.Internal, err, "sign library %s", archivePath)
			}
			addMem(archivePath+".minisig", sig)
		}

		plat, ok := manifest.Platforms[lib.Platform]
		if !ok {
			plat = Platform{Variants: map[string]Variant{}}
		}
		plat.Variants[lib.Variant] = Variant{Library: archivePath, Checksum: checksum, Build: lib.Build}
		manifest.Platforms[lib.Platform] = plat
	}

	for name, data := range spec.Schemas {
		addMem("schema/"+name, data)
	}
	for name, data := range spec.SBOM {
		addMem("sbom/"+name, data)
	}
	if len(spec.Notices) > 0 {
		addMem("docs/NOTICES.txt", spec.Notices)
	}
	if len(spec.LicenseFile) > 0 {
		addMem("legal/LICENSE", spec.LicenseFile)
	}

	if spec.SigningKey != nil {
		manifest.PublicKey = spec.SigningKey.PublicKeyString()
	}
	if err := manifest.Validate(); err != nil {
		return err
	}

	manifestBytes, err := manifest.Encode()
	if err != nil {
		return errcode.Wrap(errcode.Serialization, err, "encode manifest")
	}
	if spec.SigningKey != nil {
		sig, err := spec.SigningKey.Sign(manifestBytes)
		if err != nil {
			return errcode.Wrap(errcode.Internal, err, "sign manifest")
		}
		addMem("manifest.json.minisig", sig)
	}
	addMem("manifest.json", manifestBytes) // written last, per §4.H

	zip := archives.Zip{}
	if err := zip.Archive(ctx, out, files); err != nil {
		return errcode.Wrap(errcode.Internal, err, "write bundle archive")
	}
	return nil
}

// WriteFile is a convenience wrapper around Write that creates destPath.
func WriteFile(ctx context.Context, destPath string, spec WriteSpec) error {
	f, err := os.Create(destPath)
	if err != nil {
		return errcode.Wrap(errcode.Internal, err, "create bundle file")
	}
	defer f.Close()
	return Write(ctx, f, spec)
}
