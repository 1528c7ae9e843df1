package bundle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"

	"github.com/jrobhoward/rustbridge/errcode"
	"github.com/jrobhoward/rustbridge/rlog"
)

// VerifyMode selects how strictly Load enforces detached signatures.
type VerifyMode int

const (
	// ModeDefault resolves to Strict when the manifest carries a
	// public_key, Skip otherwise, matching spec.md §4.H's default rule.
	ModeDefault VerifyMode = iota
	ModeStrict
	ModeWarn
	ModeSkip
)

// LoadOptions configures Load's platform/variant selection, destination,
// and signature policy.
type LoadOptions struct {
	Platform        string // default: current host's platform key
	Variant         string // default: "release"
	DestDir         string // required: where to extract the library
	Mode            VerifyMode
	PinnedPublicKey string // optional defense-in-depth pin
}

// LoadResult is what Load returns on success.
type LoadResult struct {
	Manifest        *Manifest
	ExtractedLibrary string
}

// ErrUnsupportedPlatform is returned, wrapped, when the bundle has no
// entry for the selected platform key.
var ErrUnsupportedPlatform = errcode.New(errcode.ConfigError, "unsupported platform")

// Load opens a .rbp archive, selects a (platform, variant), extracts its
// library to opts.DestDir, verifies its checksum (and signature per
// opts.Mode), and returns the parsed manifest plus the extracted path.
func Load(ctx context.Context, archivePath string, opts LoadOptions) (*LoadResult, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, errcode.Wrap(errcode.Internal, err, "open bundle")
	}
	defer f.Close()
	return LoadFromReader(ctx, f, opts)
}

// LoadFromReader is Load's archive-agnostic core, operating on any
// seekable archive stream (a caller-opened file, typically).
func LoadFromReader(ctx context.Context, r io.Reader, opts LoadOptions) (*LoadResult, error) {
	if opts.Platform == "" {
		opts.Platform = CurrentPlatformKey()
	}
	if opts.Variant == "" {
		opts.Variant = "release"
	}

	var (
		manifestBytes []byte
		manifestSig   []byte
		libBytes      = map[string][]byte{}
		libSigs       = map[string][]byte{}
	)

	zip := archives.Zip{}
	err := zip.Extract(ctx, r, func(ctx context.Context, file archives.FileInfo) error {
		if file.IsDir() {
			return nil
		}
		rc, err := file.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return err
		}

		switch {
		case file.NameInArchive == "manifest.json":
			manifestBytes = data
		case file.NameInArchive == "manifest.json.minisig":
			manifestSig = data
		case strings.HasPrefix(file.NameInArchive, "lib/") && strings.HasSuffix(file.NameInArchive, ".minisig"):
			libSigs[strings.TrimSuffix(file.NameInArchive, ".minisig")] = data
		case strings.HasPrefix(file.NameInArchive, "lib/"):
			libBytes[file.NameInArchive] = data
		}
		return nil
	})
	if err != nil {
		return nil, errcode.Wrap(errcode.Internal, err, "extract bundle archive")
	}
	if manifestBytes == nil {
		return nil, errcode.New(errcode.ConfigError, "bundle missing manifest.json")
	}

	manifest, err := DecodeManifest(manifestBytes)
	if err != nil {
		return nil, err
	}

	mode := resolveMode(opts.Mode, manifest.PublicKey)
	if mode != ModeSkip {
		if err := verifyDetached(manifest.PublicKey, opts.PinnedPublicKey, manifestBytes, manifestSig); err != nil {
			if mode == ModeStrict {
				return nil, err
			}
			// ModeWarn: record and continue.
			rlog.Emit(rlog.Warn, "bundle", "manifest signature verification failed: %v", err)
		}
	}

	platform, ok := manifest.Platforms[opts.Platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, opts.Platform)
	}
	variant, ok := platform.Variants[opts.Variant]
	if !ok {
		return nil, errcode.New(errcode.ConfigError, "platform %s has no variant %q", opts.Platform, opts.Variant)
	}

	data, ok := libBytes[variant.Library]
	if !ok {
		return nil, errcode.New(errcode.ConfigError, "archive missing declared library %s", variant.Library)
	}

	sum := sha256.Sum256(data)
	if "sha256:"+hex.EncodeToString(sum[:]) != variant.Checksum {
		return nil, errcode.New(errcode.ConfigError, "checksum mismatch for %s: corrupted library", variant.Library)
	}

	if mode != ModeSkip {
		if err := verifyDetached(manifest.PublicKey, opts.PinnedPublicKey, data, libSigs[variant.Library]); err != nil {
			if mode == ModeStrict {
				return nil, err
			}
			rlog.Emit(rlog.Warn, "bundle", "library signature verification failed: %v", err)
		}
	}

	destPath := filepath.Join(opts.DestDir, filepath.Base(variant.Library))
	if err := os.MkdirAll(opts.DestDir, 0o755); err != nil {
		return nil, errcode.Wrap(errcode.Internal, err, "create destination dir")
	}
	if err := os.WriteFile(destPath, data, 0o755); err != nil {
		return nil, errcode.Wrap(errcode.Internal, err, "write extracted library")
	}

	return &LoadResult{Manifest: manifest, ExtractedLibrary: destPath}, nil
}

// List opens a .rbp archive and returns its manifest without extracting
// or verifying anything — the read path behind `bundle list` (spec.md
// §6.5), left to the library since the CLI itself is out of scope.
func List(ctx context.Context, archivePath string) (*Manifest, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, errcode.Wrap(errcode.Internal, err, "open bundle")
	}
	defer f.Close()

	var manifestBytes []byte
	zip := archives.Zip{}
	err = zip.Extract(ctx, f, func(ctx context.Context, file archives.FileInfo) error {
		if file.NameInArchive == "manifest.json" {
			rc, err := file.Open()
			if err != nil {
				return err
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				return err
			}
			manifestBytes = data
		}
		return nil
	})
	if err != nil {
		return nil, errcode.Wrap(errcode.Internal, err, "extract bundle archive")
	}
	if manifestBytes == nil {
		return nil, errcode.New(errcode.ConfigError, "bundle missing manifest.json")
	}
	return DecodeManifest(manifestBytes)
}

// Extract pulls a single platform/variant's library out of a .rbp
// archive into destDir, skipping signature verification — a
// debugging/inspection path (spec.md §6.5's `bundle extract`). The
// library's SHA-256 checksum is still verified, as in Load.
func Extract(ctx context.Context, archivePath, platform, variant, destDir string) (string, error) {
	res, err := Load(ctx, archivePath, LoadOptions{
		Platform: platform,
		Variant:  variant,
		DestDir:  destDir,
		Mode:     ModeSkip,
	})
	if err != nil {
		return "", err
	}
	return res.ExtractedLibrary, nil
}

func resolveMode(requested VerifyMode, publicKey string) VerifyMode {
	if requested != ModeDefault {
		return requested
	}
	if publicKey != "" {
		return ModeStrict
	}
	return ModeSkip
}
