// Package bundle implements the .rbp archive format (spec.md §4.H/§6.4):
// the manifest model, archive read/write, checksum verification, and
// minisign-compatible detached signatures.
package bundle

import (
	"encoding/json"
	"fmt"

	"github.com/jrobhoward/rustbridge/errcode"
)

// SupportedBundleVersion is the only bundle_version this reader accepts.
const SupportedBundleVersion = "1.0"

// PlatformKeys is the fixed set of {os}-{arch} strings a manifest's
// platforms map may use.
var PlatformKeys = map[string]bool{
	"linux-x86_64":    true,
	"linux-aarch64":   true,
	"darwin-x86_64":   true,
	"darwin-aarch64":  true,
	"windows-x86_64":  true,
	"windows-aarch64": true,
}

// Plugin is the manifest's plugin-identity block.
type Plugin struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	License     string `json:"license,omitempty"`
	Repository  string `json:"repository,omitempty"`
}

// Variant describes one built library within one platform.
type Variant struct {
	Library  string          `json:"library"`
	Checksum string          `json:"checksum"`
	Build    json.RawMessage `json:"build,omitempty"`
}

// Platform is the variant set available for one platform key.
type Platform struct {
	Variants map[string]Variant `json:"variants"`
}

// Manifest is the manifest.json document inside a bundle.
type Manifest struct {
	BundleVersion  string              `json:"bundle_version"`
	BuildID        string              `json:"build_id,omitempty"`
	Plugin         Plugin              `json:"plugin"`
	Platforms      map[string]Platform `json:"platforms"`
	BuildInfo      json.RawMessage     `json:"build_info,omitempty"`
	SBOM           json.RawMessage     `json:"sbom,omitempty"`
	SchemaChecksum string              `json:"schema_checksum,omitempty"`
	Notices        string              `json:"notices,omitempty"`
	LicenseFile    string              `json:"license_file,omitempty"`
	PublicKey      string              `json:"public_key,omitempty"`
	API            json.RawMessage     `json:"api,omitempty"`
	Schemas        json.RawMessage     `json:"schemas,omitempty"`
}

// Validate enforces the manifest invariants of spec.md §3: a supported
// bundle_version, a release variant on every platform, and (checksum
// format aside) that every listed variant carries a checksum string.
func (m *Manifest) Validate() error {
	if m.BundleVersion != SupportedBundleVersion {
		return errcode.New(errcode.ConfigError, "unsupported bundle_version %q", m.BundleVersion)
	}
	if m.Plugin.Name == "" || m.Plugin.Version == "" {
		return errcode.New(errcode.ConfigError, "manifest missing plugin.name or plugin.version")
	}
	if len(m.Platforms) == 0 {
		return errcode.New(errcode.ConfigError, "manifest declares no platforms")
	}
	for key, plat := range m.Platforms {
		if !PlatformKeys[key] {
			return errcode.New(errcode.ConfigError, "unknown platform key %q", key)
		}
		release, ok := plat.Variants["release"]
		if !ok {
			return errcode.New(errcode.ConfigError, "platform %q missing required release variant", key)
		}
		for name, v := range plat.Variants {
			if v.Library == "" {
				return errcode.New(errcode.ConfigError, "platform %q variant %q missing library path", key, name)
			}
			if v.Checksum == "" {
				return errcode.New(errcode.ConfigError, "platform %q variant %q missing checksum", key, name)
			}
		}
		_ = release
	}
	return nil
}

// Encode serializes the manifest to its canonical JSON form.
func (m *Manifest) Encode() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// DecodeManifest parses manifest.json bytes into a Manifest and validates it.
func DecodeManifest(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errcode.Wrap(errcode.Serialization, err, "decode manifest.json")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// libraryPath returns the conventional archive-relative path for a
// platform/variant's library entry.
func libraryPath(platform, variant, filename string) string {
	return fmt.Sprintf("lib/%s/%s/%s", platform, variant, filename)
}

// LibraryFilename applies the OS-dependent naming convention of
// spec.md §4.H: lib{name}.so on Linux, lib{name}.dylib on macOS,
// {name}.dll (no lib prefix) on Windows.
func LibraryFilename(os, name string) string {
	switch os {
	case "darwin":
		return "lib" + name + ".dylib"
	case "windows":
		return name + ".dll"
	default:
		return "lib" + name + ".so"
	}
}
