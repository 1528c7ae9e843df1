package bundle

import "github.com/jrobhoward/rustbridge/errcode"

// SchemaChecksumPolicy controls how Combine reconciles manifests whose
// schema_checksum fields disagree.
type SchemaChecksumPolicy int

const (
	// SchemaChecksumError rejects the combine outright (the default).
	SchemaChecksumError SchemaChecksumPolicy = iota
	SchemaChecksumWarn
	SchemaChecksumIgnore
)

// Combine merges the platform entries of several manifests into one,
// per spec.md §4.H. Inputs must already agree on plugin identity and
// bundle_version; SchemaChecksumPolicy governs disagreement on
// schema_checksum (default: reject).
func Combine(manifests []*Manifest, policy SchemaChecksumPolicy) (*Manifest, []string, error) {
	if len(manifests) == 0 {
		return nil, nil, errcode.New(errcode.ConfigError, "combine requires at least one manifest")
	}

	var warnings []string
	merged := &Manifest{
		BundleVersion: manifests[0].BundleVersion,
		Plugin:        manifests[0].Plugin,
		Platforms:     map[string]Platform{},
		PublicKey:     manifests[0].PublicKey,
	}
	schemaChecksum := manifests[0].SchemaChecksum

	for _, m := range manifests {
		if m.BundleVersion != merged.BundleVersion {
			return nil, nil, errcode.New(errcode.ConfigError, "bundle_version mismatch: %s vs %s", m.BundleVersion, merged.BundleVersion)
		}
		if m.Plugin.Name != merged.Plugin.Name || m.Plugin.Version != merged.Plugin.Version {
			return nil, nil, errcode.New(errcode.ConfigError, "plugin identity mismatch across inputs")
		}
		if m.SchemaChecksum != schemaChecksum {
			switch policy {
			case SchemaChecksumError:
				return nil, nil, errcode.New(errcode.ConfigError, "schema_checksum mismatch: %q vs %q", m.SchemaChecksum, schemaChecksum)
			case SchemaChecksumWarn:
				warnings = append(warnings, "schema_checksum mismatch: "+m.SchemaChecksum+" vs "+schemaChecksum)
			case SchemaChecksumIgnore:
				// no-op
			}
		}
		for key, plat := range m.Platforms {
			existing, ok := merged.Platforms[key]
			if !ok {
				existing = Platform{Variants: map[string]Variant{}}
			}
			for vname, v := range plat.Variants {
				existing.Variants[vname] = v
			}
			merged.Platforms[key] = existing
		}
	}

	merged.SchemaChecksum = schemaChecksum
	if err := merged.Validate(); err != nil {
		return nil, warnings, err
	}
	return merged, warnings, nil
}

// SlimSpec selects the subset of a manifest's content Slim should keep.
type SlimSpec struct {
	Platforms   []string // empty: keep all
	Variants    []string // empty: keep all variants of kept platforms
	KeepDocs    bool
	KeepSBOM    bool
	KeepSchemas bool
}

// Slim filters manifest down to spec's selection. It operates on the
// manifest model only; the caller is responsible for omitting the
// corresponding archive entries when re-writing the bundle (Write only
// emits entries present in the WriteSpec it is given).
func Slim(manifest *Manifest, spec SlimSpec) (*Manifest, error) {
	keepPlatform := setOf(spec.Platforms)
	keepVariant := setOf(spec.Variants)

	out := *manifest
	out.Platforms = map[string]Platform{}
	for key, plat := range manifest.Platforms {
		if len(keepPlatform) > 0 && !keepPlatform[key] {
			continue
		}
		kept := Platform{Variants: map[string]Variant{}}
		for vname, v := range plat.Variants {
			if len(keepVariant) > 0 && !keepVariant[vname] {
				continue
			}
			kept.Variants[vname] = v
		}
		if _, ok := kept.Variants["release"]; !ok {
			return nil, errcode.New(errcode.ConfigError, "slim would drop platform %q's required release variant", key)
		}
		out.Platforms[key] = kept
	}
	if !spec.KeepDocs {
		out.Notices, out.LicenseFile = "", ""
	}
	if !spec.KeepSBOM {
		out.SBOM = nil
	}
	if !spec.KeepSchemas {
		out.Schemas = nil
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

func setOf(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	s := make(map[string]bool, len(items))
	for _, it := range items {
		s[it] = true
	}
	return s
}
