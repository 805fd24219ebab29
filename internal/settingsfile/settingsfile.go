// Package settingsfile loads the environment-provided settings object of
// spec §6 from a YAML file beside the database, applying defaults for any
// field the file omits or for a file that doesn't exist at all. Grounded
// on internal/ext/config.go's LoadConfig/ParseConfig shape (read bytes,
// yaml.Unmarshal into a tagged struct, apply defaults), generalized from
// a package-manifest loader to a small settings object.
package settingsfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProofFormat is the on-disk proof encoding a CLI surface should prefer
// when it needs to pick one (spec §6).
type ProofFormat string

const (
	ProofFormatUncompressed ProofFormat = "uncompressed"
	ProofFormatCompressed   ProofFormat = "compressed"
)

// Settings is the environment-provided settings object of spec §6.
type Settings struct {
	// DefinitionsStartWith is the label prefix that marks a proof-free
	// theorem as a Definition rather than a plain Axiom (spec §4.5).
	DefinitionsStartWith string `yaml:"definitionsStartWith"`
	// ShowUnifyResultInUnicodePreview toggles Unicode rendering of a
	// unification result in an editor preview surface.
	ShowUnifyResultInUnicodePreview bool `yaml:"showUnifyResultInUnicodePreview"`
	// ProofFormat selects which of the two proof encodings a database
	// write should emit.
	ProofFormat ProofFormat `yaml:"proofFormat"`
}

// Defaults returns the settings object used when no settings file is
// present: no definition-label prefix configured, Unicode preview off,
// compressed proofs (metamath.exe's own default on write).
func Defaults() Settings {
	return Settings{
		DefinitionsStartWith:            "",
		ShowUnifyResultInUnicodePreview: false,
		ProofFormat:                     ProofFormatCompressed,
	}
}

// Load reads and parses a `.mmeditor.yaml` settings file at path, applying
// Defaults() for fields it omits. A missing file is not an error: Load
// returns Defaults() unchanged.
func Load(path string) (Settings, error) {
	settings := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return Settings{}, fmt.Errorf("settingsfile: reading %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses settings YAML from bytes already read, starting from
// Defaults() so an omitted field keeps its default rather than zeroing
// out. path is used only for error messages.
func Parse(data []byte, path string) (Settings, error) {
	settings := Defaults()
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("settingsfile: parsing %s: %w", path, err)
	}
	if settings.ProofFormat != ProofFormatUncompressed && settings.ProofFormat != ProofFormatCompressed {
		return Settings{}, fmt.Errorf("settingsfile: %s: proofFormat must be %q or %q, got %q",
			path, ProofFormatUncompressed, ProofFormatCompressed, settings.ProofFormat)
	}
	return settings, nil
}
