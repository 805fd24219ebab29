package settingsfile

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.mmeditor.yaml")
	got, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != Defaults() {
		t.Fatalf("got %+v, want defaults %+v", got, Defaults())
	}
}

func TestParseAppliesDefaultsForOmittedFields(t *testing.T) {
	yaml := `definitionsStartWith: "df-"`
	got, err := Parse([]byte(yaml), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DefinitionsStartWith != "df-" {
		t.Errorf("definitionsStartWith = %q, want df-", got.DefinitionsStartWith)
	}
	if got.ProofFormat != ProofFormatCompressed {
		t.Errorf("proofFormat = %q, want default %q", got.ProofFormat, ProofFormatCompressed)
	}
	if got.ShowUnifyResultInUnicodePreview {
		t.Error("expected showUnifyResultInUnicodePreview to default false")
	}
}

func TestParseRejectsUnknownProofFormat(t *testing.T) {
	yaml := `proofFormat: "bogus"`
	if _, err := Parse([]byte(yaml), "test.yaml"); err == nil {
		t.Fatal("expected an error for an unknown proofFormat value")
	}
}

func TestParseFullSettings(t *testing.T) {
	yaml := `
definitionsStartWith: "df-"
showUnifyResultInUnicodePreview: true
proofFormat: "uncompressed"
`
	got, err := Parse([]byte(yaml), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Settings{
		DefinitionsStartWith:            "df-",
		ShowUnifyResultInUnicodePreview: true,
		ProofFormat:                     ProofFormatUncompressed,
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
