package ubigeo

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const smallDataset = `
country: Testland
levels: {region: state, subregion: county, locality: town}
regions:
  - name: North
    subregions:
      - name: Hill
        localities: [Alpha, Beta]
  - name: South
    subregions:
      - name: Lake
        localities: [Gamma]
      - name: Alpha
        localities: [Alpha]
`

func TestStats(t *testing.T) {
	h := loadHierarchy(t)

	got := h.Stats()
	want := Stats{Regions: 25, SubRegions: 196, Localities: 1867}
	if got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
	if h.Country() != "Perú" {
		t.Errorf("Country() = %q, want %q", h.Country(), "Perú")
	}
}

func TestLevelNames(t *testing.T) {
	h := loadHierarchy(t)

	tests := []struct {
		level Level
		want  string
	}{
		{LevelRegion, "departamento"},
		{LevelSubRegion, "provincia"},
		{LevelLocality, "distrito"},
		{Level(7), "unknown"},
	}
	for _, tt := range tests {
		if got := h.LevelName(tt.level); got != tt.want {
			t.Errorf("LevelName(%v) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestCascadingAccessors(t *testing.T) {
	h := loadHierarchy(t)

	regions := h.Regions()
	if len(regions) != 25 || regions[0] != "Amazonas" || regions[24] != "Ucayali" {
		t.Errorf("Regions() = %v", regions)
	}

	subs := h.SubRegions("tumbes")
	if got, want := strings.Join(subs, ","), "Tumbes,Contralmirante Villar,Zarumilla"; got != want {
		t.Errorf("SubRegions(tumbes) = %q, want %q", got, want)
	}
	if got := h.SubRegions("Atlantis"); got != nil {
		t.Errorf("SubRegions(unknown) = %v, want nil", got)
	}

	locs := h.Localities("Callao", "callao")
	if len(locs) != 7 || locs[0] != "Callao" || locs[6] != "Mi Perú" {
		t.Errorf("Localities(Callao, Callao) = %v", locs)
	}
	if got := h.Localities("Lima", "Atlantis"); got != nil {
		t.Errorf("Localities(Lima, unknown) = %v, want nil", got)
	}
	if got := h.Localities("Atlantis", "Lima"); got != nil {
		t.Errorf("Localities(unknown, Lima) = %v, want nil", got)
	}

	// Returned slices are copies.
	regions[0] = "changed"
	if h.Regions()[0] != "Amazonas" {
		t.Error("Regions() exposes internal state")
	}
}

func TestNewWithData(t *testing.T) {
	h, err := New(WithData([]byte(smallDataset)))
	if err != nil {
		t.Fatalf("New(WithData) failed: %v", err)
	}
	if got := h.Stats(); got != (Stats{Regions: 2, SubRegions: 3, Localities: 4}) {
		t.Errorf("Stats() = %+v", got)
	}

	got := h.Search("alpha")
	var labels []string
	for _, r := range got {
		labels = append(labels, r.DisplayLabel)
	}
	want := []string{"Alpha, South (county)", "Alpha, Hill, North (town)", "Alpha, Alpha, South (town)"}
	if strings.Join(labels, "|") != strings.Join(want, "|") {
		t.Errorf("Search(alpha) labels = %q, want %q", labels, want)
	}
}

func TestNewWithDataFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.yaml")
	if err := os.WriteFile(path, []byte(smallDataset), 0o644); err != nil {
		t.Fatal(err)
	}
	h, err := New(WithDataFile(path))
	if err != nil {
		t.Fatalf("New(WithDataFile) failed: %v", err)
	}
	if h.Country() != "Testland" {
		t.Errorf("Country() = %q, want Testland", h.Country())
	}

	if _, err := New(WithDataFile(filepath.Join(t.TempDir(), "missing.yaml"))); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("New(missing file) error = %v, want os.ErrNotExist", err)
	}
}

func TestNewDefaultLevelNames(t *testing.T) {
	h, err := New(WithData([]byte("regions:\n  - name: A\n    subregions:\n      - name: B\n        localities: [C]\n")))
	if err != nil {
		t.Fatal(err)
	}
	if got := h.LevelName(LevelSubRegion); got != "subregion" {
		t.Errorf("LevelName(LevelSubRegion) = %q, want %q", got, "subregion")
	}
	if got := h.Search("b"); len(got) != 0 {
		t.Errorf("Search(b) = %v, want none", got)
	}
}

func TestNewInvalidDataset(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no regions", "country: X\n"},
		{"no subregions", "regions:\n  - name: A\n"},
		{"duplicate region", "regions:\n  - name: A\n    subregions: [{name: B, localities: [C]}]\n  - name: á\n    subregions: [{name: B, localities: [C]}]\n"},
		{"duplicate locality", "regions:\n  - name: A\n    subregions: [{name: B, localities: [C, ' c ']}]\n"},
		{"blank locality", "regions:\n  - name: A\n    subregions: [{name: B, localities: [C, '  ']}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(WithData([]byte(tt.data))); !errors.Is(err, ErrInvalidDataset) {
				t.Errorf("New() error = %v, want ErrInvalidDataset", err)
			}
		})
	}

	if _, err := New(WithData([]byte("regions: [unterminated"))); err == nil || errors.Is(err, ErrInvalidDataset) {
		t.Errorf("New(malformed yaml) error = %v, want decode error", err)
	}
}

func TestCheckDataset(t *testing.T) {
	issues, err := CheckDataset(EmbeddedDataset())
	if err != nil {
		t.Fatalf("CheckDataset(embedded) error: %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("embedded dataset has issues: %v", issues)
	}

	bad := `
regions:
  - name: North
    subregions:
      - name: Hill
        localities: [Alpha, ALPHA]
      - name: hill
        localities: []
`
	issues, err = CheckDataset(strings.NewReader(bad))
	if err != nil {
		t.Fatalf("CheckDataset(bad) error: %v", err)
	}
	want := []string{
		"North/Hill/ALPHA: duplicate locality",
		"North/hill: duplicate subregion",
		"North/hill: subregion has no localities",
	}
	if len(issues) != len(want) {
		t.Fatalf("CheckDataset(bad) = %v, want %d issues", issues, len(want))
	}
	for i, w := range want {
		if got := issues[i].String(); got != w {
			t.Errorf("issue[%d] = %q, want %q", i, got, w)
		}
	}
}
