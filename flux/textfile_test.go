package flux

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFluxFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.flux")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadIntervalsFile(t *testing.T) {
	path := writeFluxFile(t, `# revolution 1
2000
2000
4000

# revolution 2
2000 # trailing comment
6000
`)
	revs, err := ReadIntervalsFile(path, 1e9)
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 2 {
		t.Fatalf("revolutions = %d, want 2", len(revs))
	}

	want := []uint64{2000, 4000, 8000}
	if len(revs[0].Transitions) != len(want) {
		t.Fatalf("transitions = %d, want %d", len(revs[0].Transitions), len(want))
	}
	for i, w := range want {
		if revs[0].Transitions[i] != w {
			t.Errorf("transition %d = %d, want %d", i, revs[0].Transitions[i], w)
		}
	}
	if revs[0].IndexTicks != 8000 {
		t.Errorf("index ticks = %d, want 8000", revs[0].IndexTicks)
	}
	if revs[0].ClockHz != 1e9 {
		t.Errorf("clock = %d, want 1e9", revs[0].ClockHz)
	}
	if len(revs[1].Transitions) != 2 {
		t.Errorf("second revolution transitions = %d, want 2", len(revs[1].Transitions))
	}
}

func TestReadIntervalsFile_Errors(t *testing.T) {
	if _, err := ReadIntervalsFile(filepath.Join(t.TempDir(), "missing"), 1e9); err == nil {
		t.Error("missing file accepted")
	}
	if _, err := ReadIntervalsFile(writeFluxFile(t, "2000\nabc\n"), 1e9); err == nil {
		t.Error("non-numeric line accepted")
	}
	if _, err := ReadIntervalsFile(writeFluxFile(t, "2000\n0\n"), 1e9); err == nil {
		t.Error("zero interval accepted")
	}
	if _, err := ReadIntervalsFile(writeFluxFile(t, "# only comments\n"), 1e9); err == nil {
		t.Error("empty capture accepted")
	}
}
