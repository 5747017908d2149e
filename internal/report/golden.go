package report

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// AssertGolden compares a snapshot's canonical JSON against the golden
// file testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/report -update
func AssertGolden(t *testing.T, name string, snap Snapshot) {
	t.Helper()

	data, err := MarshalSnapshot(snap)
	if err != nil {
		t.Fatalf("failed to marshal snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
