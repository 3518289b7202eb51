package hearings

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRosterResolve(t *testing.T) {
	roster := Roster{
		Names:         []string{"ADAMS, A", "BAKER, B"},
		MinSimilarity: 0.85,
	}

	for _, tt := range []struct {
		name    string
		raw     string
		want    string
		matched bool
	}{
		{"exact", "ADAMS, A", "ADAMS, A", true},
		{"case and spacing", "  adams,  a ", "ADAMS, A", true},
		{"fuzzy spelling", "Baker B", "BAKER, B", true},
		{"unknown officer", "ZIMMERMANN, Z", "ZIMMERMANN, Z", false},
		{"empty", "", "", false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got, matched := roster.Resolve(tt.raw)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.matched, matched)
		})
	}
}

func TestRosterCategory(t *testing.T) {
	roster := Roster{Names: []string{"ADAMS, A", "BAKER, B"}}
	category := roster.Category()
	require.Equal(t, "officer", category.Name)
	require.Equal(t, roster.Names, category.Values)
}
