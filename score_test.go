package ubigeo

import "testing"

func TestScore(t *testing.T) {
	tests := []struct {
		query     string
		candidate string
		want      int
	}{
		{"lima", "Lima", ScoreExact},
		{"ANCASH", "Áncash", ScoreExact},
		{"lima", "Limabamba", ScorePrefix},
		{"san juan", "San Juan de Lurigancho", ScorePrefix},
		{"im", "Lima", ScoreContains},
		{"flores", "Miraflores", ScoreContains},
		{"Lima Metropolitana", "Lima", ScoreReverseContains},
		{"cusco", "Lima", ScoreNone},
		{"", "Lima", ScoreNone},
		{"lima", "", ScoreNone},
		{"   ", "Lima", ScoreNone},
	}

	for _, tt := range tests {
		t.Run(tt.query+"/"+tt.candidate, func(t *testing.T) {
			if got := Score(tt.query, tt.candidate); got != tt.want {
				t.Errorf("Score(%q, %q) = %d, want %d", tt.query, tt.candidate, got, tt.want)
			}
		})
	}
}

func TestScoreTiersOrdered(t *testing.T) {
	x := "Lima"
	exact := Score(x, x)
	prefix := Score(x, x+"norte")
	contains := Score("im", x)
	reverse := Score("Lima Metropolitana", x)

	if !(exact > prefix && prefix > contains && contains > reverse && reverse > ScoreNone) {
		t.Errorf("tiers not strictly ordered: exact=%d prefix=%d contains=%d reverse=%d",
			exact, prefix, contains, reverse)
	}
}
