package scapeid

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"snake":            "snake",
		"Snake":            "snake",
		"snake_sim":        "snake",
		"snakesim":         "snake",
		"scape_snake":      "snake",
		"scape_snake_sim":  "snake",
		"grid_snake":       "snake",
		"grid-snake":       "snake",
		"gridsnake":        "snake",
		"snake_scape":      "snake",
		"  SNAKE-SIM  ":    "snake",
		"custom_sim":       "custom-sim",
		"scape_custom_sim": "scape-custom-sim",
		"":                 "",
	}

	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("normalize(%q)=%q want=%q", in, got, want)
		}
	}
}
