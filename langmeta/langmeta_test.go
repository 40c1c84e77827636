package langmeta

import "testing"

func TestCanonical(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "pt_br", want: "pt-BR"},
		{in: " EN-us ", want: "en-US"},
		{in: "ru", want: "ru"},
		{in: "zh-hant-tw", want: "zh-Hant-TW"},
	}

	for _, tc := range cases {
		got, err := Canonical(tc.in)
		if err != nil {
			t.Fatalf("Canonical(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Canonical(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "not a locale", "english!"} {
		if _, err := Canonical(bad); err == nil {
			t.Fatalf("Canonical(%q) should fail", bad)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Run("known", func(t *testing.T) {
		got := Resolve("de")
		if got.Code != "de" || got.Name != "German" || got.Native != "Deutsch" {
			t.Fatalf("unexpected result: %#v", got)
		}
		if got.Flag != "\U0001F1E9\U0001F1EA" {
			t.Fatalf("flag = %q", got.Flag)
		}
	})

	t.Run("normalized", func(t *testing.T) {
		got := Resolve("fr_ca")
		if got.Code != "fr-CA" || got.Flag != "\U0001F1E8\U0001F1E6" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("unknown passthrough", func(t *testing.T) {
		got := Resolve("not a locale")
		if got.Name != "not a locale" || got.Flag != "" {
			t.Fatalf("unexpected unknown result: %#v", got)
		}
	})
}

func TestLabel(t *testing.T) {
	if got := (Meta{Code: "de", Native: "Deutsch", Flag: "F"}).Label(); got != "F Deutsch (de)" {
		t.Fatalf("Label() = %q", got)
	}
	if got := (Meta{Code: "xx", Native: "xx"}).Label(); got != "xx" {
		t.Fatalf("Label() = %q", got)
	}
}

func TestFlag(t *testing.T) {
	if got := Flag("us"); got != "\U0001F1FA\U0001F1F8" {
		t.Fatalf("Flag(us) = %q", got)
	}
	if Flag("USA") != "" || Flag("1A") != "" {
		t.Fatal("invalid regions must yield no flag")
	}
}
