package codemod

import "testing"

func TestApplyReplacements(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		rs   []Replacement
		want string
	}{
		{name: "none", src: "abc", want: "abc"},
		{name: "single", src: "<p>Hi</p>", rs: []Replacement{{3, 5, "{x}"}}, want: "<p>{x}</p>"},
		{
			name: "order independent",
			src:  "aa bb cc",
			rs:   []Replacement{{0, 2, "1"}, {6, 8, "3"}, {3, 5, "2"}},
			want: "1 2 3",
		},
		{name: "insertion", src: "body", rs: []Replacement{{0, 0, "head\n"}}, want: "head\nbody"},
		{name: "overlap dropped", src: "abcdef", rs: []Replacement{{2, 5, "X"}, {1, 3, "Y"}}, want: "abXf"},
		{name: "out of range", src: "abc", rs: []Replacement{{2, 9, "X"}}, want: "abc"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := string(applyReplacements([]byte(tc.src), tc.rs)); got != tc.want {
				t.Fatalf("applyReplacements() = %q, want %q", got, tc.want)
			}
		})
	}
}
