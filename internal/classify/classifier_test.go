package classify_test

import (
	"testing"

	"binfill/internal/classify"
	"binfill/internal/config"
)

func newTestClassifier() *classify.Classifier {
	return classify.New([]classify.Rule{
		{Prefix: "internal/", Group: "core"},
		{Prefix: "internal/api/", Group: "api"},
		{Prefix: `web\`, Group: "frontend"},
		{Prefix: "", Group: "ignored"},
	}, "root-config", "cross-cutting")
}

func TestClassify(t *testing.T) {
	c := newTestClassifier()

	cases := []struct {
		name string
		attr string
		want string
	}{
		{name: "first match wins over longer prefix", attr: "internal/api/handler.go", want: "core"},
		{name: "backslash attribute", attr: `web\src\app.ts`, want: "frontend"},
		{name: "leading dot slash", attr: "./web/index.html", want: "frontend"},
		{name: "root level file", attr: "go.mod", want: "root-config"},
		{name: "root level dotfile", attr: ".golangci.yml", want: "root-config"},
		{name: "unmatched nested path", attr: "docs/guide.md", want: "cross-cutting"},
		{name: "empty attribute", attr: "", want: "cross-cutting"},
		{name: "whitespace attribute", attr: "   ", want: "cross-cutting"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Classify(tc.attr); got != tc.want {
				t.Fatalf("Classify(%q) = %q, want %q", tc.attr, got, tc.want)
			}
		})
	}
}

func TestClassifyIsStableAcrossCalls(t *testing.T) {
	c := newTestClassifier()
	inputs := []string{"go.mod", "internal/x.go", "docs/a.md", "", "web/a"}

	first := make([]string, len(inputs))
	for i, in := range inputs {
		first[i] = c.Classify(in)
	}
	for round := 0; round < 3; round++ {
		for i := len(inputs) - 1; i >= 0; i-- {
			if got := c.Classify(inputs[i]); got != first[i] {
				t.Fatalf("round %d: Classify(%q) = %q, first call returned %q", round, inputs[i], got, first[i])
			}
		}
	}
}

func TestClassifyNormalizesUnicode(t *testing.T) {
	c := classify.New([]classify.Rule{{Prefix: "caf\u00e9/", Group: "cafe"}}, "root", "cross")
	// "e" followed by a combining acute accent composes to U+00E9 under NFC.
	if got := c.Classify("cafe\u0301/menu.txt"); got != "cafe" {
		t.Fatalf("expected NFC-normalized match, got %q", got)
	}
}

func TestFromConfigDropsEmptyRules(t *testing.T) {
	cfg := config.Default().Classifier
	cfg.Rules = []config.Rule{{Prefix: "web/", Group: "frontend"}, {Prefix: "lib/", Group: ""}}

	c := classify.FromConfig(cfg)
	rules := c.Rules()
	if len(rules) != 1 || rules[0].Group != "frontend" {
		t.Fatalf("unexpected rules: %+v", rules)
	}
	if got := c.Classify("lib/x.go"); got != cfg.CrossCuttingGroup {
		t.Fatalf("expected cross-cutting for dropped rule, got %q", got)
	}
}
