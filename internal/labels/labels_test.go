//nolint:testpackage // needs the unexported cardinality heuristic
package labels

import "testing"

func TestLookup(t *testing.T) {
	t.Parallel()

	objectLabels := map[string]string{
		ComposeProjectKey: "shop",
		ComposeServiceKey: "",
	}

	if got := Lookup(objectLabels, ComposeProjectKey); got != "shop" {
		t.Fatalf("project: got %q want %q", got, "shop")
	}

	if got := Lookup(objectLabels, ComposeServiceKey); got != "" {
		t.Fatalf("empty service: got %q", got)
	}

	if got := Lookup(objectLabels, StackNamespaceKey); got != "" {
		t.Fatalf("missing key: got %q", got)
	}

	if got := Lookup(nil, ComposeProjectKey); got != "" {
		t.Fatalf("nil map: got %q", got)
	}
}

func TestIsLikelyHighCardinalityValue(t *testing.T) {
	t.Parallel()

	cases := []struct {
		value string
		want  bool
	}{
		{"web", false},
		{"shop-web-1", false},
		{"eager_hopper", false},
		{"0b4f3c2a-9d1e-4c5b-8a7f-112233445566", true},
		{"4f9d2c1b8e7a6d5c4b3a", true},
		{"monitoring_grafana.1.x7k2mzq3v9c8b1n4t6r5y0w2e", true},
		{"monitoring_grafana.1", false},
	}

	for _, testCase := range cases {
		if got := isLikelyHighCardinalityValue(testCase.value); got != testCase.want {
			t.Fatalf("%q: got %v want %v", testCase.value, got, testCase.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := truncate("abcdef", 3); got != "abc" {
		t.Fatalf("got %q", got)
	}

	if got := truncate("ab", 3); got != "ab" {
		t.Fatalf("got %q", got)
	}
}
