package templating

import "testing"

func TestTemplateFunctions(t *testing.T) {
	t.Run("Last", func(t *testing.T) {
		items := []string{"a", "b", "c"}
		if last(1, items) {
			t.Error("last(1) reported true for a three item list")
		}
		if !last(2, items) {
			t.Error("last(2) reported false for a three item list")
		}
		if !last(0, 42) {
			t.Error("last() should treat non-collections as a single item")
		}
	})

	t.Run("Arithmetic", func(t *testing.T) {
		if add(2, 3) != 5 || sub(2, 3) != -1 || inc(1) != 2 || dec(1) != 0 {
			t.Error("arithmetic helpers returned unexpected values")
		}
	})

	t.Run("IsSet", func(t *testing.T) {
		if isSet(nil) || isSet("") || isSet(0) {
			t.Error("isSet() reported a zero value as set")
		}
		if !isSet("x") || !isSet([]string{}) {
			t.Error("isSet() reported a non-zero value as unset")
		}
	})

	t.Run("CSSClass", func(t *testing.T) {
		tests := map[string]string{
			"address":        "address",
			"Postal Address": "postal-address",
			`a"><script>`:    "ascript",
			"addr_line-1":    "addr_line-1",
		}
		for in, want := range tests {
			if got := cssClass(in); got != want {
				t.Errorf("cssClass(%q) = %q, want %q", in, got, want)
			}
		}
	})

	t.Run("Join", func(t *testing.T) {
		if got := join([]string{"a", "b"}, ", "); got != "a, b" {
			t.Errorf("join() = %q", got)
		}
	})
}
