package util

import "testing"

func TestCompose(t *testing.T) {
	cases := []struct {
		group string
		ver   uint64
		raw   string
		want  string
	}{
		{"users", 1, "42", "users_1_42"},
		{"users", 2, "42", "users_2_42"},
		{"users", 7, "", "users_7"},
		{"a_b", 18446744073709551615, "k", "a_b_18446744073709551615_k"},
	}
	for _, tc := range cases {
		if got := Compose(tc.group, tc.ver, tc.raw); got != tc.want {
			t.Fatalf("Compose(%q,%d,%q)=%q want %q", tc.group, tc.ver, tc.raw, got, tc.want)
		}
	}
}

func TestVersionKey(t *testing.T) {
	if got := VersionKey("users"); got != "users_version" {
		t.Fatalf("VersionKey=%q", got)
	}
}

func TestValidKeyChars(t *testing.T) {
	for _, s := range []string{"users", "u:1", "ユーザー", "a-b_c.d"} {
		if !ValidKeyChars(s) {
			t.Fatalf("%q should be valid", s)
		}
	}
	for _, s := range []string{"a b", "a\nb", "tab\t", "nul\x00", "del\x7f"} {
		if ValidKeyChars(s) {
			t.Fatalf("%q should be invalid", s)
		}
	}
}

func TestReservedRaw(t *testing.T) {
	for raw, want := range map[string]bool{
		"version":     true,
		"x_version":   true,
		"a_b_version": true,
		"versions":    false,
		"version_x":   false,
		"myversion":   false,
		"42":          false,
	} {
		if got := ReservedRaw(raw); got != want {
			t.Fatalf("ReservedRaw(%q)=%v want %v", raw, got, want)
		}
	}
}
