package sftpclient

import "testing"

func TestCleanRemotePath(t *testing.T) {
	cases := map[string]string{
		"":           ".",
		" /tmp ":     "/tmp",
		"foo/../bar": "bar",
		"a\\b":       "a/b",
		"~/data":     "~/data",
	}
	for in, expected := range cases {
		if got := cleanRemotePath(in); got != expected {
			t.Fatalf("cleanRemotePath(%q) = %q, want %q", in, got, expected)
		}
	}
}
