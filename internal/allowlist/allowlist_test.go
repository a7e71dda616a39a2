package allowlist

import (
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	l, err := New(DefaultHosts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if l.Len() != 4 {
		t.Errorf("Len() = %d, want 4", l.Len())
	}

	tests := []struct {
		host string
		want bool
	}{
		{"testphp.vulnweb.com", true},
		{"juice-shop.herokuapp.com", true},
		{"juice-shop.github.io", true},
		{"badssl.com", true},
		{"BadSSL.com", true},
		{"TESTPHP.VULNWEB.COM", true},
		{"badssl.com.", true},
		{"evil.example.com", false},
		{"sub.badssl.com", false},
		{"badssl.com.evil.example", false},
		{"vulnweb.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			if got := l.Allows(tt.host); got != tt.want {
				t.Errorf("Allows(%q) = %v, want %v", tt.host, got, tt.want)
			}
		})
	}
}

func TestNew_DeduplicatesCaseInsensitive(t *testing.T) {
	l, err := New([]string{"Example.com", "example.com", "other.test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got := l.Hosts()
	want := []string{"example.com", "other.test"}
	if len(got) != len(want) {
		t.Fatalf("Hosts() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Hosts()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		hosts []string
	}{
		{"empty list", nil},
		{"empty entry", []string{"badssl.com", ""}},
		{"scheme included", []string{"https://badssl.com"}},
		{"path included", []string{"badssl.com/path"}},
		{"whitespace inside", []string{"bad ssl.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.hosts); err == nil {
				t.Errorf("New(%v) expected error, got nil", tt.hosts)
			}
		})
	}
}

func TestNew_AcceptsIP(t *testing.T) {
	l, err := New([]string{"127.0.0.1"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !l.Allows("127.0.0.1") {
		t.Error("Allows(127.0.0.1) = false, want true")
	}
}

func TestHosts_ReturnsCopy(t *testing.T) {
	l, err := New([]string{"badssl.com"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	hosts := l.Hosts()
	hosts[0] = "evil.example.com"

	if l.Allows("evil.example.com") {
		t.Error("mutating Hosts() result changed the list")
	}
	if got := l.Hosts()[0]; got != "badssl.com" {
		t.Errorf("Hosts()[0] = %q, want %q", got, "badssl.com")
	}
}

func TestNilList(t *testing.T) {
	var l *List
	if l.Allows("badssl.com") {
		t.Error("nil List should allow nothing")
	}
	if l.Len() != 0 {
		t.Errorf("nil List Len() = %d, want 0", l.Len())
	}
	if l.Hosts() != nil {
		t.Errorf("nil List Hosts() = %v, want nil", l.Hosts())
	}
}
