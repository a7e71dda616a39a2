// Package allowlist holds the immutable set of hosts the proxy may fetch.
package allowlist

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// DefaultHosts are the practice targets embedded by the lab pages.
var DefaultHosts = []string{
	"testphp.vulnweb.com",
	"juice-shop.herokuapp.com",
	"juice-shop.github.io",
	"badssl.com",
}

// List is an ordered, read-only set of host names. Lookups are
// case-insensitive. A List is safe for concurrent use.
type List struct {
	hosts []string
	index map[string]struct{}
}

// New validates hosts and builds a List. Entries are lower-cased and
// deduplicated, keeping the first occurrence.
func New(hosts []string) (*List, error) {
	if err := Validate(hosts); err != nil {
		return nil, fmt.Errorf("allowlist: %w", err)
	}

	l := &List{
		hosts: make([]string, 0, len(hosts)),
		index: make(map[string]struct{}, len(hosts)),
	}
	for _, h := range hosts {
		h = normalize(h)
		if _, dup := l.index[h]; dup {
			continue
		}
		l.index[h] = struct{}{}
		l.hosts = append(l.hosts, h)
	}
	return l, nil
}

// Validate reports whether every entry is a usable host name or IP address.
func Validate(hosts []string) error {
	return validation.Validate(hosts,
		validation.Required,
		validation.Each(validation.Required, is.Host),
	)
}

// Allows reports whether host is on the list. host must not carry a port.
func (l *List) Allows(host string) bool {
	if l == nil || host == "" {
		return false
	}
	_, ok := l.index[normalize(host)]
	return ok
}

// Hosts returns a copy of the entries in configuration order.
func (l *List) Hosts() []string {
	if l == nil {
		return nil
	}
	out := make([]string, len(l.hosts))
	copy(out, l.hosts)
	return out
}

// Len returns the number of distinct entries.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.hosts)
}

func normalize(h string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(h)), ".")
}
