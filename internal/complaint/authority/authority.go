// Package authority decides which callers may drive a complaint to a
// terminal state.
package authority

import (
	"context"

	"civicledger/pkg/domain"
)

// Authorizer answers whether caller may resolve, reject or advance complaints.
type Authorizer interface {
	Authorize(ctx context.Context, caller domain.Address) bool
}

// AllowList is a fixed set of authority addresses. Comparison is on the
// decoded 20 bytes, so checksum casing never matters.
type AllowList struct {
	members map[domain.Address]struct{}
}

func NewAllowList(addrs ...domain.Address) *AllowList {
	m := make(map[domain.Address]struct{}, len(addrs))
	for _, a := range addrs {
		if a.IsZero() {
			continue
		}
		m[a] = struct{}{}
	}
	return &AllowList{members: m}
}

func (l *AllowList) Authorize(_ context.Context, caller domain.Address) bool {
	if l == nil || caller.IsZero() {
		return false
	}
	_, ok := l.members[caller]
	return ok
}

func (l *AllowList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.members)
}
