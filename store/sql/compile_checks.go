package sqlstore

import "github.com/goliatone/go-connections/core"

var (
	_ core.ConnectionStore         = (*ConnectionStore)(nil)
	_ core.ConnectionStore         = (*CachedConnectionStore)(nil)
	_ core.ConnectionHistoryLister = (*ConnectionStore)(nil)
	_ core.ConnectionHistoryLister = (*CachedConnectionStore)(nil)
	_ core.StateStore              = (*StateStore)(nil)
	_ core.ExpiredStatePurger      = (*StateStore)(nil)
)
