package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-connections/core"
)

var (
	_ gocmd.Querier[ListConnectionsMessage, []core.ConnectionSummary] = (*ListConnectionsQuery)(nil)
	_ gocmd.Querier[GetConnectionMessage, core.PlatformConnection]    = (*GetConnectionQuery)(nil)
	_ gocmd.Querier[ListPlatformsMessage, []core.PlatformView]        = (*ListPlatformsQuery)(nil)
)
