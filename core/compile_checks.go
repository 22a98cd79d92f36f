package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ Logger                  = glog.Nop()
	_ LoggerProvider          = glog.ProviderFromLogger(glog.Nop())
	_ MetricsRecorder         = NopMetricsRecorder{}
	_ StateStore              = (*MemoryStateStore)(nil)
	_ ConnectionStore         = (*MemoryConnectionStore)(nil)
	_ ConnectionHistoryLister = (*MemoryConnectionStore)(nil)
	_ RevocationDispatcher    = (*InlineRevoker)(nil)
	_ ExpiredStatePurger      = (*MemoryStateStore)(nil)
	_ ConfigProvider          = (*CfgxConfigProvider)(nil)
	_ OptionsResolver         = GoOptionsResolver{}
)
