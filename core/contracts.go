package core

import glog "github.com/goliatone/go-logger/glog"

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
