package config

import "time"

const (
	// Groups
	GlobalGroup        = "global_chat"
	PrivateGroupPrefix = "private"

	// Handles
	MaxHandleLength = 150

	// History
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200

	// Transport
	WriteWait  = 10 * time.Second
	PongWait   = 60 * time.Second
	PingPeriod = (PongWait * 9) / 10
)
