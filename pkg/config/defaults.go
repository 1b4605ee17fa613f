package config

import "time"

const (
	defaultMaxConcurrentReconciles = 4
	defaultRetryDelay              = 10 * time.Second

	defaultNCPort               = 830
	defaultTimeout              = 30 * time.Second
	defaultCommitConfirmTimeout = 30 * time.Second
	defaultGnmiEncoding         = "json_ietf"

	defaultPromAddress = ":8888"
)
