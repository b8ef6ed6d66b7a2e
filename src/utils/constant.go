package utils

import "time"

// -----------------------------------------------------------------------------
// Core limits. History sizes match one update per minute over 24h plus the
// boundary entry, and a short USD/IDR tail for the chart.
// -----------------------------------------------------------------------------

const (
	MaxHistory    = 1441
	MaxUsdHistory = 11

	MaxConnections = 500
	StateCacheTTL  = 20 * time.Millisecond

	HeartbeatInterval = 15 * time.Second
	WsIdleTimeout     = 45 * time.Second

	MinLimit = int64(0)
	MaxLimit = int64(88888)

	// Cooldown between successful privileged config calls.
	ControlCooldownSecs = 5
)

// -----------------------------------------------------------------------------
// Abuse policy
// -----------------------------------------------------------------------------

const (
	MaxFailedAttempts  = 5
	FailedAttemptsSecs = 60
	BlockDurationSecs  = 300
	EscalatedBlockSecs = 600

	RateLimitWindowSecs  = 60
	RateLimitMaxRequests = 60
	RateLimitStrictMax   = 120
	RateSweepSecs        = 30
)

// Failed-attempt weights. Higher weight means higher confidence that the
// request was hostile.
const (
	WeightSuspiciousPath = 3
	WeightMissingKey     = 2
	WeightAuthFailure    = 1
	WeightUnknownPath    = 1
)

// -----------------------------------------------------------------------------

// SuspiciousPaths are fragments matched case-insensitively against request
// paths. A hit is treated as an exploit probe.
var SuspiciousPaths = []string{
	"/admin", "/login", "/wp-admin", "/phpmyadmin", "/.env", "/config",
	"/api/admin", "/administrator", "/wp-login", "/backup", "/.git",
	"/shell", "/cmd", "/exec", "/eval", "/system", "/passwd", "/etc",
}

// ControlPathPrefix is the privileged config surface. It is exempt from the
// suspicious-path scan and the rate limiter so the control plane can never
// deny itself.
const ControlPathPrefix = "/aturt"

// -----------------------------------------------------------------------------

// KeyShard maps key onto one of shards buckets (FNV-1a). The per-IP tables
// split their locks across shards so requests from different IPs rarely
// contend.
func KeyShard(key string, shards uint32) uint32 {
	const offset32, prime32 = 2166136261, 16777619
	h := uint32(offset32)
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= prime32
	}
	return h % shards
}
