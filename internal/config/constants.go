package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Per-request database deadline. Exceeding it surfaces a generic
// "try again" failure instead of hanging the conversation.
const DBQueryTimeout = 10 * time.Second

// Background job intervals
const (
	CleanupJobInterval  = 5 * time.Minute
	StatusSyncInterval  = time.Minute
	LeaderboardCacheTTL = 30 * time.Second
)

// Webhook rate limiting
const WebhookRateLimitPerMin = 30

// Largest request body the webhook endpoint accepts. Platform payloads
// are a few KB; anything near this is not a chat message.
const MaxWebhookBodyBytes int64 = 1 << 20

// Scoring caps
const (
	MaxPointsPerDay      = 100_000
	MaxPointsPerUser     = 1_000_000
	MaxBaselineMagnitude = 1_000_000
)

// Suggestion/voting limits
const MaxOpenSuggestionsPerUser = 3

// Leaderboard display cutoff
const LeaderboardLimit = 20

// Past challenge listing cutoff
const PastChallengeLimit = 10

// Recent challenge listing cutoff for admin edit and removal
const RecentChallengeLimit = 10

// Feedback listing cutoff for the admin view
const FeedbackListLimit = 20
