package types

type RunMode string

const (
	// ModeLocal runs the API server and the stale-order sweeper in one process
	ModeLocal RunMode = "local"
	// ModeAPI runs just the API server
	ModeAPI RunMode = "api"
	// ModeSweeper runs just the stale-order sweeper
	ModeSweeper RunMode = "sweeper"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// StoreDriver selects the persistence backend for orders and discount codes
type StoreDriver string

const (
	StoreDriverPostgres StoreDriver = "postgres"
	StoreDriverSupabase StoreDriver = "supabase"
)

// AuthProvider selects how admin credentials are checked
type AuthProvider string

const (
	AuthProviderLocal    AuthProvider = "local"
	AuthProviderSupabase AuthProvider = "supabase"
)

const (
	HeaderRequestID       = "X-Request-ID"
	HeaderStripeSignature = "Stripe-Signature"
)
