package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Green  = "\033[32m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
	Yellow = "\033[33m"

	// Bright variants for more color variety
	BrightGreen   = "\033[92m"
	BrightBlue    = "\033[94m"
	BrightMagenta = "\033[95m"
	BrightCyan    = "\033[96m"

	Red       = "\033[31m"
	BrightRed = "\033[91m"
)

// Storage-related log prefixes
const (
	LogStorageInit    = Blue + "[Storage:Init]" + Reset
	LogStorage        = Blue + "[Storage]" + Reset
	LogStorageBackup  = Blue + "[Storage:Backup]" + Reset
	LogStorageBackups = Blue + "[Storage:Backups]" + Reset
	LogStorageRestore = Blue + "[Storage:Restore]" + Reset
	LogStorageClear   = Blue + "[Storage:Clear]" + Reset
)

// Editor log prefixes
const (
	LogParser   = Cyan + "[Parser]" + Reset
	LogEditor   = Green + "[Editor]" + Reset
	LogSync     = BrightGreen + "[Sync]" + Reset
	LogHistory  = BrightCyan + "[History]" + Reset
	LogVersions = BrightBlue + "[Versions]" + Reset
	LogLibrary  = Blue + "[Library]" + Reset
	LogFileSync = BrightMagenta + "[FileSync]" + Reset
)

// Rate limiting log prefixes
const (
	LogRateLimit = Purple + "[RateLimit]" + Reset
	LogAPIKey    = Purple + "[APIKey]" + Reset
)

// CircuitBreakerPrefix returns a colored circuit breaker prefix with the given name
func CircuitBreakerPrefix(name string) string {
	return Purple + "[CircuitBreaker:" + name + "]" + Reset
}

// songColors are rotated across song titles so interleaved sessions are easy to follow.
var songColors = []string{
	Green, Blue, Purple, Cyan, Red,
	BrightGreen, BrightBlue, BrightMagenta, BrightCyan, BrightRed,
}

// Song returns a colored song identifier for log messages.
// The same identifier always gets the same color.
func Song(id string) string {
	hash := 0
	for _, c := range id {
		hash += int(c)
	}
	color := songColors[hash%len(songColors)]
	return color + id + Reset
}

// Server/Init log prefixes
const (
	LogServer = Green + "[Server]" + Reset
	LogConfig = Cyan + "[Config]" + Reset
	LogStats  = Blue + "[Stats]" + Reset
	LogHTTP   = Cyan + "[HTTP]" + Reset
	LogStream = Cyan + "[Stream]" + Reset
)

// Notice log prefixes
const (
	LogNotices = Cyan + "[Notices]" + Reset
	LogWarning = Red + "[Warning]" + Reset
)
