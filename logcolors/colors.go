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

// Cache-related log prefixes
const (
	LogCacheInit   = Blue + "[Cache:Init]" + Reset
	LogCache       = Blue + "[Cache]" + Reset
	LogCacheBackup = Blue + "[Cache:Backup]" + Reset
	LogCacheClear  = Blue + "[Cache:Clear]" + Reset
	LogCacheParse  = Green + "[Cache:Parse]" + Reset
)

// Rate limiting log prefixes
const (
	LogRateLimit = Purple + "[RateLimit]" + Reset
	LogAPIKey    = Purple + "[APIKey]" + Reset
)

// Server/Init log prefixes
const (
	LogServer  = Green + "[Server]" + Reset
	LogConfig  = Cyan + "[Config]" + Reset
	LogStats   = Blue + "[Stats]" + Reset
	LogRequest = Purple + "[Request]" + Reset
	LogWarning = Red + "[Warning]" + Reset
)

// Parser log prefixes
const (
	LogLRC        = BrightGreen + "[LRC]" + Reset
	LogTTMLParser = Cyan + "[TTML Parser]" + Reset
	LogSRT        = BrightBlue + "[SRT]" + Reset
	LogBidi       = BrightMagenta + "[Bidi]" + Reset
	LogDispatcher = Green + "[Dispatcher]" + Reset
)

// Source log prefixes
const (
	LogSidecar = BrightCyan + "[Sidecar]" + Reset
	LogSYLT    = Blue + "[SYLT]" + Reset
	LogMIDI    = Purple + "[MIDI]" + Reset
)

// formatColors are the colors used for format names (rotating based on hash)
var formatColors = []string{
	Green, Blue, Purple, Cyan, Red,
	BrightGreen, BrightBlue, BrightMagenta, BrightCyan, BrightRed,
}

// Format returns a colored format name for log messages.
// Same name always gets the same color.
func Format(name string) string {
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	color := formatColors[hash%len(formatColors)]
	return color + name + Reset
}
