package config

// Quote sources
const (
	SourceTwelveData = "twelvedata"
	SourcePolygon    = "polygon"
	SourceFile       = "file"
)

// Session boundary modes
const (
	SessionModeWindow  = "window"
	SessionModeSession = "session"
)

// ValidSources lists the supported quote sources
var ValidSources = []string{SourceTwelveData, SourcePolygon, SourceFile}

// ValidVWAPModes lists the accepted analysis.vwap_mode values
var ValidVWAPModes = []string{"typical", "cumulative"}

// ValidSessionModes lists the accepted analysis.session_mode values
var ValidSessionModes = []string{SessionModeWindow, SessionModeSession}

// ValidMetrics lists the accepted options.metric values
var ValidMetrics = []string{"volume", "open_interest"}

// ValidLogLevels lists the accepted logging.level values
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
