// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Session lifecycle reports
	OpReportStart    Op = "send start report"
	OpReportPause    Op = "send pause report"
	OpReportProgress Op = "send progress report"
	OpReportStop     Op = "send stop report"

	// Queue neighbors
	OpResolveAdjacent Op = "resolve adjacent"
	OpBuildAdjacent   Op = "build adjacent session"

	// Cast
	OpCastDial    Op = "connect to cast device"
	OpCastCommand Op = "send cast command"

	// Playback
	OpPlaybackStart Op = "start playback"
	OpPlaybackSeek  Op = "seek"

	// Offline downloads
	OpDownloadIndex Op = "read download index"

	// Initialization
	OpConfigLoad Op = "load configuration"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
