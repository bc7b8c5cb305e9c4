package sl

import (
	"log/slog"
)

// Err wraps an error into the "error" attribute used across the service logs.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}

	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// UserID is the attribute every profile request log line is keyed by.
func UserID(id int64) slog.Attr {
	return slog.Int64("user_id", id)
}
