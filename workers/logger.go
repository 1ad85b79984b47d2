package workers

import "solestash/models"

// LogFunc forwards worker events to the pipeline_logs table.
type LogFunc func(level models.LogLevel, source, message string)

// NoOpLogger does nothing (default).
var NoOpLogger LogFunc = func(level models.LogLevel, source, message string) {}
