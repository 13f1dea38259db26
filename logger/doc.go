// Package logger provides structured logging for sttkit using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers carrying structured fields.
//
// # Usage
//
//	log := logger.Get("transcription")
//	log.Info("transcription started", logger.Fields("provider", "openai"))
package logger
