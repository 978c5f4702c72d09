// Package logger provides the shared slog factory and typed log attributes
// used across the notification subsystem.
//
// All components log through *slog.Logger instances produced by New, so
// output format and level are controlled in one place:
//
//	log := logger.New(
//	    logger.WithService("notify"),
//	    logger.WithFormat(logger.FormatText),
//	    logger.WithLevel(slog.LevelDebug),
//	)
//
// The attribute helpers (TenantID, RecipientID, NotificationID, ...) keep
// log field names consistent between the store, the registry, the mailer
// and the dispatcher.
package logger
