/*
Package log provides structured logging for mailcore on top of zerolog.

A single global Logger is configured once via Init with a Config
describing the minimum level, output writer and whether to emit JSON or
human-readable console lines. Callers derive child loggers carrying
request-scoped context — WithComponent for a subsystem name (store, blob,
acl, notifier), WithAccountID and WithCollection for the data being
operated on, and WithBackend for the concrete backend implementation in
use — rather than threading a configured logger through every call.

Package-level Info/Debug/Warn/Error/Errorf/Fatal helpers write directly
to the global Logger for call sites that have no additional context to
attach.
*/
package log
