/*
Package log provides structured logging for the farmer using zerolog.

Call Init once at process start, then use the package-level helpers
(Info, Warn, Error, ...) or build a component logger with WithComponent
for loggers that carry a "component" field (e.g. "plot", "farmer").
*/
package log
