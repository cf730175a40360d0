// Package logger wraps zap with a global sugared logger and context helpers.
//
// Services receive a context and log through it, so a caller (or a test) can
// scope or replace the logger with ToContext, WithName and WithKV.
package logger
