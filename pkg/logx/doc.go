// Package logx configures dreamops' structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - Optional file output JSON-structured
//   - A safe no-op zero value for the silent probe path
package logx
