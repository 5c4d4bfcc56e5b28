// Package senseboard bridges a serial-attached multi-sensor board to Go
// callers. A Session owns the serial link, runs a background loop that
// decodes line-oriented JSON telemetry into SensorPacket values, keeps the
// most recent packet in a single-slot Mailbox, and writes fire-and-forget
// actuator commands back over the same link.
//
// A Session is safe for concurrent use: commands, queries and Shutdown may
// be called from any goroutine while the reading loop runs.
package senseboard
