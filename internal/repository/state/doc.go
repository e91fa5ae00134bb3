// Package state implements persistence of sensors, arming status and alarm status.
//
// Three backends share the same method set:
//   - MemoryRepository keeps everything in process memory,
//   - FileRepository writes a protojson document on every change,
//   - SQLiteRepository stores rows in a SQLite database with embedded migrations.
//
// A fresh store reports NoAlarm, Disarmed and no sensors. Removing an unknown
// sensor is a no-op and updating an unknown sensor stores it.
package state
