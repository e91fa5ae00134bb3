// Package security contains core domain types of the home security controller.
//
// It defines Sensor (a door, window or motion detector), ArmingStatus (how the
// system is armed) and AlarmStatus (how severe the current intrusion condition
// is). AlarmStatus values are ordered by severity.
package security
