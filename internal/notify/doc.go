// Package notify contains engine status listeners that forward notifications
// to the log, Kafka, MQTT and Prometheus.
//
// Every listener is synchronous and swallows delivery errors after logging
// them: a broken broker must never change the alarm decision.
package notify
