// Package security implements the alarm decision engine.
//
// The Engine owns the transition rules between alarm statuses. It reads and
// writes state through a Repository, asks an ImageAnalyzer whether camera
// images contain a cat, and notifies registered StatusListener values of every
// change synchronously.
package security
