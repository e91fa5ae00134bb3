// Package client implements the catpointctl operations.
//
// Every operation connects to catpoint-server, identifies the caller, runs one
// call and prints the resulting status. Output is colored only on terminals.
package client
