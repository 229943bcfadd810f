// Package version holds the build version reported by every binary.
package version

// Version is overridden at link time with -ldflags "-X ...".
var Version = "0.2.0"
