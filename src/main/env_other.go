//go:build !windows

package main

// Other platforms report physical pixels already.
func enableDPIAwareness() {}
