// Command triggerbot runs the aim/fire control loop against the synthetic
// scene and provides maintenance commands for its configuration and session
// history.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
