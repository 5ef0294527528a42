// Package main provides the entry point for testport.
// testport runs instrumented test programs on a simulated target and
// reports what the test port observed.
package main

import (
	goflag "flag"
	"fmt"
	"os"

	"github.com/golang/glog"
)

func main() {
	// Console logging unless the user asks for log files.
	_ = goflag.Set("logtostderr", "true")

	err := NewRootCommand().Execute()
	glog.Flush()

	if err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
		}
		os.Exit(GetExitCode(err))
	}
}
