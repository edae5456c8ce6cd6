// Package main provides the asrfilter command line tool.
//
// Usage:
//
//	asrfilter [flags] <command> [args]
//
// Commands:
//
//	run        - stream a CSV recording through the ASR filter
//	calibrate  - learn thresholds from a quiet baseline and print them as YAML
//
// CSV layout: one row per time sample, one column per channel. A
// non-numeric first row is treated as a header and copied to the output.
package main

import (
	"fmt"
	"os"

	"github.com/katalvlaran/asrfilter/cmd/asrfilter/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
