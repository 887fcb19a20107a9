// Command spirvrun executes an entry point of a SPIR-V module against
// externally supplied inputs and prints the resulting outputs.
//
// Usage:
//
//	spirvrun [options] <module.spv>
//
// Examples:
//
//	spirvrun shader.spv                      # Run the sole entry point
//	spirvrun -e main -i inputs.yaml shader.spv
//	spirvrun -i inputs.yaml -o outputs.yaml -n 8 compute.spv
package main

import "os"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
