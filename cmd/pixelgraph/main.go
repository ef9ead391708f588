// Pixelgraph CLI - run region splitting and grid compositing against files.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
