// Command plancli runs the plan pipeline offline: validate, extract and merge plan
// documents from files, and mint development tokens for the API.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
