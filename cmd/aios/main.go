package main

import (
	"fmt"
	"os"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0"

func main() {
	// Handle subcommands
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version":
			fmt.Printf("aios %s\n", Version)
			fmt.Println("AIOS Core component manager")
			return
		case "update":
			// Handle aios update subcommand
			code, err := runUpdate(os.Args[2:])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			os.Exit(code)
		}
	}

	// Default: show help
	fmt.Println("╔══════════════════════════════════════════════════════════╗")
	fmt.Println("║  AIOS - AI Operating System component manager            ║")
	fmt.Println("╚══════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  aios --version            Show version information")
	fmt.Println("  aios update [options]     Update installed components from the remote source")
	fmt.Println()
	fmt.Println("Run 'aios update --help' for update options.")
}
