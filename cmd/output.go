package main

import (
	"fmt"
	"os"
)

// Print helper functions for consistent output formatting.
func printSuccess(msg string) {
	fmt.Printf("\033[0;32m[OK]\033[0m %s\n", msg)
}

func printInfo(msg string) {
	fmt.Printf("\033[0;34m[INFO]\033[0m %s\n", msg)
}

func printError(msg string) {
	fmt.Fprintf(os.Stderr, "\033[0;31m[ERROR]\033[0m %s\n", msg)
}

func printHelp() {
	fmt.Println("AI gateway for the municipal innovation platform")
	fmt.Println()
	fmt.Println("Usage: ai-gateway [COMMAND] [OPTIONS]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve      Run the gateway (default)")
	fmt.Println("  migrate    Create tables and seed the configured directory")
	fmt.Println("  token      Mint a signed bearer token for local testing")
	fmt.Println("  version    Print the version")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -c, --config FILE    Config file (default: built-in, driven by env vars)")
	fmt.Println("  -p, --port PORT      Listen port (default: 8787)")
	fmt.Println("  -d, --debug          Enable debug logging")
	fmt.Println("  --sub USER_ID        token: subject claim")
	fmt.Println("  --email EMAIL        token: email claim")
	fmt.Println("  --ttl DURATION       token: lifetime (default: 24h)")
	fmt.Println("  -h, --help           Show this help")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  AI_GATEWAY_CONFIG       Config file when -c is not given")
	fmt.Println("  AI_PROVIDER_API_KEY     Provider credential for the built-in config")
	fmt.Println("  AI_GATEWAY_JWT_SECRET   Bearer token secret for the built-in config")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  ai-gateway -c gateway.yaml")
	fmt.Println("  ai-gateway migrate -c gateway.yaml")
	fmt.Println("  ai-gateway token -c gateway.yaml --sub u-123 --email staff@city.example")
}
