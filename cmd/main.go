// Command ai-gateway runs the platform's AI gateway.
//
// Usage:
//
//	ai-gateway [serve] [-c FILE] [-p PORT] [-d]
//	ai-gateway migrate -c FILE
//	ai-gateway token -c FILE --sub USER_ID [--email EMAIL] [--ttl 24h]
//	ai-gateway version
package main

import (
	"fmt"
	"os"
	"strings"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "serve":
		os.Exit(runServe(args))
	case "migrate":
		os.Exit(runMigrate(args))
	case "token":
		os.Exit(runToken(args))
	case "version":
		fmt.Println("ai-gateway", version)
	case "help":
		printHelp()
	default:
		printError(fmt.Sprintf("unknown command: %s", command))
		printHelp()
		os.Exit(1)
	}
}
