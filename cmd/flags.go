package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// errHelp is returned when -h or --help is given.
var errHelp = errors.New("help requested")

// options are the flags shared by every command. Each command reads the
// ones it needs.
type options struct {
	configPath string
	debug      bool
	port       int

	// token command
	subject string
	email   string
	ttl     time.Duration
}

// parseFlags parses args in the same manual style for every command.
func parseFlags(args []string) (options, error) {
	opts := options{ttl: 24 * time.Hour}

	value := func(i int, name string) (string, error) {
		if i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", name)
		}
		return args[i+1], nil
	}

	for i := 0; i < len(args); {
		arg := args[i]
		switch arg {
		case "-h", "--help":
			return opts, errHelp
		case "-d", "--debug":
			opts.debug = true
			i++
		case "-c", "--config":
			v, err := value(i, arg)
			if err != nil {
				return opts, err
			}
			opts.configPath = v
			i += 2
		case "-p", "--port":
			v, err := value(i, arg)
			if err != nil {
				return opts, err
			}
			port, err := strconv.Atoi(v)
			if err != nil || port <= 0 || port > 65535 {
				return opts, fmt.Errorf("invalid port '%s'", v)
			}
			opts.port = port
			i += 2
		case "--sub":
			v, err := value(i, arg)
			if err != nil {
				return opts, err
			}
			opts.subject = v
			i += 2
		case "--email":
			v, err := value(i, arg)
			if err != nil {
				return opts, err
			}
			opts.email = v
			i += 2
		case "--ttl":
			v, err := value(i, arg)
			if err != nil {
				return opts, err
			}
			ttl, err := time.ParseDuration(v)
			if err != nil || ttl <= 0 {
				return opts, fmt.Errorf("invalid ttl '%s'", v)
			}
			opts.ttl = ttl
			i += 2
		default:
			if strings.HasPrefix(arg, "-") {
				return opts, fmt.Errorf("unknown option: %s", arg)
			}
			return opts, fmt.Errorf("unexpected argument: %s", arg)
		}
	}
	return opts, nil
}
