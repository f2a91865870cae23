package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hengadev/medlock"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command, args := os.Args[1], os.Args[2:]
	var err error
	switch command {
	case "keygen":
		err = keygenCommand(args)
	case "whoami":
		err = whoamiCommand(ctx, args)
	case "register":
		err = registerCommand(ctx, args)
	case "store":
		err = storeCommand(ctx, args)
	case "read":
		err = readCommand(ctx, args)
	case "list":
		err = listCommand(ctx, args)
	case "request":
		err = requestCommand(ctx, args)
	case "respond":
		err = respondCommand(ctx, args)
	case "show-request":
		err = showRequestCommand(ctx, args)
	case "fetch":
		err = fetchCommand(ctx, args)
	case "health":
		err = healthCommand(ctx, args)
	case "version":
		fmt.Println(medlock.VersionInfo())
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", command, err)
		os.Exit(exitCode(err))
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\nCommands:\n")
	fmt.Fprintf(os.Stderr, "  keygen        Create a local ed25519 key file\n")
	fmt.Fprintf(os.Stderr, "  whoami        Show the public key and did:key of the signer\n")
	fmt.Fprintf(os.Stderr, "  register      Register the signer as a patient or doctor\n")
	fmt.Fprintf(os.Stderr, "  store         Encrypt and anchor a record\n")
	fmt.Fprintf(os.Stderr, "  read          Decrypt one of your records\n")
	fmt.Fprintf(os.Stderr, "  list          List the anchored records of a patient\n")
	fmt.Fprintf(os.Stderr, "  request       Ask a patient for access (doctors)\n")
	fmt.Fprintf(os.Stderr, "  respond       Approve or deny a pending request (patients)\n")
	fmt.Fprintf(os.Stderr, "  show-request  Show an access request\n")
	fmt.Fprintf(os.Stderr, "  fetch         Download an approved capability bundle (doctors)\n")
	fmt.Fprintf(os.Stderr, "  health        Check the ledger, content store and signer\n")
	fmt.Fprintf(os.Stderr, "  version       Show version information\n")
	fmt.Fprintf(os.Stderr, "\nRun '%s <command> -h' for help on a specific command.\n", os.Args[0])
}

// exitCode separates retryable failures so that scripts can loop on them.
func exitCode(err error) int {
	switch {
	case medlock.IsRetryableError(err):
		return 75
	case medlock.IsConfigurationError(err):
		return 78
	case medlock.IsAuthorizationError(err):
		return 77
	default:
		return 1
	}
}
