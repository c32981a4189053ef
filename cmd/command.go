// Package cmd provides common command line tools for the acmeclient binary:
// a fatal-on-error helper and a signal handler for shutting down a running
// order's challenge responder cleanly.
package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"
)

// FailOnError logs msg and err and exits the process if err is non-nil. It
// does nothing otherwise.
func FailOnError(err error, msg string) {
	if err == nil {
		return
	}
	log.Fatalf("[!] %s - %s", msg, err)
}

var signalToName = map[os.Signal]string{
	syscall.SIGTERM: "SIGTERM",
	syscall.SIGINT:  "SIGINT",
	syscall.SIGHUP:  "SIGHUP",
}

// CatchSignals blocks until SIGTERM, SIGINT or SIGHUP arrives, runs callback
// (e.g. to tear down an order's challenge responder), then exits.
func CatchSignals(callback func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM)
	signal.Notify(sigChan, syscall.SIGINT)
	signal.Notify(sigChan, syscall.SIGHUP)

	sig := <-sigChan
	log.Printf("Caught %s", signalToName[sig])

	if callback != nil {
		callback()
	}

	log.Printf("Exiting")
	os.Exit(0)
}
