// Package main generates an age key pair for deploy-draft encryption.
package main

import (
	"fmt"
	"os"

	"github.com/raglabs/pipeline-dashboard/internal/secrets"
)

func main() {
	recipient, identity, err := secrets.GenerateKeyPair()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating key pair: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("DRAFTS_AGE_RECIPIENT_KEY=%s\n", recipient)
	fmt.Printf("DRAFTS_AGE_IDENTITY_KEY=%s\n", identity)
}
