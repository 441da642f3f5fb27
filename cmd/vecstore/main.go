// Command vecstore is the entry point for the vector document store CLI.
// It chunks, embeds, and stores documents in a configured vector database
// backend (Pinecone or Qdrant) and runs similarity queries against it.
package main

import (
	"fmt"
	"os"

	"github.com/vvault/vecstore-go/cmd/vecstore/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
