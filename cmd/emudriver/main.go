package main

import (
	"fmt"
	"os"

	emucore "github.com/user-none/emudriver/api"
	"github.com/user-none/emudriver/backend/testcard"
	"github.com/user-none/emudriver/internal/cli"
	"github.com/user-none/emudriver/storage"
)

func main() {
	storage.Init("emudriver")

	backends := map[string]emucore.Factory{
		testcard.Name: testcard.Factory{},
	}
	if err := cli.NewRootCommand(backends).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
