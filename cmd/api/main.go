package main

import (
	"fmt"
	"os"

	"github.com/moltnet/moltnet/cmd/api/bootstrap"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		engine := bootstrap.New()
		if err := engine.RunMigrations(); err != nil {
			fmt.Fprintf(os.Stderr, "migration error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	engine := bootstrap.New()
	if err := engine.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
