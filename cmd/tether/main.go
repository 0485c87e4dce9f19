package main

import (
	"flag"
	"fmt"
	"os"

	"tether/config"
	"tether/host"
)

func main() {
	cfgPath := flag.String("config", "", "path to config file (default: ~/.tether/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	app := &host.App{}
	if err := app.Initialize(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		os.Exit(1)
	}
}
