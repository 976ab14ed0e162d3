package main

import (
	"fmt"
	"os"

	"github.com/dalemusser/mailcheck/internal/svc"
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "service" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "usage: %s service install|uninstall|start|stop|restart [flags]\n", svc.Name)
			os.Exit(2)
		}
		if err := svc.Control(args[1], args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := svc.Run(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
