package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"wisecal/internal/config"
)

// Non-blocking async func. A non-nil stop keeps the process alive until a
// signal arrives and is called on the way out.
type command func(ctx context.Context) (stop func())

type commandRegistry map[string]command

var commands = commandRegistry{
	"noop":   noopCmd,
	"sync":   syncCmd,
	"once":   onceCmd,
	"groups": groupsCmd,
}

func Run() {
	cmd := config.Gist().String(config.CMD)
	cmdFn, ok := commands[cmd]
	if !ok {
		help()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := cmdFn(ctx)
	if stop == nil {
		return
	}
	doneCh := make(chan os.Signal, 1)
	signal.Notify(doneCh, os.Interrupt, syscall.SIGTERM)
	<-doneCh
	cancel()
	stop()
}

func help() {
	fmt.Println("Usage: wisecal --cmd [command]")
	fmt.Println("Commands: sync, once, groups, noop")
	fmt.Println("Example: wisecal --cmd once --data.dir ./wc_data")
	fmt.Println("Config params (name|required|default):\v")
	fmt.Println(config.Sprint())
}
