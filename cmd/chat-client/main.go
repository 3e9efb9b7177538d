package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TylerWon/chat-rooms/internal/client"
	"github.com/TylerWon/chat-rooms/internal/logging"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// VERSION is populated via build flags when packaging official binaries.
var VERSION = "SELFBUILD"

func main() {
	myApp := cli.NewApp()
	myApp.Name = "chat-client"
	myApp.Usage = "terminal client for the chat-rooms relay"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "addr,a",
			Value: "127.0.0.1:4000",
			Usage: "chat server address",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "warn",
			Usage: "log level: debug|info|warn|error",
		},
		cli.StringFlag{
			Name:  "log-format",
			Value: "text",
			Usage: "log format: text|json",
		},
		cli.BoolFlag{
			Name:  "no-color",
			Usage: "disable colored output",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		l := logging.New(c.String("log-format"), logging.ParseLevel(c.String("log-level")), os.Stderr).With("app", "chat-client")
		logging.Set(l)

		addr := c.String("addr")
		conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
		if err != nil {
			return errors.Wrapf(err, "dial %s", addr)
		}
		l.Info("connected", "addr", conn.RemoteAddr().String())

		interactive := isatty.IsTerminal(os.Stdout.Fd())
		renderer := client.NewRenderer(os.Stdout, interactive, c.Bool("no-color") || !interactive)
		sess := client.New(conn, client.WithLogger(l), client.WithRenderer(renderer))

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return sess.Run(ctx)
	}
	if err := myApp.Run(os.Args); err != nil {
		logging.L().Error("fatal", "error", err)
		os.Exit(1)
	}
}
