// Command udp-monitor subscribes to the server's UDP notification feed and
// prints every entry in notification log format.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"moviemania/internal/notify"
	"moviemania/internal/udpnotify"
)

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "udp-monitor [server-addr]",
		Short:        "Print live MovieMania notifications",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			server := "127.0.0.1:7070"
			if len(args) > 0 {
				server = args[0]
			}
			return monitor(cmd.Context(), server, cmd.OutOrStdout())
		},
	}
}

func monitor(ctx context.Context, server string, out io.Writer) error {
	serverAddr, err := net.ResolveUDPAddr("udp", server)
	if err != nil {
		return err
	}
	// one socket both subscribes and receives
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.WriteToUDP([]byte(udpnotify.CmdSubscribe), serverAddr); err != nil {
		return err
	}
	defer conn.WriteToUDP([]byte(udpnotify.CmdUnsubscribe), serverAddr)
	stop := context.AfterFunc(ctx, func() { conn.SetReadDeadline(time.Now()) })
	defer stop()

	fmt.Fprintf(out, "subscribed to %s from %s\n", server, conn.LocalAddr())

	buf := make([]byte, 4096)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}
		fmt.Fprintln(out, format(buf[:n]))
	}
}

// format renders a datagram like a notification log line.
func format(b []byte) string {
	var d udpnotify.Datagram
	if err := json.Unmarshal(b, &d); err != nil {
		return string(b)
	}
	return "[" + time.UnixMilli(d.Timestamp).UTC().Format(notify.TimeLayout) + "] " + d.Message
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
