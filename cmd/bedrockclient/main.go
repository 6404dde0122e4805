package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	logging "gopkg.in/op/go-logging.v1"

	"github.com/raknet-bedrock/client/pkg/auth"
	"github.com/raknet-bedrock/client/pkg/crypto"
	"github.com/raknet-bedrock/client/pkg/events"
	"github.com/raknet-bedrock/client/pkg/logger"
	"github.com/raknet-bedrock/client/pkg/session"
)

const VERSION = "0.1.0"

func main() {
	logger.Banner("Bedrock RakNet Client", VERSION)

	host := flag.String("host", "127.0.0.1", "server host")
	port := flag.Uint("port", 19132, "server port")
	protocol := flag.Int("protocol", 11, "RakNet protocol version")
	debug := flag.Bool("debug", false, "verbose per-packet tracing")
	timeout := flag.Duration("timeout", 15*time.Second, "handshake read timeout")
	flag.Parse()

	if *debug {
		logger.SetLevel(logging.DEBUG)
	}

	logger.Info("Connecting to %s:%d (protocol %d)", *host, *port, *protocol)

	keys, err := crypto.GenerateKeyPair()
	if err != nil {
		logger.Fatal("generate key pair: %v", err)
	}
	// A real client obtains this chain from an Xbox Live/device-code auth
	// flow out of process; this entrypoint only forwards what it's given.
	supplier := auth.NewStaticSupplier(nil, keys)

	mgr := events.NewManager()
	mgr.On(events.StateChanged, func(e events.Event) {
		logger.Info("state -> %v", e.Data)
	})
	mgr.On(events.Disconnected, func(e events.Event) {
		logger.Warn("disconnected: %v", e.Data)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigChan
		logger.Warn("received signal: %v", sig)
		cancel()
	}()

	client, err := session.Connect(ctx, session.Options{
		Host:            *host,
		Port:            uint16(*port),
		ProtocolVersion: int32(*protocol),
		Auth:            supplier,
		ReadTimeout:     *timeout,
		Debug:           *debug,
		Events:          mgr,
	})
	if err != nil {
		logger.Fatal("handshake failed: %v", err)
	}
	defer client.Close()

	logger.Success("session reached %v", client.State())
	<-ctx.Done()
	logger.Info("shutting down gracefully...")
}
