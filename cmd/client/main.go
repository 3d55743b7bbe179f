// Command client joins a room from the terminal. Every line typed on stdin
// is appended to the shared document; remote changes are printed as they
// arrive.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/dkeye/Pair/internal/protocol"
	"github.com/dkeye/Pair/internal/syncclient"
)

func main() {
	server := flag.StringP("server", "s", "http://localhost:8080", "server base URL")
	roomID := flag.StringP("room", "r", "", "room id to join (empty creates a new room)")
	name := flag.StringP("name", "n", "", "display name")
	language := flag.StringP("language", "l", "python", "language for a new room")
	debounce := flag.Duration("debounce", syncclient.DefaultDebounce, "edit debounce window")
	timeout := flag.DurationP("timeout", "t", 10*time.Second, "room API request timeout")
	verbose := flag.BoolP("verbose", "v", false, "debug logging")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := syncclient.New(*server,
		syncclient.WithDebounce(*debounce),
		syncclient.WithLogger(log.Logger),
		syncclient.WithHTTPClient(&http.Client{Timeout: *timeout}),
	)

	if *roomID == "" {
		info, err := client.CreateRoom(ctx, *language)
		if err != nil {
			log.Fatal().Err(err).Msg("create room")
		}
		*roomID = info.RoomID
		fmt.Printf("created %s room %s\n", info.Language, info.RoomID)
	}

	sess, err := client.Connect(ctx, *roomID, *name, syncclient.Handlers{
		OnConnect:    func() { fmt.Printf("connected to %s\n", *roomID) },
		OnDisconnect: func() { fmt.Println("disconnected") },
		OnMessage:    printMessage,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect")
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			client.Disconnect()
			return
		case <-sess.Done():
			if err := sess.Err(); err != nil {
				log.Error().Err(err).Msg("session ended")
				os.Exit(1)
			}
			return
		case line, ok := <-lines:
			if !ok {
				sess.Flush()
				client.Disconnect()
				return
			}
			doc := sess.State().Document
			if doc != "" && !strings.HasSuffix(doc, "\n") {
				doc += "\n"
			}
			sess.SendUpdate(doc + line)
		}
	}
}

func printMessage(m protocol.Message) {
	switch p := m.Payload.(type) {
	case protocol.RoomState:
		fmt.Printf("--- %s room, %d online: %s\n%s\n---\n",
			p.Language, p.UserCount, strings.Join(p.ConnectedUsers, ", "), p.Code)
	case protocol.UserJoined:
		fmt.Printf("+ %s joined (%d online)\n", p.DisplayName, p.UserCount)
	case protocol.UserLeft:
		fmt.Printf("- someone left (%d online: %s)\n", p.UserCount, strings.Join(p.ConnectedUsers, ", "))
	default:
		if doc, ok := protocol.DocumentOf(p); ok {
			fmt.Printf("--- document updated\n%s\n---\n", doc)
		}
	}
}
