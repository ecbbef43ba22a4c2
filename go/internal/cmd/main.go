package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pomoroom/go/internal/clock"
	"github.com/mcdev12/pomoroom/go/internal/models"
	"github.com/mcdev12/pomoroom/go/internal/room"
	"github.com/mcdev12/pomoroom/go/internal/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage:
  pomoroom new                  print a fresh room id
  pomoroom [flags] join <room>  join a room

flags:
`

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	configPath := flag.String("config", getEnv("POMOROOM_CONFIG", "pomoroom.yaml"), "path to the client config file")
	backend := flag.String("backend", "", "gateway, postgres, redis or memory")
	gatewayURL := flag.String("gateway", "", "gateway base URL")
	sessionFile := flag.String("session", "", "path to the session file")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	config, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *backend != "" {
		config.Backend = *backend
	}
	if *gatewayURL != "" {
		config.GatewayURL = *gatewayURL
	}
	if *sessionFile != "" {
		config.SessionFile = *sessionFile
	}
	if err := config.validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	setupLogging(config.LogLevel)

	switch flag.Arg(0) {
	case "new":
		fmt.Println(models.NewRoomID())
	case "join":
		if flag.NArg() != 2 {
			flag.Usage()
			os.Exit(2)
		}
		if err := join(config, flag.Arg(1)); err != nil {
			log.Fatal().Err(err).Msg("session failed")
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

// setupLogging keeps logs on stderr so they do not tear the rendered room.
func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func join(config Config, roomID string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionPath := config.SessionFile
	if sessionPath == "" {
		path, err := session.DefaultPath()
		if err != nil {
			return err
		}
		sessionPath = path
	}
	identity, err := session.Load(sessionPath)
	if err != nil {
		return err
	}

	channel, release, err := openChannel(ctx, config)
	if err != nil {
		return err
	}
	defer release()

	source := clock.NewSource(clockwork.NewRealClock())
	sess := room.NewSession(room.DefaultConfig(roomID), channel, source, identity)
	if err := sess.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close session")
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	runner := &commandRunner{sess: sess, out: os.Stdout}
	render(os.Stdout, sess.View(source.Now()), true)

	var notice string
	for {
		select {
		case <-ctx.Done():
			return nil

		case v := <-sess.Views():
			render(os.Stdout, v, true)
			if notice != "" {
				fmt.Fprintf(os.Stdout, "\r%s\n> ", notice)
			}

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			notice = ""
			err := runner.run(ctx, line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				notice = err.Error()
			}
			render(os.Stdout, sess.View(source.Now()), true)
			if notice != "" {
				fmt.Fprintf(os.Stdout, "\r%s\n> ", notice)
			}
		}
	}
}
