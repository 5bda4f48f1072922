// Command scram-replay runs the SCRAM client against a recorded exchange
// and reports the first client message that differs from the recording.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type config struct {
	Transcript string
	Mech       string
	Verbose    bool
}

func run(args []string, stdout, stderr io.Writer) error {
	var cfg config

	app := kingpin.New("scram-replay", "Replay a recorded SCRAM exchange against the client.")
	app.UsageWriter(stdout)
	app.ErrorWriter(stderr)
	app.Terminate(nil)
	app.HelpFlag.Short('h')

	app.Flag("mech", "Override the mechanism named in the transcript.").StringVar(&cfg.Mech)
	app.Flag("verbose", "Log each step of the exchange.").Short('v').BoolVar(&cfg.Verbose)
	app.Arg("transcript", "YAML transcript file.").Required().ExistingFileVar(&cfg.Transcript)

	if _, err := app.Parse(args); err != nil {
		return err
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(stderr))
	if cfg.Verbose {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowWarn())
	}
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	tr, err := loadTranscript(cfg.Transcript)
	if err != nil {
		return err
	}
	if cfg.Mech != "" {
		tr.Mech = cfg.Mech
	}

	level.Debug(logger).Log("msg", "replaying", "file", cfg.Transcript, "mech", tr.Mech, "rounds", len(tr.Client))
	return replay(tr, stdout, logger)
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "scram-replay: %v\n", err)
		os.Exit(1)
	}
}
