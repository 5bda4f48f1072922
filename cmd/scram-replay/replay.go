package main

import (
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	sasl "github.com/golang-auth/go-scram"
	"github.com/golang-auth/go-scram/common"
)

// Transcript is a recorded exchange.  Client holds the expected client
// messages and Server the server replies, in order.
type Transcript struct {
	Mech     string   `yaml:"mech"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
	Nonce    string   `yaml:"nonce"`
	Client   []string `yaml:"client"`
	Server   []string `yaml:"server"`
}

// ErrIncomplete is returned when the transcript ends before the server
// has been verified
var ErrIncomplete = errors.New("transcript ended before the server was verified")

// Mismatch is a client message that differs from the transcript
type Mismatch struct {
	Round int
	Want  string
	Got   string
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("round %d: client sent %q, transcript has %q", m.Round, m.Got, m.Want)
}

func loadTranscript(path string) (*Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tr Transcript
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&tr); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}

	if tr.Mech == "" || tr.Nonce == "" {
		return nil, errors.Errorf("%s: mech and nonce are required", path)
	}
	if len(tr.Client) == 0 {
		return nil, errors.Errorf("%s: no client messages", path)
	}

	return &tr, nil
}

// replay drives a client through tr with the recorded nonce, writing each
// message to w, and returns the first divergence
func replay(tr *Transcript, w io.Writer, logger log.Logger) error {
	creds := &common.Credentials{Username: tr.User, Password: tr.Password}
	nonce := []byte(tr.Nonce)

	cli, err := sasl.NewSaslClient(tr.Mech, creds,
		sasl.WithLogger(logger),
		sasl.WithNonceFunc(func() ([]byte, error) { return nonce, nil }),
	)
	if err != nil {
		return errors.Wrapf(err, "mech %s", tr.Mech)
	}
	defer cli.Reset()

	tok, err := cli.Start()
	if err != nil {
		return errors.Wrap(err, "round 1")
	}

	for round := 1; ; round++ {
		fmt.Fprintf(w, "C: %s\n", tok)
		if round <= len(tr.Client) && string(tok) != tr.Client[round-1] {
			return &Mismatch{Round: round, Want: tr.Client[round-1], Got: string(tok)}
		}

		if round > len(tr.Server) {
			break
		}

		fmt.Fprintf(w, "S: %s\n", tr.Server[round-1])
		if tok, err = cli.Step([]byte(tr.Server[round-1])); err != nil {
			return errors.Wrapf(err, "round %d", round+1)
		}
		if cli.IsEstablished() {
			break
		}
	}

	if !cli.IsEstablished() {
		fmt.Fprintln(w, "exchange incomplete")
		return ErrIncomplete
	}

	fmt.Fprintln(w, "server verified")
	return nil
}
