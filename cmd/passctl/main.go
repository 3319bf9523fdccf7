// passctl is the EventHub pass client.  Students use it to fetch a pass and
// render it as a QR code; staff use it to scan a code image and redeem the
// pass.  QR decoding happens locally; only the decoded token is sent.
//
// Usage:
//
//	passctl issue --event N [--qr pass.png]
//	passctl qr encode TOKEN -o pass.png [--size N]
//	passctl qr decode FILE
//	passctl scan FILE
//	passctl token --user N --role student|manager|admin
//
// Every command accepts --config (YAML profile, default $PASSCTL_CONFIG),
// --server and --session.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/iliyamo/eventhub/internal/passclient"
)

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

const usage = `usage: passctl <command> [flags]

commands:
  issue --event N [--qr FILE]   get your pass for an event
  qr encode TOKEN -o FILE       render a token as a QR code
  qr decode FILE                print the token held by a QR image
  scan FILE                     decode a QR image and redeem the pass
  token --user N --role R       mint a development session token
`

// common holds the flags every command accepts.
type common struct {
	config  string
	server  string
	session string
}

func (c *common) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.config, "config", os.Getenv("PASSCTL_CONFIG"), "YAML profile file")
	fs.StringVar(&c.server, "server", "", "server base URL (overrides profile)")
	fs.StringVar(&c.session, "session", "", "session token (overrides profile)")
}

// profile loads the profile and applies flag overrides.
func (c *common) profile() (Profile, error) {
	p, err := loadProfile(c.config)
	if err != nil {
		return Profile{}, err
	}
	if c.server != "" {
		p.Server = c.server
	}
	if c.session != "" {
		p.SessionToken = c.session
	}
	return p, nil
}

func (p Profile) client() *passclient.Client {
	return passclient.New(p.Server, passclient.WithSessionToken(p.SessionToken))
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("no command given")
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "issue":
		return runIssue(ctx, rest, out)
	case "qr":
		if len(rest) == 0 {
			return errors.New("qr: expected encode or decode")
		}
		switch rest[0] {
		case "encode":
			return runQREncode(rest[1:], out)
		case "decode":
			return runQRDecode(rest[1:], out)
		}
		return fmt.Errorf("qr: unknown subcommand %q", rest[0])
	case "scan":
		return runScan(ctx, rest, out)
	case "token":
		return runToken(rest, out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}
