package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/iliyamo/eventhub/internal/qr"
	"github.com/iliyamo/eventhub/internal/utils"
)

func newFlagSet(name string, c *common) *pflag.FlagSet {
	fs := pflag.NewFlagSet("passctl "+name, pflag.ContinueOnError)
	c.addFlags(fs)
	return fs
}

func runIssue(ctx context.Context, args []string, out io.Writer) error {
	var c common
	var eventID int64
	var qrPath string
	var size int
	fs := newFlagSet("issue", &c)
	fs.Int64Var(&eventID, "event", 0, "event id")
	fs.StringVar(&qrPath, "qr", "", "also write the pass as a QR PNG to this file")
	fs.IntVar(&size, "size", qr.DefaultSize, "QR image size in pixels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if eventID <= 0 {
		return errors.New("issue: --event must be a positive integer")
	}
	p, err := c.profile()
	if err != nil {
		return err
	}

	res, err := p.client().IssuePass(ctx, eventID)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, res.PassID)
	if qrPath != "" {
		return writeQR(res.PassID, qrPath, size)
	}
	return nil
}

func runQREncode(args []string, out io.Writer) error {
	var outPath string
	var size int
	fs := pflag.NewFlagSet("passctl qr encode", pflag.ContinueOnError)
	fs.StringVarP(&outPath, "output", "o", "", "PNG file to write")
	fs.IntVar(&size, "size", qr.DefaultSize, "image size in pixels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || outPath == "" {
		return errors.New("usage: passctl qr encode TOKEN -o FILE")
	}
	if err := writeQR(fs.Arg(0), outPath, size); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", outPath)
	return nil
}

func runQRDecode(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("passctl qr decode", pflag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: passctl qr decode FILE")
	}
	token, err := decodeFile(fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

// runScan decodes a QR image, checks the token's shape and redeems it.
// Malformed payloads never reach the server.
func runScan(ctx context.Context, args []string, out io.Writer) error {
	var c common
	fs := newFlagSet("scan", &c)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: passctl scan FILE")
	}
	p, err := c.profile()
	if err != nil {
		return err
	}
	token, err := decodeFile(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := qr.ValidateToken(p.Prefix, token); err != nil {
		return err
	}

	res, err := p.client().RedeemPass(ctx, token)
	if err != nil {
		return err
	}
	if !res.Valid {
		fmt.Fprintln(out, "INVALID: pass unknown or already used")
		return nil
	}
	fmt.Fprintf(out, "VALID user_id=%d event_id=%d\n", res.UserID, res.EventID)
	return nil
}

func runToken(args []string, out io.Writer) error {
	var c common
	var userID int64
	var role string
	var ttl time.Duration
	fs := newFlagSet("token", &c)
	fs.Int64Var(&userID, "user", 0, "user id (sub claim)")
	fs.StringVar(&role, "role", "student", "role claim: student, manager or admin")
	fs.DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if userID <= 0 {
		return errors.New("token: --user must be a positive integer")
	}
	p, err := c.profile()
	if err != nil {
		return err
	}
	secret := p.JWTSecret
	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	tok, err := utils.NewAccessToken(secret, userID, role, ttl)
	if err != nil {
		return fmt.Errorf("token for user %d: %w", userID, err)
	}
	fmt.Fprintln(out, tok.Token)
	return nil
}

func writeQR(token, path string, size int) error {
	png, err := qr.Encode(token, size)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func decodeFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return qr.DecodeReader(f)
}
