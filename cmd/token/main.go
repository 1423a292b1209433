// Command token signs a bearer token for the API with the service's JWT_SECRET.
//
//	JWT_SECRET=... token -sub lender-1 -role lender -ttl 8h
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	mw "loan-servicing-backend/internal/adapter/middleware"
	"loan-servicing-backend/internal/config"
	"loan-servicing-backend/internal/domain/authz"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	sub := fs.String("sub", "", "actor id (token subject)")
	role := fs.String("role", "", "borrower, lender, loan_officer or admin")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if len(cfg.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 bytes")
	}
	if *ttl <= 0 {
		return fmt.Errorf("invalid ttl %s", *ttl)
	}

	tok, err := mw.IssueToken([]byte(cfg.JWTSecret), authz.Actor{ID: *sub, Role: authz.Role(*role)}, *ttl, time.Now())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, tok)
	return err
}
