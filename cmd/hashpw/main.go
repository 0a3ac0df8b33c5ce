// Command hashpw prompts for a password without echo and prints its bcrypt
// hash, for seeding accounts by hand.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/itemsapi/internal/server/auth"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var errMismatch = errors.New("passwords do not match")

func main() {
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	flag.Parse()

	if err := run(int(os.Stdin.Fd()), os.Stderr, os.Stdout, *cost); err != nil {
		fmt.Fprintln(os.Stderr, "hashpw:", err)
		os.Exit(1)
	}
}

func run(fd int, prompt, out io.Writer, cost int) error {
	fmt.Fprint(prompt, "Password: ")
	first, err := readPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return err
	}
	if len(first) == 0 {
		return errors.New("empty password")
	}

	fmt.Fprint(prompt, "Repeat: ")
	second, err := readPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return err
	}
	if string(first) != string(second) {
		return errMismatch
	}

	hash, err := auth.NewHasher(cost).Hash(string(first))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}
