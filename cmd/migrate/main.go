package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/bilgisen/tldrit/migrations"
)

type options struct {
	Driver string `long:"driver" env:"DATABASE_DRIVER" default:"sqlite" choice:"sqlite" choice:"postgres" description:"Database driver"`
	DSN    string `long:"db" env:"DATABASE_URL" default:"./data/tldrit.db" description:"Database path or connection URL"`

	Args struct {
		Command string `positional-arg-name:"command" description:"up, down, status or version"`
	} `positional-args:"yes"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[OPTIONS] <up|down|status|version>"

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	command := opts.Args.Command
	if command == "" {
		command = "up"
	}

	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := migrations.Command(db, opts.Driver, command); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
