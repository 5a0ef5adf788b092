// Command knowtation is a thin shell around the library core: it imports and
// exports BibTeX, lists the local library, and mirrors records onto the
// relay network.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/NotThatKindOfDrLiz/knowtation/internal/config"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/cryptox"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/events"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/library"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/logging"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/relay"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/store"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/syncx"
)

const usage = `usage: knowtation [-config path] <command> [args]

commands:
  import <file.bib>     import BibTeX entries into the library
  export                print the library as BibTeX
  list                  list library records
  publish <id>          mirror one record onto the network
  update <id>           refresh the network copy of one record
  retract <id>          withdraw one record from the network
  sync                  publish or refresh every record
  fetch [author...]     query public references from the network
`

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configPath, flag.Args()); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(configPath string, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	pool, err := relay.NewPool(cfg.Relays, log)
	if err != nil {
		return err
	}

	codec := events.NewCodec(events.Kinds{
		PublicReference:  cfg.PublicKind,
		PrivateReference: cfg.PrivateKind,
		Retraction:       cfg.RetractionKind,
	})

	key, err := identityKey()
	if err != nil {
		return err
	}

	proto := syncx.NewProtocol(pool, codec, key, log)
	svc := library.NewService(st, proto, log)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.NetworkTimeout)
	defer cancel()

	switch cmd, rest := args[0], args[1:]; cmd {
	case "import":
		if len(rest) != 1 {
			return fmt.Errorf("import needs a .bib file")
		}
		text, err := os.ReadFile(rest[0])
		if err != nil {
			return err
		}
		report, err := svc.ImportBibTeX(ctx, string(text))
		if err != nil {
			return err
		}
		fmt.Printf("imported %d/%d records (%d failed)\n",
			report.Succeeded, report.Total, report.Failed)
		for _, e := range report.Errors {
			fmt.Printf("  skipped: %v\n", e)
		}
		return nil

	case "export":
		out, err := svc.ExportBibTeX(ctx)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil

	case "list":
		records, err := svc.List(ctx)
		if err != nil {
			return err
		}
		for _, r := range records {
			state := proto.State(r)
			fmt.Printf("%s  [%s/%s]  %s\n", r.ID, r.Visibility, state, r.Title)
		}
		return nil

	case "publish", "update", "retract":
		if len(rest) != 1 {
			return fmt.Errorf("%s needs a record id", cmd)
		}
		switch cmd {
		case "publish":
			return svc.Publish(ctx, rest[0])
		case "update":
			return svc.Update(ctx, rest[0])
		default:
			return svc.Retract(ctx, rest[0], "retracted by owner")
		}

	case "sync":
		return svc.SyncAll(ctx)

	case "fetch":
		records, err := svc.FetchPublic(ctx, rest, cfg.QueryLimit)
		if err != nil {
			return err
		}
		for _, r := range records {
			fmt.Printf("%s  %s\n", r.ID, r.Title)
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// identityKey derives the symmetric key from the identity key string, taken
// from the environment or prompted without echo.
func identityKey() ([]byte, error) {
	if id := os.Getenv("KNOWTATION_IDENTITY"); id != "" {
		return cryptox.DeriveKey(id), nil
	}

	fmt.Fprint(os.Stderr, "identity key: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading identity key: %w", err)
	}
	return cryptox.DeriveKey(string(raw)), nil
}
