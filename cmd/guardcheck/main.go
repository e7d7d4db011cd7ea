// Command guardcheck runs the crisis guard over messages given as arguments or
// read line by line from stdin, printing one JSON result per message.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/wolfman30/crisis-guard/internal/app/bootstrap"
	appconfig "github.com/wolfman30/crisis-guard/internal/config"
	"github.com/wolfman30/crisis-guard/internal/cooldown"
	"github.com/wolfman30/crisis-guard/internal/crisis"
	"github.com/wolfman30/crisis-guard/pkg/logging"
)

type output struct {
	Input string `json:"input"`
	crisis.Result
	Patterns []string `json:"patterns,omitempty"`
}

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	if err := run(context.Background(), cfg, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "guardcheck:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *appconfig.Config, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("guardcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	country := fs.String("country", cfg.DefaultCountry, "ISO-3166 alpha-2 country for helplines")
	user := fs.String("user", "", "user id; enables the cooldown across messages")
	explain := fs.Bool("explain", false, "include the matched category's patterns")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := logging.NewWithWriter(cfg.LogLevel, stderr)
	// The check tool never touches remote stores or remote directories.
	local := *cfg
	local.HelplineDirectoryBucket = ""
	provider, err := bootstrap.BuildHelplineProvider(ctx, &local, nil, logger)
	if err != nil {
		return err
	}
	guard := bootstrap.BuildGuard(&local, cooldown.NewMemoryStore(cfg.CooldownWindow), provider, nil, logger)
	matcher := crisis.NewMatcher()

	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	check := func(msg string) error {
		res := guard.Check(ctx, crisis.Request{Message: msg, UserID: *user, CountryCode: *country})
		out := output{Input: msg, Result: res}
		if *explain && res.Category != "" {
			out.Patterns = matcher.Patterns(res.Category)
		}
		return enc.Encode(out)
	}

	if fs.NArg() > 0 {
		for _, msg := range fs.Args() {
			if err := check(msg); err != nil {
				return err
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := check(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}
