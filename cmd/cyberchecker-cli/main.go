// Command cyberchecker-cli runs checking sessions from the terminal
// without any storage backends: results land in local text files
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cyberchecker/internal/platform/logger"
	chkdomain "cyberchecker/internal/services/checker/domain"
	chksvc "cyberchecker/internal/services/checker/service"
	cfgsvc "cyberchecker/internal/services/configs/service"
)

func main() {
	logger.Init(logger.FromEnv())
	l := logger.Get()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "list":
		if err := runList(os.Args[2:]); err != nil {
			l.Fatal().Err(err).Msg("list failed")
		}
	case "check":
		if err := runCheck(os.Args[2:]); err != nil {
			l.Fatal().Err(err).Msg("check failed")
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  cyberchecker-cli list  [-configs DIR]
  cyberchecker-cli check [-configs DIR] -config NAME -combo FILE [options]`)
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	dir := fs.String("configs", "configs", "check config directory")
	_ = fs.Parse(args)

	svc, err := cfgsvc.New(cfgsvc.Config{Dir: *dir}, *logger.Get())
	if err != nil {
		return err
	}
	names, err := svc.List(context.Background())
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	var (
		dir       = fs.String("configs", "configs", "check config directory")
		name      = fs.String("config", "", "check config name")
		combo     = fs.String("combo", "", "combo file (user:pass per line)")
		offset    = fs.Int("offset", 0, "skip this many input lines")
		proxies   = fs.String("proxies", "", "proxy list file")
		proxyType = fs.String("proxy-type", "none", "proxy type: none, http or socks5")
		threads   = fs.Int("threads", 10, "concurrent checks")
		timeout   = fs.Duration("timeout", 10*time.Second, "per request timeout")
		retries   = fs.Int("retries", 0, "retries per candidate on transient errors")
		out       = fs.String("out", "results", "export directory")
	)
	_ = fs.Parse(args)

	cfgs, err := cfgsvc.New(cfgsvc.Config{Dir: *dir}, *logger.Get())
	if err != nil {
		return err
	}

	sink := newFileSink(*out)
	checker := chksvc.New(*logger.Get(), cfgs, sink, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	id, err := checker.Start(ctx, chkdomain.SessionConfig{
		ConfigName:     *name,
		ComboFile:      *combo,
		Offset:         *offset,
		ProxyFile:      *proxies,
		ProxyType:      *proxyType,
		MaxConcurrent:  *threads,
		MaxRetries:     *retries,
		RequestTimeout: chkdomain.Millis(*timeout),
	})
	if err != nil {
		return err
	}
	fmt.Printf("session %s started\n", id)

	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\ninterrupted, stopping")
			return checker.Stop(context.Background())
		case r := <-checker.Hits():
			fmt.Printf("\rHIT %s (%s)%40s\n", r.Candidate.Raw, r.Outcome, "")
		case <-tick.C:
			snap := checker.Snapshot(context.Background())
			printProgress(snap)
			if snap.State == chkdomain.StateFinished {
				fmt.Println()
				printSummary(snap, sink)
				return nil
			}
		}
	}
}

func printProgress(s chkdomain.Snapshot) {
	fmt.Printf("\r%d/%d checked | valid %d | free %d | invalid %d | errors %d | CPM %d ",
		s.Checked, s.Total, s.Valid, s.Free, s.Invalid, s.Errored+s.RateLimited, s.CPM)
}

func printSummary(s chkdomain.Snapshot, sink *fileSink) {
	fmt.Printf("done in %s: %d valid, %d free, %d invalid, %d skipped\n",
		s.Elapsed.Duration().Round(time.Second), s.Valid, s.Free, s.Invalid, s.Skipped)
	for _, p := range sink.Files() {
		fmt.Println("wrote", p)
	}
}
