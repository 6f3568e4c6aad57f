// Command stress-runonce fires concurrent run-once snips at a resident and
// reports how each one ended.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"screen-snip/src/singleinstance"
)

type stressOptions struct {
	n        int
	mode     string
	deadline time.Duration
}

// tally counts outcomes; all fields are updated atomically.
type tally struct {
	ok        int32
	cancelled int32
	timeout   int32
	noServer  int32
	err       int32
	bytes     int64
}

func (t *tally) String() string {
	return fmt.Sprintf("ok=%d cancelled=%d timeout=%d no-resident=%d err=%d png-bytes=%d",
		t.ok, t.cancelled, t.timeout, t.noServer, t.err, t.bytes)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-runonce",
		Short:         "Stress test run-once snip delegation",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.mode != "png" && opts.mode != "clip" {
				return fmt.Errorf("--mode must be png or clip, got %q", opts.mode)
			}
			start := time.Now()
			t := stress(context.Background(), singleinstance.NewClient(), *opts)
			fmt.Fprintf(os.Stdout, "launched=%d %s elapsed=%s\n", opts.n, t, time.Since(start))
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 10, "number of clients to launch")
	cmd.Flags().StringVar(&opts.mode, "mode", "png", "png|clip: request the PNG over the socket or a clipboard write")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 30*time.Second, "per-client timeout")

	return cmd
}

// stress launches opts.n clients at once. Each waits until the resident
// answers, which for a snip means until someone finished or cancelled the
// selection.
func stress(ctx context.Context, client singleinstance.Client, opts stressOptions) *tally {
	var wg sync.WaitGroup
	t := &tally{}
	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, opts.deadline)
			defer cancel()
			delegated, payload, err := client.TryRunOnce(cctx, opts.mode == "png")
			t.record(delegated, payload, err)
		}()
	}
	wg.Wait()
	return t
}

func (t *tally) record(delegated bool, payload []byte, err error) {
	switch {
	case err != nil && isTimeout(err):
		atomic.AddInt32(&t.timeout, 1)
	case err != nil && strings.Contains(strings.ToLower(err.Error()), "cancelled"):
		atomic.AddInt32(&t.cancelled, 1)
	case err != nil:
		atomic.AddInt32(&t.err, 1)
	case !delegated:
		atomic.AddInt32(&t.noServer, 1)
	default:
		atomic.AddInt32(&t.ok, 1)
		atomic.AddInt64(&t.bytes, int64(len(payload)))
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
