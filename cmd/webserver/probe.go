// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/z5labs/webserver/internal/try"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/cobra"
)

type probeOptions struct {
	url     string
	retries int
	waitMin time.Duration
	waitMax time.Duration
	timeout time.Duration
}

func newProbeCmd() *cobra.Command {
	var opts probeOptions

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check that a web server is healthy",
		Long: `Send GET requests to --url, retrying with backoff, until it responds
with a 2xx status or the retries are exhausted.`,
		Example: `  webserver probe --url http://localhost/api/health`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return probe(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.url, "url", "http://localhost/health", "URL to probe")
	cmd.Flags().IntVar(&opts.retries, "retries", 3, "Maximum number of retries")
	cmd.Flags().DurationVar(&opts.waitMin, "wait-min", 100*time.Millisecond, "Minimum time to wait between retries")
	cmd.Flags().DurationVar(&opts.waitMax, "wait-max", 2*time.Second, "Maximum time to wait between retries")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "Timeout of each attempt")
	return cmd
}

// UnhealthyError is returned by probe when the final response was not a 2xx.
type UnhealthyError struct {
	URL        string
	StatusCode int
}

// Error implements the [error] interface.
func (e UnhealthyError) Error() string {
	return fmt.Sprintf("%s responded with %d", e.URL, e.StatusCode)
}

func probe(ctx context.Context, out io.Writer, opts probeOptions) (err error) {
	rc := retryablehttp.Client{
		HTTPClient: &http.Client{
			Timeout: opts.timeout,
		},
		RetryWaitMin: opts.waitMin,
		RetryWaitMax: opts.waitMax,
		RetryMax:     opts.retries,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.url, nil)
	if err != nil {
		return err
	}

	resp, err := rc.StandardClient().Do(req)
	if err != nil {
		return err
	}
	defer try.Close(&err, resp.Body)

	_, err = io.Copy(io.Discard, resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return UnhealthyError{URL: opts.url, StatusCode: resp.StatusCode}
	}
	fmt.Fprintf(out, "%s is healthy\n", opts.url)
	return nil
}
