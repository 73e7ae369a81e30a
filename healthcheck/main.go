// Copyright (C) 2024 Christian Rößner
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const classifierURL = "http://127.0.0.1:8000/ping"

var errUnexpectedBody = errors.New("unexpected body")

// check returns nil when url answers 200 with a "pong" body.
func check(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return err
	}

	if strings.ToLower(strings.TrimSpace(string(content))) != "pong" {
		return errUnexpectedBody
	}

	return nil
}

func newClient(skipVerify bool, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: skipVerify}

	return &http.Client{Timeout: timeout, Transport: transport}
}

func run(args []string) int {
	fs := pflag.NewFlagSet("healthcheck", pflag.ContinueOnError)

	fs.StringP("url", "u", classifierURL, "classifier url to test")
	fs.BoolP("verbose", "v", false, "Be verbose")
	fs.BoolP("tls-skip-verify", "t", false, "Skip TLS server certificate verification")
	fs.Duration("timeout", 10*time.Second, "Request timeout")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	v := viper.New()
	v.SetEnvPrefix("healthcheck")
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return 2
	}

	verbose := v.GetBool("verbose")
	url := v.GetString("url")

	if verbose {
		fmt.Println("Checking", url)
	}

	client := newClient(v.GetBool("tls-skip-verify"), v.GetDuration("timeout"))

	if err := check(context.Background(), client, url); err != nil {
		if verbose {
			fmt.Println("Test FAILED:", err)
		}

		return 1
	}

	if verbose {
		fmt.Println("Test OK")
	}

	return 0
}

func main() {
	os.Exit(run(os.Args[1:]))
}
