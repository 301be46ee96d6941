// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"crypto/tls"
	"fmt"
	"os"

	hiero "github.com/blinklabs-io/gohiero"
)

// CreateClient returns a client for the network selected by the flags, or exits
func CreateClient(f *GlobalFlags) *hiero.Client {
	cfg, err := f.ClientConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %s\n", err)
		os.Exit(1)
	}
	opts := []hiero.ClientOptionFunc{
		hiero.WithLogger(f.Logger()),
	}
	if f.UseTls {
		opts = append(opts, hiero.WithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}))
	}
	client, err := hiero.NewClientFromConfig(cfg, opts...)
	if err != nil {
		fmt.Printf("Failed to create client: %s\n", err)
		os.Exit(1)
	}
	return client
}
