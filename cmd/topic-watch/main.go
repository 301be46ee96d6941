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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/blinklabs-io/gohiero/cmd/common"
	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/mirror"
)

type topicWatchFlags struct {
	*common.GlobalFlags
	topic string
	start string
	end   string
	limit uint64
}

// parseStart accepts seconds.nanos, RFC 3339, or "now"
func parseStart(s string) (ledger.Timestamp, error) {
	switch {
	case s == "":
		return ledger.Timestamp{}, nil
	case s == "now":
		return ledger.NewTimestamp(time.Now()), nil
	case strings.Contains(s, "T"):
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return ledger.Timestamp{}, err
		}
		return ledger.NewTimestamp(t), nil
	}
	return ledger.ParseTimestamp(s)
}

func main() {
	// Parse commandline
	f := topicWatchFlags{
		GlobalFlags: common.NewGlobalFlags(),
	}
	f.Flagset.StringVar(&f.topic, "topic", "", "topic id to watch, such as 0.0.5000")
	f.Flagset.StringVar(&f.start, "start", "", "consensus timestamp to start from (seconds.nanos or RFC 3339). the default is the saved cursor, or now")
	f.Flagset.StringVar(&f.end, "end", "", "consensus timestamp to stop at")
	f.Flagset.Uint64Var(&f.limit, "limit", 0, "stop after this many messages")
	f.Parse()
	if f.topic == "" {
		fmt.Printf("You must specify -topic\n\n")
		f.Flagset.PrintDefaults()
		os.Exit(1)
	}
	topic, err := ledger.ParseTopicId(f.topic)
	if err != nil {
		fmt.Printf("Invalid topic: %s\n", err)
		os.Exit(1)
	}
	start, err := parseStart(f.start)
	if err != nil {
		fmt.Printf("Invalid start: %s\n", err)
		os.Exit(1)
	}
	end, err := parseStart(f.end)
	if err != nil {
		fmt.Printf("Invalid end: %s\n", err)
		os.Exit(1)
	}

	client := common.CreateClient(f.GlobalFlags)
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	sub, err := client.Subscribe(
		ctx,
		topic,
		start,
		func(msg mirror.Message) {
			fmt.Printf(
				"%s seq=%d chunks=%d: %s\n",
				msg.ConsensusTimestamp,
				msg.SequenceNumber,
				len(msg.Chunks),
				msg.Contents,
			)
		},
		func(err error) {
			fmt.Printf("ERROR(async): %s\n", err)
		},
		mirror.WithLimit(f.limit),
		mirror.WithEnd(end),
	)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("Watching topic %s (subscription %s)\n", topic, sub.Id())
	if err := sub.Wait(); err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
}
