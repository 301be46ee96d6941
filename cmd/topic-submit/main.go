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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/blinklabs-io/gohiero/cmd/common"
	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/protocol"
	"github.com/blinklabs-io/gohiero/transaction"
)

type topicSubmitFlags struct {
	*common.GlobalFlags
	topic   string
	message string
	memo    string
	wait    bool
}

func main() {
	// Parse commandline
	f := topicSubmitFlags{
		GlobalFlags: common.NewGlobalFlags(),
	}
	f.Flagset.StringVar(&f.topic, "topic", "", "topic id to submit to, such as 0.0.5000")
	f.Flagset.StringVar(&f.message, "message", "", "message to submit. read from stdin when empty")
	f.Flagset.StringVar(&f.memo, "memo", "", "transaction memo")
	f.Flagset.BoolVar(&f.wait, "wait", true, "wait for the receipt of each chunk")
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
	message := []byte(f.message)
	if len(message) == 0 {
		message, err = io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Printf("Failed to read message: %s\n", err)
			os.Exit(1)
		}
	}

	client := common.CreateClient(f.GlobalFlags)
	defer client.Close()

	ctx := context.Background()
	resps, err := client.SubmitMessage(ctx, topic, message, transaction.WithMemo(f.memo))
	for i, resp := range resps {
		fmt.Printf("chunk %d: transaction %s accepted by %s, hash %x\n", i+1, resp.TransactionId, resp.Node, resp.Hash)
	}
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	if !f.wait {
		return
	}
	for _, resp := range resps {
		receipt, err := client.WaitForReceipt(ctx, resp.TransactionId, resp.Node)
		if err != nil {
			var timeoutErr protocol.TimeoutError
			if errors.As(err, &timeoutErr) && timeoutErr.OutcomeUnknown {
				fmt.Printf("Outcome of %s is unknown: %s\n", resp.TransactionId, err)
			} else {
				fmt.Printf("ERROR: %s\n", err)
			}
			os.Exit(1)
		}
		fmt.Printf("%s: %s, sequence number %d\n", resp.TransactionId, receipt.Status, receipt.TopicSequenceNumber)
	}
}
