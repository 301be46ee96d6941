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

	"github.com/blinklabs-io/gohiero/cmd/common"
	"github.com/blinklabs-io/gohiero/ledger"
)

type txReceiptFlags struct {
	*common.GlobalFlags
	transactionId string
	record        bool
}

func main() {
	// Parse commandline
	f := txReceiptFlags{
		GlobalFlags: common.NewGlobalFlags(),
	}
	f.Flagset.StringVar(&f.transactionId, "tx", "", "transaction id, such as 0.0.2@1700000000.000000123")
	f.Flagset.BoolVar(&f.record, "record", false, "fetch the full transaction record")
	f.Parse()
	if f.transactionId == "" {
		fmt.Printf("You must specify -tx\n\n")
		f.Flagset.PrintDefaults()
		os.Exit(1)
	}
	txId, err := ledger.ParseTransactionId(f.transactionId)
	if err != nil {
		fmt.Printf("Invalid transaction id: %s\n", err)
		os.Exit(1)
	}

	client := common.CreateClient(f.GlobalFlags)
	defer client.Close()

	ctx := context.Background()
	if f.record {
		record, err := client.GetRecord(ctx, txId)
		if err != nil {
			fmt.Printf("ERROR: %s\n", err)
			os.Exit(1)
		}
		fmt.Print("Transaction record:\n\n")
		fmt.Printf("Status: %s\n", record.Receipt.Status)
		fmt.Printf("Consensus timestamp: %s\n", record.ConsensusTimestamp)
		fmt.Printf("Hash: %x\n", record.TransactionHash)
		fmt.Printf("Fee: %d\n", record.TransactionFee)
		fmt.Printf("Memo: %s\n", record.Memo)
		return
	}
	receipt, err := client.GetReceipt(ctx, txId)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	fmt.Print("Transaction receipt:\n\n")
	fmt.Printf("Status: %s\n", receipt.Status)
	if receipt.TopicId != nil {
		fmt.Printf("Topic: %s\n", receipt.TopicId)
		fmt.Printf("Sequence number: %d\n", receipt.TopicSequenceNumber)
	}
}
