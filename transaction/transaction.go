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

package transaction

import (
	"crypto/sha512"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/blinklabs-io/gohiero/cbor"
	"github.com/blinklabs-io/gohiero/keys"
	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/network"
	"github.com/blinklabs-io/gohiero/protocol"
)

// Transaction carries one operation through its lifecycle. Freezing binds the transaction
// id and designated nodes and produces one body per node. Those bodies never change
// afterward; only their signatures accumulate until the transaction is marked signed
type Transaction struct {
	mutex         sync.Mutex
	descriptor    Descriptor
	config        Config
	logger        *slog.Logger
	state         State
	transactionId ledger.TransactionId
	nodes         []ledger.AccountId
	bodies        map[ledger.AccountId][]byte
	signatures    map[ledger.AccountId]*keys.SignatureMap
}

// Response identifies a transaction that a node accepted for consensus
type Response struct {
	TransactionId ledger.TransactionId
	Node          ledger.AccountId
	// SHA-384 of the signed transaction bytes
	Hash []byte
}

// New returns a Transaction in the Building state
func New(descriptor Descriptor, options ...ConfigOptionFunc) *Transaction {
	config := NewConfig(options...)
	return &Transaction{
		descriptor: descriptor,
		config:     config,
		logger:     config.Logger.With("component", "transaction", "kind", descriptor.Kind()),
		state:      StateBuilding,
	}
}

func (t *Transaction) Descriptor() Descriptor {
	return t.descriptor
}

func (t *Transaction) State() State {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.state
}

// TransactionId returns the id bound at freeze time
func (t *Transaction) TransactionId() ledger.TransactionId {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.transactionId
}

// Nodes returns the designated nodes
func (t *Transaction) Nodes() []ledger.AccountId {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return slices.Clone(t.nodes)
}

// ValidDuration returns how long after its valid start the transaction may reach consensus
func (t *Transaction) ValidDuration() time.Duration {
	return t.config.ValidDuration
}

// BodyBytes returns the frozen body addressed to node
func (t *Transaction) BodyBytes(node ledger.AccountId) ([]byte, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	body, ok := t.bodies[node]
	if !ok {
		return nil, false
	}
	return slices.Clone(body), true
}

// SignatureMap returns a copy of the signatures collected for the body addressed to node
func (t *Transaction) SignatureMap(node ledger.AccountId) (*keys.SignatureMap, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	sigMap, ok := t.signatures[node]
	if !ok {
		return nil, false
	}
	return sigMap.Clone(), true
}

// transition moves to the next state. The caller must hold the mutex
func (t *Transaction) transition(op string, to State) error {
	if !stateMap.CanTransition(t.state, to) {
		return StateError{Op: op, State: t.state, Expected: statesLeadingTo(to)}
	}
	t.logger.Debug(
		"transaction state change",
		"transaction_id", t.transactionId.String(),
		"from", t.state.String(),
		"to", to.String(),
	)
	t.state = to
	return nil
}

func statesLeadingTo(to State) []State {
	var ret []State
	for from, entry := range stateMap {
		if slices.Contains(entry.Transitions, to) {
			ret = append(ret, from)
		}
	}
	slices.SortFunc(ret, func(a, b State) int {
		return int(a.Id) - int(b.Id)
	})
	return ret
}

// Freeze binds the transaction id and designated nodes and encodes one body per node.
// The payer is only used when no transaction id was configured
func (t *Transaction) Freeze(registry *network.Registry, payer ledger.AccountId) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.state != StateBuilding {
		return StateError{Op: "freeze", State: t.state, Expected: []State{StateBuilding}}
	}
	if len(t.config.Memo) > MaxMemoBytes {
		return fmt.Errorf("%w: %d bytes, max %d", ErrMemoTooLong, len(t.config.Memo), MaxMemoBytes)
	}
	nodes, err := t.designateNodes(registry)
	if err != nil {
		return err
	}
	data, err := t.descriptor.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", t.descriptor.Kind(), err)
	}
	txId := t.config.TransactionId
	if txId.IsZero() {
		if payer.IsZero() {
			return fmt.Errorf("%w: no payer account", ErrInvalidState)
		}
		txId = ledger.NewTransactionId(payer)
	}
	bodies := make(map[ledger.AccountId][]byte, len(nodes))
	signatures := make(map[ledger.AccountId]*keys.SignatureMap, len(nodes))
	for _, node := range nodes {
		body := protocol.TransactionBody{
			TransactionId:  txId,
			NodeAccountId:  node,
			TransactionFee: t.config.TransactionFee,
			ValidDuration:  uint64(t.config.ValidDuration / time.Second),
			Memo:           t.config.Memo,
			Kind:           t.descriptor.Kind(),
			Data:           data,
		}
		bodyBytes, err := cbor.Encode(&body)
		if err != nil {
			return fmt.Errorf("failed to encode transaction body: %w", err)
		}
		bodies[node] = bodyBytes
		signatures[node] = keys.NewSignatureMap()
	}
	t.transactionId = txId
	t.nodes = nodes
	t.bodies = bodies
	t.signatures = signatures
	return t.transition("freeze", StateFrozen)
}

// designateNodes picks the nodes the transaction is frozen for. A targetable transaction
// gets every healthy node up to MaxNodes, so that it can move to another node without
// re-signing. Anything else gets exactly one
func (t *Transaction) designateNodes(registry *network.Registry) ([]ledger.AccountId, error) {
	if len(t.config.Nodes) > 0 {
		for _, node := range t.config.Nodes {
			if _, ok := registry.Endpoint(node); !ok {
				return nil, fmt.Errorf("%w: unknown node %s", ErrNoDesignatedNode, node)
			}
		}
		if !t.descriptor.Targetable() {
			return []ledger.AccountId{t.config.Nodes[0]}, nil
		}
		return slices.Clone(t.config.Nodes), nil
	}
	ranked := registry.Rank(nil, nil)
	if len(ranked) == 0 {
		return nil, ErrNoDesignatedNode
	}
	if !t.descriptor.Targetable() {
		return []ledger.AccountId{ranked[0].Node}, nil
	}
	var ret []ledger.AccountId
	for _, endpoint := range ranked {
		if len(ret) >= t.config.MaxNodes {
			break
		}
		if registry.Healthy(endpoint.Node) {
			ret = append(ret, endpoint.Node)
		}
	}
	if len(ret) == 0 {
		ret = append(ret, ranked[0].Node)
	}
	return ret, nil
}

// Sign adds signatures from each key over every per-node body. Either every body gets every
// signature or nothing changes
func (t *Transaction) Sign(privKeys ...keys.PrivateKey) error {
	return t.updateSignatures("sign", func(sigMap *keys.SignatureMap, body []byte) error {
		return keys.SignInto(sigMap, body, privKeys...)
	})
}

// SignWith adds signatures produced by an external signer, such as a hardware wallet.
// Each signature is verified against pub before it is kept
func (t *Transaction) SignWith(pub keys.PublicKey, signer func([]byte) ([]byte, error)) error {
	id := keys.Identity(pub)
	return t.updateSignatures("sign", func(sigMap *keys.SignatureMap, body []byte) error {
		sig, err := signer(body)
		if err != nil {
			return keys.SignatureError{PublicKey: id, Err: err}
		}
		if !pub.Verify(body, sig) {
			return keys.SignatureError{PublicKey: id, Err: keys.ErrInvalidSignature}
		}
		if err := sigMap.Add(pub, sig); err != nil {
			return keys.SignatureError{PublicKey: id, Err: err}
		}
		return nil
	})
}

func (t *Transaction) updateSignatures(op string, fn func(*keys.SignatureMap, []byte) error) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.state != StateFrozen {
		return StateError{Op: op, State: t.state, Expected: []State{StateFrozen}}
	}
	updated := make(map[ledger.AccountId]*keys.SignatureMap, len(t.signatures))
	for node, sigMap := range t.signatures {
		tmpMap := sigMap.Clone()
		if err := fn(tmpMap, t.bodies[node]); err != nil {
			return err
		}
		updated[node] = tmpMap
	}
	t.signatures = updated
	return nil
}

// MarkSigned completes signing. Every per-node body must carry a signature from the payer
// key and from each of the descriptor's required signers
func (t *Transaction) MarkSigned(payerKey keys.PublicKey) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.state != StateFrozen {
		return StateError{Op: "mark signed", State: t.state, Expected: []State{StateFrozen}}
	}
	if payerKey == nil {
		return keys.SignatureError{Err: fmt.Errorf("%w: no payer key", ErrMissingSignature)}
	}
	required := append([]keys.PublicKey{payerKey}, t.descriptor.RequiredSigners()...)
	for _, node := range t.nodes {
		sigMap := t.signatures[node]
		for _, pub := range required {
			if !sigMap.Has(pub) {
				return keys.SignatureError{
					PublicKey: keys.Identity(pub),
					Err:       fmt.Errorf("%w for node %s", ErrMissingSignature, node),
				}
			}
		}
	}
	return t.transition("mark signed", StateSigned)
}

// SignedBytes returns the signed transaction addressed to node as sent on the wire
func (t *Transaction) SignedBytes(node ledger.AccountId) ([]byte, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.signedBytes(node)
}

func (t *Transaction) signedBytes(node ledger.AccountId) ([]byte, error) {
	body, ok := t.bodies[node]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoDesignatedNode, node)
	}
	entries := t.signatures[node].Entries()
	signedTx := protocol.SignedTransaction{
		BodyBytes:  body,
		Signatures: make([]protocol.SignaturePair, 0, len(entries)),
	}
	for _, entry := range entries {
		signedTx.Signatures = append(
			signedTx.Signatures,
			protocol.SignaturePair{
				KeyType:   uint8(entry.PublicKey.Type()),
				PubKey:    entry.PublicKey.Bytes(),
				Signature: entry.Signature,
			},
		)
	}
	return cbor.Encode(&signedTx)
}

// Hash returns the SHA-384 transaction hash of the signed bytes addressed to node
func (t *Transaction) Hash(node ledger.AccountId) ([]byte, error) {
	signed, err := t.SignedBytes(node)
	if err != nil {
		return nil, err
	}
	return hashBytes(signed), nil
}

func hashBytes(signed []byte) []byte {
	hash := sha512.Sum384(signed)
	return hash[:]
}
