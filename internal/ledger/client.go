package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"nft-ticketing/monitoring"

	"github.com/shopspring/decimal"
)

type ClientConfig struct {
	// RPCURL is the ledger's JSON-RPC endpoint.
	RPCURL string `json:"rpcUrl"`

	// SignerURL is the signer sidecar holding the authority keys used
	// for collection and issuance-machine provisioning.
	SignerURL string `json:"signerUrl"`
}

type Client struct {
	rpcURL    string
	signerURL string

	// hc is the http client.
	hc *http.Client
}

func NewClient(c *ClientConfig) *Client {
	return &Client{
		rpcURL:    c.RPCURL,
		signerURL: c.SignerURL,

		// set http client with timeout.
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type (
	// Instruction is one instruction of a resolved transaction.
	Instruction struct {
		ProgramID string   `json:"programId"`
		Accounts  []string `json:"accounts"`
		Data      string   `json:"data"`
	}

	// ResolvedTransaction is the parsed view of a committed or failed
	// on-chain transaction.
	ResolvedTransaction struct {
		Signature    string
		Committed    bool
		Instructions []Instruction
	}
)

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// rpcCall performs one JSON-RPC call against the given endpoint and
// decodes the result into out. A null result leaves out untouched and
// returns errNullResult.
func (c *Client) rpcCall(ctx context.Context, endpoint, method string, params any, out any) error {
	started := time.Now()
	defer func() {
		monitoring.TrackLedgerRPC(method, time.Since(started))
	}()

	b, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return fmt.Errorf("rpcCall: json.Marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("rpcCall: http.NewRequestWithContext: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("rpcCall: http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		rbody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("rpcCall: resp.StatusCode: %d, resp.Body: %s", resp.StatusCode, rbody)
	}

	var reply struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return fmt.Errorf("rpcCall: json.Decode: %w", err)
	}
	if reply.Error != nil {
		return fmt.Errorf("rpcCall: %w", reply.Error)
	}
	if len(reply.Result) == 0 || string(reply.Result) == "null" {
		return errNullResult
	}
	if err := json.Unmarshal(reply.Result, out); err != nil {
		return fmt.Errorf("rpcCall: json.Unmarshal result: %w", err)
	}

	return nil
}

var errNullResult = fmt.Errorf("rpc: null result")

// ResolveTransaction fetches the parsed transaction for a signature at
// finalized commitment. Committed is false when the transaction landed
// with an on-chain error.
func (c *Client) ResolveTransaction(ctx context.Context, signature string) (*ResolvedTransaction, error) {
	params := []any{
		signature,
		map[string]any{
			"encoding":                       "jsonParsed",
			"commitment":                     "finalized",
			"maxSupportedTransactionVersion": 0,
		},
	}

	var reply struct {
		Meta *struct {
			Err json.RawMessage `json:"err"`
		} `json:"meta"`
		Transaction struct {
			Message struct {
				Instructions []Instruction `json:"instructions"`
			} `json:"message"`
		} `json:"transaction"`
	}
	if err := c.rpcCall(ctx, c.rpcURL, "getTransaction", params, &reply); err != nil {
		return nil, fmt.Errorf("ResolveTransaction: %w", err)
	}

	committed := reply.Meta == nil || len(reply.Meta.Err) == 0 || string(reply.Meta.Err) == "null"

	return &ResolvedTransaction{
		Signature:    signature,
		Committed:    committed,
		Instructions: reply.Transaction.Message.Instructions,
	}, nil
}

// CurrentOwner looks up the live owner of an asset. An unknown asset
// yields an empty owner and no error.
func (c *Client) CurrentOwner(ctx context.Context, assetID string) (string, error) {
	var reply struct {
		Ownership struct {
			Owner string `json:"owner"`
		} `json:"ownership"`
	}
	err := c.rpcCall(ctx, c.rpcURL, "getAsset", map[string]any{"id": assetID}, &reply)
	if err == errNullResult {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("CurrentOwner: %w", err)
	}

	return reply.Ownership.Owner, nil
}

// CreateCollection asks the signer sidecar to create the collection
// asset anchoring an event's tickets.
func (c *Client) CreateCollection(ctx context.Context, name, metadataURI string) (string, error) {
	var reply struct {
		CollectionID string `json:"collectionId"`
	}
	params := map[string]any{"name": name, "uri": metadataURI}
	if err := c.rpcCall(ctx, c.signerURL, "createCollection", params, &reply); err != nil {
		return "", fmt.Errorf("CreateCollection: %w", err)
	}

	return reply.CollectionID, nil
}

// DeployIssuanceMachine asks the signer sidecar to deploy the issuance
// machine governing supply and price for one event.
func (c *Client) DeployIssuanceMachine(ctx context.Context, collectionID string, supply int, price decimal.Decimal) (string, error) {
	var reply struct {
		MachineID string `json:"machineId"`
	}
	params := map[string]any{
		"collectionId": collectionID,
		"supply":       supply,
		"price":        price,
	}
	if err := c.rpcCall(ctx, c.signerURL, "deployIssuanceMachine", params, &reply); err != nil {
		return "", fmt.Errorf("DeployIssuanceMachine: %w", err)
	}

	return reply.MachineID, nil
}
