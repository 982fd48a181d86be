package models

// MintObserved is a normalized record of a successful mint, either
// extracted from chain data by the watcher or asserted by a trusted
// caller through the mint-success webhook.
type MintObserved struct {
	EventID       string `json:"event_id"`
	AssetID       string `json:"asset_id"`
	Owner         string `json:"owner"`
	Signature     string `json:"signature"`
	TransactionID string `json:"transaction_id,omitempty"`
}
