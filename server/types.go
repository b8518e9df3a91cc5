package server

// disburseRequest is the body of POST /disburse. Numeric fields accept
// 0x-prefixed hex or plain decimal.
type disburseRequest struct {
	OwnerKey           string   `json:"ownerKey"`
	DestinationAddress string   `json:"destinationAddress"`
	AssetID            string   `json:"assetId"`
	AccountProof       []string `json:"accountProof"`
	VaultProof         []string `json:"vaultProof"`
}

type disburseResponse struct {
	TxHash      string `json:"txHash"`
	Amount      string `json:"amount"`
	Destination string `json:"destination"`
}

type claimedResponse struct {
	Claimed bool `json:"claimed"`
}

type tokenResponse struct {
	AssetID     string `json:"assetId"`
	Quantum     string `json:"quantum"`
	Destination string `json:"destination"`
}

type rootsResponse struct {
	VaultRoot   string `json:"vaultRoot,omitempty"`
	AccountRoot string `json:"accountRoot,omitempty"`
	Finalized   bool   `json:"finalized"`
}

type disbursementEntry struct {
	OwnerKey    string `json:"ownerKey"`
	AssetID     string `json:"assetId"`
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
	TxHash      string `json:"txHash"`
	Time        string `json:"time"`
}

type setRootsRequest struct {
	VaultRoot   string `json:"vaultRoot,omitempty"`
	AccountRoot string `json:"accountRoot,omitempty"`
}

type tokenAssociationRequest struct {
	AssetID     string `json:"assetId"`
	Quantum     string `json:"quantum"`
	Destination string `json:"destination"`
}

type registerTokensRequest struct {
	Associations []tokenAssociationRequest `json:"associations"`
}

type errorResponse struct {
	Error string `json:"error"`
}
