package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/starkex-recovery/disbursal-service/accounttree"
)

// Client calls the disbursal service HTTP API.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a client for the service at the given base URL.
func NewClient(url string) *Client {
	return &Client{url: url, httpClient: http.DefaultClient}
}

// DisburseResult is the outcome of an accepted disbursement.
type DisburseResult struct {
	TxHash      common.Hash
	Amount      *big.Int
	Destination common.Address
}

// Token is one registered asset mapping.
type Token struct {
	AssetID     *big.Int
	Quantum     *big.Int
	Destination common.Address
}

// Roots holds the committed roots and the finalization state.
type Roots struct {
	VaultRoot   *big.Int
	AccountRoot string
	Finalized   bool
}

// DisbursementEntry is one line of the audit log.
type DisbursementEntry struct {
	OwnerKey    string `json:"ownerKey"`
	AssetID     string `json:"assetId"`
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
	TxHash      string `json:"txHash"`
	Time        string `json:"time"`
}

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
	VaultRoot   string `json:"vaultRoot"`
	AccountRoot string `json:"accountRoot"`
	Finalized   bool   `json:"finalized"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func hexBig(v *big.Int) string {
	return "0x" + v.Text(16)
}

func parseBig(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("invalid number %q in response", s)
	}
	return v, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		var errRes errorResponse
		if err := json.Unmarshal(raw, &errRes); err == nil && errRes.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, errRes.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, res.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// Disburse submits both proofs and requests the payout.
func (c *Client) Disburse(ctx context.Context, ownerKey *big.Int, destination common.Address, assetID *big.Int, accountProof [][accounttree.KeyLen]byte, vaultProof []*big.Int) (*DisburseResult, error) {
	req := disburseRequest{
		OwnerKey:           hexBig(ownerKey),
		DestinationAddress: destination.Hex(),
		AssetID:            hexBig(assetID),
	}
	for _, sibling := range accountProof {
		req.AccountProof = append(req.AccountProof, "0x"+common.Bytes2Hex(sibling[:]))
	}
	for _, element := range vaultProof {
		req.VaultProof = append(req.VaultProof, hexBig(element))
	}

	var res disburseResponse
	if err := c.do(ctx, http.MethodPost, "/disburse", req, &res); err != nil {
		return nil, err
	}
	amount, err := parseBig(res.Amount)
	if err != nil {
		return nil, err
	}
	return &DisburseResult{
		TxHash:      common.HexToHash(res.TxHash),
		Amount:      amount,
		Destination: common.HexToAddress(res.Destination),
	}, nil
}

// IsClaimed reports whether the (owner, asset) pair was already disbursed.
func (c *Client) IsClaimed(ctx context.Context, ownerKey, assetID *big.Int) (bool, error) {
	var res claimedResponse
	path := fmt.Sprintf("/claims/%s/%s", hexBig(ownerKey), hexBig(assetID))
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return false, err
	}
	return res.Claimed, nil
}

// GetToken returns the registered mapping of the asset id.
func (c *Client) GetToken(ctx context.Context, assetID *big.Int) (*Token, error) {
	var res tokenResponse
	if err := c.do(ctx, http.MethodGet, "/tokens/"+hexBig(assetID), nil, &res); err != nil {
		return nil, err
	}
	gotAssetID, err := parseBig(res.AssetID)
	if err != nil {
		return nil, err
	}
	quantum, err := parseBig(res.Quantum)
	if err != nil {
		return nil, err
	}
	return &Token{
		AssetID:     gotAssetID,
		Quantum:     quantum,
		Destination: common.HexToAddress(res.Destination),
	}, nil
}

// GetRoots returns the committed roots.
func (c *Client) GetRoots(ctx context.Context) (*Roots, error) {
	var res rootsResponse
	if err := c.do(ctx, http.MethodGet, "/roots", nil, &res); err != nil {
		return nil, err
	}
	roots := &Roots{AccountRoot: res.AccountRoot, Finalized: res.Finalized}
	if res.VaultRoot != "" {
		root, err := parseBig(res.VaultRoot)
		if err != nil {
			return nil, err
		}
		roots.VaultRoot = root
	}
	return roots, nil
}

// GetDisbursements returns a page of the audit log.
func (c *Client) GetDisbursements(ctx context.Context, limit, offset uint) ([]DisbursementEntry, error) {
	var res []DisbursementEntry
	path := "/disbursements?limit=" + strconv.FormatUint(uint64(limit), 10) +
		"&offset=" + strconv.FormatUint(uint64(offset), 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}
