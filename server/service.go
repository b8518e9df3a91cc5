package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/starkex-recovery/disbursal-service/accounttree"
	"github.com/starkex-recovery/disbursal-service/etherman"
	"github.com/starkex-recovery/disbursal-service/tokenregistry"
	"github.com/starkex-recovery/disbursal-service/utils/gerror"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000

	// maxNumberBits bounds every numeric request field to one 256 bit word
	maxNumberBits = 256
)

// service holds the HTTP handlers of the disbursal API.
type service struct {
	disburser disburserInterface
	ledger    ledgerInterface
	registry  registryInterface
	admin     adminInterface
	storage   storageInterface
}

func parseBig(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty number")
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("malformed number %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative number %q", s)
	}
	if v.BitLen() > maxNumberBits {
		return nil, fmt.Errorf("number %q out of range", s)
	}
	return v, nil
}

func parseHash(s string) ([accounttree.KeyLen]byte, error) {
	var h [accounttree.KeyLen]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return h, err
	}
	if len(raw) != accounttree.KeyLen {
		return h, fmt.Errorf("hash must be %d bytes, got %d", accounttree.KeyLen, len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the error taxonomy onto HTTP status codes: malformed and
// unauthentic proofs are the caller's fault, state conflicts are conflicts,
// missing configuration is reported as such.
func writeError(w http.ResponseWriter, err error) {
	var (
		vaultErr   *gerror.InvalidVaultProofError
		accountErr *gerror.InvalidAccountProofError
	)
	switch {
	case errors.As(err, &vaultErr), errors.As(err, &accountErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, gerror.ErrAlreadyClaimed),
		errors.Is(err, gerror.ErrAssetAlreadyRegistered),
		errors.Is(err, gerror.ErrRootAlreadySet),
		errors.Is(err, gerror.ErrAdminFinalized):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, gerror.ErrAssetNotMapped),
		errors.Is(err, gerror.ErrStorageNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, gerror.ErrRootNotSet):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case errors.Is(err, tokenregistry.ErrNoAssets),
		errors.Is(err, tokenregistry.ErrZeroAssetID),
		errors.Is(err, tokenregistry.ErrInvalidQuantum),
		errors.Is(err, tokenregistry.ErrZeroDestination):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func badRequest(w http.ResponseWriter, format string, args ...interface{}) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf(format, args...)})
}

func (s *service) disburse(w http.ResponseWriter, r *http.Request) {
	var req disburseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body: %v", err)
		return
	}

	ownerKey, err := parseBig(req.OwnerKey)
	if err != nil {
		badRequest(w, "malformed owner key: %v", err)
		return
	}
	assetID, err := parseBig(req.AssetID)
	if err != nil {
		badRequest(w, "malformed asset id: %v", err)
		return
	}
	if !common.IsHexAddress(req.DestinationAddress) {
		badRequest(w, "malformed destination address")
		return
	}
	destination := common.HexToAddress(req.DestinationAddress)

	accountProof := make([][accounttree.KeyLen]byte, len(req.AccountProof))
	for i, raw := range req.AccountProof {
		if accountProof[i], err = parseHash(raw); err != nil {
			badRequest(w, "malformed account proof element %d: %v", i, err)
			return
		}
	}
	vaultProof := make([]*big.Int, len(req.VaultProof))
	for i, raw := range req.VaultProof {
		if vaultProof[i], err = parseBig(raw); err != nil {
			badRequest(w, "malformed vault proof element %d: %v", i, err)
			return
		}
	}

	disbursement, err := s.disburser.Disburse(r.Context(), ownerKey, destination, assetID, accountProof, vaultProof)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, disburseResponse{
		TxHash:      disbursement.TxHash.Hex(),
		Amount:      disbursement.Amount.String(),
		Destination: disbursement.Destination.Hex(),
	})
}

func (s *service) isClaimed(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ownerKey, err := parseBig(vars["ownerKey"])
	if err != nil {
		badRequest(w, "malformed owner key: %v", err)
		return
	}
	assetID, err := parseBig(vars["assetId"])
	if err != nil {
		badRequest(w, "malformed asset id: %v", err)
		return
	}
	claimed, err := s.ledger.IsClaimed(r.Context(), ownerKey, assetID, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claimedResponse{Claimed: claimed})
}

func (s *service) getToken(w http.ResponseWriter, r *http.Request) {
	assetID, err := parseBig(mux.Vars(r)["assetId"])
	if err != nil {
		badRequest(w, "malformed asset id: %v", err)
		return
	}
	association, err := s.registry.GetTokenAssociation(r.Context(), assetID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AssetID:     association.AssetID.String(),
		Quantum:     association.Quantum.String(),
		Destination: association.Destination.Hex(),
	})
}

func (s *service) getRoots(w http.ResponseWriter, r *http.Request) {
	var resp rootsResponse
	vaultRoot, err := s.admin.GetVaultRoot(r.Context())
	if err == nil {
		resp.VaultRoot = "0x" + vaultRoot.Text(16) //nolint:gomnd
	} else if !errors.Is(err, gerror.ErrRootNotSet) {
		writeError(w, err)
		return
	}
	accountRoot, err := s.admin.GetAccountRoot(r.Context())
	if err == nil {
		resp.AccountRoot = "0x" + hex.EncodeToString(accountRoot[:])
	} else if !errors.Is(err, gerror.ErrRootNotSet) {
		writeError(w, err)
		return
	}
	finalized, err := s.admin.IsFinalized(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resp.Finalized = finalized
	writeJSON(w, http.StatusOK, resp)
}

func (s *service) getDisbursements(w http.ResponseWriter, r *http.Request) {
	limit := uint(defaultPageLimit)
	offset := uint(0)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || v == 0 || v > maxPageLimit {
			badRequest(w, "malformed limit")
			return
		}
		limit = uint(v)
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			badRequest(w, "malformed offset")
			return
		}
		offset = uint(v)
	}

	disbursements, err := s.storage.GetDisbursements(r.Context(), limit, offset, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	entries := make([]disbursementEntry, 0, len(disbursements))
	for _, d := range disbursements {
		entries = append(entries, disbursementEntry{
			OwnerKey:    d.OwnerKey.String(),
			AssetID:     d.AssetID.String(),
			Destination: d.Destination.Hex(),
			Amount:      d.Amount.String(),
			TxHash:      d.TxHash.Hex(),
			Time:        d.Time.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *service) setRoots(w http.ResponseWriter, r *http.Request) {
	var req setRootsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body: %v", err)
		return
	}
	if req.VaultRoot == "" && req.AccountRoot == "" {
		badRequest(w, "no root to commit")
		return
	}
	if req.VaultRoot != "" {
		root, err := parseBig(req.VaultRoot)
		if err != nil {
			badRequest(w, "malformed vault root: %v", err)
			return
		}
		if err := s.admin.SetVaultRoot(r.Context(), root); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.AccountRoot != "" {
		root, err := parseHash(req.AccountRoot)
		if err != nil {
			badRequest(w, "malformed account root: %v", err)
			return
		}
		if err := s.admin.SetAccountRoot(r.Context(), root); err != nil {
			writeError(w, err)
			return
		}
	}
	s.getRoots(w, r)
}

func (s *service) registerTokens(w http.ResponseWriter, r *http.Request) {
	var req registerTokensRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body: %v", err)
		return
	}
	associations := make([]etherman.TokenAssociation, 0, len(req.Associations))
	for i, raw := range req.Associations {
		assetID, err := parseBig(raw.AssetID)
		if err != nil {
			badRequest(w, "malformed asset id %d: %v", i, err)
			return
		}
		quantum, err := parseBig(raw.Quantum)
		if err != nil {
			badRequest(w, "malformed quantum %d: %v", i, err)
			return
		}
		if !common.IsHexAddress(raw.Destination) {
			badRequest(w, "malformed destination %d", i)
			return
		}
		associations = append(associations, etherman.TokenAssociation{
			AssetID:     assetID,
			Quantum:     quantum,
			Destination: common.HexToAddress(raw.Destination),
		})
	}
	if err := s.registry.RegisterTokenMappings(r.Context(), associations); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *service) finalize(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.Finalize(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *service) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
