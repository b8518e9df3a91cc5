package disburser

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v4"
	"github.com/starkex-recovery/disbursal-service/accounttree"
	"github.com/starkex-recovery/disbursal-service/claims"
	"github.com/starkex-recovery/disbursal-service/etherman"
	"github.com/starkex-recovery/disbursal-service/starkcrypto"
	"github.com/starkex-recovery/disbursal-service/utils/gerror"
	"github.com/starkex-recovery/disbursal-service/vaulttree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test trees: a 4 leaf vault tree with records (0x12345, 1, 5), (0x6789a, 1, 7),
// (0xbcdef, 2, 11), (0x13579, 3, 0) and a 4 leaf account tree associating
// 0x12345 -> 0xabcd...cd, 0x6789a -> 0x1111..., 0xbcdef -> 0x2222...,
// 0x13579 -> 0x3333...
const (
	vaultRootHex   = "1cb0ffe5f477afd31d56d09ab9acdf6e23002503d8abd4b652955ccd57aa508"
	vaultLeaf1Hex  = "32f480a8e3241494e47ad300c6ecc710694f45e7116278a38315feeec6ad982"
	vaultLeaf3Hex  = "28f31be45e81e0c16a396945d56e4c3b13fa4ed90630f1461707bd9fc724edb"
	vaultNode01Hex = "4a7a90769bdb1ee306a736c4877fd642815c0112176f6c962b82f9f7bfc5979"
	vaultNode23Hex = "2fb432f93641c3bdb19a0c14442830c1adec01f602031eb114b0184dde21ade"

	accountRootHex   = "716e438fdbdc1c1653d830e8875cd036c2ae2d8151b56c16512dd2004c61736d"
	accountLeaf1Hex  = "754aaa9ce057b543e4db9102267085b006a0796c74f1f7e9a460203468fbc22a"
	accountLeaf3Hex  = "49b55f264d977084f555b5f8d4f48f908a824acbe23c4e0640c9a68cf01046f1"
	accountNode01Hex = "27aabacec3b6e992353b9c91f64361601516813e8698c54f93e58dc924b9e0e2"
	accountNode23Hex = "a9cd17988588550568fb7c924daf533d47292b931609fa1c168b7e3e70c110df"
)

var (
	tokenAddress = common.HexToAddress("0x000000000000000000000000000000000000beef")
	destination0 = common.HexToAddress("0xabcd0000000000000000000000000000000000cd")
	destination2 = common.HexToAddress("0x2222222222222222222222222222222222222222")
	oneEther     = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

func mustBig(t *testing.T, hexStr string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(hexStr, 16)
	require.True(t, ok)
	return v
}

func mustHash(t *testing.T, hexStr string) [accounttree.KeyLen]byte {
	t.Helper()
	raw, err := hex.DecodeString(hexStr)
	require.NoError(t, err)
	var h [accounttree.KeyLen]byte
	copy(h[:], raw)
	return h
}

func vaultProofForLeaf0(t *testing.T) []*big.Int {
	return []*big.Int{
		big.NewInt(0x12345), big.NewInt(1), big.NewInt(5),
		mustBig(t, vaultLeaf1Hex), big.NewInt(0),
		mustBig(t, vaultNode23Hex), big.NewInt(0),
		mustBig(t, vaultRootHex),
	}
}

func vaultProofForLeaf2(t *testing.T) []*big.Int {
	return []*big.Int{
		big.NewInt(0xbcdef), big.NewInt(2), big.NewInt(11),
		mustBig(t, vaultLeaf3Hex), big.NewInt(0),
		mustBig(t, vaultNode01Hex), big.NewInt(1),
		mustBig(t, vaultRootHex),
	}
}

func accountProofForLeaf0(t *testing.T) [][accounttree.KeyLen]byte {
	return [][accounttree.KeyLen]byte{
		mustHash(t, accountLeaf1Hex),
		mustHash(t, accountNode23Hex),
	}
}

func accountProofForLeaf2(t *testing.T) [][accounttree.KeyLen]byte {
	return [][accounttree.KeyLen]byte{
		mustHash(t, accountLeaf3Hex),
		mustHash(t, accountNode01Hex),
	}
}

// backendMock backs every narrow dependency of the disburser with in-memory
// state. Claim and disbursement writes stay pending until Commit.
type backendMock struct {
	vaultRoot   *big.Int
	accountRoot [accounttree.KeyLen]byte

	claimed             map[[claims.KeyLen]byte]struct{}
	pendingClaims       map[[claims.KeyLen]byte]struct{}
	disbursements       []etherman.Disbursement
	pendingDisbursement *etherman.Disbursement
	associations        map[string]etherman.TokenAssociation

	transfers   int
	transferErr error

	begun, committed, rolledBack int
}

func newBackendMock(t *testing.T) *backendMock {
	return &backendMock{
		vaultRoot:   mustBig(t, vaultRootHex),
		accountRoot: mustHash(t, accountRootHex),
		claimed:     make(map[[claims.KeyLen]byte]struct{}),
		associations: map[string]etherman.TokenAssociation{
			"1": {AssetID: big.NewInt(1), Quantum: oneEther, Destination: tokenAddress},
		},
	}
}

func (b *backendMock) GetVaultRoot(ctx context.Context) (*big.Int, error) {
	return b.vaultRoot, nil
}

func (b *backendMock) GetAccountRoot(ctx context.Context) ([accounttree.KeyLen]byte, error) {
	return b.accountRoot, nil
}

func (b *backendMock) IsClaimed(ctx context.Context, ownerKey, assetID *big.Int, dbTx pgx.Tx) (bool, error) {
	_, ok := b.claimed[claims.Key(ownerKey, assetID)]
	return ok, nil
}

func (b *backendMock) Register(ctx context.Context, ownerKey, assetID *big.Int, dbTx pgx.Tx) error {
	key := claims.Key(ownerKey, assetID)
	if _, ok := b.claimed[key]; ok {
		return gerror.ErrAlreadyClaimed
	}
	b.pendingClaims[key] = struct{}{}
	return nil
}

func (b *backendMock) GetTokenAssociation(ctx context.Context, assetID *big.Int) (*etherman.TokenAssociation, error) {
	association, ok := b.associations[assetID.String()]
	if !ok {
		return nil, gerror.ErrStorageNotFound
	}
	return &association, nil
}

func (b *backendMock) Transfer(ctx context.Context, token, to common.Address, amount *big.Int) (common.Hash, error) {
	if b.transferErr != nil {
		return common.Hash{}, b.transferErr
	}
	b.transfers++
	return common.HexToHash("0x0101"), nil
}

func (b *backendMock) AddDisbursement(ctx context.Context, disbursement *etherman.Disbursement, dbTx pgx.Tx) error {
	b.pendingDisbursement = disbursement
	return nil
}

func (b *backendMock) BeginDBTransaction(ctx context.Context) (pgx.Tx, error) {
	b.begun++
	b.pendingClaims = make(map[[claims.KeyLen]byte]struct{})
	return nil, nil
}

func (b *backendMock) Commit(ctx context.Context, dbTx pgx.Tx) error {
	b.committed++
	for key := range b.pendingClaims {
		b.claimed[key] = struct{}{}
	}
	b.pendingClaims = nil
	if b.pendingDisbursement != nil {
		b.disbursements = append(b.disbursements, *b.pendingDisbursement)
		b.pendingDisbursement = nil
	}
	return nil
}

func (b *backendMock) Rollback(ctx context.Context, dbTx pgx.Tx) error {
	b.rolledBack++
	b.pendingClaims = nil
	b.pendingDisbursement = nil
	return nil
}

func newTestDisburser(backend *backendMock) *Disburser {
	vault := vaulttree.NewVerifier(starkcrypto.NewTableHasher())
	return NewDisburser(backend, backend, backend, backend, vault, backend)
}

func TestDisburse(t *testing.T) {
	ctx := context.Background()
	backend := newBackendMock(t)
	d := newTestDisburser(backend)

	disbursement, err := d.Disburse(ctx, big.NewInt(0x12345), destination0, big.NewInt(1),
		accountProofForLeaf0(t), vaultProofForLeaf0(t))
	require.NoError(t, err)

	// 5 quantized units scaled by a quantum of 10^18
	expected := new(big.Int).Mul(big.NewInt(5), oneEther)
	assert.Equal(t, expected, disbursement.Amount)
	assert.Equal(t, destination0, disbursement.Destination)
	assert.Equal(t, common.HexToHash("0x0101"), disbursement.TxHash)
	assert.Equal(t, 1, backend.transfers)
	assert.Equal(t, 1, backend.committed)
	require.Len(t, backend.disbursements, 1)
}

func TestDisburseAtMostOnce(t *testing.T) {
	ctx := context.Background()
	backend := newBackendMock(t)
	d := newTestDisburser(backend)

	_, err := d.Disburse(ctx, big.NewInt(0x12345), destination0, big.NewInt(1),
		accountProofForLeaf0(t), vaultProofForLeaf0(t))
	require.NoError(t, err)

	_, err = d.Disburse(ctx, big.NewInt(0x12345), destination0, big.NewInt(1),
		accountProofForLeaf0(t), vaultProofForLeaf0(t))
	assert.ErrorIs(t, err, gerror.ErrAlreadyClaimed)
	assert.Equal(t, 1, backend.transfers)
}

func TestDisburseRejectsBadAccountProof(t *testing.T) {
	ctx := context.Background()
	backend := newBackendMock(t)
	d := newTestDisburser(backend)

	// valid vault proof, but the destination is not the proven one
	_, err := d.Disburse(ctx, big.NewInt(0x12345), destination2, big.NewInt(1),
		accountProofForLeaf0(t), vaultProofForLeaf0(t))
	var accountErr *gerror.InvalidAccountProofError
	require.ErrorAs(t, err, &accountErr)
	assert.Equal(t, 0, backend.transfers)
	assert.Equal(t, 0, backend.begun)
}

func TestDisburseRejectsUncommittedVaultRoot(t *testing.T) {
	ctx := context.Background()
	backend := newBackendMock(t)
	backend.vaultRoot = big.NewInt(0x1234)
	d := newTestDisburser(backend)

	_, err := d.Disburse(ctx, big.NewInt(0x12345), destination0, big.NewInt(1),
		accountProofForLeaf0(t), vaultProofForLeaf0(t))
	var vaultErr *gerror.InvalidVaultProofError
	require.ErrorAs(t, err, &vaultErr)
	assert.Equal(t, "path does not reach the committed root", vaultErr.Reason)
	assert.Equal(t, 0, backend.transfers)
}

func TestDisburseRejectsLeafMismatch(t *testing.T) {
	ctx := context.Background()
	backend := newBackendMock(t)
	backend.associations["2"] = etherman.TokenAssociation{
		AssetID: big.NewInt(2), Quantum: big.NewInt(1), Destination: tokenAddress,
	}
	d := newTestDisburser(backend)

	// vault proof proves asset 1, the request claims asset 2
	_, err := d.Disburse(ctx, big.NewInt(0x12345), destination0, big.NewInt(2),
		accountProofForLeaf0(t), vaultProofForLeaf0(t))
	var vaultErr *gerror.InvalidVaultProofError
	require.ErrorAs(t, err, &vaultErr)
	assert.Equal(t, "proven leaf does not match the request", vaultErr.Reason)
	assert.Equal(t, 0, backend.transfers)
}

func TestDisburseRejectsOutOfRangeIdentifiers(t *testing.T) {
	ctx := context.Background()
	backend := newBackendMock(t)
	d := newTestDisburser(backend)

	// keys at or beyond the field, negative, zero and one full word wide
	// must be rejected up front, before the claim key is derived from them
	badOwners := []*big.Int{
		nil,
		big.NewInt(0),
		big.NewInt(-0x12345),
		mustBig(t, "800000000000011000000000000000000000000000000000000000000000001"),
		new(big.Int).Lsh(big.NewInt(1), 256),
	}
	for _, owner := range badOwners {
		_, err := d.Disburse(ctx, owner, destination0, big.NewInt(1),
			accountProofForLeaf0(t), vaultProofForLeaf0(t))
		var accountErr *gerror.InvalidAccountProofError
		require.ErrorAs(t, err, &accountErr, "owner %s", owner)
		assert.Equal(t, "invalid owner key", accountErr.Reason)
	}

	badAssets := []*big.Int{
		nil,
		big.NewInt(0),
		big.NewInt(-1),
		new(big.Int).Lsh(big.NewInt(1), 256),
	}
	for _, asset := range badAssets {
		_, err := d.Disburse(ctx, big.NewInt(0x12345), destination0, asset,
			accountProofForLeaf0(t), vaultProofForLeaf0(t))
		var vaultErr *gerror.InvalidVaultProofError
		require.ErrorAs(t, err, &vaultErr, "asset %s", asset)
	}
	assert.Equal(t, 0, backend.transfers)
	assert.Equal(t, 0, backend.begun)
}

func TestDisburseUnmappedAsset(t *testing.T) {
	ctx := context.Background()
	backend := newBackendMock(t)
	d := newTestDisburser(backend)

	// both proofs check out but asset 2 has no registered token
	_, err := d.Disburse(ctx, big.NewInt(0xbcdef), destination2, big.NewInt(2),
		accountProofForLeaf2(t), vaultProofForLeaf2(t))
	assert.ErrorIs(t, err, gerror.ErrAssetNotMapped)
	assert.Equal(t, 0, backend.transfers)
	assert.Equal(t, 0, backend.begun)
}

func TestDisburseTransferFailureLeavesNoClaim(t *testing.T) {
	ctx := context.Background()
	backend := newBackendMock(t)
	backend.transferErr = errors.New("transaction reverted")
	d := newTestDisburser(backend)

	_, err := d.Disburse(ctx, big.NewInt(0x12345), destination0, big.NewInt(1),
		accountProofForLeaf0(t), vaultProofForLeaf0(t))
	require.ErrorIs(t, err, backend.transferErr)
	assert.Equal(t, 1, backend.rolledBack)
	assert.Equal(t, 0, backend.committed)

	claimed, err := backend.IsClaimed(ctx, big.NewInt(0x12345), big.NewInt(1), nil)
	require.NoError(t, err)
	assert.False(t, claimed)

	// the pair stays payable once the transfer path recovers
	backend.transferErr = nil
	disbursement, err := d.Disburse(ctx, big.NewInt(0x12345), destination0, big.NewInt(1),
		accountProofForLeaf0(t), vaultProofForLeaf0(t))
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Mul(big.NewInt(5), oneEther), disbursement.Amount)
	assert.Empty(t, backend.pendingDisbursement)
	require.Len(t, backend.disbursements, 1)
}
