package registry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/pkg/errors"
)

var (
	registryAddr = common.HexToAddress("0x2000000000000000000000000000000000000002")
	admin        = common.HexToAddress("0xa000000000000000000000000000000000000001")
	seller       = common.HexToAddress("0x5e11e00000000000000000000000000000000001")
	buyer        = common.HexToAddress("0xb0b0000000000000000000000000000000000001")
	escrow       = common.HexToAddress("0xe5c0000000000000000000000000000000000001")
)

func newTestRegistry(t *testing.T) *Memory {
	t.Helper()
	r := New(registryAddr, admin)
	assert.NoError(t, r.Mint(admin, seller, 1))
	assert.NoError(t, r.AddCustodian(admin, escrow))
	return r
}

func TestMint(t *testing.T) {
	r := newTestRegistry(t)

	owner, err := r.OwnerOf(1)
	check.NoError(t, err)
	check.Equal(t, seller, owner)
	check.Equal(t, 1, r.BalanceOf(seller))

	check.True(t, errors.Is(r.Mint(admin, buyer, 1), ErrAssetExists))
	check.True(t, errors.Is(r.Mint(seller, buyer, 2), ErrNotAdmin))
	check.True(t, errors.Is(r.Mint(admin, buyer, 0), ErrInvalidAsset))

	_, err = r.OwnerOf(99)
	check.True(t, errors.Is(err, ErrNonexistentAsset))
}

func TestCustodianNeedsRoleAndApproval(t *testing.T) {
	r := newTestRegistry(t)

	check.False(t, r.IsAuthorizedCustodian(escrow, 1))

	assert.NoError(t, r.Approve(seller, escrow, 1))
	check.True(t, r.IsAuthorizedCustodian(escrow, 1))

	// approval alone is not enough
	assert.NoError(t, r.Approve(seller, buyer, 1))
	check.False(t, r.IsAuthorizedCustodian(buyer, 1))

	check.True(t, errors.Is(r.Approve(buyer, escrow, 1), ErrNotAssetOwner))
	check.False(t, r.IsAuthorizedCustodian(escrow, 99))
}

func TestTransferCustody(t *testing.T) {
	r := newTestRegistry(t)

	err := r.TransferCustody(escrow, seller, escrow, 1)
	check.True(t, errors.Is(err, ErrNotApproved))

	assert.NoError(t, r.Approve(seller, escrow, 1))
	err = r.TransferCustody(escrow, buyer, escrow, 1)
	check.True(t, errors.Is(err, ErrNotAssetOwner))

	assert.NoError(t, r.TransferCustody(escrow, seller, escrow, 1))
	owner, _ := r.OwnerOf(1)
	check.Equal(t, escrow, owner)
	check.Equal(t, common.Address{}, r.Approved(1))
	check.Equal(t, 0, r.BalanceOf(seller))
	check.Equal(t, 1, r.BalanceOf(escrow))

	// the holder moves its own asset without approval
	assert.NoError(t, r.TransferCustody(escrow, escrow, buyer, 1))
	owner, _ = r.OwnerOf(1)
	check.Equal(t, buyer, owner)
	check.False(t, r.IsAuthorizedCustodian(escrow, 1))
}

func TestTransferCustodyRequiresRole(t *testing.T) {
	r := newTestRegistry(t)
	assert.NoError(t, r.Approve(seller, buyer, 1))

	err := r.TransferCustody(buyer, seller, buyer, 1)
	check.True(t, errors.Is(err, ErrNotCustodian))

	assert.NoError(t, r.AddCustodian(admin, buyer))
	check.NoError(t, r.TransferCustody(buyer, seller, buyer, 1))

	assert.NoError(t, r.RemoveCustodian(admin, buyer))
	check.False(t, r.IsAuthorizedCustodian(buyer, 1))
}
