package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fans3-backend/internal/domain/chat"
	"fans3-backend/internal/features/registration/models"
	"fans3-backend/internal/store"
	"fans3-backend/internal/store/memory"
)

type fakeTransport struct {
	roles          map[int64]chat.Role
	invitesEnabled bool
	disableCalls   int
	linkCalls      int
}

func (f *fakeTransport) MemberRole(_ context.Context, _ int64, userID int64) (chat.Role, error) {
	if role, ok := f.roles[userID]; ok {
		return role, nil
	}
	return chat.RoleMember, nil
}

func (f *fakeTransport) MemberInvitesEnabled(_ context.Context, _ int64) (bool, error) {
	return f.invitesEnabled, nil
}

func (f *fakeTransport) DisableMemberInvites(_ context.Context, _ int64) error {
	f.disableCalls++
	f.invitesEnabled = false
	return nil
}

func (f *fakeTransport) CreateJoinRequestLink(_ context.Context, chatID int64) (string, error) {
	f.linkCalls++
	return fmt.Sprintf("https://t.me/+invite%d", chatID), nil
}

type fakeSupply struct {
	supply map[string]*big.Int
	err    error
}

func (f *fakeSupply) SharesSupply(_ context.Context, subject common.Address) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	if s, ok := f.supply[subject.Hex()]; ok {
		return s, nil
	}
	return big.NewInt(0), nil
}

const (
	ownerUserID = int64(100)
	otherUserID = int64(200)
)

var (
	groupInfo = chat.Info{ID: -100555, Type: "supergroup", Title: "Test Group"}
	ownerAddr = common.HexToAddress("0x00000000000000000000000000000000000000CC").Hex()
	otherAddr = common.HexToAddress("0x00000000000000000000000000000000000000DD").Hex()
)

func newFixture() (*Service, store.Store, *fakeTransport, *fakeSupply) {
	st := memory.New()
	transport := &fakeTransport{roles: map[int64]chat.Role{ownerUserID: chat.RoleOwner}}
	supply := &fakeSupply{supply: map[string]*big.Int{}}
	return NewService(st, supply, transport), st, transport, supply
}

func TestHandlePromotionNotAdmin(t *testing.T) {
	svc, _, _, _ := newFixture()

	res, err := svc.HandlePromotion(context.Background(), groupInfo, false, ownerUserID)
	require.NoError(t, err)
	assert.Equal(t, models.StateNotAdmin, res.State)
	assert.Equal(t, []models.Prompt{models.PromptPromoteBot}, res.Prompts)
}

func TestHandlePromotionLocksDownInvites(t *testing.T) {
	svc, _, transport, _ := newFixture()
	transport.invitesEnabled = true

	res, err := svc.HandlePromotion(context.Background(), groupInfo, true, ownerUserID)
	require.NoError(t, err)
	assert.Equal(t, 1, transport.disableCalls)
	assert.Contains(t, res.Prompts, models.PromptInvitesDisabled)
	assert.Contains(t, res.Prompts, models.PromptEnterAddress)
	assert.Equal(t, models.StatePendingOwnerAddress, res.State)
}

func TestHandlePromotionNonOwnerActor(t *testing.T) {
	svc, _, _, _ := newFixture()

	res, err := svc.HandlePromotion(context.Background(), groupInfo, true, otherUserID)
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingOwnerAddress, res.State)
	assert.Equal(t, []models.Prompt{models.PromptOwnerMustStart}, res.Prompts)

	// The owner was never prompted, so group messages are not consumed.
	_, handled, err := svc.HandleOwnerAddress(context.Background(), groupInfo, ownerUserID, ownerAddr)
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestHandleOwnerAddressRejectsNonOwner(t *testing.T) {
	svc, _, _, _ := newFixture()

	_, err := svc.HandlePromotion(context.Background(), groupInfo, true, ownerUserID)
	require.NoError(t, err)

	res, handled, err := svc.HandleOwnerAddress(context.Background(), groupInfo, otherUserID, ownerAddr)
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, []models.Prompt{models.PromptOnlyOwner}, res.Prompts)
}

func TestHandleOwnerAddressRejectsMalformedAddress(t *testing.T) {
	svc, st, _, _ := newFixture()

	_, err := svc.HandlePromotion(context.Background(), groupInfo, true, ownerUserID)
	require.NoError(t, err)

	res, handled, err := svc.HandleOwnerAddress(context.Background(), groupInfo, ownerUserID, "not-an-address")
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, []models.Prompt{models.PromptInvalidAddress}, res.Prompts)

	// Still awaiting: the owner can retry.
	_, handled, err = svc.HandleOwnerAddress(context.Background(), groupInfo, ownerUserID, "still wrong")
	require.NoError(t, err)
	assert.True(t, handled)

	_, bound, err := st.Get(context.Background(), store.ChatAddressKey(groupInfo.ID))
	require.NoError(t, err)
	assert.False(t, bound)
}

func TestRegistrationWaitsForFirstSale(t *testing.T) {
	svc, st, transport, supply := newFixture()

	_, err := svc.HandlePromotion(context.Background(), groupInfo, true, ownerUserID)
	require.NoError(t, err)

	res, handled, err := svc.HandleOwnerAddress(context.Background(), groupInfo, ownerUserID, ownerAddr)
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, models.StatePendingFirstSale, res.State)
	assert.Equal(t, ownerAddr, res.Address)

	// Not listed while supply is zero.
	_, cached, err := st.Get(context.Background(), store.ChatInfoKey(groupInfo.ID))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Zero(t, transport.linkCalls)

	// Re-checking before the first sale does not advance.
	res, err = svc.CheckFirstSale(context.Background(), groupInfo)
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingFirstSale, res.State)

	// First share bought.
	supply.supply[ownerAddr] = big.NewInt(1)
	res, err = svc.CheckFirstSale(context.Background(), groupInfo)
	require.NoError(t, err)
	assert.Equal(t, models.StateReady, res.State)

	serialized, cached, err := st.Get(context.Background(), store.ChatInfoKey(groupInfo.ID))
	require.NoError(t, err)
	require.True(t, cached)
	info, err := chat.UnmarshalInfo(serialized)
	require.NoError(t, err)
	assert.Equal(t, groupInfo, info)

	link, cached, err := st.Get(context.Background(), store.ChatLinkKey(groupInfo.ID))
	require.NoError(t, err)
	require.True(t, cached)
	assert.NotEmpty(t, link)

	// A second pass reuses the cached link.
	_, err = svc.CheckFirstSale(context.Background(), groupInfo)
	require.NoError(t, err)
	assert.Equal(t, 1, transport.linkCalls)
}

func TestBindChatAddressPrunesPreviousHolderSet(t *testing.T) {
	svc, st, _, _ := newFixture()
	ctx := context.Background()

	require.NoError(t, svc.BindChatAddress(ctx, groupInfo.ID, ownerAddr))
	require.NoError(t, svc.BindChatAddress(ctx, groupInfo.ID, otherAddr))

	_, ok, err := st.Get(ctx, store.AddressChatKey(ownerAddr, groupInfo.ID))
	require.NoError(t, err)
	assert.False(t, ok, "entry for the previous address must be pruned")

	_, ok, err = st.Get(ctx, store.AddressChatKey(otherAddr, groupInfo.ID))
	require.NoError(t, err)
	assert.True(t, ok)

	current, ok, err := st.Get(ctx, store.ChatAddressKey(groupInfo.ID))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, otherAddr, current)
}

func TestBindChatAddressSameAddressIsStable(t *testing.T) {
	svc, st, _, _ := newFixture()
	ctx := context.Background()

	require.NoError(t, svc.BindChatAddress(ctx, groupInfo.ID, ownerAddr))
	require.NoError(t, svc.BindChatAddress(ctx, groupInfo.ID, ownerAddr))

	_, ok, err := st.Get(ctx, store.AddressChatKey(ownerAddr, groupInfo.ID))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRebindReentersPendingFirstSale(t *testing.T) {
	svc, _, _, supply := newFixture()
	ctx := context.Background()
	supply.supply[ownerAddr] = big.NewInt(2)

	require.NoError(t, svc.BindChatAddress(ctx, groupInfo.ID, ownerAddr))
	res, err := svc.CheckFirstSale(ctx, groupInfo)
	require.NoError(t, err)
	require.Equal(t, models.StateReady, res.State)

	// The replacement address has no supply yet; the chat drops out of
	// Ready until its first sale.
	require.NoError(t, svc.BindChatAddress(ctx, groupInfo.ID, otherAddr))
	res, err = svc.CheckFirstSale(ctx, groupInfo)
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingFirstSale, res.State)
	assert.Equal(t, otherAddr, res.Address)
}

func TestCheckFirstSaleSupplyUnavailable(t *testing.T) {
	svc, _, _, supply := newFixture()
	ctx := context.Background()
	require.NoError(t, svc.BindChatAddress(ctx, groupInfo.ID, ownerAddr))

	supply.err = errors.New("rpc: timeout")
	_, err := svc.CheckFirstSale(ctx, groupInfo)
	assert.Error(t, err)
}
