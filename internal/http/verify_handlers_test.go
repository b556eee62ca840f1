package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	bindingmodels "fans3-backend/internal/features/binding/models"
	bindingservice "fans3-backend/internal/features/binding/service"
	listingmodels "fans3-backend/internal/features/listing/models"
	"fans3-backend/internal/store/memory"
)

type stubListing struct {
	groups []listingmodels.Group
	err    error
}

func (s *stubListing) KnownGroups(context.Context) ([]listingmodels.Group, error) {
	return s.groups, s.err
}

var handlerNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T, handler *VerifyHandler, user *initdata.User) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if user != nil {
		r.Use(func(c *gin.Context) {
			c.Set("telegram_user", *user)
			c.Next()
		})
	}
	r.GET("/api/v1/groups", handler.ListGroups)
	r.POST("/api/v1/verify/message", handler.IssueMessage)
	r.POST("/api/v1/verify/claim", handler.SubmitClaim)
	return r
}

func TestIssueMessage(t *testing.T) {
	handler := NewVerifyHandler(nil, &stubListing{})
	handler.now = func() time.Time { return handlerNow }
	router := newTestRouter(t, handler, &initdata.User{ID: 42, Username: "alice"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/verify/message", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Message  string `json:"message"`
		IssuedAt string `json:"issued_at"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2024-03-01T12:00:00Z", resp.IssuedAt)
	assert.Equal(t, bindingmodels.CanonicalMessage("alice", 42, resp.IssuedAt), resp.Message)
}

func TestIssueMessageUnauthenticated(t *testing.T) {
	handler := NewVerifyHandler(nil, &stubListing{})
	router := newTestRouter(t, handler, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/verify/message", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitClaimBindsAddress(t *testing.T) {
	binding := bindingservice.NewService(memory.New())
	handler := NewVerifyHandler(binding, &stubListing{})
	router := newTestRouter(t, handler, &initdata.User{ID: 42, Username: "alice"})

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	issuedAt := time.Now().UTC().Format(time.RFC3339)
	message := bindingmodels.CanonicalMessage("alice", 42, issuedAt)
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	code := base64.StdEncoding.EncodeToString([]byte(issuedAt)) +
		bindingmodels.Delimiter +
		base64.StdEncoding.EncodeToString(sig)

	body, err := json.Marshal(map[string]string{"code": code})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify/claim", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Address string `json:"address"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey).Hex(), resp.Address)
}

func TestSubmitClaimRejectsBadClaim(t *testing.T) {
	binding := bindingservice.NewService(memory.New())
	handler := NewVerifyHandler(binding, &stubListing{})
	router := newTestRouter(t, handler, &initdata.User{ID: 42, Username: "alice"})

	body, err := json.Marshal(map[string]string{"code": "garbage"})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify/claim", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "MALFORMED_CLAIM", resp.Code)
}

func TestSubmitClaimMissingCode(t *testing.T) {
	handler := NewVerifyHandler(bindingservice.NewService(memory.New()), &stubListing{})
	router := newTestRouter(t, handler, &initdata.User{ID: 42, Username: "alice"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify/claim", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListGroups(t *testing.T) {
	listing := &stubListing{groups: []listingmodels.Group{
		{ChatID: -100, Title: "Alpha", Address: "0xAA", PriceWei: big.NewInt(1_000_000_000_000_000)},
		{ChatID: -200, Title: "Beta", Address: "0xBB"},
	}}
	handler := NewVerifyHandler(nil, listing)
	router := newTestRouter(t, handler, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/groups", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Groups []struct {
			ChatID   int64  `json:"chat_id"`
			Title    string `json:"title"`
			PriceEth string `json:"price_eth"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Groups, 2)
	assert.Equal(t, "Alpha", resp.Groups[0].Title)
	assert.Equal(t, "0.001000", resp.Groups[0].PriceEth)
	assert.Empty(t, resp.Groups[1].PriceEth)
}
