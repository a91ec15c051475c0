package chaindata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"credshield-go/internal/models"
	"credshield-go/internal/snapshot"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wallet = common.HexToAddress("0x1000000000000000000000000000000000000001")

type rpcRequest struct {
	Id     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type fakeNode struct {
	mu         sync.Mutex
	calls      []string
	transfers  []assetTransfersParams
	failMethod string
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.calls = append(n.calls, req.Method)
	n.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.Id}
	if req.Method == n.failMethod {
		resp["error"] = map[string]any{"code": -32000, "message": "provider unavailable"}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	switch req.Method {
	case "eth_getBalance":
		resp["result"] = "0x22b1c8c1227a0000" // 2.5 BNB
	case "eth_getTransactionCount":
		resp["result"] = "0x2a"
	case "nr_getAssetTransfers":
		var params assetTransfersParams
		_ = json.Unmarshal(req.Params[0], &params)
		n.mu.Lock()
		n.transfers = append(n.transfers, params)
		n.mu.Unlock()
		if params.FromAddress != "" {
			resp["result"] = json.RawMessage(`{"transfers":[
				{"category":"external","blockNum":"0x10","blockTimeStamp":1700000000,"hash":"0xaa","from":"` + wallet.Hex() + `",
				 "to":"0x10ED43C718714eb63d5aA57B78B54704E256024E","value":"0xde0b6b3a7640000","gasUsed":21000,
				 "receiptsStatus":1,"input":"0x7ff36ab5000000"},
				{"category":"20","blockNum":"0x11","blockTimeStamp":"1700000100","hash":"0xbb","from":"` + wallet.Hex() + `",
				 "to":"0x2000000000000000000000000000000000000002","value":"0x64","asset":"USDT",
				 "contractAddress":"0x55d398326f99059fF775485246999027B3197955","decimal":null}
			]}`)
		} else {
			resp["result"] = json.RawMessage(`{"transfers":[
				{"category":"internal","blockNum":"0x12","blockTimeStamp":1700000200,"hash":"0xcc","from":"0x3000000000000000000000000000000000000003",
				 "to":"` + wallet.Hex() + `","value":"0x1"}
			]}`)
		}
	default:
		resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestClient(t *testing.T, node *fakeNode) *Client {
	t.Helper()
	server := httptest.NewServer(node)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), models.ChainConfig{
		RPCURL:            server.URL,
		TransfersMaxCount: 50,
		RequestTimeout:    5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := NewClient(context.Background(), models.ChainConfig{})
	assert.Error(t, err)
}

func TestFetchRaw(t *testing.T) {
	node := &fakeNode{}
	client := newTestClient(t, node)

	raw, err := client.FetchRaw(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, "2500000000000000000", raw.Balance)
	assert.Equal(t, "42", raw.Nonce)
	require.Len(t, raw.Transfers, 3)

	assert.Equal(t, "1700000000", raw.Transfers[0].BlockTimeStamp)
	assert.Equal(t, "1", raw.Transfers[0].ReceiptsStatus)
	assert.Equal(t, "21000", raw.Transfers[0].GasUsed)
	assert.Equal(t, "1700000100", raw.Transfers[1].BlockTimeStamp)
	assert.Equal(t, "", raw.Transfers[1].Decimal)
	assert.Equal(t, "internal", raw.Transfers[2].Category)

	require.Len(t, node.transfers, 2)
	for _, p := range node.transfers {
		assert.Equal(t, "0x32", p.MaxCount)
		assert.Equal(t, []string{"external", "internal", "20"}, p.Category)
	}
	assert.ElementsMatch(t, []string{"eth_getBalance", "eth_getTransactionCount", "nr_getAssetTransfers", "nr_getAssetTransfers"}, node.calls)
}

func TestFetchRaw_ProviderError(t *testing.T) {
	client := newTestClient(t, &fakeNode{failMethod: "nr_getAssetTransfers"})

	_, err := client.FetchRaw(context.Background(), wallet)
	assert.ErrorIs(t, err, snapshot.ErrDataUnavailable)
}

func TestFetcher_BuildsSnapshot(t *testing.T) {
	client := newTestClient(t, &fakeNode{})
	asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	snap, err := NewFetcher(client).FetchActivitySnapshot(context.Background(), wallet, asOf)
	require.NoError(t, err)
	assert.Equal(t, wallet, snap.Address)
	assert.Equal(t, asOf, snap.AsOf)
	assert.Equal(t, uint64(42), snap.Nonce)
	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, "0x7ff36ab5", snap.Transactions[0].Selector)
	assert.True(t, snap.Transactions[0].Succeeded)
	require.Len(t, snap.TokenTransfers, 1)
	assert.Equal(t, 18, snap.TokenTransfers[0].TokenDecimals)
	assert.Len(t, snap.InternalTxs, 1)
}

type failingSource struct{}

func (failingSource) FetchRaw(context.Context, common.Address) (models.RawActivity, error) {
	return models.RawActivity{}, snapshot.ErrDataUnavailable
}

func TestFetcher_PropagatesUnavailable(t *testing.T) {
	_, err := NewFetcher(failingSource{}).FetchActivitySnapshot(context.Background(), wallet, time.Now())
	assert.ErrorIs(t, err, snapshot.ErrDataUnavailable)
}

func TestFlexString(t *testing.T) {
	var v struct {
		A flexString `json:"a"`
		B flexString `json:"b"`
		C flexString `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"0x10","b":1700000000,"c":null}`), &v))
	assert.Equal(t, flexString("0x10"), v.A)
	assert.Equal(t, flexString("1700000000"), v.B)
	assert.Equal(t, flexString(""), v.C)
}
