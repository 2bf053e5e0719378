package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mosaicnetworks/gossipledger/src/config"
	"github.com/mosaicnetworks/gossipledger/src/crypto/keys"
	hg "github.com/mosaicnetworks/gossipledger/src/hashgraph"
	"github.com/mosaicnetworks/gossipledger/src/ledger"
	"github.com/mosaicnetworks/gossipledger/src/net"
	"github.com/mosaicnetworks/gossipledger/src/node"
	"github.com/mosaicnetworks/gossipledger/src/peers"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *node.Node, string) {
	conf := config.NewTestConfig(t, logrus.WarnLevel)

	key, err := keys.GenerateECDSAKey()
	require.NoError(t, err)
	pub := keys.PublicKeyHex(&key.PublicKey)

	addr, trans := net.NewInmemTransport("", time.Second)
	roster := peers.NewRoster(peers.NewPeer(pub, addr, "solo"), nil)

	l := ledger.NewLedger(ledger.NewInmemStore(conf.CacheSize), conf.Logger())
	require.NoError(t, l.Genesis([]string{pub}, 1000))

	n, err := node.NewNode(conf,
		node.NewValidator(key, "solo"),
		roster,
		1,
		hg.NewInmemStore(conf.CacheSize),
		l,
		trans)
	require.NoError(t, err)
	require.NoError(t, n.Init())
	t.Cleanup(n.Shutdown)

	return NewService("", n, conf.Logger().WithField("prefix", "service")), n, pub
}

func do(t *testing.T, s *Service, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestGetAccounts(t *testing.T) {
	s, _, pub := newTestService(t)

	rec := do(t, s, "GET", "/accounts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var accounts []ledger.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accounts))
	require.Len(t, accounts, 1)
	assert.Equal(t, pub, accounts[0].Address)
	assert.EqualValues(t, 1000, accounts[0].Balance)

	rec = do(t, s, "GET", "/accounts/"+strings.ToLower(pub), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var account ledger.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	assert.EqualValues(t, 1000, account.Balance)
}

func TestPostTransfer(t *testing.T) {
	s, _, _ := newTestService(t)

	other, err := keys.GenerateECDSAKey()
	require.NoError(t, err)
	to := keys.PublicKeyHex(&other.PublicKey)

	rec := do(t, s, "POST", "/transfers", `{"to":"`+to+`","amount":25}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var tx ledger.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
	assert.EqualValues(t, 25, tx.Body.Amount)
	assert.NotEmpty(t, tx.Body.ID)

	rec = do(t, s, "POST", "/transfers", `{"to":"`+to+`","amount":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, "POST", "/transfers", `{"to":"nowhere","amount":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, "POST", "/transfers", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, "GET", "/transfers", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMissingResources(t *testing.T) {
	s, _, _ := newTestService(t)

	assert.Equal(t, http.StatusNotFound, do(t, s, "GET", "/events/0", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, "GET", "/receipts/3", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, "GET", "/events/abc", "").Code)
}

func TestStatsPeersMetrics(t *testing.T) {
	s, _, pub := newTestService(t)

	rec := do(t, s, "GET", "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "Babbling", stats["state"])

	rec = do(t, s, "GET", "/peers", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var ps []*peers.Peer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ps))
	require.Len(t, ps, 1)
	assert.Equal(t, pub, ps[0].PubKeyHex)

	rec = do(t, s, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gossipledger_transaction_pool")
}
