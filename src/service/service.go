package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/mosaicnetworks/gossipledger/src/common"
	"github.com/mosaicnetworks/gossipledger/src/hashgraph"
	"github.com/mosaicnetworks/gossipledger/src/ledger"
	"github.com/mosaicnetworks/gossipledger/src/node"
	"github.com/sirupsen/logrus"
)

// Service exposes a node over an HTTP API
type Service struct {
	bindAddress string
	node        *node.Node
	router      *mux.Router
	server      *http.Server
	logger      *logrus.Entry
}

// NewService creates a Service and registers its routes. It doesn't listen
// until Serve is called.
func NewService(bindAddress string, n *node.Node, logger *logrus.Entry) *Service {
	service := &Service{
		bindAddress: bindAddress,
		node:        n,
		router:      mux.NewRouter(),
		logger:      logger,
	}

	service.registerHandlers()

	service.server = &http.Server{
		Addr:    bindAddress,
		Handler: service.router,
	}

	return service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering API handlers")

	r := s.router
	r.HandleFunc("/stats", s.makeHandler(s.GetStats)).Methods("GET")
	r.HandleFunc("/peers", s.makeHandler(s.GetPeers)).Methods("GET")
	r.HandleFunc("/events/{index:[0-9]+}", s.makeHandler(s.GetEvent)).Methods("GET")
	r.HandleFunc("/accounts", s.makeHandler(s.GetAccounts)).Methods("GET")
	r.HandleFunc("/accounts/{address}", s.makeHandler(s.GetAccount)).Methods("GET")
	r.HandleFunc("/receipts/{index:[0-9]+}", s.makeHandler(s.GetReceipt)).Methods("GET")
	r.HandleFunc("/transfers", s.makeHandler(s.PostTransfer)).Methods("POST")
	r.Handle("/metrics", s.node.GetMetrics().Handler()).Methods("GET")
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the HTTP handler serving the API
func (s *Service) Handler() http.Handler {
	return s.router
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving API")

	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error(err)
	}
}

// Shutdown stops the HTTP server, waiting at most timeout for active requests
func (s *Service) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return s.server.Shutdown(ctx)
}

/*******************************************************************************
Handlers
*******************************************************************************/

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.node.GetStats())
}

// GetPeers ...
func (s *Service) GetPeers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.node.GetPeers())
}

// EventView is the JSON representation of a consensus event
type EventView struct {
	Hash          string
	Body          hashgraph.EventBody
	Signature     string
	Round         *int
	Witness       bool
	RoundReceived *int
	Timestamp     *int64
	Index         *int
}

func newEventView(ev *hashgraph.Event) EventView {
	return EventView{
		Hash:          ev.Hex(),
		Body:          ev.Body,
		Signature:     ev.Signature,
		Round:         ev.GetRound(),
		Witness:       ev.IsWitness(),
		RoundReceived: ev.GetRoundReceived(),
		Timestamp:     ev.GetConsensusTimestamp(),
		Index:         ev.GetIndex(),
	}
}

// GetEvent returns the event at a given index in the total order
func (s *Service) GetEvent(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	ev, err := s.node.GetConsensusEvent(index)
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, newEventView(ev))
}

// GetAccounts ...
func (s *Service) GetAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.node.GetAccounts()
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, accounts)
}

// GetAccount ...
func (s *Service) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.node.GetAccount(mux.Vars(r)["address"])
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, account)
}

// GetReceipt ...
func (s *Service) GetReceipt(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	receipt, err := s.node.GetReceipt(index)
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, receipt)
}

// TransferRequest is the body of POST /transfers
type TransferRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// PostTransfer submits a transfer from the node's account
func (s *Service) PostTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	tx, err := s.node.SubmitTransfer(req.To, req.Amount)
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, tx)
}

/*******************************************************************************
Helpers
*******************************************************************************/

func statusOf(err error) int {
	switch {
	case common.IsStore(err, common.KeyNotFound), common.IsStore(err, common.TooLate):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidAddress), errors.Is(err, ledger.ErrZeroAmount):
		return http.StatusBadRequest
	case errors.Is(err, node.ErrShutdown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Encoding response")
	}
}

func (s *Service) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.WithError(err).Debug("API error")
	http.Error(w, err.Error(), status)
}
