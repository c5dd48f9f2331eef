package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jankenlabs/jankenchain/core"
	"github.com/jankenlabs/jankenchain/indexer"
	"github.com/jankenlabs/jankenchain/shortid"
)

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	bc      *core.Blockchain
	mempool *core.Mempool
	state   core.State
	indexer *indexer.Indexer
	chainID string // expected chain_id; used to reject cross-chain replay transactions
}

// NewHandler creates an RPC Handler.
func NewHandler(bc *core.Blockchain, mempool *core.Mempool, state core.State, idx *indexer.Indexer, chainID string) *Handler {
	return &Handler{bc: bc, mempool: mempool, state: state, indexer: idx, chainID: chainID}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "getBlockHeight":
		return okResponse(req.ID, h.bc.Height())

	case "getBlock":
		return h.getBlock(req)

	case "getBalance":
		return h.getBalance(req)

	case "getMatch":
		return h.getMatch(req)

	case "getRevealedMoves":
		return h.getRevealedMoves(req)

	case "listPublicMatches":
		return h.listPublicMatches(req)

	case "getMatchesByPlayer":
		return h.getMatchesByPlayer(req)

	case "sendTx":
		return h.sendTx(req)

	case "getMempoolSize":
		return okResponse(req.ID, h.mempool.Size())

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (h *Handler) getBlock(req Request) Response {
	var params struct {
		Hash   string `json:"hash"`
		Height *int64 `json:"height"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}

	var block *core.Block
	var err error
	if params.Hash != "" {
		block, err = h.bc.GetBlock(params.Hash)
	} else if params.Height != nil {
		block, err = h.bc.GetBlockByHeight(*params.Height)
	} else {
		block = h.bc.Tip()
	}
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	if block == nil {
		return errResponse(req.ID, CodeInternalError, "no block found")
	}
	return okResponse(req.ID, block)
}

func (h *Handler) getBalance(req Request) Response {
	var params struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Address == "" {
		return errResponse(req.ID, CodeInvalidParams, "address is required")
	}
	acc, err := h.state.GetAccount(params.Address)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{"address": params.Address, "balance": acc.Balance, "nonce": acc.Nonce})
}

// MatchView is the public snapshot of a match. Commitments and per-player
// reveals stay hidden; only boolean progress flags are exposed so a player
// cannot learn the opponent's move before revealing their own.
type MatchView struct {
	ShortID     string  `json:"short_id"`
	Creator     string  `json:"creator"`
	PlayerOne   string  `json:"player_one"`
	PlayerTwo   *string `json:"player_two,omitempty"`
	Phase       string  `json:"phase"`
	Visibility  string  `json:"visibility"`
	Stake       uint64  `json:"stake"`
	DepositOne  uint64  `json:"deposit_one"`
	DepositTwo  uint64  `json:"deposit_two"`
	CommittedP1 bool    `json:"committed_one"`
	CommittedP2 bool    `json:"committed_two"`
	RevealedP1  bool    `json:"revealed_one"`
	RevealedP2  bool    `json:"revealed_two"`
	Outcome     string  `json:"outcome"`
	Winner      *string `json:"winner,omitempty"`
	CreatedAt   int64   `json:"created_at"`
}

func matchView(m *core.Match) MatchView {
	return MatchView{
		ShortID:     m.ShortID,
		Creator:     m.Creator,
		PlayerOne:   m.PlayerOne,
		PlayerTwo:   m.PlayerTwo,
		Phase:       string(m.Phase),
		Visibility:  string(m.Visibility),
		Stake:       m.Stake,
		DepositOne:  m.DepositOne,
		DepositTwo:  m.DepositTwo,
		CommittedP1: m.CommitmentOne != nil,
		CommittedP2: m.CommitmentTwo != nil,
		RevealedP1:  m.RevealedOne != nil,
		RevealedP2:  m.RevealedTwo != nil,
		Outcome:     string(m.Outcome),
		Winner:      m.Winner,
		CreatedAt:   m.CreatedAt,
	}
}

func (h *Handler) loadMatch(req Request) (*core.Match, *Response) {
	var params struct {
		ShortID string `json:"short_id"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		resp := errResponse(req.ID, CodeInvalidParams, err.Error())
		return nil, &resp
	}
	if !shortid.Valid(params.ShortID) {
		resp := errResponse(req.ID, CodeInvalidParams, fmt.Sprintf("malformed short id %q", params.ShortID))
		return nil, &resp
	}
	m, err := h.state.GetMatch(params.ShortID)
	if errors.Is(err, core.ErrNotFound) {
		resp := errResponse(req.ID, CodeInvalidParams, fmt.Sprintf("match %q not found", params.ShortID))
		return nil, &resp
	}
	if err != nil {
		resp := errResponse(req.ID, CodeInternalError, err.Error())
		return nil, &resp
	}
	return m, nil
}

func (h *Handler) getMatch(req Request) Response {
	m, errResp := h.loadMatch(req)
	if errResp != nil {
		return *errResp
	}
	return okResponse(req.ID, matchView(m))
}

// getRevealedMoves returns both moves, or neither. Until the second reveal
// lands, the response carries revealed=false with no move data at all.
func (h *Handler) getRevealedMoves(req Request) Response {
	m, errResp := h.loadMatch(req)
	if errResp != nil {
		return *errResp
	}
	if m.RevealedOne == nil || m.RevealedTwo == nil {
		return okResponse(req.ID, map[string]any{"short_id": m.ShortID, "revealed": false})
	}
	return okResponse(req.ID, map[string]any{
		"short_id": m.ShortID,
		"revealed": true,
		"move_one": m.RevealedOne.String(),
		"move_two": m.RevealedTwo.String(),
	})
}

// listPublicMatches returns snapshots of all public matches still waiting for
// an opponent, in creation order.
func (h *Handler) listPublicMatches(req Request) Response {
	idx, err := h.state.GetMatchIndex()
	if errors.Is(err, core.ErrNotFound) {
		return okResponse(req.ID, []MatchView{})
	}
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	views := make([]MatchView, 0, len(idx.Public))
	for _, id := range idx.Public {
		m, err := h.state.GetMatch(id)
		if err != nil {
			continue
		}
		if m.Phase != core.PhaseWaiting {
			continue
		}
		views = append(views, matchView(m))
	}
	return okResponse(req.ID, views)
}

func (h *Handler) getMatchesByPlayer(req Request) Response {
	var params struct {
		Player string `json:"player"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Player == "" {
		return errResponse(req.ID, CodeInvalidParams, "player is required")
	}
	ids, err := h.indexer.GetMatchesByPlayer(params.Player)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, ids)
}

func (h *Handler) sendTx(req Request) Response {
	var tx core.Transaction
	if err := json.Unmarshal(req.Params, &tx); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	// Reject transactions destined for a different network to prevent
	// cross-chain replay attacks.
	if tx.ChainID != h.chainID {
		return errResponse(req.ID, CodeInvalidParams,
			fmt.Sprintf("chain ID mismatch: got %q want %q", tx.ChainID, h.chainID))
	}
	// Recompute the ID server-side; do not trust the client-provided value.
	tx.ID = tx.Hash()
	if err := h.mempool.Add(&tx); err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]string{"tx_id": tx.ID})
}
