// Command janken is a thin RPC client for playing matches from a terminal.
// Commit nonces are stored in per-match files next to the keystore so a
// later reveal can reproduce the committed bytes exactly.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jankenlabs/jankenchain/core"
	"github.com/jankenlabs/jankenchain/rpc"
	"github.com/jankenlabs/jankenchain/wallet"
)

const defaultFee = 1

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	rpcURL := fs.String("rpc", "http://localhost:8545", "node RPC endpoint")
	chainID := fs.String("chain", "janken-dev", "chain ID")
	keyPath := fs.String("key", "player.key", "path to keystore file")
	shortID := fs.String("id", "", "match short ID")
	moveStr := fs.String("move", "", "move: rock, paper or scissors")
	stake := fs.Uint64("stake", 0, "stake amount")
	visibility := fs.String("visibility", "public", "match visibility: public or private")
	addr := fs.String("addr", "", "address (defaults to own key)")
	fs.Parse(os.Args[2:])

	cli := &client{
		url:     *rpcURL,
		token:   os.Getenv("JANKEN_RPC_AUTH_TOKEN"),
		chainID: *chainID,
	}

	var err error
	switch cmd {
	case "genkey":
		err = runGenKey(*keyPath)
	case "balance":
		err = cli.runBalance(*keyPath, *addr)
	case "create":
		err = cli.runCreate(*keyPath, *visibility, *stake)
	case "join":
		err = cli.runJoin(*keyPath, *shortID)
	case "cancel":
		err = cli.runCancel(*keyPath, *shortID)
	case "commit":
		err = cli.runCommit(*keyPath, *shortID, *moveStr)
	case "reveal":
		err = cli.runReveal(*keyPath, *shortID)
	case "withdraw":
		err = cli.runWithdraw(*keyPath, *shortID)
	case "show":
		err = cli.runShow(*shortID)
	case "moves":
		err = cli.runMoves(*shortID)
	case "list":
		err = cli.runList()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("janken %s: %v", cmd, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: janken <command> [flags]

commands:
  genkey    generate a new player key
  balance   show account balance and nonce
  create    create a match (-stake, -visibility)
  join      join a match (-id)
  cancel    cancel an unjoined match (-id)
  commit    commit a move (-id, -move); stores the blinding nonce locally
  reveal    reveal the committed move (-id)
  withdraw  claim the payout of a finished match (-id)
  show      print a match snapshot (-id)
  moves     print both revealed moves, if available (-id)
  list      list open public matches`)
}

// ---- RPC plumbing ----

type client struct {
	url     string
	token   string
	chainID string
}

func (c *client) call(method string, params, result any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	reqBody, err := json.Marshal(rpc.Request{JSONRPC: "2.0", ID: 1, Method: method, Params: raw})
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	httpResp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  *rpc.Error      `json:"error"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	if result != nil {
		return json.Unmarshal(resp.Result, result)
	}
	return nil
}

func (c *client) accountNonce(address string) (uint64, error) {
	var acc struct {
		Nonce uint64 `json:"nonce"`
	}
	err := c.call("getBalance", map[string]string{"address": address}, &acc)
	return acc.Nonce, err
}

func (c *client) sendTx(tx *core.Transaction) (string, error) {
	var out struct {
		TxID string `json:"tx_id"`
	}
	if err := c.call("sendTx", tx, &out); err != nil {
		return "", err
	}
	return out.TxID, nil
}

func loadWallet(keyPath string) (*wallet.Wallet, error) {
	priv, err := wallet.LoadKey(keyPath, os.Getenv("JANKEN_PASSWORD"))
	if err != nil {
		return nil, fmt.Errorf("load key %s: %w", keyPath, err)
	}
	return wallet.New(priv), nil
}

// ---- commands ----

func runGenKey(keyPath string) error {
	w, err := wallet.Generate()
	if err != nil {
		return err
	}
	if err := wallet.SaveKey(keyPath, os.Getenv("JANKEN_PASSWORD"), w.PrivKey()); err != nil {
		return err
	}
	fmt.Printf("public key: %s\nsaved to:   %s\n", w.PubKey(), keyPath)
	return nil
}

func (c *client) runBalance(keyPath, addr string) error {
	if addr == "" {
		w, err := loadWallet(keyPath)
		if err != nil {
			return err
		}
		addr = w.PubKey()
	}
	var out struct {
		Balance uint64 `json:"balance"`
		Nonce   uint64 `json:"nonce"`
	}
	if err := c.call("getBalance", map[string]string{"address": addr}, &out); err != nil {
		return err
	}
	fmt.Printf("address: %s\nbalance: %d\nnonce:   %d\n", addr, out.Balance, out.Nonce)
	return nil
}

func (c *client) runCreate(keyPath, visibility string, stake uint64) error {
	if stake == 0 {
		return fmt.Errorf("-stake must be > 0")
	}
	w, err := loadWallet(keyPath)
	if err != nil {
		return err
	}
	nonce, err := c.accountNonce(w.PubKey())
	if err != nil {
		return err
	}
	tx, err := w.CreateMatch(c.chainID, core.MatchVisibility(visibility), stake, nonce, defaultFee)
	if err != nil {
		return err
	}
	txID, err := c.sendTx(tx)
	if err != nil {
		return err
	}
	fmt.Printf("submitted create_match tx %s\nrun 'janken list' after the next block to find your match ID\n", txID)
	return nil
}

func (c *client) runJoin(keyPath, shortID string) error {
	if shortID == "" {
		return fmt.Errorf("-id is required")
	}
	w, err := loadWallet(keyPath)
	if err != nil {
		return err
	}
	nonce, err := c.accountNonce(w.PubKey())
	if err != nil {
		return err
	}
	tx, err := w.JoinMatch(c.chainID, shortID, nonce, defaultFee)
	if err != nil {
		return err
	}
	txID, err := c.sendTx(tx)
	if err != nil {
		return err
	}
	fmt.Printf("submitted join_match tx %s\n", txID)
	return nil
}

func (c *client) runCancel(keyPath, shortID string) error {
	if shortID == "" {
		return fmt.Errorf("-id is required")
	}
	w, err := loadWallet(keyPath)
	if err != nil {
		return err
	}
	nonce, err := c.accountNonce(w.PubKey())
	if err != nil {
		return err
	}
	tx, err := w.CancelMatch(c.chainID, shortID, nonce, defaultFee)
	if err != nil {
		return err
	}
	txID, err := c.sendTx(tx)
	if err != nil {
		return err
	}
	fmt.Printf("submitted cancel_match tx %s\n", txID)
	return nil
}

// commitRecord is what gets written to the nonce file at commit time and
// read back at reveal time.
type commitRecord struct {
	ShortID string    `json:"short_id"`
	Move    core.Move `json:"move"`
	Nonce   string    `json:"nonce"` // hex
}

func nonceFilePath(keyPath, shortID string) string {
	return filepath.Join(filepath.Dir(keyPath), shortID+".nonce")
}

func (c *client) runCommit(keyPath, shortID, moveStr string) error {
	if shortID == "" {
		return fmt.Errorf("-id is required")
	}
	move, err := parseMove(moveStr)
	if err != nil {
		return err
	}
	w, err := loadWallet(keyPath)
	if err != nil {
		return err
	}
	nonce, err := c.accountNonce(w.PubKey())
	if err != nil {
		return err
	}
	tx, blindHex, err := w.CommitMove(c.chainID, shortID, move, nonce, defaultFee)
	if err != nil {
		return err
	}

	// Persist the nonce BEFORE submitting: a committed move with a lost
	// nonce can never be revealed and forfeits the stake.
	rec := commitRecord{ShortID: shortID, Move: move, Nonce: blindHex}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	path := nonceFilePath(keyPath, shortID)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("save nonce file: %w", err)
	}

	txID, err := c.sendTx(tx)
	if err != nil {
		return err
	}
	fmt.Printf("submitted commit_move tx %s\nnonce saved to %s (required for reveal)\n", txID, path)
	return nil
}

func (c *client) runReveal(keyPath, shortID string) error {
	if shortID == "" {
		return fmt.Errorf("-id is required")
	}
	path := nonceFilePath(keyPath, shortID)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read nonce file %s: %w", path, err)
	}
	var rec commitRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("parse nonce file %s: %w", path, err)
	}

	w, err := loadWallet(keyPath)
	if err != nil {
		return err
	}
	nonce, err := c.accountNonce(w.PubKey())
	if err != nil {
		return err
	}
	tx, err := w.RevealMove(c.chainID, shortID, rec.Move, rec.Nonce, nonce, defaultFee)
	if err != nil {
		return err
	}
	txID, err := c.sendTx(tx)
	if err != nil {
		return err
	}
	fmt.Printf("submitted reveal_move tx %s (move: %s)\n", txID, rec.Move)
	return nil
}

func (c *client) runWithdraw(keyPath, shortID string) error {
	if shortID == "" {
		return fmt.Errorf("-id is required")
	}
	w, err := loadWallet(keyPath)
	if err != nil {
		return err
	}
	nonce, err := c.accountNonce(w.PubKey())
	if err != nil {
		return err
	}
	tx, err := w.WithdrawPrize(c.chainID, shortID, nonce, defaultFee)
	if err != nil {
		return err
	}
	txID, err := c.sendTx(tx)
	if err != nil {
		return err
	}
	fmt.Printf("submitted withdraw_prize tx %s\n", txID)
	return nil
}

func (c *client) runShow(shortID string) error {
	if shortID == "" {
		return fmt.Errorf("-id is required")
	}
	var view json.RawMessage
	if err := c.call("getMatch", map[string]string{"short_id": shortID}, &view); err != nil {
		return err
	}
	return printJSON(view)
}

func (c *client) runMoves(shortID string) error {
	if shortID == "" {
		return fmt.Errorf("-id is required")
	}
	var out json.RawMessage
	if err := c.call("getRevealedMoves", map[string]string{"short_id": shortID}, &out); err != nil {
		return err
	}
	return printJSON(out)
}

func (c *client) runList() error {
	var out json.RawMessage
	if err := c.call("listPublicMatches", struct{}{}, &out); err != nil {
		return err
	}
	return printJSON(out)
}

func parseMove(s string) (core.Move, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rock":
		return core.MoveRock, nil
	case "paper":
		return core.MovePaper, nil
	case "scissors":
		return core.MoveScissors, nil
	default:
		return 0, fmt.Errorf("unknown move %q (want rock, paper or scissors)", s)
	}
}

func printJSON(raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	fmt.Println(buf.String())
	return nil
}
