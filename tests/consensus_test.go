package tests

import (
	"testing"

	"github.com/jankenlabs/jankenchain/config"
	"github.com/jankenlabs/jankenchain/consensus"
	"github.com/jankenlabs/jankenchain/core"
	"github.com/jankenlabs/jankenchain/events"
	"github.com/jankenlabs/jankenchain/internal/testutil"
	"github.com/jankenlabs/jankenchain/storage"
	"github.com/jankenlabs/jankenchain/vm"
	"github.com/jankenlabs/jankenchain/wallet"

	_ "github.com/jankenlabs/jankenchain/vm/modules/economy"
	_ "github.com/jankenlabs/jankenchain/vm/modules/match"
)

// newTestPoA wires a single-validator engine over in-memory stores and returns
// it alongside the pieces the tests inspect.
func newTestPoA(t *testing.T, validator *wallet.Wallet, alloc map[string]uint64) (*consensus.PoA, *storage.StateDB, *core.Mempool, *core.Blockchain) {
	t.Helper()

	db := testutil.NewMemDB()
	state := storage.NewStateDB(db)
	bc := core.NewBlockchain(testutil.NewMemBlockStore())
	if err := bc.Init(); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		MaxBlockTxs: 10,
		Validators:  []string{validator.PubKey()},
		Genesis: config.GenesisConfig{
			ChainID: testChainID,
			Alloc:   alloc,
		},
	}
	genesis, err := config.CreateGenesisBlock(cfg, state, validator.PrivKey())
	if err != nil {
		t.Fatal(err)
	}
	if err := bc.AddBlock(genesis); err != nil {
		t.Fatal(err)
	}

	emitter := events.NewEmitter()
	mempool := core.NewMempool()
	exec := vm.NewExecutor(state, emitter)
	poa := consensus.New(cfg, bc, state, mempool, exec, emitter, validator.PrivKey())
	return poa, state, mempool, bc
}

// TestProduceBlockEvictsFailingTx covers the case where a well-formed
// transaction fails at execution time (here: joining a match that does not
// exist). The block must still be produced from the remaining valid
// transactions, the failing one must leave the mempool, and production must
// keep advancing on the next round.
func TestProduceBlockEvictsFailingTx(t *testing.T) {
	validator, _ := wallet.Generate()
	player, _ := wallet.Generate()

	poa, state, mempool, bc := newTestPoA(t, validator, map[string]uint64{
		player.PubKey(): 1000,
	})

	good, err := player.Transfer(testChainID, validator.PubKey(), 50, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	bad, err := player.JoinMatch(testChainID, "ZZZZ99", 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := mempool.Add(good); err != nil {
		t.Fatal(err)
	}
	if err := mempool.Add(bad); err != nil {
		t.Fatal(err)
	}

	block, err := poa.ProduceBlock()
	if err != nil {
		t.Fatalf("ProduceBlock: %v", err)
	}
	if len(block.Transactions) != 1 || block.Transactions[0].ID != good.ID {
		t.Fatalf("block should contain only the valid tx, got %d txs", len(block.Transactions))
	}
	if mempool.Size() != 0 {
		t.Fatalf("failed tx must be evicted from the mempool, %d left", mempool.Size())
	}

	// Only the transfer touched the player's account: amount + fee gone, the
	// failed join's fee and nonce bump rolled back.
	acc, err := state.GetAccount(player.PubKey())
	if err != nil {
		t.Fatal(err)
	}
	if acc.Balance != 1000-50-1 {
		t.Errorf("player balance = %d, want %d", acc.Balance, 1000-50-1)
	}
	if acc.Nonce != 1 {
		t.Errorf("player nonce = %d, want 1", acc.Nonce)
	}

	// The chain is not wedged: the next round produces the next height.
	next, err := poa.ProduceBlock()
	if err != nil {
		t.Fatalf("ProduceBlock after eviction: %v", err)
	}
	if next.Header.Height != block.Header.Height+1 {
		t.Errorf("next height = %d, want %d", next.Header.Height, block.Header.Height+1)
	}
	if bc.Height() != next.Header.Height {
		t.Errorf("chain height = %d, want %d", bc.Height(), next.Header.Height)
	}
}

// TestProduceBlockAllTxsFailing drains a mempool of nothing but failing
// transactions: the round yields an empty block and the pool is cleared.
func TestProduceBlockAllTxsFailing(t *testing.T) {
	validator, _ := wallet.Generate()
	player, _ := wallet.Generate()

	poa, _, mempool, _ := newTestPoA(t, validator, map[string]uint64{
		player.PubKey(): 1000,
	})

	tx1, _ := player.JoinMatch(testChainID, "ZZZZ99", 0, 1)
	tx2, _ := player.CancelMatch(testChainID, "ZZZZ98", 1, 1)
	if err := mempool.Add(tx1); err != nil {
		t.Fatal(err)
	}
	if err := mempool.Add(tx2); err != nil {
		t.Fatal(err)
	}

	block, err := poa.ProduceBlock()
	if err != nil {
		t.Fatalf("ProduceBlock: %v", err)
	}
	if len(block.Transactions) != 0 {
		t.Errorf("block should be empty, has %d txs", len(block.Transactions))
	}
	if mempool.Size() != 0 {
		t.Errorf("all failing txs must be evicted, %d left", mempool.Size())
	}

	if _, err := poa.ProduceBlock(); err != nil {
		t.Fatalf("ProduceBlock after evictions: %v", err)
	}
}
