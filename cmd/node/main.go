// Command node starts a jankenchain node.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jankenlabs/jankenchain/config"
	"github.com/jankenlabs/jankenchain/consensus"
	"github.com/jankenlabs/jankenchain/core"
	"github.com/jankenlabs/jankenchain/crypto/certgen"
	"github.com/jankenlabs/jankenchain/events"
	"github.com/jankenlabs/jankenchain/indexer"
	"github.com/jankenlabs/jankenchain/internal/obslog"
	"github.com/jankenlabs/jankenchain/network"
	"github.com/jankenlabs/jankenchain/rpc"
	"github.com/jankenlabs/jankenchain/storage"
	"github.com/jankenlabs/jankenchain/vm"
	"github.com/jankenlabs/jankenchain/wallet"

	// Import VM modules to trigger their init() self-registration.
	_ "github.com/jankenlabs/jankenchain/vm/modules/economy"
	_ "github.com/jankenlabs/jankenchain/vm/modules/match"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	keyPath := flag.String("key", "validator.key", "path to keystore file")
	genKey := flag.Bool("genkey", false, "generate a new validator key and exit")
	genCerts := flag.String("gencerts", "", "generate CA + node TLS certs into the given directory and exit (requires node ID from config)")
	flag.Parse()

	// Read keystore password from environment (not CLI flags — they leak via ps).
	password := os.Getenv("JANKEN_PASSWORD")
	if password == "" {
		log.Println("WARNING: JANKEN_PASSWORD not set — keystore will use an empty password")
	}

	// ---- generate key mode ----
	if *genKey {
		w, err := wallet.Generate()
		if err != nil {
			log.Fatal(err)
		}
		if err := wallet.SaveKey(*keyPath, password, w.PrivKey()); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Generated key. Public key (validator address): %s\n", w.PubKey())
		fmt.Printf("Saved to: %s\n", *keyPath)
		return
	}

	// ---- generate certs mode ----
	if *genCerts != "" {
		cfgForCerts, err := loadConfig(*cfgPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		if err := certgen.GenerateAll(*genCerts, cfgForCerts.NodeID, nil); err != nil {
			log.Fatalf("gencerts: %v", err)
		}
		fmt.Printf("Certificates generated in %s for node %q\n", *genCerts, cfgForCerts.NodeID)
		return
	}

	// ---- load config ----
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- logging ----
	if err := obslog.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	// ---- load validator key ----
	privKey, err := wallet.LoadKey(*keyPath, password)
	if err != nil {
		logger.Fatal("load key", zap.Error(err))
	}

	// ---- open DB ----
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Fatal("mkdir data dir", zap.Error(err))
	}
	db, err := storage.NewLevelDB(cfg.DataDir + "/chain")
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	defer db.Close()

	stateDB := db // reuse same DB with different key prefixes
	blockStore := storage.NewLevelBlockStore(db)

	// ---- initialise state ----
	state := storage.NewStateDB(stateDB)

	// ---- initialise blockchain ----
	bc := core.NewBlockchain(blockStore)
	if err := bc.Init(); err != nil {
		logger.Fatal("blockchain init", zap.Error(err))
	}

	// ---- genesis block (if fresh chain) ----
	if bc.Tip() == nil {
		genesisBlock, err := config.CreateGenesisBlock(cfg, state, privKey)
		if err != nil {
			logger.Fatal("genesis", zap.Error(err))
		}
		if err := bc.AddBlock(genesisBlock); err != nil {
			logger.Fatal("add genesis", zap.Error(err))
		}
		logger.Info("genesis block committed", zap.String("hash", genesisBlock.Hash))
	}

	// ---- events ----
	emitter := events.NewEmitter()

	// ---- indexer ----
	idx := indexer.New(db, emitter)

	// ---- mempool ----
	mempool := core.NewMempool()

	// ---- VM executor ----
	exec := vm.NewExecutor(state, emitter)

	// ---- consensus ----
	poa := consensus.New(cfg, bc, state, mempool, exec, emitter, privKey)

	// ---- TLS ----
	tlsCfg, err := config.LoadTLSConfig(cfg.TLS)
	if err != nil {
		logger.Fatal("tls", zap.Error(err))
	}
	if tlsCfg != nil {
		logger.Info("mTLS enabled for P2P")
	}

	// ---- network ----
	p2pAddr := fmt.Sprintf(":%d", cfg.P2PPort)
	node := network.NewNode(cfg.NodeID, p2pAddr, mempool, tlsCfg)
	syncer := network.NewSyncer(node, bc, poa, exec, state)
	if err := node.Start(); err != nil {
		logger.Fatal("p2p start", zap.Error(err))
	}
	defer node.Stop()
	logger.Info("p2p listening", zap.String("addr", p2pAddr))

	// ---- connect to seed peers ----
	for _, sp := range cfg.SeedPeers {
		if err := node.AddPeer(sp.ID, sp.Addr); err != nil {
			logger.Warn("seed peer", zap.String("id", sp.ID), zap.String("addr", sp.Addr), zap.Error(err))
			continue
		}
		// Trigger initial block sync with the newly connected peer.
		if peer := node.Peer(sp.ID); peer != nil {
			syncer.SyncWithPeer(peer)
		}
		logger.Info("connected to seed peer", zap.String("id", sp.ID), zap.String("addr", sp.Addr))
	}

	// ---- RPC ----
	rpcAddr := fmt.Sprintf(":%d", cfg.RPCPort)
	rpcHandler := rpc.NewHandler(bc, mempool, state, idx, cfg.Genesis.ChainID)
	rpcServer := rpc.NewServer(rpcAddr, rpcHandler, cfg.RPCAuthToken)
	if err := rpcServer.Start(); err != nil {
		logger.Fatal("rpc start", zap.Error(err))
	}
	defer rpcServer.Stop()
	logger.Info("rpc listening", zap.String("addr", rpcAddr))
	if cfg.RPCAuthToken != "" {
		logger.Info("rpc bearer token authentication enabled")
	}

	// ---- consensus loop ----
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		poa.Run(2*time.Second, done)
	}()
	logger.Info("consensus running", zap.String("validator", privKey.Public().Hex()))

	// ---- graceful shutdown ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")

	// 1. Stop consensus first (no new blocks written)
	close(done)
	wg.Wait()

	// 2. Deferred calls run in LIFO: rpcServer.Stop → node.Stop → db.Close
	logger.Info("shutdown complete")
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Config file not found at %s, using defaults.", path)
			return config.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}
