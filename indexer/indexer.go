// Package indexer maintains secondary indexes over committed blocks so game
// servers can query matches by player without scanning full state.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jankenlabs/jankenchain/core"
	"github.com/jankenlabs/jankenchain/events"
	"github.com/jankenlabs/jankenchain/storage"
)

const prefixPlayerMatch = "idx:player:match:"

// Indexer subscribes to chain events and updates secondary lookup tables.
type Indexer struct {
	db      storage.DB
	emitter *events.Emitter
}

// New creates an Indexer backed by db and subscribes to relevant events.
func New(db storage.DB, emitter *events.Emitter) *Indexer {
	idx := &Indexer{db: db, emitter: emitter}
	emitter.Subscribe(events.EventMatchCreated, idx.onMatchCreated)
	emitter.Subscribe(events.EventMatchJoined, idx.onMatchJoined)
	emitter.Subscribe(events.EventMatchCancelled, idx.onMatchCancelled)
	return idx
}

// GetMatchesByPlayer returns the short IDs of all matches the player has
// created or joined, oldest first. Cancelled matches are removed.
func (idx *Indexer) GetMatchesByPlayer(player string) ([]string, error) {
	return idx.getList(prefixPlayerMatch + player)
}

// ---- event handlers ----

func (idx *Indexer) onMatchCreated(ev events.Event) {
	shortID, _ := ev.Data["short_id"].(string)
	creator, _ := ev.Data["creator"].(string)
	if shortID == "" || creator == "" {
		return
	}
	_ = idx.addToList(prefixPlayerMatch+creator, shortID)
}

func (idx *Indexer) onMatchJoined(ev events.Event) {
	shortID, _ := ev.Data["short_id"].(string)
	player, _ := ev.Data["player_two"].(string)
	if shortID == "" || player == "" {
		return
	}
	_ = idx.addToList(prefixPlayerMatch+player, shortID)
}

func (idx *Indexer) onMatchCancelled(ev events.Event) {
	shortID, _ := ev.Data["short_id"].(string)
	creator, _ := ev.Data["creator"].(string)
	if shortID == "" || creator == "" {
		return
	}
	_ = idx.removeFromList(prefixPlayerMatch+creator, shortID)
}

// ---- list helpers ----

func (idx *Indexer) getList(key string) ([]string, error) {
	data, err := idx.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil // empty list
		}
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("indexer unmarshal: %w", err)
	}
	return ids, nil
}

func (idx *Indexer) addToList(key, value string) error {
	ids, _ := idx.getList(key)
	for _, id := range ids {
		if id == value {
			return nil
		}
	}
	ids = append(ids, value)
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}

func (idx *Indexer) removeFromList(key, value string) error {
	ids, _ := idx.getList(key)
	filtered := ids[:0]
	for _, id := range ids {
		if id != value {
			filtered = append(filtered, id)
		}
	}
	data, err := json.Marshal(filtered)
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}
