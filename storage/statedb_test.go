package storage

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jankenlabs/jankenchain/core"
)

// memDB is a minimal in-memory DB for this package's tests.
// (internal/testutil imports storage, so it cannot be used here.)
type memDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func newMemDB() *memDB { return &memDB{data: make(map[string][]byte)} }

func (m *memDB) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, core.ErrNotFound
	}
	return v, nil
}

func (m *memDB) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key)] = value
	return nil
}

func (m *memDB) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *memDB) NewIterator(prefix []byte) Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var pairs [][2][]byte
	for k, v := range m.data {
		if strings.HasPrefix(k, string(prefix)) {
			pairs = append(pairs, [2][]byte{[]byte(k), v})
		}
	}
	return &memIter{pairs: pairs, idx: -1}
}

func (m *memDB) NewBatch() Batch { return &memBatch{db: m} }
func (m *memDB) Close() error    { return nil }

type memIter struct {
	pairs [][2][]byte
	idx   int
}

func (it *memIter) Next() bool    { it.idx++; return it.idx < len(it.pairs) }
func (it *memIter) Key() []byte   { return it.pairs[it.idx][0] }
func (it *memIter) Value() []byte { return it.pairs[it.idx][1] }
func (it *memIter) Release()      {}
func (it *memIter) Error() error  { return nil }

type memBatch struct {
	db  *memDB
	ops []func()
}

func (b *memBatch) Set(key, value []byte) {
	k, v := string(key), append([]byte(nil), value...)
	b.ops = append(b.ops, func() { b.db.data[k] = v })
}

func (b *memBatch) Delete(key []byte) {
	k := string(key)
	b.ops = append(b.ops, func() { delete(b.db.data, k) })
}

func (b *memBatch) Reset() { b.ops = nil }

func (b *memBatch) Write() error {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()
	for _, op := range b.ops {
		op()
	}
	return nil
}

func newTestState(t *testing.T) *StateDB {
	t.Helper()
	return NewStateDB(newMemDB())
}

func testMatch(id string) *core.Match {
	return &core.Match{
		ShortID:    id,
		Creator:    "alice",
		PlayerOne:  "alice",
		Phase:      core.PhaseWaiting,
		Outcome:    core.OutcomePending,
		Visibility: core.VisibilityPublic,
		Stake:      50,
		DepositOne: 50,
	}
}

func TestAccountRoundTrip(t *testing.T) {
	s := newTestState(t)

	// Unknown accounts materialise as zero-value.
	acc, err := s.GetAccount("ghost")
	if err != nil {
		t.Fatal(err)
	}
	if acc.Balance != 0 || acc.Nonce != 0 {
		t.Errorf("fresh account should be zero, got %+v", acc)
	}

	acc.Balance = 123
	if err := s.SetAccount(acc); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetAccount("ghost")
	if err != nil {
		t.Fatal(err)
	}
	if got.Balance != 123 {
		t.Errorf("balance: got %d want 123", got.Balance)
	}
}

func TestMatchCRUD(t *testing.T) {
	s := newTestState(t)

	if _, err := s.GetMatch("ABCD01"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing match: got %v want ErrNotFound", err)
	}

	if err := s.SetMatch(testMatch("ABCD01")); err != nil {
		t.Fatal(err)
	}
	m, err := s.GetMatch("ABCD01")
	if err != nil {
		t.Fatal(err)
	}
	if m.Creator != "alice" || m.Phase != core.PhaseWaiting {
		t.Errorf("unexpected match: %+v", m)
	}

	if err := s.DeleteMatch("ABCD01"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetMatch("ABCD01"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("deleted match: got %v want ErrNotFound", err)
	}
}

func TestMatchIndexRoundTrip(t *testing.T) {
	s := newTestState(t)

	if _, err := s.GetMatchIndex(); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("fresh index: got %v want ErrNotFound", err)
	}

	idx := &core.MatchIndex{NextCounter: 3, Public: []string{"AAAA00", "BBBB01"}}
	if err := s.SetMatchIndex(idx); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetMatchIndex()
	if err != nil {
		t.Fatal(err)
	}
	if got.NextCounter != 3 || len(got.Public) != 2 {
		t.Errorf("unexpected index: %+v", got)
	}
}

func TestSnapshotRevert(t *testing.T) {
	s := newTestState(t)
	_ = s.SetAccount(&core.Account{Address: "a", Balance: 100})
	_ = s.SetMatch(testMatch("ABCD01"))

	id, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}

	_ = s.SetAccount(&core.Account{Address: "a", Balance: 1})
	_ = s.DeleteMatch("ABCD01")

	if err := s.RevertToSnapshot(id); err != nil {
		t.Fatal(err)
	}

	acc, _ := s.GetAccount("a")
	if acc.Balance != 100 {
		t.Errorf("balance after revert: got %d want 100", acc.Balance)
	}
	if _, err := s.GetMatch("ABCD01"); err != nil {
		t.Errorf("match should survive revert: %v", err)
	}
}

func TestRevertInvalidSnapshot(t *testing.T) {
	s := newTestState(t)
	if err := s.RevertToSnapshot(0); err == nil {
		t.Error("reverting to a nonexistent snapshot must fail")
	}
}

func TestCommitFlushesBuffer(t *testing.T) {
	db := newMemDB()
	s := NewStateDB(db)
	_ = s.SetAccount(&core.Account{Address: "a", Balance: 7})
	_ = s.SetMatch(testMatch("ABCD01"))

	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}

	// A fresh StateDB over the same DB must see the committed values.
	s2 := NewStateDB(db)
	acc, _ := s2.GetAccount("a")
	if acc.Balance != 7 {
		t.Errorf("committed balance: got %d want 7", acc.Balance)
	}
	if _, err := s2.GetMatch("ABCD01"); err != nil {
		t.Errorf("committed match: %v", err)
	}
}

func TestComputeRootDeterministicAndSensitive(t *testing.T) {
	s := newTestState(t)
	_ = s.SetAccount(&core.Account{Address: "a", Balance: 10})

	r1 := s.ComputeRoot()
	r2 := s.ComputeRoot()
	if r1 != r2 {
		t.Error("root must be deterministic for unchanged state")
	}

	_ = s.SetMatch(testMatch("ABCD01"))
	if s.ComputeRoot() == r1 {
		t.Error("root must change when a match is added")
	}

	// Root covers the match index key as well.
	before := s.ComputeRoot()
	_ = s.SetMatchIndex(&core.MatchIndex{NextCounter: 1, Public: []string{"ABCD01"}})
	if s.ComputeRoot() == before {
		t.Error("root must change when the index changes")
	}
}

func TestComputeRootSurvivesCommit(t *testing.T) {
	s := newTestState(t)
	_ = s.SetAccount(&core.Account{Address: "a", Balance: 10})
	_ = s.SetMatch(testMatch("ABCD01"))

	before := s.ComputeRoot()
	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}
	if after := s.ComputeRoot(); after != before {
		t.Errorf("root changed across commit: %s vs %s", before, after)
	}
}
