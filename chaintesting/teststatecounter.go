package chaintesting

import (
	"errors"

	"github.com/Metalcape/zebra-flyclient/chain"
	"github.com/Metalcape/zebra-flyclient/finalizedstate"
	"github.com/Metalcape/zebra-flyclient/historytree"
	"github.com/Metalcape/zebra-flyclient/network"
)

var ErrInjected = errors.New("injected test failure")

type TestCallCounter struct {
	MethodCalls map[string]int
}

func (r *TestCallCounter) IncMethodCall(name string) int {
	if r.MethodCalls == nil {
		r.MethodCalls = make(map[string]int)
	}
	r.MethodCalls[name]++
	return r.MethodCalls[name]
}

func (r *TestCallCounter) Reset() {
	r.MethodCalls = make(map[string]int)
}

func (r *TestCallCounter) MethodCallCount(name string) int {
	return r.MethodCalls[name]
}

// TestStateCounter wraps a finalized state, counting the calls made to it
// and failing the ones configured to fail.
type TestStateCounter struct {
	TestCallCounter
	DB *finalizedstate.DB

	// FailBlockAt fails reading the block at the height, when set
	FailBlockAt *chain.Height
	// FailWriteBatch fails the nth call to WriteBatch, counting from 1
	FailWriteBatch int
	// OnBlock is called after every block read, when set
	OnBlock func(h chain.Height)
}

func NewTestStateCounter(db *finalizedstate.DB) *TestStateCounter {
	return &TestStateCounter{DB: db}
}

func (s *TestStateCounter) Network() network.Network {
	s.IncMethodCall("Network")
	return s.DB.Network()
}

func (s *TestStateCounter) Block(h chain.Height) (chain.Block, error) {
	s.IncMethodCall("Block")
	if s.FailBlockAt != nil && *s.FailBlockAt == h {
		return chain.Block{}, ErrInjected
	}
	b, err := s.DB.Block(h)
	if s.OnBlock != nil {
		s.OnBlock(h)
	}
	return b, err
}

func (s *TestStateCounter) SaplingRoot(h chain.Height) (chain.Root, error) {
	s.IncMethodCall("SaplingRoot")
	return s.DB.SaplingRoot(h)
}

func (s *TestStateCounter) OrchardRoot(h chain.Height) (chain.Root, error) {
	s.IncMethodCall("OrchardRoot")
	return s.DB.OrchardRoot(h)
}

func (s *TestStateCounter) HistoryTree() (*historytree.Tree, error) {
	s.IncMethodCall("HistoryTree")
	return s.DB.HistoryTree()
}

func (s *TestStateCounter) HistoryNode(key finalizedstate.HistoryNodeKey) (historytree.Entry, error) {
	s.IncMethodCall("HistoryNode")
	return s.DB.HistoryNode(key)
}

func (s *TestStateCounter) NewBatch() *finalizedstate.WriteBatch {
	s.IncMethodCall("NewBatch")
	return s.DB.NewBatch()
}

func (s *TestStateCounter) WriteBatch(b *finalizedstate.WriteBatch) error {
	if s.IncMethodCall("WriteBatch") == s.FailWriteBatch {
		return ErrInjected
	}
	return s.DB.WriteBatch(b)
}

func (s *TestStateCounter) TipHeight() (chain.Height, bool, error) {
	s.IncMethodCall("TipHeight")
	return s.DB.TipHeight()
}

func (s *TestStateCounter) FormatVersion() (finalizedstate.FormatVersion, bool, error) {
	s.IncMethodCall("FormatVersion")
	return s.DB.FormatVersion()
}
