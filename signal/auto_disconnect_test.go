package signal

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type AutoDisconnectTestSuite struct {
	suite.Suite
}

func TestAutoDisconnectTestSuite(t *testing.T) {
	suite.Run(t, new(AutoDisconnectTestSuite))
}

func (ts *AutoDisconnectTestSuite) TestConnectDisconnectRoundTrip() {
	s := NewAutoDisconnect[string]()
	id, err := s.Connect(func(string) error { return nil })
	ts.Require().NoError(err)
	ts.Equal(1, s.Size())

	s.Disconnect(id)
	ts.Equal(0, s.Size())
}

func (ts *AutoDisconnectTestSuite) TestDisconnectTargetsExactSlot() {
	s := NewAutoDisconnect[int]()
	var ran []string
	idA, _ := s.Connect(func(int) error { ran = append(ran, "A"); return nil })
	_, _ = s.Connect(func(int) error { ran = append(ran, "B"); return nil })

	s.Disconnect(idA)
	ts.Require().NoError(s.Emit(0))
	ts.Equal([]string{"B"}, ran)
}

func (ts *AutoDisconnectTestSuite) TestDisconnectAbsentIDIsNoOp() {
	s := NewAutoDisconnect[int]()
	id, _ := s.Connect(func(int) error { return nil })
	s.Disconnect(id)
	ts.NotPanics(func() { s.Disconnect(id) })
	ts.Equal(0, s.Size())
}

func (ts *AutoDisconnectTestSuite) TestConnectionIDsNeverReused() {
	s := NewAutoDisconnect[int]()
	id1, _ := s.Connect(func(int) error { return nil })
	s.Disconnect(id1)
	id2, _ := s.Connect(func(int) error { return nil })
	ts.NotEqual(id1, id2)
}
