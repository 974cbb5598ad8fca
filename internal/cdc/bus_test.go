package cdc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	rostermodels "mercato/internal/roster/models"
	"mercato/internal/store/feed"
	"mercato/internal/store/memory"
	id "mercato/pkg/domain"
	dErrors "mercato/pkg/domain-errors"
)

// stubSource feeds hand-built changes into the bus.
type stubSource struct {
	ch chan feed.Change
}

func newStubSource() *stubSource {
	return &stubSource{ch: make(chan feed.Change, 16)}
}

func (s *stubSource) Changes() <-chan feed.Change { return s.ch }

// stubSink records publications, optionally failing.
type stubSink struct {
	records []ChangeRecord
	fail    bool
}

func (s *stubSink) Publish(_ context.Context, record ChangeRecord) error {
	if s.fail {
		return errors.New("sink unavailable")
	}
	s.records = append(s.records, record)
	return nil
}

type BusSuite struct {
	suite.Suite
}

func TestBusSuite(t *testing.T) {
	suite.Run(t, new(BusSuite))
}

func (s *BusSuite) receive(ch <-chan ChangeRecord) ChangeRecord {
	select {
	case record := <-ch:
		return record
	case <-time.After(2 * time.Second):
		s.FailNow("timed out waiting for a change record")
		return ChangeRecord{}
	}
}

func (s *BusSuite) TestInjectAndQueries() {
	bus := New()

	s.Run("inject surfaces in recent, newest first", func() {
		bus.Inject(feed.EntityPlayer, feed.OpInsert, "p1", nil)
		bus.Inject(feed.EntityPlayer, feed.OpUpdate, "p1", nil)

		recent := bus.Recent(10)
		s.Require().Len(recent, 2)
		s.Equal(feed.OpUpdate, recent[0].Op)
		s.Equal(feed.OpInsert, recent[1].Op)
	})

	s.Run("recent by entity filters other entities out", func() {
		bus.Inject(feed.EntityClub, feed.OpInsert, "c1", nil)

		clubs := bus.RecentByEntity(feed.EntityClub, 10)
		s.Require().Len(clubs, 1)
		s.Equal("c1", clubs[0].EntityID)

		players := bus.RecentByEntity(feed.EntityPlayer, 10)
		s.Len(players, 2)
	})

	s.Run("latest is last write wins", func() {
		bus.Inject(feed.EntityContract, feed.OpInsert, "k1", "old")
		bus.Inject(feed.EntityContract, feed.OpUpdate, "k1", "new")

		record, ok := bus.Latest(feed.EntityContract, "k1")
		s.Require().True(ok)
		s.Equal("new", record.Document)

		_, ok = bus.Latest(feed.EntityContract, "unknown")
		s.False(ok)
	})

	s.Run("capacity evicts the oldest records", func() {
		small := New(WithCapacity(2))
		small.Inject(feed.EntityPlayer, feed.OpInsert, "a", nil)
		small.Inject(feed.EntityPlayer, feed.OpInsert, "b", nil)
		small.Inject(feed.EntityPlayer, feed.OpInsert, "c", nil)

		recent := small.Recent(10)
		s.Require().Len(recent, 2)
		s.Equal("c", recent[0].EntityID)
		s.Equal("b", recent[1].EntityID)
	})
}

func (s *BusSuite) TestDeduplication() {
	source := newStubSource()
	bus := New(WithSource(source))
	s.Require().NoError(bus.Start(context.Background()))
	defer bus.Stop()

	all, unsubscribe := bus.SubscribeGlobal()
	defer unsubscribe()

	change := feed.Change{
		Entity:     feed.EntityPlayer,
		Op:         feed.OpUpdate,
		EntityID:   "p1",
		SourceTime: time.Date(2026, time.July, 1, 12, 0, 0, 0, time.UTC),
	}
	source.ch <- change
	source.ch <- change // redelivery of the same committed mutation
	source.ch <- feed.Change{
		Entity:     feed.EntityPlayer,
		Op:         feed.OpUpdate,
		EntityID:   "p1",
		SourceTime: change.SourceTime.Add(time.Second),
	}

	first := s.receive(all)
	s.Equal(change.SourceTime, first.SourceTime)
	second := s.receive(all)
	s.Equal(change.SourceTime.Add(time.Second), second.SourceTime)

	s.Len(bus.Recent(10), 2)
}

func (s *BusSuite) TestSubscriptions() {
	bus := New()

	s.Run("entity subscribers see only their entity", func() {
		players, unsubscribe := bus.SubscribeEntity(feed.EntityPlayer)
		defer unsubscribe()

		bus.Inject(feed.EntityClub, feed.OpInsert, "c1", nil)
		bus.Inject(feed.EntityPlayer, feed.OpInsert, "p1", nil)

		record := s.receive(players)
		s.Equal("p1", record.EntityID)
		s.Empty(players)
	})

	s.Run("operation subscribers see only their op", func() {
		deletes, unsubscribe := bus.SubscribeOperation(feed.OpDelete)
		defer unsubscribe()

		bus.Inject(feed.EntityPlayer, feed.OpUpdate, "p1", nil)
		bus.Inject(feed.EntityPlayer, feed.OpDelete, "p1", nil)

		record := s.receive(deletes)
		s.Equal(feed.OpDelete, record.Op)
	})

	s.Run("unsubscribed channels stop receiving", func() {
		all, unsubscribe := bus.SubscribeGlobal()
		unsubscribe()

		bus.Inject(feed.EntityPlayer, feed.OpInsert, "p2", nil)
		s.Empty(all)
	})

	s.Run("a full subscriber loses records instead of blocking", func() {
		slow := New(WithSubscriberBuffer(1))
		ch, unsubscribe := slow.SubscribeGlobal()
		defer unsubscribe()

		slow.Inject(feed.EntityPlayer, feed.OpInsert, "first", nil)
		slow.Inject(feed.EntityPlayer, feed.OpInsert, "second", nil)

		record := s.receive(ch)
		s.Equal("first", record.EntityID)
		s.Empty(ch)

		// capture itself was unaffected
		s.Len(slow.Recent(10), 2)
	})
}

func (s *BusSuite) TestSinks() {
	s.Run("every capture reaches the sink", func() {
		sink := &stubSink{}
		bus := New(WithSink(sink))

		bus.Inject(feed.EntityTransfer, feed.OpInsert, "t1", nil)
		bus.Inject(feed.EntityTransfer, feed.OpUpdate, "t1", nil)

		s.Require().Len(sink.records, 2)
		s.Equal(feed.OpInsert, sink.records[0].Op)
	})

	s.Run("sink failure never fails the capture", func() {
		bus := New(WithSink(&stubSink{fail: true}))
		bus.Inject(feed.EntityTransfer, feed.OpInsert, "t1", nil)
		s.Len(bus.Recent(10), 1)
	})
}

func (s *BusSuite) TestStartStop() {
	s.Run("starting twice is an invalid state", func() {
		bus := New()
		s.Require().NoError(bus.Start(context.Background()))
		defer bus.Stop()

		err := bus.Start(context.Background())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("stop retains buffered records and allows restart", func() {
		source := newStubSource()
		bus := New(WithSource(source))
		s.Require().NoError(bus.Start(context.Background()))

		all, unsubscribe := bus.SubscribeGlobal()
		source.ch <- feed.Change{Entity: feed.EntityPlayer, Op: feed.OpInsert, EntityID: "p1", SourceTime: time.Now()}
		s.receive(all)
		unsubscribe()

		bus.Stop()
		s.Len(bus.Recent(10), 1)

		s.NoError(bus.Start(context.Background()))
		bus.Stop()
	})
}

func (s *BusSuite) TestMemoryFeedEndToEnd() {
	db := memory.NewDB()
	clubs := memory.NewClubStore(db)

	bus := New(WithSource(db))
	s.Require().NoError(bus.Start(context.Background()))
	defer bus.Stop()

	records, unsubscribe := bus.SubscribeEntity(feed.EntityClub)
	defer unsubscribe()

	now := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	club, err := rostermodels.NewClub(id.NewClubID(), "Rovers", 1_000_000, now)
	s.Require().NoError(err)
	s.Require().NoError(clubs.Save(context.Background(), club))

	record := s.receive(records)
	s.Equal(feed.OpInsert, record.Op)
	s.Equal(club.ID.String(), record.EntityID)

	latest, ok := bus.Latest(feed.EntityClub, club.ID.String())
	s.Require().True(ok)
	doc, isClub := latest.Document.(*rostermodels.Club)
	s.Require().True(isClub)
	s.Equal(int64(1_000_000), doc.Budget)
}
