package transport

import (
	"sync"
	"testing"
)

func TestSendRecvRoundTrip(t *testing.T) {
	comms := NewLocal(2)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := comms[0].Send(1, []byte("hello")); err != nil {
			t.Log("send error:", err.Error())
			t.Fail()
		}
	}()
	go func() {
		defer wg.Done()
		buf, err := comms[1].Recv(0)
		if err != nil {
			t.Log("recv error:", err.Error())
			t.Fail()
		}
		if string(buf) != "hello" {
			t.Log("got", string(buf), "expected hello")
			t.Fail()
		}
	}()
	wg.Wait()
}

func TestBarrierReleasesAllParticipants(t *testing.T) {
	comms := NewLocal(4)
	var wg sync.WaitGroup
	wg.Add(len(comms))
	for _, c := range comms {
		c := c
		go func() {
			defer wg.Done()
			if err := c.Barrier(); err != nil {
				t.Log("barrier error:", err.Error())
				t.Fail()
			}
		}()
	}
	wg.Wait()
}

func TestSplitGroupsByColorAndRenumbers(t *testing.T) {
	comms := NewLocal(4)
	results := make([]Communicator, 4)
	var wg sync.WaitGroup
	wg.Add(4)
	for r, c := range comms {
		r, c := r, c
		go func() {
			defer wg.Done()
			color := r % 2
			sub, err := c.Split(color)
			if err != nil {
				t.Log("split error:", err.Error())
				t.Fail()
				return
			}
			results[r] = sub
		}()
	}
	wg.Wait()

	for r, sub := range results {
		if sub == nil {
			t.Log("rank", r, "got a nil sub-communicator, expected one since no rank was excluded")
			t.FailNow()
		}
		if sub.Size() != 2 {
			t.Log("rank", r, "sub.Size() =", sub.Size(), "expected 2")
			t.FailNow()
		}
	}
	// ranks 0 and 2 share color 0 and should be renumbered 0,1 in
	// ascending original-rank order within their sub-communicator.
	if results[0].Rank() != 0 || results[2].Rank() != 1 {
		t.Log("unexpected renumbering for color-0 group:", results[0].Rank(), results[2].Rank())
		t.FailNow()
	}
}

func TestSplitExcludedGetsNil(t *testing.T) {
	comms := NewLocal(3)
	results := make([]Communicator, 3)
	var wg sync.WaitGroup
	wg.Add(3)
	for r, c := range comms {
		r, c := r, c
		go func() {
			defer wg.Done()
			color := 0
			if r == 2 {
				color = Excluded
			}
			sub, err := c.Split(color)
			if err != nil {
				t.Log("split error:", err.Error())
				t.Fail()
				return
			}
			results[r] = sub
		}()
	}
	wg.Wait()

	if results[2] != nil {
		t.Log("excluded rank expected a nil sub-communicator")
		t.FailNow()
	}
	if results[0] == nil || results[1] == nil {
		t.Log("non-excluded ranks expected a non-nil sub-communicator")
		t.FailNow()
	}
}
