package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/openescrow/escrowapi"
)

// startServer serves on an ephemeral tcp port and returns its address and a stop function
// that waits for Serve to return.
func startServer(t *testing.T, w *world) (string, func()) {
	t.Helper()
	l, err := w.server.Listen()
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.server.Serve(ctx, l) }()

	return l.Addr().String(), func() {
		cancel()
		select {
		case err := <-done:
			check.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
		}
	}
}

func roundTrip(t *testing.T, addr string, req any) *escrowapi.Response {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	assert.NoError(t, err)
	defer conn.Close()

	assert.NoError(t, json.NewEncoder(conn).Encode(req))
	var resp escrowapi.Response
	assert.NoError(t, json.NewDecoder(bufio.NewReader(conn)).Decode(&resp))
	return &resp
}

func TestServe_RequestResponse(t *testing.T) {
	defer leaktest.Check(t)()

	w := newWorld(t, testServerConfig())
	addr, stop := startServer(t, w)
	defer stop()

	resp := roundTrip(t, addr, escrowapi.Request{Type: escrowapi.TypePing, RequestID: "p1"})
	check.True(t, resp.Success)
	check.Equal(t, "pong", resp.Type)
	check.Equal(t, "p1", resp.RequestID)

	resp = roundTrip(t, addr, escrowapi.Request{
		Type:            escrowapi.TypeCreateAuction,
		Caller:          seller.Hex(),
		AssetID:         uint64(testAsset),
		StartPrice:      "1000",
		DurationSeconds: 20,
	})
	check.True(t, resp.Success)
	check.Equal(t, "create_auction_response", resp.Type)

	resp = roundTrip(t, addr, escrowapi.Request{Type: escrowapi.TypeBid, Caller: bidderA.Hex(), AuctionID: resp.AuctionID, Amount: "2000"})
	check.True(t, resp.Success)
	check.Equal(t, "2000", w.engine.PoolBalance().String())
}

func TestServe_MalformedRequest(t *testing.T) {
	defer leaktest.Check(t)()

	w := newWorld(t, testServerConfig())
	addr, stop := startServer(t, w)
	defer stop()

	conn, err := net.Dial("tcp", addr)
	assert.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("{not json"))
	assert.NoError(t, err)
	assert.NoError(t, conn.(*net.TCPConn).CloseWrite())

	var resp escrowapi.Response
	assert.NoError(t, json.NewDecoder(conn).Decode(&resp))
	check.False(t, resp.Success)
	check.Equal(t, "error", resp.Type)
	check.Equal(t, CodeBadRequest, resp.ErrorCode)
}

func TestServe_RejectsWhenPoolFull(t *testing.T) {
	defer leaktest.Check(t)()

	cfg := testServerConfig()
	cfg.MaxWorkers = 1
	w := newWorld(t, cfg)
	addr, stop := startServer(t, w)
	defer stop()

	// holds the only worker until it is closed
	busy, err := net.Dial("tcp", addr)
	assert.NoError(t, err)

	// give the accept loop time to hand busy to the worker
	time.Sleep(100 * time.Millisecond)

	rejected, err := net.Dial("tcp", addr)
	assert.NoError(t, err)
	_ = rejected.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = rejected.Read(make([]byte, 1))
	check.Error(t, err)
	rejected.Close()

	busy.Close()

	// the slot is free again
	var resp *escrowapi.Response
	for i := 0; i < 20; i++ {
		conn, err := net.Dial("tcp", addr)
		assert.NoError(t, err)
		_ = json.NewEncoder(conn).Encode(escrowapi.Request{Type: escrowapi.TypePing})
		var r escrowapi.Response
		if json.NewDecoder(conn).Decode(&r) == nil {
			resp = &r
		}
		conn.Close()
		if resp != nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	assert.NotNil(t, resp)
	check.Equal(t, "pong", resp.Type)
}

func TestServe_StopsOnCancel(t *testing.T) {
	defer leaktest.Check(t)()

	w := newWorld(t, testServerConfig())
	addr, stop := startServer(t, w)
	stop()

	_, err := net.DialTimeout("tcp", addr, time.Second)
	check.Error(t, err)
}
