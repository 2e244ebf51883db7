package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/registrar/internal/ir"
	"github.com/roach88/registrar/internal/registrar"
	"github.com/roach88/registrar/internal/state"
)

func TestSink_Emit(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.Emit(ctx, ir.Event{Seq: 1, Kind: ir.EventNewBid})
	s.Emit(ctx, ir.Event{Seq: 2, Kind: ir.EventNewBid})
	s.Emit(ctx, ir.Event{Seq: 3, Kind: ir.EventRevealBid})

	assert.Equal(t, 2.0, testutil.ToFloat64(s.events.WithLabelValues("NewBid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.events.WithLabelValues("RevealBid")))
	assert.Equal(t, 3.0, testutil.ToFloat64(s.lastSeq))
}

func TestSink_ObserveCall(t *testing.T) {
	s := New()

	s.ObserveCall(registrar.OpRenew, nil)
	s.ObserveCall(registrar.OpRenew, registrar.ErrInvalidRenew)
	s.ObserveCall(registrar.OpRenew, errors.New("disk full"))

	assert.Equal(t, 1.0, testutil.ToFloat64(s.calls.WithLabelValues("renew", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.calls.WithLabelValues("renew", ResultRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.calls.WithLabelValues("renew", ResultFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.rejections.WithLabelValues("renew", "InvalidRenew")))
}

func TestSink_WiredIntoRegistrar(t *testing.T) {
	s := New()
	reg, err := registrar.New(state.NewMemory(), registrar.DefaultConfig(), registrar.Options{
		Identity: registrar.StaticIdentity("alice"),
		Sink:     s,
		Observer: s,
	})
	require.NoError(t, err)

	ctx := context.Background()
	var name ir.Hash
	name[0] = 1
	require.NoError(t, reg.StartAuction(ctx, name))
	require.Error(t, reg.StartAuction(ctx, name))

	expected := `
# HELP registrar_rejections_total Rejected calls by error kind.
# TYPE registrar_rejections_total counter
registrar_rejections_total{kind="AuctionStartedAlready",op="start_auction"} 1
`
	require.NoError(t, testutil.GatherAndCompare(s.Registry(), strings.NewReader(expected), "registrar_rejections_total"))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.events.WithLabelValues("AuctionStarted")))
}

func TestSink_WriteTextfile(t *testing.T) {
	s := New()
	s.Emit(context.Background(), ir.Event{Seq: 7, Kind: ir.EventAuctionStarted})

	path := filepath.Join(t.TempDir(), "registrar.prom")
	require.NoError(t, s.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `registrar_events_total{kind="AuctionStarted"} 1`)
	assert.Contains(t, string(data), "registrar_last_event_seq 7")
}
