package registrar_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/registrar/internal/ir"
	"github.com/roach88/registrar/internal/registrar"
)

func TestMultiSink(t *testing.T) {
	a, b := &registrar.Recorder{}, &registrar.Recorder{}
	sink := registrar.MultiSink{a, registrar.DiscardSink{}, b}

	sink.Emit(context.Background(), ir.Event{Seq: 1, Kind: ir.EventNewBid})

	assert.Equal(t, []ir.EventKind{ir.EventNewBid}, a.Kinds())
	assert.Equal(t, []ir.EventKind{ir.EventNewBid}, b.Kinds())
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sink := registrar.LogSink{Logger: logger}

	sink.Emit(context.Background(), ir.Event{
		Seq:       3,
		Kind:      ir.EventCancelBid,
		SealedBid: salt(7),
		From:      bob,
	})

	out := buf.String()
	assert.Contains(t, out, "CancelBid")
	assert.Contains(t, out, "seq=3")
	assert.Contains(t, out, "from=bob")
	assert.Contains(t, out, "sealed_bid="+salt(7).String())
	assert.NotContains(t, out, "name=")
}
