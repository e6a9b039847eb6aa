package service

import (
	"context"
	"testing"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

func TestPipeline_CommitsBatchDespiteBadJob(t *testing.T) {
	p := NewPipeline(testRunner(), 5*time.Second, zap.NewNop())

	records := make(chan []*kgo.Record, 1)
	flushed := make(chan []*kgo.Record, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		p.Run(ctx, records, flushed)
		close(done)
	}()

	batch := []*kgo.Record{
		{Topic: "synth.jobs", Offset: 1, Value: []byte(lineRequest)},
		{Topic: "synth.jobs", Offset: 2, Value: []byte(`{"routers":[]}`)},
	}
	records <- batch

	select {
	case got := <-flushed:
		if len(got) != 2 {
			t.Fatalf("expected the full batch forwarded for commit, got %d records", len(got))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the batch to be flushed")
	}

	close(records)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pipeline did not stop after the records channel closed")
	}
}
