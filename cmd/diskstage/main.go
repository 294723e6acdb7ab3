// diskstage is a minimal demonstration binary wiring together a page
// pool, several equipment input queues, the aggregator, and the
// diskstage consumer. It generates synthetic blocks instead of reading
// real detector hardware, the same role simple-column-db's main.go
// plays generating fake column data to exercise the storage engine.
package main

import (
	"log"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/dot5enko/readout-core/aggregator"
	"github.com/dot5enko/readout-core/datablock"
	"github.com/dot5enko/readout-core/internal/diskstage"
	"github.com/dot5enko/readout-core/internal/queue"
	"github.com/dot5enko/readout-core/pagepool"
	"github.com/dot5enko/readout-core/slicer"
)

const (
	pageSize      = 8192
	numberOfPages = 256
	numberOfLinks = 4
)

func main() {
	pool, err := pagepool.New(pagepool.Config{
		PageSize:      pageSize,
		NumberOfPages: numberOfPages,
	})
	if err != nil {
		log.Fatalf("pagepool.New: %s", err)
	}
	defer pool.Close()

	output := queue.New[slicer.DataSet](64)

	agg := aggregator.New(output, aggregator.Config{
		Name:              "demo",
		StalenessInterval: 100 * time.Millisecond,
	})

	inputs := make([]*queue.Queue[*pagepool.Container], numberOfLinks)
	for i := range inputs {
		inputs[i] = queue.New[*pagepool.Container](128)
		agg.AddInput(inputs[i])
	}

	agg.Start()
	defer agg.Stop(true)

	stopProducers := make(chan struct{})
	go produce(pool, inputs, stopProducers)

	sink := diskstage.New("./storage", true)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ds, ok := output.TryPop()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		if err := sink.Consume(ds); err != nil {
			slog.Error("diskstage consume failed", "err", err)
		}
	}

	close(stopProducers)
	agg.Flush()

	// drain whatever the flush produced.
	drainDeadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(drainDeadline) {
		ds, ok := output.TryPop()
		if !ok {
			continue
		}
		if err := sink.Consume(ds); err != nil {
			slog.Error("diskstage consume failed", "err", err)
		}
	}

	slog.Info("demo finished", "stats", agg.Stats())
	os.Exit(0)
}

func produce(pool *pagepool.Pool, inputs []*queue.Queue[*pagepool.Container], stop <-chan struct{}) {
	tf := uint64(0)

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			tf++
			for linkID, input := range inputs {
				container, err := pool.Wrap(nil)
				if err != nil {
					continue // pool exhausted, try again next tick
				}

				h := datablock.Default(pageSize)
				h.LinkID = uint32(linkID)
				h.TimeframeID = tf
				_ = datablock.Encode(container.Page(), h)

				fillRandom(container.Page()[datablock.Size:])

				if !input.TryPush(container) {
					container.Release()
				}
			}
		}
	}
}

func fillRandom(payload []byte) {
	for i := range payload {
		payload[i] = byte(rand.Intn(256))
	}
}
