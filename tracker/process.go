package tracker

import (
	"context"
	"sync"

	"gocv.io/x/gocv"

	"github.com/travisano/unite-heatmap/store"
	"github.com/travisano/unite-heatmap/types"
)

type frameTask struct {
	ordinal int
	seq     int
	crop    gocv.Mat
}

type frameResult struct {
	ordinal    int
	detections types.FrameDetections
}

// process analyses stored frames in sequence order. When ctx is cancelled it
// stops feeding new frames and returns what was analysed so far, in order.
func (c *Controller) process(ctx context.Context, total int) ([]types.FrameDetections, error) {
	if c.opts.Workers == 1 {
		return c.processSequential(ctx, total)
	}
	return c.processParallel(ctx, total)
}

func (c *Controller) processSequential(ctx context.Context, total int) ([]types.FrameDetections, error) {
	var frames []types.FrameDetections
	err := c.deps.Frames.Iterate(func(seq int, crop gocv.Mat) error {
		if ctx.Err() != nil {
			return store.ErrStop
		}
		frames = append(frames, c.deps.Analyzer.Analyze(crop, seq))
		c.progress(len(frames), total)
		return nil
	})
	return frames, err
}

func (c *Controller) processParallel(ctx context.Context, total int) ([]types.FrameDetections, error) {
	tasks := make(chan frameTask, c.opts.Workers)
	results := make(chan frameResult, c.opts.Workers*2)
	var wg sync.WaitGroup

	// Aggregator: workers finish out of order, hand results on in order
	var frames []types.FrameDetections
	aggDone := make(chan struct{})
	go func() {
		defer close(aggDone)
		buffer := make(map[int]types.FrameDetections)
		next := 0
		for res := range results {
			buffer[res.ordinal] = res.detections
			for {
				d, ok := buffer[next]
				if !ok {
					break
				}
				delete(buffer, next)
				frames = append(frames, d)
				next++
				c.progress(len(frames), total)
			}
		}
	}()

	for i := 0; i < c.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				d := c.deps.Analyzer.Analyze(task.crop, task.seq)
				task.crop.Close()
				results <- frameResult{ordinal: task.ordinal, detections: d}
			}
		}()
	}

	ordinal := 0
	err := c.deps.Frames.Iterate(func(seq int, crop gocv.Mat) error {
		if ctx.Err() != nil {
			return store.ErrStop
		}
		// the store closes crop when we return, workers get their own copy
		task := frameTask{ordinal: ordinal, seq: seq, crop: crop.Clone()}
		select {
		case tasks <- task:
			ordinal++
			return nil
		case <-ctx.Done():
			task.crop.Close()
			return store.ErrStop
		}
	})

	close(tasks)
	wg.Wait()
	close(results)
	<-aggDone

	return frames, err
}

func (c *Controller) progress(done, total int) {
	if c.OnProgress != nil {
		c.OnProgress(done, total)
	}
}
