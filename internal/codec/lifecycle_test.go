package codec

import (
	"testing"
	"time"
)

func TestStartStreamingPreconditions(t *testing.T) {
	inst := newTestInstance(t)
	s := newTestSession(t, RoleEncode, inst, DefaultConfig())

	wantCode(t, s.StartStreaming(DirInput), ErrCodeInvalidArgument)

	if _, err := s.RequestBuffers(DirInput, 2); err != nil {
		t.Fatalf("RequestBuffers failed: %v", err)
	}
	if err := s.StartStreaming(DirInput); err != nil {
		t.Fatalf("StartStreaming failed: %v", err)
	}
	wantCode(t, s.StartStreaming(DirInput), ErrCodeBusy)
}

func TestStopStreamingIdle(t *testing.T) {
	inst := newTestInstance(t)
	s := newTestSession(t, RoleEncode, inst, DefaultConfig())
	if err := s.StopStreaming(DirInput); err != nil {
		t.Errorf("stopping an idle queue should be a no-op, got %v", err)
	}
}

func TestDecodePortLifecycle(t *testing.T) {
	inst := newTestInstance(t)
	s := newDecodeFlow(t, inst)

	if !s.component.Enabled {
		t.Error("component should be enabled while streaming")
	}
	if !s.component.Input.Enabled || !s.component.Output.Enabled {
		t.Error("both ports should be enabled")
	}

	// Stopping capture while the source still streams keeps the output
	// port up so format events keep arriving.
	if err := s.StopStreaming(DirOutput); err != nil {
		t.Fatalf("StopStreaming output failed: %v", err)
	}
	if !s.component.Output.Enabled {
		t.Error("output port should stay enabled while input streams")
	}
	if err := s.StartStreaming(DirOutput); err != nil {
		t.Fatalf("restarting output failed: %v", err)
	}

	if err := s.StopStreaming(DirInput); err != nil {
		t.Fatalf("StopStreaming input failed: %v", err)
	}
	if s.component.Input.Enabled {
		t.Error("input port should be disabled")
	}

	// With the source gone the capture stop takes the component down.
	if err := s.StopStreaming(DirOutput); err != nil {
		t.Fatalf("final StopStreaming failed: %v", err)
	}
	if s.component.Output.Enabled {
		t.Error("output port should be disabled")
	}
	if s.component.Enabled {
		t.Error("component should be disabled once both queues stop")
	}
}

func TestStopStreamingReturnsBacklog(t *testing.T) {
	inst := newTestInstance(t)
	s := newTestSession(t, RoleEncode, inst, DefaultConfig())
	if _, err := s.RequestBuffers(DirInput, 2); err != nil {
		t.Fatalf("RequestBuffers failed: %v", err)
	}
	if err := s.StartStreaming(DirInput); err != nil {
		t.Fatalf("StartStreaming failed: %v", err)
	}

	b0, _ := s.Buffer(DirInput, 0)
	b0.BytesUsed = 8
	if err := s.QueueBuffer(DirInput, 0); err != nil {
		t.Fatalf("QueueBuffer failed: %v", err)
	}
	s.Abort()
	b1, _ := s.Buffer(DirInput, 1)
	b1.BytesUsed = 8
	if err := s.QueueBuffer(DirInput, 1); err != nil {
		t.Fatalf("QueueBuffer failed: %v", err)
	}

	// Buffer 0 is with the accelerator, buffer 1 parked. Stop returns
	// both: the backlog directly, the in-flight one through the flush.
	if err := s.StopStreaming(DirInput); err != nil {
		t.Fatalf("StopStreaming failed: %v", err)
	}
	inst.Sync()

	seen := map[int]bool{}
	for {
		b, err := s.DequeueBuffer(DirInput)
		if err != nil {
			break
		}
		seen[b.Index] = true
	}
	if !seen[0] || !seen[1] {
		t.Errorf("expected both buffers back, got %v", seen)
	}
}

func TestDrainTimeout(t *testing.T) {
	inst := newTestInstance(t)
	inst.HoldOnDisable = true
	cfg := DefaultConfig()
	cfg.DrainTimeout = 50 * time.Millisecond
	s := newTestSession(t, RoleEncode, inst, cfg)
	if _, err := s.RequestBuffers(DirInput, 3); err != nil {
		t.Fatalf("RequestBuffers failed: %v", err)
	}
	if err := s.StartStreaming(DirInput); err != nil {
		t.Fatalf("StartStreaming failed: %v", err)
	}
	for n := 0; n < 3; n++ {
		b, _ := s.Buffer(DirInput, n)
		b.BytesUsed = 8
		if err := s.QueueBuffer(DirInput, n); err != nil {
			t.Fatalf("QueueBuffer failed: %v", err)
		}
	}
	if held := inst.Held(s.component.Input); len(held) != 3 {
		t.Fatalf("expected 3 buffers with the accelerator, got %d", len(held))
	}

	start := time.Now()
	if err := s.StopStreaming(DirInput); err != nil {
		t.Fatalf("StopStreaming failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("stop returned before the drain deadline: %v", elapsed)
	}
	if got := s.component.Input.BuffersWithVPU.Load(); got != 3 {
		t.Errorf("outstanding = %d, want 3 (accelerator never returned them)", got)
	}
}

func TestDrainCompletes(t *testing.T) {
	inst := newTestInstance(t)
	inst.HoldOnDisable = true
	cfg := DefaultConfig()
	cfg.DrainTimeout = 5 * time.Second
	s := newTestSession(t, RoleEncode, inst, cfg)
	if _, err := s.RequestBuffers(DirInput, 2); err != nil {
		t.Fatalf("RequestBuffers failed: %v", err)
	}
	if err := s.StartStreaming(DirInput); err != nil {
		t.Fatalf("StartStreaming failed: %v", err)
	}
	for n := 0; n < 2; n++ {
		b, _ := s.Buffer(DirInput, n)
		b.BytesUsed = 8
		if err := s.QueueBuffer(DirInput, n); err != nil {
			t.Fatalf("QueueBuffer failed: %v", err)
		}
	}
	held := inst.Held(s.component.Input)
	if len(held) != 2 {
		t.Fatalf("expected 2 buffers with the accelerator, got %d", len(held))
	}

	stopped := make(chan error, 1)
	start := time.Now()
	go func() { stopped <- s.StopStreaming(DirInput) }()

	// Let the stop reach its drain wait, then hand the buffers back.
	time.Sleep(100 * time.Millisecond)
	for _, hw := range held {
		inst.ReturnBuffer(s.component.Input, hw)
	}

	if err := <-stopped; err != nil {
		t.Fatalf("StopStreaming failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("drain should finish well before the deadline, took %v", elapsed)
	}
	if got := s.component.Input.BuffersWithVPU.Load(); got != 0 {
		t.Errorf("outstanding = %d, want 0 after drain", got)
	}
}
