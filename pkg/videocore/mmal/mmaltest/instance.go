// Package mmaltest provides an in-memory mmal.Instance for tests and the
// simulator backend. Buffers are held until returned explicitly by the test
// or, in loopback mode, echoed through automatically.
package mmaltest

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/smazurov/codecbridge/pkg/videocore/mmal"
)

var knownComponents = map[string]bool{
	mmal.ComponentVideoDecode: true,
	mmal.ComponentVideoEncode: true,
	mmal.ComponentISP:         true,
	mmal.ComponentImageFX:     true,
	mmal.ComponentImageEncode: true,
}

// Instance is a fake accelerator. All callbacks are delivered from a single
// dispatcher goroutine, never from within an Instance method.
type Instance struct {
	mu         sync.Mutex
	deliveries chan func()
	done       chan struct{}
	closed     bool

	components []*mmal.Component
	held       map[*mmal.Port][]*mmal.Buffer
	params     map[*mmal.Port]map[uint32]any

	// InputMin and OutputMin seed MinimumBuffer on newly created
	// components. Set before ComponentInit.
	InputMin  mmal.BufferRequirements
	OutputMin mmal.BufferRequirements

	// HoldOnDisable suppresses the flush normally performed by
	// PortDisable, leaving buffers with the accelerator. Used to
	// exercise drain timeouts.
	HoldOnDisable bool

	// Loopback pairs each submitted input buffer with a held output
	// buffer and echoes payload and flags through the component.
	Loopback bool
}

// New creates a fake instance and starts its dispatcher.
func New() *Instance {
	i := &Instance{
		deliveries: make(chan func(), 256),
		done:       make(chan struct{}),
		held:       make(map[*mmal.Port][]*mmal.Buffer),
		params:     make(map[*mmal.Port]map[uint32]any),
		InputMin:   mmal.BufferRequirements{Num: 1, Size: 4096},
		OutputMin:  mmal.BufferRequirements{Num: 1, Size: 4096},
	}
	go i.dispatch()
	return i
}

// Close stops the dispatcher. Pending deliveries are drained first.
func (i *Instance) Close() error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil
	}
	i.closed = true
	i.mu.Unlock()
	close(i.deliveries)
	<-i.done
	return nil
}

func (i *Instance) dispatch() {
	defer close(i.done)
	for fn := range i.deliveries {
		fn()
	}
}

// Sync blocks until all deliveries enqueued so far have been processed.
func (i *Instance) Sync() {
	ch := make(chan struct{})
	i.deliveries <- func() { close(ch) }
	<-ch
}

// ComponentInit implements mmal.Instance.
func (i *Instance) ComponentInit(name string) (*mmal.Component, error) {
	if !knownComponents[name] {
		return nil, fmt.Errorf("%w: %s", mmal.ErrComponentUnknown, name)
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	c := &mmal.Component{Name: name}
	c.Control = &mmal.Port{Component: c, Direction: mmal.PortControl}
	c.Input = &mmal.Port{Component: c, Direction: mmal.PortInput, MinimumBuffer: i.InputMin}
	c.Output = &mmal.Port{Component: c, Direction: mmal.PortOutput, MinimumBuffer: i.OutputMin}
	i.components = append(i.components, c)
	return c, nil
}

// ComponentEnable implements mmal.Instance.
func (i *Instance) ComponentEnable(c *mmal.Component) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	c.Enabled = true
	return nil
}

// ComponentDisable implements mmal.Instance.
func (i *Instance) ComponentDisable(c *mmal.Component) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	c.Enabled = false
	return nil
}

// ComponentFinalize implements mmal.Instance.
func (i *Instance) ComponentFinalize(c *mmal.Component) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if c.Input.Enabled || c.Output.Enabled {
		return fmt.Errorf("mmaltest: finalize %s with enabled ports", c.Name)
	}
	delete(i.held, c.Input)
	delete(i.held, c.Output)
	for n, known := range i.components {
		if known == c {
			i.components = append(i.components[:n], i.components[n+1:]...)
			break
		}
	}
	return nil
}

// PortSetFormat implements mmal.Instance. The fake accepts any format and
// never raises the minimum buffer requirements.
func (i *Instance) PortSetFormat(p *mmal.Port) error {
	return nil
}

// PortEnable implements mmal.Instance.
func (i *Instance) PortEnable(p *mmal.Port, cb mmal.BufferCallback) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	p.Enabled = true
	p.Callback = cb
	return nil
}

// PortDisable implements mmal.Instance. Held buffers are flushed back
// through the callback with zero length unless HoldOnDisable is set.
func (i *Instance) PortDisable(p *mmal.Port) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	p.Enabled = false
	if i.HoldOnDisable {
		return nil
	}
	flushed := i.held[p]
	i.held[p] = nil
	cb := p.Callback
	for _, b := range flushed {
		b.Length = 0
		b.Flags = 0
		i.deliver(cb, p, b, nil)
	}
	return nil
}

// PortParameterSet implements mmal.Instance.
func (i *Instance) PortParameterSet(p *mmal.Port, id uint32, value any) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.params[p] == nil {
		i.params[p] = make(map[uint32]any)
	}
	i.params[p][id] = deref(value)
	return nil
}

// PortParameterGet implements mmal.Instance. value must be a pointer to
// the same type a previous set stored; unset parameters return
// mmal.ErrParameterUnset.
func (i *Instance) PortParameterGet(p *mmal.Port, id uint32, value any) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	stored, ok := i.params[p][id]
	if !ok {
		return mmal.ErrParameterUnset
	}
	dst := reflect.ValueOf(value)
	if dst.Kind() != reflect.Pointer {
		return fmt.Errorf("mmaltest: parameter get needs a pointer, got %T", value)
	}
	src := reflect.ValueOf(stored)
	if !src.Type().AssignableTo(dst.Elem().Type()) {
		return fmt.Errorf("mmaltest: parameter %d holds %T, requested %T", id, stored, value)
	}
	dst.Elem().Set(src)
	return nil
}

// SubmitBuffer implements mmal.Instance.
func (i *Instance) SubmitBuffer(p *mmal.Port, b *mmal.Buffer) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !p.Enabled {
		return mmal.ErrPortDisabled
	}
	p.BuffersWithVPU.Add(1)
	i.held[p] = append(i.held[p], b)
	if i.Loopback {
		i.loopbackLocked(p.Component)
	}
	return nil
}

// loopbackLocked pairs the oldest held input buffer with the oldest held
// output buffer and returns both.
func (i *Instance) loopbackLocked(c *mmal.Component) {
	for len(i.held[c.Input]) > 0 && len(i.held[c.Output]) > 0 {
		in := i.held[c.Input][0]
		out := i.held[c.Output][0]
		i.held[c.Input] = i.held[c.Input][1:]
		i.held[c.Output] = i.held[c.Output][1:]

		n := copy(out.Data, in.Data[:in.Length])
		out.Length = uint32(n)
		out.Flags = mmal.BufferFlagFrameEnd
		if in.Flags&mmal.BufferFlagEOS != 0 {
			out.Flags |= mmal.BufferFlagEOS
		}
		if in.Flags&mmal.BufferFlagKeyframe != 0 {
			out.Flags |= mmal.BufferFlagKeyframe
		}
		out.PTS = in.PTS
		out.DTS = mmal.TimeUnknown

		i.deliver(c.Input.Callback, c.Input, in, nil)
		i.deliver(c.Output.Callback, c.Output, out, nil)
	}
}

// ReturnBuffer returns a held buffer through the port callback. The caller
// mutates the buffer (length, flags, pts) before calling this.
func (i *Instance) ReturnBuffer(p *mmal.Port, b *mmal.Buffer) {
	i.returnHeld(p, b, nil)
}

// ReturnError returns a held buffer with a processing error.
func (i *Instance) ReturnError(p *mmal.Port, b *mmal.Buffer, status error) {
	i.returnHeld(p, b, status)
}

func (i *Instance) returnHeld(p *mmal.Port, b *mmal.Buffer, status error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for n, held := range i.held[p] {
		if held == b {
			i.held[p] = append(i.held[p][:n], i.held[p][n+1:]...)
			i.deliver(p.Callback, p, b, status)
			return
		}
	}
}

// SendEvent delivers a command buffer (an event) on a port. Event buffers
// are accelerator-owned and do not touch BuffersWithVPU.
func (i *Instance) SendEvent(p *mmal.Port, cmd uint32, ev *mmal.EventFormatChanged) {
	i.mu.Lock()
	defer i.mu.Unlock()
	buf := &mmal.Buffer{Cmd: cmd, Event: ev}
	cb := p.Callback
	if cb == nil {
		return
	}
	i.deliveries <- func() { cb(p, buf, nil) }
}

// Held reports the buffers currently owned by the accelerator on a port.
func (i *Instance) Held(p *mmal.Port) []*mmal.Buffer {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]*mmal.Buffer, len(i.held[p]))
	copy(out, i.held[p])
	return out
}

// Param reports the last value set for a port parameter.
func (i *Instance) Param(p *mmal.Port, id uint32) (any, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	v, ok := i.params[p][id]
	return v, ok
}

// deliver enqueues a callback invocation, decrementing the in-flight
// counter at delivery time so the last callback observes zero.
func (i *Instance) deliver(cb mmal.BufferCallback, p *mmal.Port, b *mmal.Buffer, status error) {
	if cb == nil {
		p.BuffersWithVPU.Add(-1)
		return
	}
	i.deliveries <- func() {
		p.BuffersWithVPU.Add(-1)
		cb(p, b, status)
	}
}

func deref(value any) any {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		return v.Elem().Interface()
	}
	return value
}
