package primitives

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BenIlies/NoPASARAN-sub000/control"
	"github.com/BenIlies/NoPASARAN-sub000/core"
)

// Control primitives use the control link shared by the whole
// machine tree.  Waits never fail.  They trigger TIMEOUT instead.
var Control = []*core.Primitive{
	{
		Name:  "start_control_channel",
		Arity: core.Arity{OptionalInputs: true},
		Doc:   "listens or connects in the background",
		F:     startControlChannel,
	},
	{
		Name:  "wait_ready_signal",
		Arity: core.Arity{Inputs: 1},
		Doc:   "READY when both sides are ready, else TIMEOUT",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			d, err := timeout(m, inputs[0])
			if err != nil {
				return err
			}
			if Link(m).WaitReady(ctx, d) {
				return m.TriggerEvent(ctx, core.EventReady)
			}
			return m.TriggerEvent(ctx, core.EventTimeout)
		},
	},
	{
		Name:  "sync",
		Arity: core.Arity{OptionalInputs: true},
		Doc:   "sends variables' values to the peer and triggers SYNC_SENT",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			vals := make([]interface{}, 0, len(inputs))
			for _, name := range inputs {
				x, _ := m.Get(name)
				vals = append(vals, x)
			}
			if err := Link(m).Sync(vals); err != nil {
				return err
			}
			return m.TriggerEvent(ctx, core.EventSyncSent)
		},
	},
	{
		Name:  "wait_sync_signal",
		Arity: core.Arity{Inputs: 1, OptionalOutputs: true},
		Doc:   "binds the next synced values (SYNC_AVAILABLE), else TIMEOUT",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			d, err := timeout(m, inputs[0])
			if err != nil {
				return err
			}
			vals, ok := Link(m).WaitSync(ctx, d)
			if !ok {
				return m.TriggerEvent(ctx, core.EventTimeout)
			}
			for i, name := range outputs {
				if len(vals) <= i {
					return &core.IndexError{What: "sync values", Index: i, Len: len(vals)}
				}
				m.Set(name, vals[i])
			}
			return m.TriggerEvent(ctx, core.EventSyncAvailable)
		},
	},
	{
		Name: "disconnecting",
		Doc:  "starts the disconnection handshake",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			if err := Link(m).Disconnect(); err != nil {
				if err == control.NotConnected {
					m.Logger().Warn("disconnecting without a control link")
					return nil
				}
				return err
			}
			return nil
		},
	},
	{
		Name:  "wait_for_disconnecting_control_link",
		Arity: core.Arity{Inputs: 1},
		Doc:   "DISCONNECTED when the link is down, else TIMEOUT",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			d, err := timeout(m, inputs[0])
			if err != nil {
				return err
			}
			if Link(m).WaitInactive(ctx, d) {
				return m.TriggerEvent(ctx, core.EventDisconnected)
			}
			return m.TriggerEvent(ctx, core.EventTimeout)
		},
	},
}

// Link returns the control link on the machine's root, making one if
// needed.
func Link(m *core.Machine) *control.Link {
	if x, have := m.Handle(LinkHandle); have {
		if l, is := x.(*control.Link); is {
			return l
		}
	}
	l := control.NewLink(m.Env().Logger)
	m.SetHandle(LinkHandle, l)
	return l
}

// startControlChannel takes no inputs (use the configured control
// settings), one input (a variable holding settings as a map), or
// two inputs (role and address, each a variable or a literal).
func startControlChannel(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
	var cfg control.Config

	switch len(inputs) {
	case 0:
		x, have := m.Handle(ControlConfigHandle)
		if !have {
			return fmt.Errorf("no control channel configured")
		}
		c, is := x.(*control.Config)
		if !is {
			return fmt.Errorf("bad control configuration (%T)", x)
		}
		cfg = *c
	case 1:
		x, err := lookup(m, inputs[0])
		if err != nil {
			return err
		}
		js, err := json.Marshal(x)
		if err != nil {
			return err
		}
		if err = json.Unmarshal(js, &cfg); err != nil {
			return fmt.Errorf("bad control configuration in %s: %w", inputs[0], err)
		}
	case 2:
		cfg.Role = fmt.Sprint(valueOrLiteral(m, inputs[0]))
		cfg.Address = fmt.Sprint(valueOrLiteral(m, inputs[1]))
		if x, have := m.Handle(ControlConfigHandle); have {
			if c, is := x.(*control.Config); is {
				cfg.Transport, cfg.Path, cfg.TLS = c.Transport, c.Path, c.TLS
			}
		}
	default:
		return fmt.Errorf("start_control_channel takes at most 2 inputs")
	}

	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.Logger().WithField("role", cfg.Role).WithField("address", cfg.Address).Info("starting control channel")
	Link(m).Open(ctx, &cfg)

	return nil
}
