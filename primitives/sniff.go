package primitives

import (
	"context"
	"fmt"

	"github.com/BenIlies/NoPASARAN-sub000/core"
	"github.com/BenIlies/NoPASARAN-sub000/sniff"
)

// Sniffing primitives drive the configured sniffer.
var Sniffing = []*core.Primitive{
	{
		Name: "start_sniffer",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			s, err := Sniffer(m)
			if err != nil {
				return err
			}
			return s.Start(ctx)
		},
	},
	{
		Name: "stop_sniffer",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			s, err := Sniffer(m)
			if err != nil {
				return err
			}
			return s.Stop()
		},
	},
	{
		Name:  "set_sniffer_filter",
		Arity: core.Arity{Inputs: 1},
		Doc:   "the input is a variable holding the filter or a literal",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			s, err := Sniffer(m)
			if err != nil {
				return err
			}
			expr, is := valueOrLiteral(m, inputs[0]).(string)
			if !is {
				return fmt.Errorf(`filter "%s" isn't a string`, inputs[0])
			}
			return s.SetFilter(expr)
		},
	},
	{
		Name:  "wait_packet_signal",
		Arity: core.Arity{Inputs: 1, Outputs: 1},
		Doc:   "binds the next captured packet (PACKET_AVAILABLE), else TIMEOUT",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			d, err := timeout(m, inputs[0])
			if err != nil {
				return err
			}
			s, err := Sniffer(m)
			if err != nil {
				return err
			}
			p, ok := s.Queue().Wait(ctx, d)
			if !ok {
				return m.TriggerEvent(ctx, core.EventTimeout)
			}
			m.Set(outputs[0], p)
			return m.TriggerEvent(ctx, core.EventPacketAvailable)
		},
	},
}

// Sniffer returns the sniffer on the machine's root.
func Sniffer(m *core.Machine) (sniff.Sniffer, error) {
	x, have := m.Handle(SnifferHandle)
	if !have {
		return nil, fmt.Errorf("no sniffer configured")
	}
	s, is := x.(sniff.Sniffer)
	if !is {
		return nil, fmt.Errorf("bad sniffer (%T)", x)
	}
	return s, nil
}
