package sniff

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Filter selects packets.
//
// The syntax is a small subset of BPF's: a conjunction of terms
// separated by whitespace (with optional "and").  A term is a
// protocol (tcp, udp, icmp, icmp6, ip, ip6, arp, dns), "[src|dst]
// port N", or "[src|dst] host ADDR".  "not" negates the next term.
// An empty expression matches everything.
type Filter struct {
	Expr  string
	terms []term
}

type term func(p gopacket.Packet) bool

var protocols = map[string]gopacket.LayerType{
	"tcp":   layers.LayerTypeTCP,
	"udp":   layers.LayerTypeUDP,
	"icmp":  layers.LayerTypeICMPv4,
	"icmp6": layers.LayerTypeICMPv6,
	"ip":    layers.LayerTypeIPv4,
	"ip6":   layers.LayerTypeIPv6,
	"arp":   layers.LayerTypeARP,
	"dns":   layers.LayerTypeDNS,
}

// ParseFilter parses a filter expression.
func ParseFilter(expr string) (*Filter, error) {
	f := &Filter{
		Expr: strings.TrimSpace(expr),
	}

	toks := strings.Fields(strings.ToLower(expr))
	next := func(i int) (string, error) {
		if len(toks) <= i {
			return "", fmt.Errorf(`filter "%s" ends early`, expr)
		}
		return toks[i], nil
	}

	negate := false
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		var t term

		switch tok {
		case "and", "&&":
			continue
		case "not", "!":
			negate = !negate
			continue
		case "src", "dst":
			what, err := next(i + 1)
			if err != nil {
				return nil, err
			}
			arg, err := next(i + 2)
			if err != nil {
				return nil, err
			}
			if t, err = endpointTerm(tok, what, arg); err != nil {
				return nil, err
			}
			i += 2
		case "port", "host":
			arg, err := next(i + 1)
			if err != nil {
				return nil, err
			}
			if t, err = endpointTerm("", tok, arg); err != nil {
				return nil, err
			}
			i++
		default:
			lt, have := protocols[tok]
			if !have {
				return nil, fmt.Errorf(`filter "%s": unknown term "%s"`, expr, tok)
			}
			t = func(p gopacket.Packet) bool {
				return p.Layer(lt) != nil
			}
		}

		if negate {
			pos := t
			t = func(p gopacket.Packet) bool {
				return !pos(p)
			}
			negate = false
		}
		f.terms = append(f.terms, t)
	}

	if negate {
		return nil, fmt.Errorf(`filter "%s" ends with "not"`, expr)
	}

	return f, nil
}

func endpointTerm(dir, what, arg string) (term, error) {
	src, dst := dir != "dst", dir != "src"

	switch what {
	case "port":
		n, err := strconv.ParseUint(arg, 10, 16)
		if err != nil {
			return nil, fmt.Errorf(`bad port "%s"`, arg)
		}
		port := uint16(n)
		return func(p gopacket.Packet) bool {
			if tcp, is := p.Layer(layers.LayerTypeTCP).(*layers.TCP); is {
				return (src && uint16(tcp.SrcPort) == port) || (dst && uint16(tcp.DstPort) == port)
			}
			if udp, is := p.Layer(layers.LayerTypeUDP).(*layers.UDP); is {
				return (src && uint16(udp.SrcPort) == port) || (dst && uint16(udp.DstPort) == port)
			}
			return false
		}, nil
	case "host":
		ip := net.ParseIP(arg)
		if ip == nil {
			return nil, fmt.Errorf(`bad host "%s"`, arg)
		}
		want := ip.String()
		return func(p gopacket.Packet) bool {
			nl := p.NetworkLayer()
			if nl == nil {
				return false
			}
			flow := nl.NetworkFlow()
			return (src && flow.Src().String() == want) || (dst && flow.Dst().String() == want)
		}, nil
	default:
		return nil, fmt.Errorf(`expected "port" or "host" after "%s", not "%s"`, dir, what)
	}
}

// Match reports whether the packet satisfies every term.
func (f *Filter) Match(p gopacket.Packet) bool {
	if f == nil {
		return true
	}
	for _, t := range f.terms {
		if !t(p) {
			return false
		}
	}
	return true
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.Expr
}
