package testutil

import (
	"reflect"
	"testing"

	"github.com/BenIlies/NoPASARAN-sub000/core"
)

type Packet struct {
	Proto string
	Port  int
}

func TestJS(t *testing.T) {
	tests := []struct {
		name string
		arg  interface{}
		want string
	}{
		{
			name: "simple struct",
			arg:  Packet{"tcp", 80},
			want: `{"Proto":"tcp","Port":80}`,
		},
		{
			name: "nested struct",
			arg: struct {
				Packet Packet
				ID     int
			}{Packet{"udp", 53}, 1},
			want: `{"Packet":{"Proto":"udp","Port":53},"ID":1}`,
		},
		{
			name: "unmarshallable",
			arg:  make(chan int),
			want: "(chan int)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JS(tt.arg)
			if tt.name == "unmarshallable" {
				if len(got) < len(tt.want) || got[:len(tt.want)] != tt.want {
					t.Errorf("JS() = %v, want prefix %v", got, tt.want)
				}
				return
			}
			if got != tt.want {
				t.Errorf("JS() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVars(t *testing.T) {
	vs := Vars(t, `{"role":"listen","port":8000,"peers":["42"]}`)
	want := core.Variables{
		"role":  "listen",
		"port":  float64(8000),
		"peers": []interface{}{"42"},
	}
	if !reflect.DeepEqual(vs, want) {
		t.Fatalf("%#v != %#v", vs, want)
	}
}

func TestMachine(t *testing.T) {
	m := Machine(t, OneState, nil, nil)
	if m.State != "start" {
		t.Fatalf("state %s", m.State)
	}
}
