package control

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
)

// Message is one control link message.  A message carries a status,
// a sync payload, or both.
//
// On the wire a message is a single line: the base64 encoding of a
// JSON object with the optional keys "STATUS" and "SYNC".  The value
// of "SYNC" is itself the base64 encoding of a JSON array.
type Message struct {
	Status Status

	// Sync is nil when the message has no sync payload.
	Sync []interface{}
}

type envelope struct {
	Status Status `json:"STATUS,omitempty"`
	Sync   string `json:"SYNC,omitempty"`
}

// DecodeError reports an inbound message that couldn't be decoded.
// The message is dropped and the link stays up.
type DecodeError struct {
	Problem string
	Raw     string
}

func (e *DecodeError) Error() string {
	raw := e.Raw
	if 64 < len(raw) {
		raw = raw[:64] + "..."
	}
	return "undecodable control message (" + e.Problem + "): " + raw
}

// StatusMessage makes a Message that only carries a status.
func StatusMessage(s Status) *Message {
	return &Message{Status: s}
}

// SyncMessage makes a Message that carries the given values.
func SyncMessage(vals []interface{}) *Message {
	if vals == nil {
		vals = []interface{}{}
	}
	return &Message{Sync: vals}
}

// Encode renders the message in its wire form (without a newline).
func Encode(m *Message) ([]byte, error) {
	var env envelope
	env.Status = m.Status
	if m.Sync != nil {
		vals := make([]interface{}, len(m.Sync))
		for i, x := range m.Sync {
			v, err := wireValue(x)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		js, err := json.Marshal(vals)
		if err != nil {
			return nil, err
		}
		env.Sync = base64.StdEncoding.EncodeToString(js)
	}
	js, err := json.Marshal(&env)
	if err != nil {
		return nil, err
	}
	bs := make([]byte, base64.StdEncoding.EncodedLen(len(js)))
	base64.StdEncoding.Encode(bs, js)
	return bs, nil
}

// Framed is a value, such as a captured packet, that syncs as its raw
// bytes.  The peer gets the base64 string of those bytes.
type Framed interface {
	Data() []byte
}

// OpaqueValueError reports a sync value that has no JSON form.
type OpaqueValueError struct {
	Type string
}

func (e *OpaqueValueError) Error() string {
	return "can't sync a " + e.Type
}

func wireValue(x interface{}) (interface{}, error) {
	switch vv := x.(type) {
	case nil, string, bool, float64, int, []interface{}, map[string]interface{}:
		return x, nil
	case Framed:
		return vv.Data(), nil
	}
	js, err := json.Marshal(x)
	if err != nil {
		return nil, fmt.Errorf("can't sync a %T: %v", x, err)
	}
	// A struct with no exported fields would arrive as {}.
	if string(js) == "{}" {
		v := reflect.ValueOf(x)
		for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
			v = v.Elem()
		}
		if v.Kind() == reflect.Struct {
			return nil, &OpaqueValueError{Type: fmt.Sprintf("%T", x)}
		}
	}
	return x, nil
}

// Decode parses a message in its wire form.  All problems are
// reported as a *DecodeError.
func Decode(bs []byte) (*Message, error) {
	bad := func(problem string) (*Message, error) {
		return nil, &DecodeError{Problem: problem, Raw: string(bs)}
	}

	js := make([]byte, base64.StdEncoding.DecodedLen(len(bs)))
	n, err := base64.StdEncoding.Decode(js, bs)
	if err != nil {
		return bad("base64: " + err.Error())
	}
	js = js[:n]

	var raw map[string]json.RawMessage
	if err = json.Unmarshal(js, &raw); err != nil {
		return bad("json: " + err.Error())
	}

	var m Message
	_, hasStatus := raw["STATUS"]
	_, hasSync := raw["SYNC"]
	if !hasStatus && !hasSync {
		return bad("no STATUS or SYNC")
	}

	var env envelope
	if err = json.Unmarshal(js, &env); err != nil {
		return bad("json: " + err.Error())
	}

	if hasStatus {
		if !env.Status.Valid() {
			return bad(`unknown status "` + string(env.Status) + `"`)
		}
		m.Status = env.Status
	}

	if hasSync {
		payload, err := base64.StdEncoding.DecodeString(env.Sync)
		if err != nil {
			return bad("SYNC base64: " + err.Error())
		}
		var vals []interface{}
		if err = json.Unmarshal(payload, &vals); err != nil {
			return bad("SYNC json: " + err.Error())
		}
		if vals == nil {
			vals = []interface{}{}
		}
		m.Sync = vals
	}

	return &m, nil
}
