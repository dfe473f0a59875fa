/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package control

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"sync"

	"github.com/gorilla/websocket"
)

// Transport moves whole control messages between the two workers.
//
// ReadMessage is only called by the link's reader goroutine.
// WriteMessage can be called from any goroutine.
type Transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(bs []byte) error
	Close() error
}

// LineTransport frames messages with newlines over a stream (TCP or
// TLS).
type LineTransport struct {
	conn net.Conn
	in   *bufio.Reader

	sync.Mutex
}

// NewLineTransport wraps a connection.
func NewLineTransport(conn net.Conn) *LineTransport {
	return &LineTransport{
		conn: conn,
		in:   bufio.NewReader(conn),
	}
}

// ReadMessage returns the next non-empty line without its newline.
func (t *LineTransport) ReadMessage() ([]byte, error) {
	for {
		line, err := t.in.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if err != nil {
			if err == io.EOF && 0 < len(line) {
				return line, nil
			}
			return nil, err
		}
		if 0 < len(line) {
			return line, nil
		}
	}
}

// WriteMessage writes the message followed by a newline.
func (t *LineTransport) WriteMessage(bs []byte) error {
	t.Lock()
	defer t.Unlock()
	buf := make([]byte, 0, len(bs)+1)
	buf = append(append(buf, bs...), '\n')
	_, err := t.conn.Write(buf)
	return err
}

func (t *LineTransport) Close() error {
	return t.conn.Close()
}

// WebSocketTransport sends each message as one text frame.
type WebSocketTransport struct {
	conn *websocket.Conn

	sync.Mutex
}

// NewWebSocketTransport wraps a WebSocket connection.
func NewWebSocketTransport(conn *websocket.Conn) *WebSocketTransport {
	return &WebSocketTransport{
		conn: conn,
	}
}

func (t *WebSocketTransport) ReadMessage() ([]byte, error) {
	for {
		_, bs, err := t.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if bs = bytes.TrimSpace(bs); 0 < len(bs) {
			return bs, nil
		}
	}
}

// WriteMessage is safe for concurrent use.  (The underlying
// connection supports only one concurrent writer.)
func (t *WebSocketTransport) WriteMessage(bs []byte) error {
	t.Lock()
	defer t.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, bs)
}

func (t *WebSocketTransport) Close() error {
	t.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	t.conn.WriteMessage(websocket.CloseMessage, msg)
	t.Unlock()
	return t.conn.Close()
}
