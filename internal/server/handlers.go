// Package server exposes HTTP handlers, including the WebSocket upgrade
// endpoint, health check, and the built-in test page.
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// NewWebSocketHandler returns the upgrade handler for the relay endpoint. It
// validates that the request uses the GET method, upgrades the HTTP
// connection, and attaches the new client to the hub, which starts its read
// loop. An upgrade failure leaves no state behind.
func NewWebSocketHandler(hub *Hub, cfg Config) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     newOriginChecker(cfg),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
			return
		}

		hub.Attach(NewClient(conn, hub, r.RemoteAddr, cfg))
	}
}

// HealthHandler provides a simple health check endpoint that returns server
// status as plain text.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "CastRelay server is running!")
}

// TestPageHandler serves an HTML test page for exercising the relay. It
// connects to the WebSocket endpoint, sends raw text frames, and appends each
// received frame to a display list. Sending is only enabled while the
// connection is in the connected state.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>CastRelay Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] {
            width: 300px;
            padding: 5px;
            margin-right: 10px;
        }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .status {
            margin: 10px 0;
            padding: 5px;
            border-radius: 3px;
        }
        .connecting { background-color: #fff3cd; color: #856404; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>CastRelay Test</h1>

    <div id="status" class="status disconnected">Disconnected</div>

    <div>
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
    </div>

    <div id="messages"></div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');
        const connectButton = document.getElementById('connectButton');
        const statusDiv = document.getElementById('status');

        function addMessage(message, type = 'info') {
            const messageElement = document.createElement('div');
            messageElement.style.margin = '5px 0';
            messageElement.style.padding = '3px';

            if (type === 'received') {
                messageElement.style.color = 'green';
                messageElement.textContent = message;
            } else {
                messageElement.style.color = 'gray';
                messageElement.innerHTML = '<em></em>';
                messageElement.firstChild.textContent = message;
            }

            messagesDiv.appendChild(messageElement);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function setStatus(state, text) {
            statusDiv.textContent = text;
            statusDiv.className = 'status ' + state;
            const connected = state === 'connected';
            messageInput.disabled = !connected;
            sendButton.disabled = !connected;
            connectButton.textContent = connected ? 'Disconnect' : 'Connect';
        }

        function connect() {
            setStatus('connecting', 'Connecting...');
            ws = new WebSocket('ws://' + location.host + '/ws');

            ws.onopen = function() {
                addMessage('Connected to CastRelay');
                setStatus('connected', 'Connected');
            };

            ws.onmessage = function(event) {
                addMessage(event.data, 'received');
            };

            ws.onclose = function() {
                addMessage('Connection closed');
                setStatus('disconnected', 'Disconnected');
                ws = null;
            };

            ws.onerror = function() {
                addMessage('Connection error');
                setStatus('disconnected', 'Disconnected (error)');
            };
        }

        function disconnect() {
            if (ws) {
                ws.close();
            }
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                disconnect();
            } else {
                connect();
            }
        }

        function sendMessage() {
            const message = messageInput.value;
            if (message && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(message);
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`
	if _, err := fmt.Fprint(w, html); err != nil {
		slog.Warn("error writing HTML response", "error", err)
	}
}
