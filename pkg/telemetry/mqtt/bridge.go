// Package mqtt bridges the tower's packet stream to an MQTT broker:
// transmitted packets publish as telemetry, and frames arriving on the
// command topic inject into the receive path.
package mqtt

import (
	"encoding/json"
	"net/url"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/towerlink/tower.go/pkg/comm"
	"github.com/towerlink/tower.go/pkg/tower"
)

// Bridge wraps the MQTT client for one tower node.
type Bridge struct {
	client paho.Client
	prefix string
}

// ClientOptionsFromURL creates ClientOptions from URL. The URL path
// becomes the topic prefix and the client-id query parameter sets the
// client identifier.
func ClientOptionsFromURL(serverURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	var server string
	if u.Scheme == "" || u.Scheme == "mqtt" {
		server = "tcp"
	} else {
		server = u.Scheme
	}
	server += "://" + u.Host

	topicPrefix := strings.TrimPrefix(u.Path, "/")

	opts := paho.NewClientOptions()
	opts.AddBroker(server).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if clientID := u.Query().Get("client-id"); clientID != "" {
		opts.SetClientID(clientID)
	}
	return opts, topicPrefix, nil
}

// NewBridge creates a Bridge from a broker URL. The prefix argument
// overrides the URL path when non-empty.
func NewBridge(brokerURL, prefix string) (*Bridge, error) {
	opts, urlPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = urlPrefix
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Bridge{client: paho.NewClient(opts), prefix: prefix}, nil
}

// Connect connects to the broker and waits for the result.
func (b *Bridge) Connect() error {
	token := b.client.Connect()
	token.Wait()
	return token.Error()
}

// Close implements io.Closer.
func (b *Bridge) Close() error {
	b.client.Disconnect(0)
	return nil
}

// packetMsg is the JSON wire shape of one packet.
type packetMsg struct {
	Command    byte `json:"command"`
	Parameter1 byte `json:"parameter1"`
	Parameter2 byte `json:"parameter2"`
	Parameter3 byte `json:"parameter3"`
}

// PublishPacket publishes one transmitted packet under
// <prefix>tx/<name>. It is shaped to hang off tower.Options.Observer
// and never blocks the transmit path.
func (b *Bridge) PublishPacket(p comm.Packet) {
	payload, err := json.Marshal(packetMsg{
		Command:    p.Command,
		Parameter1: p.Parameter1,
		Parameter2: p.Parameter2,
		Parameter3: p.Parameter3,
	})
	if err != nil {
		return
	}
	topic := b.prefix + "tx/" + TopicName(p.Opcode())
	glog.V(2).Infof("PUB %q", topic)
	b.client.Publish(topic, 0, false, payload)
}

// SubscribeCommands subscribes <prefix>cmd and hands each decoded
// packet to handler, typically tower's frame injection.
func (b *Bridge) SubscribeCommands(handler func(comm.Packet)) error {
	topic := b.prefix + "cmd"
	glog.V(2).Infof("SUB %q", topic)
	token := b.client.Subscribe(topic, 0, func(c paho.Client, msg paho.Message) {
		var m packetMsg
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			glog.Warningf("bad command payload on %q: %v", msg.Topic(), err)
			return
		}
		handler(comm.Packet{
			Command:    m.Command,
			Parameter1: m.Parameter1,
			Parameter2: m.Parameter2,
			Parameter3: m.Parameter3,
		})
	})
	token.Wait()
	return token.Error()
}

// TopicName maps an opcode to its telemetry topic segment.
func TopicName(op byte) string {
	switch op {
	case tower.CmdStartup:
		return "startup"
	case tower.CmdFlashProgram:
		return "flash-program"
	case tower.CmdFlashRead:
		return "flash-read"
	case tower.CmdVersion:
		return "version"
	case tower.CmdProtocolMode:
		return "protocol-mode"
	case tower.CmdTowerNumber:
		return "number"
	case tower.CmdTime:
		return "time"
	case tower.CmdTowerMode:
		return "mode"
	case tower.CmdAnalogInput:
		return "analog"
	}
	return "other"
}
