package clientmqtt

import (
	"time"

	"artnetd/internal/artnet"
)

type MQTTConf struct {
	ClientID    string // ClientID is the client name presented to the broker, generated when empty.
	Schema      string // Schema is the connection type, "tcp" when empty.
	Host        string // Host is the MQTT server address.
	Port        string // Port is the MQTT server port.
	User        string // User is the login for the MQTT server.
	Password    string // Password is the password for the MQTT server.
	Qos         byte
	TopicPrefix string // TopicPrefix is prepended to every topic.

	RetryInterval time.Duration // RetryInterval is the connect and reconnect period, 5s when 0.
	KeepAlive     time.Duration // KeepAlive is 30s when 0.
}

// DataCh is a channel write requested over MQTT.
type DataCh struct {
	Addr uint16 // Addr is the 15-bit port-address of the target universe.
	Data Payload
}

// Values converts the request into session channel values.
func (d DataCh) Values() []artnet.ChannelValue {
	out := make([]artnet.ChannelValue, 0, len(d.Data))
	for _, cmd := range d.Data {
		out = append(out, artnet.ChannelValue{Universe: d.Addr, Channel: cmd.Channel, Value: cmd.Value})
	}
	return out
}

type DMXCommand struct {
	Channel uint16 `json:"channel"` // Channel is the channel a command can talk to (0-511).
	Value   uint8  `json:"value"`   // Value is the value a DMX channel can represent (0-255).
}

type Payload []DMXCommand

// FrameMessage is published for every ArtDmx frame the session receives.
type FrameMessage struct {
	Universe uint16 `json:"universe"`
	Net      uint8  `json:"net"`
	SubUni   uint8  `json:"subUni"`
	Sequence uint8  `json:"sequence"`
	Source   string `json:"source"`
	Values   []int  `json:"values"`
}
