package clientmqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"artnetd/internal/artnet"
	"artnetd/internal/logger"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// ClientMQTT bridges a session to an MQTT broker: received frames are
// published and channel writes are subscribed to.
type ClientMQTT struct {
	ctx       context.Context
	log       *logger.Log
	cfgClient MQTTConf
	client    mqtt.Client
	opts      *mqtt.ClientOptions
	dmxDataCh chan<- DataCh
}

// MQTTClient is a convenience interface to use within this application.
type MQTTClient interface {
	Start(ctx context.Context, dmxDataCh chan<- DataCh) error
	Stop() error
	PublishFrame(f artnet.Frame) error
}

var _ MQTTClient = (*ClientMQTT)(nil)

// NewClient fills in defaults for the client ID, schema and timers.
func NewClient(log logger.Logger, cfgClient MQTTConf) *ClientMQTT {
	if cfgClient.ClientID == "" {
		cfgClient.ClientID = "artnetd-" + uuid.NewString()
	}
	if cfgClient.Schema == "" {
		cfgClient.Schema = "tcp"
	}
	if cfgClient.RetryInterval <= 0 {
		cfgClient.RetryInterval = 5 * time.Second
	}
	if cfgClient.KeepAlive <= 0 {
		cfgClient.KeepAlive = 30 * time.Second
	}
	cfgClient.TopicPrefix = strings.Trim(cfgClient.TopicPrefix, "/")
	return &ClientMQTT{
		log:       log.Module("mqtt"),
		cfgClient: cfgClient,
	}
}

func (c *ClientMQTT) Start(ctx context.Context, dmxDataCh chan<- DataCh) error {
	if c.log.GetLevel() == "debug" {
		mqtt.ERROR = log.New(os.Stdout, "[ERROR] ", 0)
		mqtt.CRITICAL = log.New(os.Stdout, "[CRIT] ", 0)
		mqtt.WARN = log.New(os.Stdout, "[WARN]  ", 0)
	}

	c.ctx = ctx
	c.dmxDataCh = dmxDataCh

	c.opts = mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%s", c.cfgClient.Schema, c.cfgClient.Host, c.cfgClient.Port)).
		SetUsername(c.cfgClient.User).
		SetPassword(c.cfgClient.Password).
		SetDefaultPublishHandler(c.messageHandler).
		SetOnConnectHandler(c.connectHandler).
		SetConnectionLostHandler(c.connectLostHandler).
		SetClientID(c.cfgClient.ClientID).
		SetOrderMatters(false).
		SetCleanSession(false).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(c.cfgClient.RetryInterval).
		SetMaxReconnectInterval(c.cfgClient.RetryInterval).
		SetKeepAlive(c.cfgClient.KeepAlive)

	c.client = mqtt.NewClient(c.opts)

	token := c.client.Connect()
	select {
	case <-token.Done():
		if token.Error() != nil {
			return token.Error()
		}
	case <-c.ctx.Done():
		return errors.New("context canceled")
	}

	c.log.Infof("Status: %v", c.client.IsConnected())
	return nil
}

func (c *ClientMQTT) Stop() error {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(500)
	}
	return nil
}

// connectHandler subscribes again after every reconnect.
func (c *ClientMQTT) connectHandler(client mqtt.Client) {
	c.log.Info("client connected to server")
	c.sub(client, c.setTopic())
}

func (c *ClientMQTT) connectLostHandler(_ mqtt.Client, err error) {
	c.log.Errorf("server connect lost: %v", err)
}

func (c *ClientMQTT) dmxTopic(universe uint16) string {
	a := artnet.PortAddress(universe)
	return fmt.Sprintf("%s/dmx/%d/%d", c.cfgClient.TopicPrefix, a.Net, a.SubUni)
}

func (c *ClientMQTT) setTopic() string {
	return c.cfgClient.TopicPrefix + "/set/+"
}

// PublishFrame publishes f to <prefix>/dmx/<net>/<subuni>.
func (c *ClientMQTT) PublishFrame(f artnet.Frame) error {
	if c.client == nil {
		return errors.New("mqtt client not started")
	}
	topic, msg, err := c.frameMessage(f)
	if err != nil {
		return err
	}

	token := c.client.Publish(topic, c.cfgClient.Qos, false, msg)
	go func() {
		select {
		case <-c.ctx.Done():
			return
		case <-token.Done():
			if token.Error() != nil {
				c.log.Errorf("error publish topic %s. %v", topic, token.Error())
			}
		}
	}()
	return nil
}

func (c *ClientMQTT) frameMessage(f artnet.Frame) (string, []byte, error) {
	a := artnet.PortAddress(f.Packet.Universe)
	values := make([]int, len(f.Packet.Data))
	for i, v := range f.Packet.Data {
		values[i] = int(v)
	}
	msg, err := json.Marshal(FrameMessage{
		Universe: f.Packet.Universe,
		Net:      a.Net,
		SubUni:   a.SubUni,
		Sequence: f.Packet.Sequence,
		Source:   f.Source.String(),
		Values:   values,
	})
	if err != nil {
		return "", nil, fmt.Errorf("frame of universe %d: %w", f.Packet.Universe, err)
	}
	return c.dmxTopic(f.Packet.Universe), msg, nil
}

func (c *ClientMQTT) messageHandler(_ mqtt.Client, msg mqtt.Message) {
	c.log.Debugf("received message: %s from topic: %s", msg.Payload(), msg.Topic())
	go c.sendDataToArtNet(msg)
}

func (c *ClientMQTT) sendDataToArtNet(msg mqtt.Message) {
	data, err := c.parseSetMessage(msg)
	if err != nil {
		c.log.Errorf("message dropped: %v", err)
		return
	}
	c.log.Debugf("message payload parsed. Result: %v", data)
	select {
	case c.dmxDataCh <- data:
	case <-c.ctx.Done():
	}
}

// parseSetMessage decodes a channel write published on <prefix>/set/<universe>.
func (c *ClientMQTT) parseSetMessage(msg mqtt.Message) (DataCh, error) {
	prefix := c.cfgClient.TopicPrefix + "/set/"
	rest, ok := strings.CutPrefix(msg.Topic(), prefix)
	if !ok {
		return DataCh{}, fmt.Errorf("topic %s is not a channel write", msg.Topic())
	}
	universe, err := strconv.ParseUint(rest, 10, 15)
	if err != nil {
		return DataCh{}, fmt.Errorf("topic %s: universe: %w", msg.Topic(), err)
	}

	var data Payload
	if err := json.Unmarshal(msg.Payload(), &data); err != nil {
		return DataCh{}, fmt.Errorf("message could not be parsed (%s): %w", msg.Payload(), err)
	}
	return DataCh{Addr: uint16(universe), Data: data}, nil
}

func (c *ClientMQTT) sub(client mqtt.Client, topic string) {
	token := client.Subscribe(topic, c.cfgClient.Qos, nil)
	go func() {
		select {
		case <-c.ctx.Done():
			return
		case <-token.Done():
			if token.Error() != nil {
				c.log.Errorf("topic %s subscription error. %v", topic, token.Error())
				return
			}
		}
		c.log.Debugf("topic %s subscribed", topic)
	}()
}
