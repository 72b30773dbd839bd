package main

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"artnetd/internal/artnet"
	"artnetd/internal/artnet/packet"
	"artnetd/internal/capture"
	"artnetd/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertConfigSession(t *testing.T) {
	cfg, err := config.Parse("[artnet]\nrole = \"node\"\npoll-interval = \"1s\"\nframe-rate = 30\n")
	require.NoError(t, err)

	opts, err := ConvertConfigSession(cfg.ArtNet)
	require.NoError(t, err)
	assert.Equal(t, artnet.RoleNode, opts.Role)
	assert.Equal(t, time.Second, opts.PollInterval)
	assert.Equal(t, 30, opts.FrameRate)
	assert.Equal(t, uint16(6454), opts.Port)
	assert.Equal(t, "artnetd", opts.ShortName)

	cfg.ArtNet.Role = "bridge"
	_, err = ConvertConfigSession(cfg.ArtNet)
	assert.Error(t, err)
}

func TestConvertConfigClientMQTT(t *testing.T) {
	got := ConvertConfigClientMQTT(config.MQTTConf{Host: "broker", Port: "1884", Qos: 1, TopicPrefix: "venue"})
	assert.Equal(t, "tcp", got.Schema)
	assert.Equal(t, "broker", got.Host)
	assert.Equal(t, "1884", got.Port)
	assert.Equal(t, byte(1), got.Qos)
	assert.Equal(t, "venue", got.TopicPrefix)
}

func TestShippedConfig(t *testing.T) {
	cfg, err := config.NewConfig("../configs/conf.toml")
	require.NoError(t, err)
	assert.Len(t, cfg.ArtNet.Universes, 2)
}

func withFlags(t *testing.T, cfgPath, replay string) {
	t.Helper()
	oldConfig, oldReplay := configFile, replayFile
	configFile, replayFile = cfgPath, replay
	t.Cleanup(func() { configFile, replayFile = oldConfig, oldReplay })
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()

	withFlags(t, filepath.Join(dir, "missing.toml"), "")
	assert.ErrorContains(t, run(), "configuration file read error")

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[logger]\nlog-level = \"loud\"\n"), 0o600))
	withFlags(t, bad, "")
	assert.ErrorContains(t, run(), "failed to create a logger")

	conf := filepath.Join(dir, "conf.toml")
	require.NoError(t, os.WriteFile(conf, []byte("[logger]\nlog-level = \"error\"\n"), 0o600))
	withFlags(t, conf, filepath.Join(dir, "missing.pcap"))
	assert.ErrorContains(t, run(), "replay")
}

func TestRunReplay(t *testing.T) {
	dir := t.TempDir()
	pcap := filepath.Join(dir, "show.pcap")
	f, err := os.Create(pcap)
	require.NoError(t, err)
	rec, err := capture.NewRecorder(f)
	require.NoError(t, err)
	require.NoError(t, rec.Record(
		netip.MustParseAddrPort("192.168.1.50:6454"),
		netip.MustParseAddrPort("192.168.1.255:6454"),
		packet.NewDiscoveryPoll().Encode(),
		time.Now(),
	))
	require.NoError(t, f.Close())

	conf := filepath.Join(dir, "conf.toml")
	require.NoError(t, os.WriteFile(conf, []byte("[logger]\nlog-level = \"error\"\n"), 0o600))
	withFlags(t, conf, pcap)
	assert.NoError(t, run())
}
