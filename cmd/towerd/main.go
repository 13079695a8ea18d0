package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/towerlink/tower.go/pkg/comm"
	"github.com/towerlink/tower.go/pkg/config"
	"github.com/towerlink/tower.go/pkg/flash"
	"github.com/towerlink/tower.go/pkg/framework"
	"github.com/towerlink/tower.go/pkg/telemetry/mqtt"
	"github.com/towerlink/tower.go/pkg/tower"
	"github.com/towerlink/tower.go/pkg/tower/cmds"
)

const (
	versionMajor = 5
	versionMinor = 0
)

var configFile string

func init() {
	if val := os.Getenv("TOWERD_CONFIG"); val != "" {
		configFile = val
	}
	flag.StringVar(&configFile, "config", configFile, "Configuration file.")
}

// policyRef late-binds the command set's policy store to the node,
// which cannot exist before its dispatcher does.
type policyRef struct {
	node *tower.Node
}

func (r *policyRef) Policy() tower.TransmitPolicy     { return r.node.Policy() }
func (r *policyRef) SetPolicy(p tower.TransmitPolicy) { r.node.SetPolicy(p) }

func main() {
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		glog.Exitf("load config: %v", err)
	}

	var dev flash.Device
	if cfg.Flash.File != "" {
		if dev, err = flash.OpenFileDevice(cfg.Flash.File); err != nil {
			glog.Exitf("open flash file: %v", err)
		}
	} else {
		dev = flash.NewSimDevice()
	}
	store := flash.New(dev, 0)

	number := cfg.Tower.Number
	if number == 0 {
		number = defaultTowerNumber()
	}
	clock := &sysClock{}
	policy := &policyRef{}
	set, err := cmds.New(cmds.Config{
		Store:         store,
		Clock:         clock,
		Policy:        policy,
		VersionMajor:  versionMajor,
		VersionMinor:  versionMinor,
		DefaultNumber: number,
		DefaultMode:   cfg.Tower.Mode,
	})
	if err != nil {
		glog.Exitf("init command set: %v", err)
	}

	var bridge *mqtt.Bridge
	if cfg.MQTT.Broker != "" {
		if bridge, err = mqtt.NewBridge(cfg.MQTT.Broker, cfg.MQTT.Topic); err != nil {
			glog.Exitf("mqtt: %v", err)
		}
		if err = bridge.Connect(); err != nil {
			glog.Exitf("mqtt connect: %v", err)
		}
		defer bridge.Close()
	}

	samplers := make([]tower.Sampler, cfg.Analog.Channels)
	for i := range samplers {
		samplers[i] = newSimSampler(i)
	}

	opts := tower.Options{
		Dispatcher:     set,
		Indicator:      newLogIndicator(),
		Clock:          clock,
		Samplers:       samplers,
		Policy:         cfg.Policy(),
		SampleInterval: cfg.SampleInterval(),
		OnStart:        func(snd tower.Sender) { set.Startup(snd) },
	}
	if bridge != nil {
		opts.Observer = bridge.PublishPacket
	}
	node := tower.NewNode(opts)
	policy.node = node

	if bridge != nil {
		err = bridge.SubscribeCommands(func(p comm.Packet) {
			if err := node.Inject(p); err != nil {
				glog.Warningf("drop remote command %#02x: %v", p.Command, err)
			}
		})
		if err != nil {
			glog.Exitf("mqtt subscribe: %v", err)
		}
	}

	port, err := openPort(cfg)
	if err != nil {
		glog.Exitf("open port: %v", err)
	}
	defer port.Close()

	glog.Infof("tower %d up, version %d.%d", number, versionMajor, versionMinor)
	runner := framework.NewRunner().HandleSignals()
	runner.Go(framework.NamedRun("node", framework.RunFunc(func(ctx context.Context) error {
		return node.Run(ctx, port)
	})))
	if err := runner.Wait(); err != nil {
		glog.Exit(err)
	}
}
