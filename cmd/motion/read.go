package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"
	gi2c "gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/motion"
	"github.com/mklimuk/motion/adapter"
	"github.com/mklimuk/motion/cmd/motion/console"
	"github.com/mklimuk/motion/fxos8700"
	"github.com/mklimuk/motion/gpio"
	"github.com/mklimuk/motion/i2c"
)

type sensorConfig struct {
	Adapter string `yaml:"adapter"`
	Bus     string `yaml:"bus"`
	Pin     string `yaml:"pin"`
	Addr    int    `yaml:"addr"`
}

func defaultSensorConfig() sensorConfig {
	return sensorConfig{
		Adapter: "mcp2221",
		Bus:     "1",
		Pin:     "1",
		Addr:    int(fxos8700.DefaultAddr),
	}
}

// resolveConfig loads the optional yaml file, then lets explicitly set
// flags override its values.
func resolveConfig(c *cli.Context) (sensorConfig, error) {
	cfg := defaultSensorConfig()
	if path := c.String("config"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("could not read config file: %w", err)
		}
		if err = yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("could not parse config file: %w", err)
		}
	}
	if c.IsSet("adapter") {
		cfg.Adapter = c.String("adapter")
	}
	if c.IsSet("bus") {
		cfg.Bus = c.String("bus")
	}
	if c.IsSet("pin") {
		cfg.Pin = c.String("pin")
	}
	if c.IsSet("addr") {
		cfg.Addr = c.Int("addr")
	}
	return cfg, nil
}

func readFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "adapter",
			Aliases: []string{"a"},
			Value:   "mcp2221",
			Usage:   "transport adapter: mcp2221, periph, embd, nanopi or sim",
		},
		&cli.StringFlag{
			Name:    "bus",
			Aliases: []string{"b"},
			Value:   "1",
			Usage:   "host bus name or number",
		},
		&cli.StringFlag{
			Name:    "pin",
			Aliases: []string{"p"},
			Value:   "1",
			Usage:   "interrupt pin: GP index, pin number or label",
		},
		&cli.IntFlag{
			Name:  "addr",
			Value: int(fxos8700.DefaultAddr),
			Usage: "i2c address of the sensor",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "yaml file with adapter settings",
		},
	}
}

// openTransport builds the bus and interrupt pin pair for the selected
// adapter. The returned cleanup releases whatever the adapter claimed.
func openTransport(cfg sensorConfig) (motion.BusDevice, motion.InterruptPin, func(), error) {
	console.Debugf("opening %s transport: bus=%s pin=%s addr=%#x", cfg.Adapter, cfg.Bus, cfg.Pin, cfg.Addr)
	switch cfg.Adapter {
	case "mcp2221":
		gp, err := strconv.Atoi(cfg.Pin)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid GP pin %q: %w", cfg.Pin, err)
		}
		hub := adapter.NewMCP2221()
		bus := adapter.NewMCP2221Bus(hub, byte(cfg.Addr))
		pin := adapter.NewMCP2221Pin(hub, gp)
		cleanup := func() {
			_ = bus.Close()
			_ = hub.Close()
		}
		return bus, pin, cleanup, nil
	case "periph":
		bus, err := i2c.NewDevice(cfg.Bus, uint16(cfg.Addr))
		if err != nil {
			return nil, nil, nil, err
		}
		pin, err := gpio.NewPin(cfg.Pin)
		if err != nil {
			_ = bus.Close()
			return nil, nil, nil, err
		}
		cleanup := func() {
			if err := bus.Close(); err != nil {
				console.Errorf("error closing bus: %s", console.Red(err))
			}
		}
		return bus, pin, cleanup, nil
	case "embd":
		busNo, err := strconv.Atoi(cfg.Bus)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid bus number %q: %w", cfg.Bus, err)
		}
		var key interface{} = cfg.Pin
		if n, err := strconv.Atoi(cfg.Pin); err == nil {
			key = n
		}
		pin, err := adapter.NewEmbdPin(key)
		if err != nil {
			return nil, nil, nil, err
		}
		bus := adapter.NewEmbdBus(byte(busNo), byte(cfg.Addr))
		cleanup := func() {
			_ = bus.Close()
			_ = pin.Close()
		}
		return bus, pin, cleanup, nil
	case "nanopi":
		npi := nanopi.NewNeoAdaptor()
		if err := npi.Connect(); err != nil {
			return nil, nil, nil, fmt.Errorf("adaptor connect error: %w", err)
		}
		var opts []func(gi2c.Config)
		if cfg.Bus != "" {
			busNo, err := strconv.Atoi(cfg.Bus)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("invalid bus number %q: %w", cfg.Bus, err)
			}
			opts = append(opts, func(c gi2c.Config) { c.SetBus(busNo) })
		}
		bus := adapter.NewGobotBus(npi, "fxos8700", byte(cfg.Addr), opts...)
		pin := adapter.NewGobotPin(npi, cfg.Pin)
		cleanup := func() {
			_ = bus.Close()
			if err := npi.Finalize(); err != nil {
				console.Errorf("error finalizing adaptor: %s", console.Red(err))
			}
		}
		return bus, pin, cleanup, nil
	case "sim":
		sim := fxos8700.NewSim()
		sim.SetAcceleration(1024, -2048, 3072)
		sim.SetMagneticField(120, -40, 385)
		return sim.Bus(), sim.Pin(), sim.Close, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown adapter %q", cfg.Adapter)
}

// readVector runs a single request and waits for the reading it
// produces.
func readVector(bus motion.BusDevice, pin motion.InterruptPin, request func(*fxos8700.Dev) error) ([3]int, error) {
	readings := make(chan [3]int, 1)
	dev, err := fxos8700.New(bus, pin, fxos8700.WithHandler(motion.ReadingHandlerFunc(func(x, y, z int) {
		readings <- [3]int{x, y, z}
	})))
	if err != nil {
		return [3]int{}, err
	}
	if err = request(dev); err != nil {
		return [3]int{}, err
	}
	select {
	case r := <-readings:
		return r, nil
	case <-time.After(5 * time.Second):
		return [3]int{}, errors.New("timed out waiting for a reading")
	}
}

var accelCmd = cli.Command{
	Name:  "accel",
	Usage: "read acceleration in milli-g",
	Flags: readFlags(),
	Action: func(c *cli.Context) error {
		cfg, err := resolveConfig(c)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		bus, pin, cleanup, err := openTransport(cfg)
		if err != nil {
			return console.Exit(1, "could not open transport: %s", console.Red(err))
		}
		defer cleanup()
		r, err := readVector(bus, pin, func(d *fxos8700.Dev) error { return d.RequestAcceleration() })
		if err != nil {
			return console.Exit(1, "acceleration read failed: %s", console.Red(err))
		}
		console.Printf("acceleration [mg]: x=%s y=%s z=%s\n", console.White(r[0]), console.White(r[1]), console.White(r[2]))
		return nil
	},
}

var magCmd = cli.Command{
	Name:  "mag",
	Usage: "read magnetic field in tenths of a microtesla",
	Flags: readFlags(),
	Action: func(c *cli.Context) error {
		cfg, err := resolveConfig(c)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		bus, pin, cleanup, err := openTransport(cfg)
		if err != nil {
			return console.Exit(1, "could not open transport: %s", console.Red(err))
		}
		defer cleanup()
		r, err := readVector(bus, pin, func(d *fxos8700.Dev) error { return d.RequestMagneticField() })
		if err != nil {
			return console.Exit(1, "magnetic field read failed: %s", console.Red(err))
		}
		console.Printf("magnetic field [0.1 uT]: x=%s y=%s z=%s\n", console.White(r[0]), console.White(r[1]), console.White(r[2]))
		return nil
	},
}

var watchCmd = cli.Command{
	Name:  "watch",
	Usage: "sample acceleration continuously",
	Flags: append(readFlags(),
		&cli.DurationFlag{
			Name:    "interval",
			Aliases: []string{"i"},
			Value:   500 * time.Millisecond,
			Usage:   "time between samples",
		},
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"n"},
			Usage:   "stop after this many samples, 0 runs until interrupted",
		},
		&cli.BoolFlag{
			Name:  "interactive",
			Usage: "confirm every sample instead of running on a timer",
		},
	),
	Action: func(c *cli.Context) error {
		cfg, err := resolveConfig(c)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		bus, pin, cleanup, err := openTransport(cfg)
		if err != nil {
			return console.Exit(1, "could not open transport: %s", console.Red(err))
		}
		defer cleanup()
		read := func() error {
			r, err := readVector(bus, pin, func(d *fxos8700.Dev) error { return d.RequestAcceleration() })
			if err != nil {
				return console.Exit(1, "acceleration read failed: %s", console.Red(err))
			}
			console.Printf("x=%s y=%s z=%s [mg]\n", console.Cyan(r[0]), console.Cyan(r[1]), console.Cyan(r[2]))
			return nil
		}
		if c.Bool("interactive") {
			for {
				if err := read(); err != nil {
					return err
				}
				again, err := console.Confirm("sample again?")
				if err != nil || !again {
					return nil
				}
			}
		}
		if n := c.Int("count"); n > 0 {
			for i := 0; i < n; i++ {
				if i > 0 {
					time.Sleep(c.Duration("interval"))
				}
				if err := read(); err != nil {
					return err
				}
			}
			return nil
		}
		dev, err := fxos8700.New(bus, pin, fxos8700.WithHandler(motion.ReadingHandlerFunc(func(x, y, z int) {
			console.Printf("x=%s y=%s z=%s [mg]\n", console.Cyan(x), console.Cyan(y), console.Cyan(z))
		})))
		if err != nil {
			return console.Exit(1, "could not initialize sensor: %s", console.Red(err))
		}
		console.Infof("sampling every %s", c.Duration("interval"))
		stop := make(chan struct{})
		go func() {
			ticker := time.NewTicker(c.Duration("interval"))
			defer ticker.Stop()
			for {
				err := dev.RequestAcceleration()
				if err != nil && !errors.Is(err, fxos8700.ErrBusy) {
					console.Warnf("request failed: %s", err)
				}
				select {
				case <-stop:
					return
				case <-ticker.C:
				}
			}
		}()
		_, _ = console.Prompt("press ENTER to stop\n")
		close(stop)
		return nil
	},
}
