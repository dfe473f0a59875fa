// Package config reads a worker's configuration.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BenIlies/NoPASARAN-sub000/control"
	"github.com/BenIlies/NoPASARAN-sub000/core"
	"github.com/BenIlies/NoPASARAN-sub000/sio"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Config is everything a worker needs to run a chart.
type Config struct {
	// Chart is the filename of the top-level chart.
	Chart string `yaml:"chart"`

	// Charts is the directory used to find charts for "call".
	// The default is the top-level chart's directory.
	Charts string `yaml:"charts,omitempty"`

	// Variables are the top-level machine's initial variables.
	Variables map[string]interface{} `yaml:"variables,omitempty"`

	Verbose  bool   `yaml:"verbose,omitempty"`
	LogLevel string `yaml:"logLevel,omitempty"`

	// Control (optional) is used by start_control_channel() with
	// no inputs.
	Control *control.Config `yaml:"control,omitempty"`

	Storage  *Storage        `yaml:"storage,omitempty"`
	MQTT     *sio.MQTTConfig `yaml:"mqtt,omitempty"`
	Metrics  *Listener       `yaml:"metrics,omitempty"`
	Firehose *Listener       `yaml:"firehose,omitempty"`
	Sniffer  *Sniffer        `yaml:"sniffer,omitempty"`
}

type Storage struct {
	// Bolt is a bbolt database filename for run reports.
	Bolt string `yaml:"bolt"`
}

type Listener struct {
	Address string `yaml:"address"`
}

// Sniffer configures packet capture.  Exactly one of Interface and
// File is required.
type Sniffer struct {
	Interface string `yaml:"interface,omitempty"`

	// File is a pcap file to replay.
	File string `yaml:"file,omitempty"`

	// Limit is the capacity of the packet queue.  Zero means no
	// limit.
	Limit int `yaml:"limit,omitempty"`

	// Filter is the initial filter.
	Filter string `yaml:"filter,omitempty"`
}

// DefaultLogLevel is used when LogLevel is empty.
const DefaultLogLevel = "info"

// Load reads a YAML config file (with '%inline("NAME")' support),
// applies defaults, and validates the result.
func Load(filename string) (*Config, error) {
	bs, err := ReadFileWithInlines(filename)
	if err != nil {
		return nil, err
	}
	c, err := Parse(bs)
	if err != nil {
		return nil, errors.Wrap(err, filename)
	}
	c.Resolve(filepath.Dir(filename))
	return c, nil
}

// Parse reads YAML, applies defaults, and validates.
func Parse(bs []byte) (*Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(bs, &c); err != nil {
		return nil, err
	}
	c.Defaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Resolve makes relative filenames relative to dir.
func (c *Config) Resolve(dir string) {
	rel := func(s *string) {
		if *s != "" && !filepath.IsAbs(*s) {
			*s = filepath.Join(dir, *s)
		}
	}
	rel(&c.Chart)
	rel(&c.Charts)
	if c.Storage != nil {
		rel(&c.Storage.Bolt)
	}
	if c.Sniffer != nil {
		rel(&c.Sniffer.File)
	}
	if c.Control != nil && c.Control.TLS != nil {
		rel(&c.Control.TLS.Cert)
		rel(&c.Control.TLS.Key)
		rel(&c.Control.TLS.CA)
	}
}

// Defaults fills in what's missing.
func (c *Config) Defaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Charts == "" && c.Chart != "" {
		c.Charts = filepath.Dir(c.Chart)
	}
	if c.Control != nil {
		c.Control.Defaults()
	}
	if c.MQTT != nil && c.MQTT.Topic == "" {
		c.MQTT.Topic = "nopasaran"
	}
}

// Validate checks enumerations and required fields.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Control != nil {
		if err := c.Control.Validate(); err != nil {
			return errors.Wrap(err, "control")
		}
	}
	if c.Storage != nil && c.Storage.Bolt == "" {
		return fmt.Errorf("storage: no bolt filename")
	}
	if c.MQTT != nil {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt: no broker")
		}
		if 2 < c.MQTT.QoS {
			return fmt.Errorf("mqtt: qos %d isn't 0, 1, or 2", c.MQTT.QoS)
		}
	}
	for what, l := range map[string]*Listener{"metrics": c.Metrics, "firehose": c.Firehose} {
		if l != nil && l.Address == "" {
			return fmt.Errorf("%s: no address", what)
		}
	}
	if s := c.Sniffer; s != nil {
		if (s.Interface == "") == (s.File == "") {
			return fmt.Errorf("sniffer: need exactly one of interface and file")
		}
		if s.Limit < 0 {
			return fmt.Errorf("sniffer: negative limit")
		}
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() logrus.Level {
	l, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}

// Vars returns the initial variables with nested YAML maps converted
// to string-keyed maps.
func (c *Config) Vars() (core.Variables, error) {
	vs := core.NewVariables()
	for k, v := range c.Variables {
		x, err := core.StringMaps(v)
		if err != nil {
			return nil, errors.Wrapf(err, "variable %s", k)
		}
		vs[k] = x
	}
	return vs, nil
}

// SetVar parses "name=value" (as given on a command line).  Values
// that parse as YAML scalars keep their types.
func (c *Config) SetVar(s string) error {
	i := strings.Index(s, "=")
	if i <= 0 {
		return fmt.Errorf(`"%s" isn't name=value`, s)
	}
	var x interface{}
	if err := yaml.Unmarshal([]byte(s[i+1:]), &x); err != nil || x == nil {
		x = s[i+1:]
	}
	if c.Variables == nil {
		c.Variables = make(map[string]interface{})
	}
	c.Variables[s[:i]] = x
	return nil
}
