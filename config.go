package main

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"hufpress/huffman"
)

const DEFAULT_LISTEN = "localhost:8667"

const DEFAULT_POLICY = `
// choose picks the header format for -format auto. It gets the input size in
// bits and the savings of both header formats, and returns "counts" or "tree".
func choose(orig_bits, counts_saved, tree_saved) {
  if counts_saved > tree_saved {
    return "counts"
  }
  return "tree"
}
`

type Config struct {
	Listen string `json:"listen"`
	Format string `json:"format"`
	Force  bool   `json:"force"`
	Remote string `json:"remote,omitempty"`
	Script string `json:"-"`

	hufpressConfigDir string
}

func (c *Config) SetDefaultScript() {
	c.Script = DEFAULT_POLICY
}

func (c *Config) SetDefaults() {
	c.Listen = DEFAULT_LISTEN
	c.Format = "tree"
	c.Force = false
	c.Remote = ""
}

func (c *Config) Init() error {
	cfgdir, err := os.UserConfigDir()
	if err != nil {
		return err
	}

	return c.InitDir(filepath.Join(cfgdir, "hufpress"))
}

func (c *Config) InitDir(dir string) error {
	c.hufpressConfigDir = dir

	err := os.MkdirAll(c.hufpressConfigDir, 0777)
	if err != nil && !errors.Is(err, fs.ErrExist) {
		return err
	}

	return nil
}

func (c *Config) Load() error {
	for _, fn := range []func() error{c.LoadConfig, c.LoadScript, c.Validate} {
		err := fn()
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return pkgerrors.Wrap(huffman.ErrInvalidConfiguration, "listen address is empty")
	}
	if !strings.EqualFold(c.Format, FORMAT_AUTO) {
		if _, err := huffman.ParseHeaderFormat(c.Format); err != nil {
			return pkgerrors.Wrap(err, "config.json")
		}
	}
	return nil
}

func (c *Config) LoadConfig() error {
	c.SetDefaults()

	f, err := os.Open(filepath.Join(c.hufpressConfigDir, "config.json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	err = dec.Decode(c)
	if err != nil {
		return pkgerrors.Wrap(err, "cannot parse config.json")
	}

	return nil
}

func (c *Config) LoadScript() error {
	b, err := os.ReadFile(filepath.Join(c.hufpressConfigDir, "policy.anko"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.SetDefaultScript()
			return nil
		}

		return err
	}

	c.Script = string(b)
	return nil
}

func (c Config) Save() error {
	for _, fn := range []func() error{c.SaveConfig, c.SaveScript} {
		err := fn()
		if err != nil {
			return err
		}
	}
	return nil
}

func (c Config) SaveConfig() error {
	f, err := os.OpenFile(filepath.Join(c.hufpressConfigDir, "config.json"), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	err = enc.Encode(c)
	if err != nil {
		return err
	}

	return nil
}

func (c Config) SaveScript() error {
	f, err := os.OpenFile(filepath.Join(c.hufpressConfigDir, "policy.anko"), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write([]byte(c.Script))
	if err != nil {
		return err
	}

	return nil
}

// vim: ai:ts=8:sw=8:noet:syntax=go
