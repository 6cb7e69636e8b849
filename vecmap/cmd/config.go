// Copyright © 2024-2025 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

// configFile is the optional per-user defaults file in the home
// directory. Values in it only apply when the corresponding flag is
// not given explicitly.
const configFile = ".vecmap.toml"

// Config holds default option values.
type Config struct {
	K       int   `toml:"k,omitempty"`
	Offsets []int `toml:"offsets,omitempty"`
	Threads int   `toml:"threads,omitempty"`
}

// getConfig reads ~/.vecmap.toml if present. A missing file returns
// an empty config, a malformed one is only warned about.
func getConfig() *Config {
	cfg := &Config{}

	home, err := homedir.Dir()
	if err != nil {
		return cfg
	}

	file := filepath.Join(home, configFile)
	data, err := os.ReadFile(file)
	if err != nil {
		return cfg
	}

	if err = toml.Unmarshal(data, cfg); err != nil {
		log.Warningf("ignoring malformed config file %s: %s", file, err)
		return &Config{}
	}

	return cfg
}
