// Copyright (c) 2014-2016 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitmark-inc/logger"
	"github.com/bitmark-inc/relaynode/util"
)

// basic defaults (directories and files are relative to the
// "DataDirectory" from the configuration file)
const (
	defaultDataDirectory = "" // this will error; use "." for the same directory as the config file
	defaultPidFile       = "relaypeerd.pid"

	defaultLogDirectory = "log"
	defaultLogFile      = "relaypeerd.log"
	defaultLogCount     = 10          // number of log files retained
	defaultLogSize      = 1024 * 1024 // rotate when <logfile> exceeds this size

	defaultVersion          = "determined dragonfly"
	defaultStatsPublishPort = "*:3000"
)

// to hold log levels
type LoglevelMap map[string]string

// path expanded or calculated defaults
var (
	defaultLogLevels = LoglevelMap{
		"main":            "info",
		"relay":           "info",
		"discovery":       "info",
		logger.DefaultTag: "critical",
	}
)

// one statically-configured relay peer to dial at startup
type Connection struct {
	Address string `gluamapper:"address"`
}

// Configuration is the top level structure populated from the
// daemon's Lua configuration file.
type Configuration struct {
	DataDirectory string `gluamapper:"data_directory"`
	PidFile       string `gluamapper:"pidfile"`

	// a version label that must not be empty; relay.Engine does not
	// read it and always advertises its own built-in version string
	Version string `gluamapper:"version"`

	// addresses to accept inbound relay connections on
	Listen []string `gluamapper:"listen"`

	// statically configured peers to dial at startup, in addition to
	// whatever discovery.Lookup turns up
	Connect []Connection `gluamapper:"connect"`

	// domain whose TXT records list candidate relay peers
	DiscoveryDomain string `gluamapper:"discovery_domain"`

	// ZMQ PUB endpoints to bind the stats publisher to
	StatsPublish []string `gluamapper:"stats_publish"`

	Logging logger.Configuration `gluamapper:"logging"`
}

// GetConfiguration reads, decodes and verifies the configuration file
func GetConfiguration(configurationFileName string) (*Configuration, error) {

	configurationFileName, err := filepath.Abs(filepath.Clean(configurationFileName))
	if nil != err {
		return nil, err
	}

	// absolute path to the main directory
	dataDirectory, _ := filepath.Split(configurationFileName)

	options := &Configuration{
		DataDirectory: defaultDataDirectory,
		PidFile:       defaultPidFile,
		Version:       defaultVersion,
		StatsPublish:  []string{defaultStatsPublishPort},

		Logging: logger.Configuration{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Console:   false,
			Levels:    defaultLogLevels,
		},
	}

	if err := ParseConfigurationFile(configurationFileName, options); nil != err {
		return nil, err
	}

	if "" == options.Version {
		return nil, errors.New("version string must not be empty")
	}

	// bare "host:port" stats endpoints are bound as TCP
	for i, address := range options.StatsPublish {
		if !strings.Contains(address, "://") {
			options.StatsPublish[i] = "tcp://" + address
		}
	}

	// ensure absolute data directory
	if "" == options.DataDirectory || "~" == options.DataDirectory {
		return nil, fmt.Errorf("path: %q is not a valid directory", options.DataDirectory)
	} else if "." == options.DataDirectory {
		options.DataDirectory = dataDirectory // same directory as the configuration file
	} else {
		options.DataDirectory = filepath.Clean(options.DataDirectory)
	}

	// this directory must exist - i.e. must be created prior to running
	if fileInfo, err := os.Stat(options.DataDirectory); nil != err {
		return nil, err
	} else if !fileInfo.IsDir() {
		return nil, fmt.Errorf("path: %q is not a directory", options.DataDirectory)
	}

	// force all relevant items to be absolute paths
	options.PidFile = util.EnsureAbsolute(options.DataDirectory, options.PidFile)
	options.Logging.Directory = util.EnsureAbsolute(options.DataDirectory, options.Logging.Directory)

	if err := os.MkdirAll(options.Logging.Directory, 0700); nil != err {
		return nil, err
	}

	// fail if the log file is not a plain name, otherwise prefix it
	// with the logging directory
	switch filepath.Dir(options.Logging.File) {
	case "", ".":
		options.Logging.File = util.EnsureAbsolute(options.Logging.Directory, options.Logging.File)
	default:
		return nil, fmt.Errorf("files: %q is not a plain name", options.Logging.File)
	}

	return options, nil
}
