package cmd

import (
	"github.com/spf13/pflag"
)

func addLogLevelFlag(fs *pflag.FlagSet, level *string) {
	fs.StringVarP(level, "log-level", "l", "info", "set log level (debug, info, warn, error)")
}

func addLogFormatFlag(fs *pflag.FlagSet, format *string) {
	fs.StringVarP(format, "log-format", "", "json", "set log format (text, json, json-pretty)")
}

func addConfigFileFlag(fs *pflag.FlagSet, file *string) {
	fs.StringVarP(file, "config-file", "c", "", "set path of configuration file")
}

func addOutputFlag(fs *pflag.FlagSet, path *string, value string) {
	fs.StringVarP(path, "output", "o", value, "set output module path")
}
