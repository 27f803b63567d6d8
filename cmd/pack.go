package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/open-policy-agent/wasm-packer/internal/logging"
	"github.com/open-policy-agent/wasm-packer/internal/optimize"
	"github.com/open-policy-agent/wasm-packer/internal/pack"
	"github.com/open-policy-agent/wasm-packer/internal/wasm/encoding"
)

type packParams struct {
	output     string
	logLevel   string
	logFormat  string
	configFile string
}

func newPackParams() packParams {
	return packParams{output: "deployer.wasm"}
}

var packParamsInstance = newPackParams()

var packCommand = &cobra.Command{
	Use:   "pack <path>",
	Short: "Pack a combined module's constructor into a standalone deployer",
	Long: `pack takes a single source module exporting both _call and _create,
splits it into a runtime half (keeping only _call) and a deployer half
(keeping only _create) via the optimizer, then packs the deployer so its
_call runs the original constructor and embeds the runtime module's bytes
for the host to install as the contract's code.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(packParamsInstance.configFile); err != nil {
			return err
		}
		log, err := newLogger(packParamsInstance.logLevel, packParamsInstance.logFormat)
		if err != nil {
			return err
		}
		return doPack(cmd, args[0], packParamsInstance, log)
	},
}

func init() {
	addOutputFlag(packCommand.Flags(), &packParamsInstance.output, "deployer.wasm")
	addLogLevelFlag(packCommand.Flags(), &packParamsInstance.logLevel)
	addLogFormatFlag(packCommand.Flags(), &packParamsInstance.logFormat)
	addConfigFileFlag(packCommand.Flags(), &packParamsInstance.configFile)
}

func newLogger(level, format string) (*logrus.Logger, error) {
	lvl, err := logging.GetLevel(viperStringOr("log-level", level))
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetLevel(lvl)
	log.SetFormatter(logging.GetFormatter(viperStringOr("log-format", format), ""))
	return log, nil
}

func loadConfig(path string) error {
	if path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return errors.Wrap(err, "read config file")
	}
	return nil
}

func viperStringOr(key, fallback string) string {
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return fallback
}

func doPack(cmd *cobra.Command, sourcePath string, params packParams, log *logrus.Logger) error {
	ctx := cmd.Context()

	f, err := os.Open(sourcePath)
	if err != nil {
		return errors.Wrap(err, "open source module")
	}
	defer f.Close()

	source, err := encoding.ReadModule(f)
	if err != nil {
		return errors.Wrap(err, "decode source module")
	}
	log.WithField("path", sourcePath).Debug("decoded source module")

	if err := ctx.Err(); err != nil {
		return err
	}

	runtimeModule, err := optimize.Prune(source, []string{pack.CallSymbol})
	if err != nil {
		return errors.Wrap(err, "derive runtime module")
	}
	runtimeModule, err = optimize.RunBinaryen(ctx, log, runtimeModule)
	if err != nil {
		return errors.Wrap(err, "run wasm-opt on runtime module")
	}
	deployerModule, err := optimize.Prune(source, []string{pack.CreateSymbol})
	if err != nil {
		return errors.Wrap(err, "derive deployer module")
	}

	var runtimeBuf bytes.Buffer
	if err := encoding.WriteModule(&runtimeBuf, runtimeModule); err != nil {
		return errors.Wrap(err, "encode runtime module")
	}
	runtimeBytes := runtimeBuf.Bytes()
	log.WithField("bytes", len(runtimeBytes)).Debug("encoded runtime module")

	packed, err := pack.PackInstance(runtimeBytes, deployerModule)
	if err != nil {
		return errors.Wrap(err, "pack instance")
	}

	out, err := os.Create(params.output)
	if err != nil {
		return errors.Wrap(err, "create output file")
	}
	defer out.Close()

	if err := encoding.WriteModule(out, packed); err != nil {
		return errors.Wrap(err, "encode packed module")
	}

	log.WithFields(logrus.Fields{
		"output": params.output,
		"bytes":  len(runtimeBytes),
	}).Info("packed deployer module")

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", params.output)
	return nil
}
