package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Opt is a single command-line option
type Opt struct {
	DestP   interface{} // pointer to the destination
	Flag    string
	Default interface{}
	Desc    string
}

// NewOpt creates a new command line option.
func NewOpt(destP interface{}, flag string, dflt interface{}, desc string) Opt {
	return Opt{
		DestP:   destP,
		Flag:    flag,
		Default: dflt,
		Desc:    desc,
	}
}

// Program parses CLI options
type Program struct {
	// Run is invoked by cobra on execute. Commands without Run only print
	// their usage and act as a parent for subcommands.
	Run func() error
	// Name is the name of the program in help usage and the env var prefix.
	Name string
	// Short is the one-line description shown in help.
	Short string
	// Opts are the command line/env var options to the program. They are
	// inherited by every subcommand.
	Opts []Opt
}

// NewCommand creates a new cobra command to be executed that respects env vars.
//
// Uses the upper-case version of the program's name as a prefix
// to all environment variables. If <NAME>_CONFIG_PATH is set, options are
// also read from that file; flags take precedence over env vars, which take
// precedence over the file.
func NewCommand(v *viper.Viper, p *Program) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:           p.Name,
		Short:         p.Short,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	if p.Run != nil {
		cmd.RunE = func(_ *cobra.Command, _ []string) error {
			return p.Run()
		}
	}

	prefix := strings.ToUpper(p.Name)
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	// This normalizes "-" to an underscore in env names.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if path := os.Getenv(prefix + "_CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := BindOptions(v, cmd.PersistentFlags(), p.Opts); err != nil {
		return nil, err
	}
	return cmd, nil
}

// BindOptions adds opts to the specified flag set and automatically
// registers those options with viper.
func BindOptions(v *viper.Viper, flags *pflag.FlagSet, opts []Opt) error {
	for _, o := range opts {
		switch destP := o.DestP.(type) {
		case *string:
			var d string
			if o.Default != nil {
				d = o.Default.(string)
			}
			flags.StringVar(destP, o.Flag, d, o.Desc)
			if err := bindPFlag(v, flags, o.Flag); err != nil {
				return err
			}
			*destP = v.GetString(o.Flag)
		case *int:
			var d int
			if o.Default != nil {
				d = o.Default.(int)
			}
			flags.IntVar(destP, o.Flag, d, o.Desc)
			if err := bindPFlag(v, flags, o.Flag); err != nil {
				return err
			}
			*destP = v.GetInt(o.Flag)
		case *bool:
			var d bool
			if o.Default != nil {
				d = o.Default.(bool)
			}
			flags.BoolVar(destP, o.Flag, d, o.Desc)
			if err := bindPFlag(v, flags, o.Flag); err != nil {
				return err
			}
			*destP = v.GetBool(o.Flag)
		case *time.Duration:
			var d time.Duration
			if o.Default != nil {
				d = o.Default.(time.Duration)
			}
			flags.DurationVar(destP, o.Flag, d, o.Desc)
			if err := bindPFlag(v, flags, o.Flag); err != nil {
				return err
			}
			*destP = v.GetDuration(o.Flag)
		case *[]string:
			var d []string
			if o.Default != nil {
				d = o.Default.([]string)
			}
			flags.StringSliceVar(destP, o.Flag, d, o.Desc)
			if err := bindPFlag(v, flags, o.Flag); err != nil {
				return err
			}
			*destP = v.GetStringSlice(o.Flag)
		case *zapcore.Level:
			var d zapcore.Level
			if o.Default != nil {
				d = o.Default.(zapcore.Level)
			}
			LevelVar(flags, destP, o.Flag, d, o.Desc)
			if err := bindPFlag(v, flags, o.Flag); err != nil {
				return err
			}
			if s := v.GetString(o.Flag); s != "" {
				if err := (*levelValue)(destP).Set(s); err != nil {
					return fmt.Errorf("option %s: %w", o.Flag, err)
				}
			}
		default:
			// if you get a panic here, sorry about that!
			// anyway, go ahead and add another type.
			panic(fmt.Errorf("unknown destination type %T", o.DestP))
		}
	}
	return nil
}

func bindPFlag(v *viper.Viper, flags *pflag.FlagSet, key string) error {
	if err := v.BindPFlag(key, flags.Lookup(key)); err != nil {
		return fmt.Errorf("binding flag %s: %w", key, err)
	}
	return nil
}
