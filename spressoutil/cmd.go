/*
Copyright © 2026 the Spresso authors.
This file is part of Spresso.

Spresso is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Spresso is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Spresso.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package spressoutil contains the Spresso command-line interface.
package spressoutil

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spressosim/spresso"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Input options are shared by the commands that start simulations.
	inputSets := func() []*pflag.FlagSet {
		return []*pflag.FlagSet{runCmd.Flags(), remoteCmd.Flags()}
	}

	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location. The
              configuration file is TOML; it holds the scalar options
              below and a [[Species]] table for every species.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "SimTime",
			usage: `
              SimTime is the simulated duration in seconds.`,
			shorthand:  "t",
			defaultVal: 1.0,
			flagsets:   inputSets(),
		},
		{
			name: "AnimateRate",
			usage: `
              AnimateRate is the number of integration steps between
              progress reports.`,
			defaultVal: 10,
			flagsets:   inputSets(),
		},
		{
			name: "NumGrids",
			usage: `
              NumGrids is the number of grid points.`,
			shorthand:  "n",
			defaultVal: 1000,
			flagsets:   inputSets(),
		},
		{
			name: "Tolerance",
			usage: `
              Tolerance is the absolute error tolerance of one
              integration step, in mM.`,
			defaultVal: 1.e-2,
			flagsets:   inputSets(),
		},
		{
			name: "InterfaceWidth",
			usage: `
              InterfaceWidth is the width in meters of the smoothed
              boundaries of the initial profiles.`,
			defaultVal: 2.e-4,
			flagsets:   inputSets(),
		},
		{
			name: "DomainLen",
			usage: `
              DomainLen is the length of the channel in meters.`,
			defaultVal: 40.e-3,
			flagsets:   inputSets(),
		},
		{
			name: "Current",
			usage: `
              Current is the applied current in amperes.`,
			defaultVal: -1.e-9,
			flagsets:   inputSets(),
		},
		{
			name: "Area",
			usage: `
              Area is the channel cross-sectional area in m².`,
			defaultVal: 1.e-9,
			flagsets:   inputSets(),
		},
		{
			name: "Scheme",
			usage: `
              Scheme is the flux discretization: "slip" or "upwind".`,
			defaultVal: string(spresso.SchemeSLIP),
			flagsets:   inputSets(),
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path where the result bundle is written
              as JSON.`,
			shorthand:  "o",
			defaultVal: "spresso_output.json",
			flagsets:   inputSets(),
		},
		{
			name: "NetCDFFile",
			usage: `
              NetCDFFile, if not empty, is the path where the results are
              additionally written in NetCDF format.`,
			defaultVal: "",
			flagsets:   inputSets(),
		},
		{
			name: "PlotFile",
			usage: `
              PlotFile, if not empty, is the path where a PNG plot of the
              final state is written.`,
			defaultVal: "",
			flagsets:   inputSets(),
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the run log. If it is empty, the log
              is written next to OutputFile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "MemoryPolicy",
			usage: `
              MemoryPolicy selects which states are kept: "all" or
              "latest". "latest" keeps only the initial and final states.`,
			defaultVal: "all",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "MassBalanceTolerance",
			usage: `
              MassBalanceTolerance, if greater than zero, stops the run
              when the relative change in the total amount of any species
              exceeds it.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "addr",
			usage: `
              addr is the address the server listens on.`,
			defaultVal: ":10000",
			flagsets:   []*pflag.FlagSet{serveCmd.Flags()},
		},
		{
			name: "url",
			usage: `
              url is the websocket address of a Spresso server.`,
			defaultVal: "ws://localhost:10000/",
			flagsets:   []*pflag.FlagSet{remoteCmd.Flags()},
		},
		{
			name: "RetryTime",
			usage: `
              RetryTime is how long to keep retrying to connect to the
              server, for example "30s".`,
			defaultVal: "1m",
			flagsets:   []*pflag.FlagSet{remoteCmd.Flags()},
		},
		{
			name: "ResultFile",
			usage: `
              ResultFile is the result to read, either a JSON bundle or
              a NetCDF file ending in ".nc".`,
			shorthand:  "r",
			defaultVal: "spresso_output.json",
			flagsets:   []*pflag.FlagSet{analyzeCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "TimeIndex",
			usage: `
              TimeIndex is the index of the recorded time to analyze.
              Negative values count back from the end.`,
			defaultVal: -1,
			flagsets:   []*pflag.FlagSet{analyzeCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "XLSXFile",
			usage: `
              XLSXFile, if not empty, is the path of a spreadsheet to
              write the analysis to.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{analyzeCmd.Flags()},
		},
		{
			name: "Analyte",
			usage: `
              Analyte, if not empty, is the species for which analyze
              also reports the figures of merit of a detection window.
              Analyte and Impurity must be injected as peaks.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{analyzeCmd.Flags()},
		},
		{
			name: "Impurity",
			usage: `
              Impurity is the species that should be kept out of the
              detection window.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{analyzeCmd.Flags()},
		},
		{
			name: "WindowPos",
			usage: `
              WindowPos is the position in meters of the center of the
              detection window.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{analyzeCmd.Flags()},
		},
		{
			name: "WindowWidth",
			usage: `
              WindowWidth is the width in meters of the detection window.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{analyzeCmd.Flags()},
		},
		{
			name: "Map",
			usage: `
              Map, if not empty, makes plot draw a map over position and
              time instead of a single time. It is "pH" or the name of a
              species.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
		{
			name: "PlotOutput",
			usage: `
              PlotOutput is the path of the PNG file to create.`,
			defaultVal: "spresso.png",
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("SPRESSO")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(serveCmd)
	Root.AddCommand(remoteCmd)
	Root.AddCommand(analyzeCmd)
	Root.AddCommand(plotCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("spresso: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// signalContext returns a context that is cancelled on an interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		select {
		case <-c:
			logrus.Warn("spresso: interrupted")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(c)
	}()
	return ctx, cancel
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "spresso",
	Short: "An electrophoresis simulator.",
	Long: `Spresso simulates one-dimensional electromigration, diffusion and
acid-base equilibria of weak electrolytes, as in isotachophoresis.
Use the subcommands specified below to access the model functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'SPRESSO_var' where 'var' is the
name of the variable to be set. The species to simulate can only be given
in the configuration file.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of Spresso.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("Spresso v%s\n", spresso.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation.",
	Long: `run runs a simulation defined by the configuration file and writes
the results to OutputFile and, optionally, NetCDFFile and PlotFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := InputConfig(Cfg)
		if err != nil {
			return err
		}
		policy, err := spresso.ParseMemoryPolicy(Cfg.GetString("MemoryPolicy"))
		if err != nil {
			return err
		}
		out := outputConfig(Cfg)
		ctx, cancel := signalContext()
		defer cancel()
		return Run(ctx, cmd.OutOrStdout(), in, out,
			checkLogFile(Cfg.GetString("LogFile"), out.Bundle),
			policy, Cfg.GetFloat64("MassBalanceTolerance"))
	},
	DisableAutoGenTag: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a simulation server.",
	Long: `serve starts a server that runs simulations for websocket clients.
Clients send JSON commands ({"msg": "reset", "input": {...}}, {"msg": "start"},
{"msg": "pause"}, {"msg": "retrieve"}) and receive JSON events. Prometheus
metrics are available at /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Serve(Cfg.GetString("addr"))
	},
	DisableAutoGenTag: true,
}

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Run a simulation on a server.",
	Long: `remote runs the simulation defined by the configuration file on the
Spresso server at url and saves the results in the same way as run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := InputConfig(Cfg)
		if err != nil {
			return err
		}
		retry, err := castDuration(Cfg.Get("RetryTime"))
		if err != nil {
			return fmt.Errorf("spresso: RetryTime: %v", err)
		}
		ctx, cancel := signalContext()
		defer cancel()
		r, err := Remote(ctx, Cfg.GetString("url"), in, retry, logrus.StandardLogger())
		if err != nil {
			return err
		}
		return outputConfig(Cfg).write(r)
	},
	DisableAutoGenTag: true,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Summarize simulation results.",
	Long: `analyze prints the maximum concentration, the mean position, spread
and skewness of every species at one recorded time, and the distance traveled
by leading electrolyte boundaries. If Analyte is set it also reports the
figures of merit of the detection window given by WindowPos and WindowWidth.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		resultFile := os.ExpandEnv(Cfg.GetString("ResultFile"))
		if err := AnalyzeFile(cmd.OutOrStdout(), resultFile,
			Cfg.GetInt("TimeIndex"), os.ExpandEnv(Cfg.GetString("XLSXFile"))); err != nil {
			return err
		}
		if analyte := Cfg.GetString("Analyte"); analyte != "" {
			return MeritFile(cmd.OutOrStdout(), resultFile, Cfg.GetFloat64("WindowPos"),
				Cfg.GetFloat64("WindowWidth"), analyte, Cfg.GetString("Impurity"))
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot simulation results.",
	Long: `plot draws the concentrations and pH at one recorded time to a PNG file,
or, if Map is set, a map of one quantity over position and time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		resultFile := os.ExpandEnv(Cfg.GetString("ResultFile"))
		out := os.ExpandEnv(Cfg.GetString("PlotOutput"))
		if q := Cfg.GetString("Map"); q != "" {
			return SpaceTimePlotFile(resultFile, q, out)
		}
		return PlotFile(resultFile, Cfg.GetInt("TimeIndex"), out)
	},
	DisableAutoGenTag: true,
}
