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

package spressoutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lnashier/viper"
	"github.com/spf13/cast"
	"github.com/spressosim/spresso"
)

// InputConfig builds a simulation input from a viper configuration. The
// scalar parameters come from cfg and the species from the [[Species]]
// tables of the configuration file.
func InputConfig(cfg *viper.Viper) (*spresso.Input, error) {
	path := cfg.GetString("config")
	if path == "" {
		return nil, fmt.Errorf("spresso: a configuration file with at least one [[Species]] table is required")
	}
	f, err := os.Open(os.ExpandEnv(path))
	if err != nil {
		return nil, fmt.Errorf("spresso: opening configuration file: %v", err)
	}
	defer f.Close()
	in, err := spresso.DecodeInputTOML(f)
	if err != nil {
		return nil, err
	}

	floats := map[string]*float64{
		"SimTime":        &in.SimTime,
		"Tolerance":      &in.Tolerance,
		"InterfaceWidth": &in.InterfaceWidth,
		"DomainLen":      &in.DomainLen,
		"Current":        &in.Current,
		"Area":           &in.Area,
	}
	for name, v := range floats {
		if *v, err = cast.ToFloat64E(cfg.Get(name)); err != nil {
			return nil, fmt.Errorf("spresso: parsing configuration variable %s: %v", name, err)
		}
	}
	ints := map[string]*int{
		"AnimateRate": &in.AnimateRate,
		"NumGrids":    &in.NumGrids,
	}
	for name, v := range ints {
		if *v, err = cast.ToIntE(cfg.Get(name)); err != nil {
			return nil, fmt.Errorf("spresso: parsing configuration variable %s: %v", name, err)
		}
	}
	in.Scheme = spresso.Scheme(strings.ToLower(cfg.GetString("Scheme")))
	return in, nil
}

// outputs lists the files results are written to. Empty paths are
// skipped.
type outputs struct {
	Bundle, NetCDF, Plot string
}

func outputConfig(cfg *viper.Viper) outputs {
	return outputs{
		Bundle: os.ExpandEnv(cfg.GetString("OutputFile")),
		NetCDF: os.ExpandEnv(cfg.GetString("NetCDFFile")),
		Plot:   os.ExpandEnv(cfg.GetString("PlotFile")),
	}
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return os.ExpandEnv(logFile)
}

func castDuration(v interface{}) (time.Duration, error) {
	return cast.ToDurationE(v)
}
