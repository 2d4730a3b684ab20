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
	"bytes"
	"context"
	"io/ioutil"
	"math"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spressosim/spresso"
	"github.com/spressosim/spresso/server"
	"github.com/tealeg/xlsx"
	"gonum.org/v1/gonum/mat"
)

const testConfig = "testdata/diffusion.toml"

func tempDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "spressoutil")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestVersion(t *testing.T) {
	var buf bytes.Buffer
	Root.SetOutput(&buf)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if want := "Spresso v" + spresso.Version; !strings.Contains(buf.String(), want) {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestInputConfig(t *testing.T) {
	Cfg.Set("config", testConfig)
	if err := setConfig(); err != nil {
		t.Fatal(err)
	}
	in, err := InputConfig(Cfg)
	if err != nil {
		t.Fatal(err)
	}
	if in.SimTime != 20 || in.NumGrids != 40 || in.Current != 0 || in.Scheme != spresso.SchemeSLIP {
		t.Errorf("scalars: %+v", in)
	}
	if len(in.Species) != 2 || in.Species[1].Name != "buffer" {
		t.Fatalf("species: %+v", in.Species)
	}
	if _, ok := in.Species[0].Injection.(spresso.Peak); !ok {
		t.Errorf("injection: %#v", in.Species[0].Injection)
	}

	Cfg.Set("NumGrids", "30")
	defer Cfg.Set("NumGrids", 40)
	in, err = InputConfig(Cfg)
	if err != nil {
		t.Fatal(err)
	}
	if in.NumGrids != 30 {
		t.Errorf("NumGrids override: got %d", in.NumGrids)
	}

	Cfg.Set("Tolerance", "small")
	defer Cfg.Set("Tolerance", 1.e-3)
	if _, err := InputConfig(Cfg); err == nil || !strings.Contains(err.Error(), "Tolerance") {
		t.Errorf("got %v, want a Tolerance error", err)
	}
}

func TestRunAnalyzePlot(t *testing.T) {
	dir := tempDir(t)
	out := filepath.Join(dir, "out.json")
	nc := filepath.Join(dir, "out.nc")
	png := filepath.Join(dir, "final.png")
	xl := filepath.Join(dir, "stats.xlsx")

	Cfg.Set("config", testConfig)
	Cfg.Set("OutputFile", out)
	Cfg.Set("NetCDFFile", nc)
	Cfg.Set("PlotFile", png)
	Cfg.Set("MassBalanceTolerance", 1.e-6)
	var buf bytes.Buffer
	Root.SetOutput(&buf)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"run"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{out, nc, png, filepath.Join(dir, "out.log")} {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("missing output: %v", err)
		}
	}
	if !strings.Contains(buf.String(), "Finished") {
		t.Errorf("log: %s", buf.String())
	}

	for _, rf := range []string{out, nc} {
		buf.Reset()
		Cfg.Set("ResultFile", rf)
		Cfg.Set("XLSXFile", xl)
		Root.SetArgs([]string{"analyze"})
		if err := Root.Execute(); err != nil {
			t.Fatalf("%s: %v", rf, err)
		}
		if !strings.Contains(buf.String(), "t = 20 s") || !strings.Contains(buf.String(), "buffer") {
			t.Errorf("%s: analysis output: %s", rf, buf.String())
		}
		f, err := xlsx.OpenFile(xl)
		if err != nil {
			t.Fatal(err)
		}
		if len(f.Sheets) != 2 {
			t.Fatalf("%d sheets", len(f.Sheets))
		}
		if n := len(f.Sheet["profiles"].Rows); n != 41 {
			t.Errorf("profile rows: got %d, want 41", n)
		}
		if n := len(f.Sheet["statistics"].Rows); n != 3 {
			t.Errorf("statistics rows: got %d, want 3", n)
		}
	}

	plotOut := filepath.Join(dir, "first.png")
	Cfg.Set("ResultFile", out)
	Cfg.Set("TimeIndex", 0)
	Cfg.Set("PlotOutput", plotOut)
	defer Cfg.Set("TimeIndex", -1)
	Root.SetArgs([]string{"plot"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	b, err := ioutil.ReadFile(plotOut)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Errorf("plot is not a PNG")
	}

	Cfg.Set("TimeIndex", 1000000)
	if err := Root.Execute(); err == nil {
		t.Errorf("out of range time index should fail")
	}

	defer Cfg.Set("Map", "")
	for _, q := range []string{"pH", "sample"} {
		os.Remove(plotOut)
		Cfg.Set("Map", q)
		if err := Root.Execute(); err != nil {
			t.Fatalf("map of %s: %v", q, err)
		}
		if b, err := ioutil.ReadFile(plotOut); err != nil || !bytes.HasPrefix(b, []byte("\x89PNG")) {
			t.Errorf("map of %s is not a PNG (%v)", q, err)
		}
	}
	Cfg.Set("Map", "salt")
	if err := Root.Execute(); err == nil {
		t.Errorf("a map of an unknown species should fail")
	}
}

func TestAnalyzeWindow(t *testing.T) {
	dir := tempDir(t)
	g := spresso.NewGrid(40, 4.e-3)
	r := &spresso.Result{
		Input: &spresso.Input{NumGrids: g.N, DomainLen: g.Len, Species: []spresso.SpeciesSpec{
			{Name: "dna", Injection: spresso.Peak{Location: 1.e-3, Width: 4.e-4, Amount: 1}},
			{Name: "salt", Injection: spresso.Peak{Location: 1.2e-3, Width: 4.e-4, Amount: 1}},
		}},
		X: g.Points(),
		T: []float64{0, 1},
	}
	for _, center := range []float64{1.e-3, 3.e-3} {
		c := mat.NewDense(2, g.N, nil)
		ch := make([]float64, g.N)
		for i, x := range r.X {
			c.Set(0, i, math.Exp(-math.Pow((x-center)/2.e-4, 2)))
			if i < 15 {
				c.Set(1, i, 1)
			}
			ch[i] = 1.e-7
		}
		r.C = append(r.C, c)
		r.CH = append(r.CH, ch)
		r.E = append(r.E, make([]float64, g.N))
	}
	rf := filepath.Join(dir, "window.json")
	f, err := os.Create(rf)
	if err != nil {
		t.Fatal(err)
	}
	if err := spresso.WriteBundle(f, r); err != nil {
		t.Fatal(err)
	}
	f.Close()

	var buf bytes.Buffer
	Root.SetOutput(&buf)
	defer Root.SetOutput(nil)
	Cfg.Set("ResultFile", rf)
	Cfg.Set("XLSXFile", "")
	Cfg.Set("TimeIndex", -1)
	Cfg.Set("Analyte", "dna")
	Cfg.Set("Impurity", "salt")
	Cfg.Set("WindowPos", 2.95e-3)
	Cfg.Set("WindowWidth", 1.e-3)
	defer func() {
		Cfg.Set("Analyte", "")
		Cfg.Set("Impurity", "")
		Cfg.Set("WindowPos", 0.0)
		Cfg.Set("WindowWidth", 0.0)
	}()
	Root.SetArgs([]string{"analyze"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"reaches it at t = 1 s", "alpha", "gamma"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output lacks %q: %s", want, buf.String())
		}
	}

	Cfg.Set("Impurity", "argon")
	if err := Root.Execute(); err == nil {
		t.Errorf("an unknown impurity should fail")
	}
}

func TestRemote(t *testing.T) {
	s := server.NewServer(prometheus.NewRegistry())
	s.Log, _ = test.NewNullLogger()
	ts := httptest.NewServer(s)
	defer s.Wait()
	defer ts.Close()

	Cfg.Set("config", testConfig)
	if err := setConfig(); err != nil {
		t.Fatal(err)
	}
	in, err := InputConfig(Cfg)
	if err != nil {
		t.Fatal(err)
	}
	log, _ := test.NewNullLogger()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	r, err := Remote(context.Background(), url, in, time.Second, log)
	if err != nil {
		t.Fatal(err)
	}
	if r.T[len(r.T)-1] != in.SimTime || r.Index("buffer") != 1 {
		t.Errorf("result ends at %g with species %v", r.T[len(r.T)-1], r.Names())
	}

	in.NumGrids = 1
	if _, err := Remote(context.Background(), url, in, time.Second, log); err == nil || !strings.Contains(err.Error(), "numGrids") {
		t.Errorf("got %v, want an invalid input error", err)
	}
}

func TestRemoteUnreachable(t *testing.T) {
	log, _ := test.NewNullLogger()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Remote(ctx, "ws://127.0.0.1:1/", &spresso.Input{}, time.Minute, log)
	if err == nil {
		t.Errorf("dialing a closed port should fail")
	}
}
