// Package workload provides a TOML-driven harness that exercises the
// digest/wire/transport/reduce packages end to end, standing in for the
// teacher's sim/exp.go TestCase machinery.
package workload

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Spec mirrors a single .toml input file describing one experiment: how
// many simulated ranks to run, how large and over what universe the
// synthetic stream is, and how many times to repeat it. Grounded on the
// teacher's TestCase (main.go / sim/exp.go).
type Spec struct {
	Name       string
	K          uint64
	Ranks      int
	Count      int
	UniverseHi uint64
	Seed       int64
	Iterations int
}

// Load parses a single .toml buffer into a Spec and validates it.
func Load(buf []byte) (*Spec, error) {
	s := &Spec{}
	if err := toml.Unmarshal(buf, s); err != nil {
		return nil, err
	}
	if err := validate(s); err != nil {
		return nil, err
	}
	if s.Iterations == 0 {
		s.Iterations = 1
	}
	if s.UniverseHi == 0 {
		s.UniverseHi = nextPow2(uint64(s.Count))
	}
	return s, nil
}

func validate(s *Spec) error {
	if s.K == 0 {
		return errors.New("workload: K must be positive")
	}
	if s.Ranks < 1 {
		return errors.New("workload: ranks must be at least 1")
	}
	if s.Count < 0 {
		return errors.New("workload: count must be non-negative")
	}
	if s.Iterations < 0 {
		return errors.New("workload: iterations must be non-negative")
	}
	return nil
}

func nextPow2(n uint64) uint64 {
	p := uint64(1)
	for p <= n {
		p *= 2
	}
	return p
}

// ParseDir finds every .toml file directly under dir, the same shape as
// the teacher's main.go parseDir.
func ParseDir(dir string) ([]string, error) {
	ent, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var fns []string
	for _, f := range ent {
		if !f.IsDir() && strings.EqualFold(filepath.Ext(f.Name()), ".toml") {
			fns = append(fns, filepath.Join(dir, f.Name()))
		}
	}
	return fns, nil
}

// LoadDir reads and parses every .toml file in dir into a Spec, the same
// shape as the teacher's main.go initTestCases.
func LoadDir(dir string) ([]*Spec, error) {
	fns, err := ParseDir(dir)
	if err != nil {
		return nil, err
	}
	specs := make([]*Spec, 0, len(fns))
	for _, fn := range fns {
		buf, err := readFile(fn)
		if err != nil {
			return nil, err
		}
		s, err := Load(buf)
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}

func readFile(fn string) ([]byte, error) {
	fd, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	return ioutil.ReadAll(fd)
}
