package core

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// ChartProvider can find a Chart given a name.
type ChartProvider interface {
	FindChart(ctx context.Context, name string) (*Chart, error)
}

// ReadChartFile reads a JSON or YAML chart.
func ReadChartFile(filename string) (*Chart, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseChartBytes(bs)
}

// ParseChartBytes parses JSON if the data looks like JSON and YAML
// otherwise.
func ParseChartBytes(bs []byte) (*Chart, error) {
	if trimmed := bytes.TrimSpace(bs); 0 < len(trimmed) && trimmed[0] == '{' {
		return ParseChart(bs)
	}
	return ParseChartYAML(bs)
}

// DirProvider finds charts in a directory.
//
// A name is tried as given and then with ".json", ".yaml", and ".yml"
// appended.  Charts are cached after the first read.
type DirProvider struct {
	sync.RWMutex

	Dir string

	charts map[string]*Chart
}

// NewDirProvider makes a DirProvider for the given directory.
func NewDirProvider(dir string) *DirProvider {
	return &DirProvider{
		Dir:    dir,
		charts: make(map[string]*Chart, 8),
	}
}

// FindChart implements ChartProvider.
func (p *DirProvider) FindChart(ctx context.Context, name string) (*Chart, error) {
	p.RLock()
	c, have := p.charts[name]
	p.RUnlock()
	if have {
		return c, nil
	}

	filename := name
	if !filepath.IsAbs(filename) {
		filename = filepath.Join(p.Dir, filename)
	}

	for _, suffix := range []string{"", ".json", ".yaml", ".yml"} {
		fn := filename + suffix
		fi, err := os.Stat(fn)
		if err != nil || fi.IsDir() {
			continue
		}
		if c, err = ReadChartFile(fn); err != nil {
			return nil, errors.Wrap(err, fn)
		}
		p.Lock()
		p.charts[name] = c
		p.Unlock()
		return c, nil
	}

	return nil, fmt.Errorf(`couldn't find chart named "%s" in %s`, name, p.Dir)
}

// Add caches a chart under the given name.
func (p *DirProvider) Add(name string, c *Chart) {
	p.Lock()
	p.charts[name] = c
	p.Unlock()
}

// MapProvider is a fixed set of charts.
type MapProvider map[string]*Chart

// FindChart implements ChartProvider.
func (p MapProvider) FindChart(ctx context.Context, name string) (*Chart, error) {
	if c, have := p[name]; have {
		return c, nil
	}
	return nil, fmt.Errorf(`couldn't find chart named "%s"`, name)
}
