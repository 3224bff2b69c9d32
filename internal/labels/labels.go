// Package labels loads the gesture label catalog that maps classifier
// output indices to gesture names.
package labels

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Catalog is an immutable, index-ordered list of gesture names. Index i is
// the name of classifier output i.
type Catalog struct {
	names []string
}

// New returns a Catalog holding a copy of names.
func New(names []string) *Catalog {
	return &Catalog{names: append([]string(nil), names...)}
}

// Load reads one name per line from r, preserving order.
//
// A terminal newline does not add an empty entry, so a file written as
// "fist\npalm\n" has two classes. Blank lines between names are kept as
// empty entries to leave the following indices aligned with the model.
// A carriage return before the newline is dropped; any other spaces are
// part of the name.
func Load(r io.Reader) (*Catalog, error) {
	var names []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		names = append(names, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}

	return &Catalog{names: names}, nil
}

// LoadFile reads the catalog from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels %s: %w", path, err)
	}
	defer f.Close()

	c, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Len returns the number of classes.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Name returns the name of class i.
func (c *Catalog) Name(i int) (string, bool) {
	if i < 0 || i >= c.Len() {
		return "", false
	}
	return c.names[i], true
}

// Names returns a copy of all names in index order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.names...)
}
