package assistant

import (
	"bufio"
	"errors"
	"io"
	"os"
	"regexp"
	"strings"
)

// Knowledge is the course logistics table, keyed as written in the source file.
type Knowledge map[string]string

var entryRE = regexp.MustCompile(`^::([\w\-]+)=(.+)$`)

// Parse reads "::key=value" lines. Everything else is prose and ignored.
func Parse(r io.Reader) (Knowledge, error) {
	kb := Knowledge{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		m := entryRE.FindStringSubmatch(strings.TrimSpace(sc.Text()))
		if m == nil {
			continue
		}
		kb[strings.TrimSpace(m[1])] = strings.TrimSpace(m[2])
	}
	return kb, sc.Err()
}

// Load parses the file at path. A missing file is an empty table.
func Load(path string) (Knowledge, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Knowledge{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}
