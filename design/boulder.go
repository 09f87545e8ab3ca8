package design

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Boulder-IO is primer3's record format: one TAG=VALUE per line, with a line
// holding a single "=" terminating the record.

type tag struct {
	key, value string
}

func writeBoulder(w io.Writer, tags []tag) error {
	bw := bufio.NewWriter(w)
	for _, t := range tags {
		if strings.ContainsAny(t.key, "=\n") || strings.ContainsRune(t.value, '\n') {
			return fmt.Errorf("boulder: malformed tag %s", t.key)
		}
		if _, err := fmt.Fprintf(bw, "%s=%s\n", t.key, t.value); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("=\n"); err != nil {
		return err
	}
	return bw.Flush()
}

// readBoulder reads one record.  It returns io.EOF if the input holds no
// record at all.
func readBoulder(r io.Reader) (map[string]string, error) {
	rec := map[string]string{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), 64<<20)
	n := 0
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		n++
		if line == "=" {
			return rec, nil
		}
		if line == "" {
			continue
		}
		i := strings.IndexByte(line, '=')
		if i <= 0 {
			return nil, fmt.Errorf("boulder: line %d: malformed tag %q", n, line)
		}
		rec[line[:i]] = line[i+1:]
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(rec) == 0 {
		return nil, io.EOF
	}
	return nil, fmt.Errorf("boulder: record not terminated by '='")
}
