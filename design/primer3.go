package design

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"v.io/x/lib/lookpath"
)

const (
	// Primer3Binary is the default name of the primer3 executable.
	Primer3Binary = "primer3_core"
	// OligoTmBinary is the default name of primer3's melting temperature
	// calculator.
	OligoTmBinary = "oligotm"
)

// LookBinary resolves name against $PATH, unless it already contains a path
// separator.
func LookBinary(name string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) {
		return name, nil
	}
	path, err := lookpath.Look(map[string]string{"PATH": os.Getenv("PATH")}, name)
	if err != nil {
		return "", errors.E(errors.NotExist, fmt.Sprintf("%s not found in $PATH", name), err)
	}
	return path, nil
}

// Primer3 is an Oracle that runs primer3_core once per request, talking
// Boulder-IO over its stdin and stdout.
type Primer3 struct {
	path string
	// thermoPath is passed as PRIMER_THERMODYNAMIC_PARAMETERS_PATH when set.
	thermoPath string
}

var _ Oracle = (*Primer3)(nil)

// NewPrimer3 locates the primer3 binary.  thermoPath is the directory of
// primer3's thermodynamic parameter files; empty means primer3's default.
func NewPrimer3(binary, thermoPath string) (*Primer3, error) {
	path, err := LookBinary(binary)
	if err != nil {
		return nil, err
	}
	return &Primer3{path: path, thermoPath: thermoPath}, nil
}

// Design implements Oracle.
func (p *Primer3) Design(ctx context.Context, req Request) ([]Pair, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var in bytes.Buffer
	if err := writeBoulder(&in, p.tags(req)); err != nil {
		return nil, err
	}
	out, err := run(ctx, &in, p.path)
	if err != nil {
		return nil, err
	}
	rec, err := readBoulder(bytes.NewReader(out))
	if err != nil {
		return nil, errors.E(fmt.Sprintf("%s: reading output", p.path), err)
	}
	pairs, err := parsePairs(rec)
	if err != nil {
		return nil, err
	}
	log.Debug.Printf("primer3: %d pairs for %d-base template, left window %v", len(pairs), len(req.Template), req.LeftWindow)
	return pairs, nil
}

func (p *Primer3) tags(req Request) []tag {
	prm := req.Params
	i := strconv.Itoa
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	tags := []tag{
		{"SEQUENCE_ID", "template"},
		{"SEQUENCE_TEMPLATE", req.Template},
		{"SEQUENCE_PRIMER_PAIR_OK_REGION_LIST", fmt.Sprintf("%d,%d,-1,-1", req.LeftWindow.Start, req.LeftWindow.Len())},
		{"PRIMER_TASK", "generic"},
		{"PRIMER_PICK_LEFT_PRIMER", "1"},
		{"PRIMER_PICK_INTERNAL_OLIGO", "0"},
		{"PRIMER_PICK_RIGHT_PRIMER", "1"},
		{"PRIMER_PRODUCT_SIZE_RANGE", fmt.Sprintf("%d-%d", req.MinProduct, req.MaxProduct)},
		{"PRIMER_NUM_RETURN", i(req.NumReturn)},
		{"PRIMER_OPT_SIZE", i(prm.PrimerOptSize)},
		{"PRIMER_MIN_SIZE", i(prm.PrimerMinSize)},
		{"PRIMER_MAX_SIZE", i(prm.PrimerMaxSize)},
		{"PRIMER_OPT_TM", f(prm.PrimerOptTm)},
		{"PRIMER_MIN_TM", f(prm.PrimerMinTm)},
		{"PRIMER_MAX_TM", f(prm.PrimerMaxTm)},
		{"PRIMER_MIN_GC", f(prm.PrimerMinGC)},
		{"PRIMER_MAX_GC", f(prm.PrimerMaxGC)},
		{"PRIMER_MAX_POLY_X", i(prm.MaxPolyX)},
		{"PRIMER_MAX_END_STABILITY", f(prm.MaxEndStability)},
		{"PRIMER_SALT_MONOVALENT", f(prm.SaltMonovalent)},
		{"PRIMER_SALT_DIVALENT", f(prm.SaltDivalent)},
		{"PRIMER_DNTP_CONC", f(prm.DNTPConc)},
		{"PRIMER_DNA_CONC", f(prm.DNAConc)},
	}
	if p.thermoPath != "" {
		// primer3 concatenates file names onto this path.
		tags = append(tags, tag{"PRIMER_THERMODYNAMIC_PARAMETERS_PATH", strings.TrimSuffix(p.thermoPath, "/") + "/"})
	}
	return tags
}

// parsePairs extracts the designed pairs from a primer3 output record.
func parsePairs(rec map[string]string) ([]Pair, error) {
	if msg, ok := rec["PRIMER_ERROR"]; ok {
		return nil, errors.E(errors.Invalid, "primer3: "+msg)
	}
	n, err := atoi(rec, "PRIMER_PAIR_NUM_RETURNED")
	if err != nil {
		return nil, err
	}
	pairs := make([]Pair, 0, n)
	for k := 0; k < n; k++ {
		left, err := parseOligo(rec, fmt.Sprintf("PRIMER_LEFT_%d", k))
		if err != nil {
			return nil, err
		}
		right, err := parseOligo(rec, fmt.Sprintf("PRIMER_RIGHT_%d", k))
		if err != nil {
			return nil, err
		}
		// primer3 reports the 0-based position of the right primer's 5'
		// base.
		right.Start++
		pairs = append(pairs, Pair{Left: left, Right: right})
	}
	return pairs, nil
}

func parseOligo(rec map[string]string, key string) (Oligo, error) {
	var (
		o   Oligo
		err error
	)
	pos, ok := rec[key]
	if !ok {
		return o, errors.E(errors.Invalid, "primer3: missing "+key)
	}
	fields := strings.Split(pos, ",")
	if len(fields) != 2 {
		return o, errors.E(errors.Invalid, fmt.Sprintf("primer3: %s=%s: want start,length", key, pos))
	}
	if o.Start, err = strconv.Atoi(fields[0]); err != nil {
		return o, errors.E(errors.Invalid, "primer3: "+key, err)
	}
	o.Seq = rec[key+"_SEQUENCE"]
	if n, err := strconv.Atoi(fields[1]); err != nil || n != len(o.Seq) {
		return o, errors.E(errors.Invalid, fmt.Sprintf("primer3: %s: length %s does not match sequence %q", key, fields[1], o.Seq))
	}
	if o.Tm, err = atof(rec, key+"_TM"); err != nil {
		return o, err
	}
	if o.GC, err = atof(rec, key+"_GC_PERCENT"); err != nil {
		return o, err
	}
	return o, nil
}

func atoi(rec map[string]string, key string) (int, error) {
	v, err := strconv.Atoi(rec[key])
	if err != nil {
		return 0, errors.E(errors.Invalid, "primer3: "+key, err)
	}
	return v, nil
}

func atof(rec map[string]string, key string) (float64, error) {
	v, err := strconv.ParseFloat(rec[key], 64)
	if err != nil {
		return 0, errors.E(errors.Invalid, "primer3: "+key, err)
	}
	return v, nil
}

// waitDelay bounds how long a killed oracle process may hold its output
// pipes open.
const waitDelay = time.Second

// run executes a binary and returns its standard output.  If ctx expires,
// ctx.Err() is returned so that callers can tell timeouts apart.
func run(ctx context.Context, stdin *bytes.Buffer, path string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	if stdin != nil {
		cmd.Stdin = stdin
	}
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.E(fmt.Sprintf("%s: %s", path, strings.TrimSpace(stderr.String())), err)
	}
	return stdout.Bytes(), nil
}

// OligoTm is a Thermo backed by primer3's oligotm binary.
type OligoTm struct {
	path   string
	params Params
}

var _ Thermo = (*OligoTm)(nil)

// NewOligoTm locates the oligotm binary.  The salt and oligo concentrations
// are taken from params.
func NewOligoTm(binary string, params Params) (*OligoTm, error) {
	path, err := LookBinary(binary)
	if err != nil {
		return nil, err
	}
	return &OligoTm{path: path, params: params}, nil
}

// MeltingTemp implements Thermo.
func (o *OligoTm) MeltingTemp(ctx context.Context, seq string) (float64, error) {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	out, err := run(ctx, nil, o.path,
		"-mv", f(o.params.SaltMonovalent),
		"-dv", f(o.params.SaltDivalent),
		"-n", f(o.params.DNTPConc),
		"-d", f(o.params.DNAConc),
		seq)
	if err != nil {
		return 0, err
	}
	tm, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, errors.E(errors.Invalid, fmt.Sprintf("%s: unexpected output %q", o.path, out), err)
	}
	return tm, nil
}
