package align

import (
	"fmt"
	"strconv"
	"strings"
)

// negInf stands in for an unreachable DP cell.  It is far enough from the int
// limits that adding a few penalties cannot overflow.
const negInf = -(1 << 28)

// matrix represents a 2 dimensional matrix.
type matrix struct {
	nRow, nCol int
	data       []int // row-major nRow*nCol array.
}

// newMatrix returns an n x m matrix with every cell set to v.
func newMatrix(n, m, v int) (x matrix) {
	x = matrix{
		nRow: n,
		nCol: m,
		data: make([]int, n*m),
	}
	if v != 0 {
		for i := range x.data {
			x.data[i] = v
		}
	}
	return x
}

func (m matrix) at(i, j int) int     { return m.data[i*m.nCol+j] }
func (m matrix) set(i, j int, v int) { m.data[i*m.nCol+j] = v }

// String returns a string representation of a matrix, for debugging.
func (m matrix) String() (r string) {
	cell := func(d int) string {
		if d <= negInf/2 {
			return "-inf"
		}
		return strconv.Itoa(d)
	}
	maxLength := 0
	for _, d := range m.data {
		if l := len(cell(d)); l > maxLength {
			maxLength = l
		}
	}

	lines := []string{"\n"}
	for i := 0; i < m.nRow; i++ {
		var parts []string
		for j := 0; j < m.nCol; j++ {
			parts = append(parts, fmt.Sprintf("%*s", maxLength, cell(m.at(i, j))))
		}
		lines = append(lines, strings.Join(parts, " | "))
	}
	return strings.Join(lines, "\n")
}

func max3(a, b, c int) int {
	if b > a {
		a = b
	}
	if c > a {
		a = c
	}
	return a
}
