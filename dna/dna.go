// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package dna contains small helpers for primer-sized nucleotide strings:
// reverse-complementation, IUPAC-aware base comparison, and GC content.
//
// All functions accept upper- or lower-case input and emit upper-case output.
package dna

import "strings"

// complementTable maps every ASCII byte to its complement.  IUPAC ambiguity
// codes are complemented to their partner code; everything else becomes 'N'.
var complementTable [256]byte

// iupacMask maps a base to the set of concrete bases it may stand for, one bit
// per base (A=1, C=2, G=4, T=8).
var iupacMask [256]uint8

func init() {
	for i := range complementTable {
		complementTable[i] = 'N'
	}
	pairs := []string{"AT", "CG", "GC", "TA", "RY", "YR", "SS", "WW", "KM", "MK", "BV", "VB", "DH", "HD", "NN"}
	for _, p := range pairs {
		complementTable[p[0]] = p[1]
		complementTable[p[0]+'a'-'A'] = p[1]
	}
	masks := map[byte]uint8{
		'A': 1, 'C': 2, 'G': 4, 'T': 8, 'U': 8,
		'R': 1 | 4, 'Y': 2 | 8, 'S': 2 | 4, 'W': 1 | 8, 'K': 4 | 8, 'M': 1 | 2,
		'B': 2 | 4 | 8, 'D': 1 | 4 | 8, 'H': 1 | 2 | 8, 'V': 1 | 2 | 4,
		'N': 1 | 2 | 4 | 8,
	}
	for b, m := range masks {
		iupacMask[b] = m
		iupacMask[b+'a'-'A'] = m
	}
}

// Complement returns the base-wise complement of seq, without reversing it.
func Complement(seq string) string {
	out := make([]byte, len(seq))
	for i := 0; i < len(seq); i++ {
		out[i] = complementTable[seq[i]]
	}
	return string(out)
}

// ReverseComplement returns the reverse complement of seq.
func ReverseComplement(seq string) string {
	n := len(seq)
	out := make([]byte, n)
	for idx, invIdx := 0, n-1; idx < n; idx, invIdx = idx+1, invIdx-1 {
		out[idx] = complementTable[seq[invIdx]]
	}
	return string(out)
}

// BaseMatch reports whether two bases can pair with the same template base,
// treating IUPAC ambiguity codes as the set of bases they represent.  Gaps and
// unknown bytes never match.
func BaseMatch(a, b byte) bool {
	return iupacMask[a]&iupacMask[b] != 0
}

// TemplateMatch reports whether primer base p anneals to reference base r.
// Unlike BaseMatch, an ambiguous or masked reference base is a mismatch: only
// the primer may carry degenerate codes.
func TemplateMatch(p, r byte) bool {
	switch m := iupacMask[r]; m {
	case 1, 2, 4, 8:
		return iupacMask[p]&m != 0
	}
	return false
}

// Unambiguous reports whether seq is non-empty and consists solely of A, C, G
// and T (either case).
func Unambiguous(seq string) bool {
	if seq == "" {
		return false
	}
	for i := 0; i < len(seq); i++ {
		switch seq[i] {
		case 'A', 'C', 'G', 'T', 'a', 'c', 'g', 't':
		default:
			return false
		}
	}
	return true
}

// Valid reports whether seq consists solely of IUPAC nucleotide codes.
func Valid(seq string) bool {
	for i := 0; i < len(seq); i++ {
		if iupacMask[seq[i]] == 0 {
			return false
		}
	}
	return true
}

// GCPercent returns the percentage of G and C bases in seq, in [0, 100].
// Ambiguous bases count towards the length but not the GC total.
func GCPercent(seq string) float64 {
	if len(seq) == 0 {
		return 0
	}
	n := 0
	for i := 0; i < len(seq); i++ {
		switch seq[i] {
		case 'G', 'C', 'g', 'c', 'S', 's':
			n++
		}
	}
	return 100 * float64(n) / float64(len(seq))
}

// Normalize upper-cases seq and converts U to T.
func Normalize(seq string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case 'u', 'U':
			return 'T'
		}
		if r >= 'a' && r <= 'z' {
			return r - 'a' + 'A'
		}
		return r
	}, seq)
}

// StripGaps removes alignment gap characters ('-') from s.
func StripGaps(s string) string {
	return strings.Replace(s, "-", "", -1)
}
